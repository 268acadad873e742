//go:build !linux

package ipc

import "net"

func peerCredentials(net.Conn) (PeerCredentials, bool) {
	return PeerCredentials{}, false
}

package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDialReportsUnavailableWhenSocketMissing(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "bridge.sock")

	_, err := Dial(context.Background(), socketPath, 100*time.Millisecond)
	require.Error(t, err)
	require.True(t, IsUnavailable(err))
}

func TestDialReportsUnavailableForStaleFile(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "bridge.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	listener.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, listener.Close())

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)

	_, err = Dial(context.Background(), socketPath, 100*time.Millisecond)
	require.Error(t, err)
	require.True(t, IsUnavailable(err))
}

func TestPeerReadStateRejectsInvalidLine(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "bridge.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("nope\n"))
	}()

	peer, err := Dial(context.Background(), socketPath, time.Second)
	require.NoError(t, err)
	defer peer.Close()

	require.NoError(t, peer.SetReadDeadline(time.Now().Add(testWait)))
	_, err = peer.ReadState()
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestIsUnavailableNil(t *testing.T) {
	require.False(t, IsUnavailable(nil))
}

package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorTracksBridgeEvents(t *testing.T) {
	c := NewCollector()

	c.PeerConnected()
	c.Received(1)
	c.Received(0)
	c.Malformed()
	c.Sent(1)
	c.Dropped()
	c.ObserveLockState(1)

	require.Equal(t, float64(1), testutil.ToFloat64(c.connections))
	require.Equal(t, float64(1), testutil.ToFloat64(c.connected))
	require.Equal(t, float64(2), testutil.ToFloat64(c.received))
	require.Equal(t, float64(1), testutil.ToFloat64(c.malformed))
	require.Equal(t, float64(1), testutil.ToFloat64(c.sent))
	require.Equal(t, float64(1), testutil.ToFloat64(c.dropped))
	require.Equal(t, float64(1), testutil.ToFloat64(c.reportedState))

	c.PeerDisconnected()
	require.Equal(t, float64(0), testutil.ToFloat64(c.connected))
	require.Equal(t, float64(1), testutil.ToFloat64(c.disconnects))
}

func TestServeExportsMetrics(t *testing.T) {
	c := NewCollector()
	c.PeerConnected()

	srv, err := Serve("127.0.0.1:0", c, nil)
	require.NoError(t, err)

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "lockbridge_peer_connections_total 1")
	require.Contains(t, string(body), "lockbridge_lock_reported_state 3")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}

func TestServeRejectsBadAddress(t *testing.T) {
	_, err := Serve("not-an-address", NewCollector(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "metrics listen")
}

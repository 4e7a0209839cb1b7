package wsock

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/espnow.go/pkg/espnow"
)

var (
	addrA = espnow.Addr{0x02, 0, 0, 0, 0, 0xa1}
	addrB = espnow.Addr{0x02, 0, 0, 0, 0, 0xb2}
)

func TestFrameCodec(t *testing.T) {
	f := encodeData(addrA, addrB, []byte("hi"))
	dst, src, payload, ok := decodeData(f)
	require.True(t, ok)
	require.Equal(t, addrA, dst)
	require.Equal(t, addrB, src)
	require.Equal(t, []byte("hi"), payload)

	_, _, _, ok = decodeData(f[:8])
	require.False(t, ok)
	_, _, _, ok = decodeData(encodeAck(addrA, true))
	require.False(t, ok)

	peer, delivered, ok := decodeAck(encodeAck(addrB, true))
	require.True(t, ok)
	require.Equal(t, addrB, peer)
	require.True(t, delivered)
	_, delivered, ok = decodeAck(encodeAck(addrB, false))
	require.True(t, ok)
	require.False(t, delivered)
}

func hubServer(t *testing.T) (*httptest.Server, string) {
	srv := httptest.NewServer(NewHub().Handler())
	t.Cleanup(srv.Close)
	return srv, "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func dialNode(t *testing.T, hubURL string, addr espnow.Addr) *espnow.Transport {
	drv, err := Dial(hubURL, addr)
	require.NoError(t, err)
	tr, err := espnow.New(drv, espnow.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestHubRoundTrip(t *testing.T) {
	_, hubURL := hubServer(t)
	a := dialNode(t, hubURL, addrA)
	b := dialNode(t, hubURL, addrB)

	ok, err := a.Send(&addrB, []byte("over the wire"), true)
	require.NoError(t, err)
	require.True(t, ok)

	peer, msg, err := b.Recv(time.Second)
	require.NoError(t, err)
	require.Equal(t, addrA, peer)
	require.Equal(t, []byte("over the wire"), msg)
}

func TestHubUnknownPeer(t *testing.T) {
	_, hubURL := hubServer(t)
	a := dialNode(t, hubURL, addrA)

	ghost := espnow.Addr{0xde, 0xad, 0, 0, 0, 1}
	ok, err := a.Send(&ghost, []byte("anyone?"), true)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, uint32(1), a.Stats().TxFailures)
}

func TestHubBroadcast(t *testing.T) {
	_, hubURL := hubServer(t)
	a := dialNode(t, hubURL, addrA)
	b := dialNode(t, hubURL, addrB)

	ok, err := a.Send(&espnow.Broadcast, []byte("hear ye"), true)
	require.NoError(t, err)
	require.True(t, ok)

	peer, msg, err := b.Recv(time.Second)
	require.NoError(t, err)
	require.Equal(t, addrA, peer)
	require.Equal(t, []byte("hear ye"), msg)
	require.False(t, a.Readable())
}

func TestHubRejectsBadAddr(t *testing.T) {
	_, hubURL := hubServer(t)
	drv, err := Dial(hubURL, espnow.Broadcast)
	require.NoError(t, err)
	tr, err := espnow.New(drv, espnow.Config{})
	require.NoError(t, err)
	defer tr.Close()

	// the hub closes the connection instead of joining it
	dst := addrB
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err = tr.Send(&dst, []byte("x"), false); err != nil {
			break
		}
		require.True(t, time.Now().Before(deadline), "send kept succeeding")
		time.Sleep(10 * time.Millisecond)
	}
}

package connection

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/mechcore/firecontrol/internal/transport"
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/mechcore/firecontrol/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type disconnects struct {
	mu   sync.Mutex
	errs []error
}

func (d *disconnects) record(_ *Connection, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, err)
}

func (d *disconnects) list() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.errs...)
}

func testCodec(t *testing.T) *transport.Codec {
	t.Helper()
	reg, err := transport.DefaultRegistry()
	require.NoError(t, err)
	c, err := transport.NewCodec(reg, "json", 64, 0)
	require.NoError(t, err)
	return c
}

func pipePair(t *testing.T) (*Connection, *Connection, *disconnects, *disconnects) {
	t.Helper()
	a, b := net.Pipe()
	da, db := &disconnects{}, &disconnects{}
	codec := testCodec(t)
	ca, err := New(a, Options{Codec: codec, OnDisconnect: da.record, Kind: "pipe"})
	require.NoError(t, err)
	cb, err := New(b, Options{Codec: codec, OnDisconnect: db.record, Kind: "pipe"})
	require.NoError(t, err)
	t.Cleanup(func() {
		ca.Close()
		cb.Close()
	})
	return ca, cb, da, db
}

func collect(t *testing.T, c *Connection, n int) []protocol.Packet {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []protocol.Packet
	stop := errors.New("enough")
	err := c.Process(ctx, func(m transport.Message) error {
		got = append(got, m.Packet)
		if len(got) == n {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	return got
}

func TestSendPreservesOrder(t *testing.T) {
	a, b, _, _ := pipePair(t)

	for i := 1; i <= 20; i++ {
		require.NoError(t, a.SendPayload(protocol.Phase, protocol.PhasePayload{Phase: i}))
	}

	got := collect(t, b, 20)
	for i, pkt := range got {
		assert.Equal(t, protocol.Phase, pkt.Command)
		var p protocol.PhasePayload
		require.NoError(t, transport.Message{Packet: pkt, Marshaller: transport.JSON{}}.Decode(&p))
		assert.Equal(t, i+1, p.Phase)
	}
}

func TestLargePacketIsCompressed(t *testing.T) {
	a, b, _, _ := pipePair(t)

	text := strings.Repeat("Atlas takes 5 damage to CT. ", 100)
	require.NoError(t, a.SendPayload(protocol.Reports, protocol.ReportsPayload{
		Reports: []core.Report{{Text: text}},
	}))

	got := collect(t, b, 1)
	assert.Contains(t, string(got[0].Payload), "Atlas takes 5 damage")
}

func TestCloseIsIdempotent(t *testing.T) {
	a, b, da, db := pipePair(t)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("peer not closed")
	}

	assert.Equal(t, []error{nil}, da.list())
	require.Eventually(t, func() bool { return len(db.list()) == 1 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, db.list()[0], io.EOF)
	assert.ErrorIs(t, b.Err(), io.EOF)
	assert.NoError(t, a.Err())

	assert.ErrorIs(t, a.Send(protocol.Packet{Command: protocol.Hello}), ErrClosed)
}

func TestCloseDiscardsQueue(t *testing.T) {
	a, _ := net.Pipe()
	c, err := New(a, Options{Codec: testCodec(t)})
	require.NoError(t, err)

	// Nobody reads the other end, so the first write blocks the flusher.
	for range 10 {
		require.NoError(t, c.Send(protocol.Packet{Command: protocol.Hello}))
	}
	require.NoError(t, c.Close())
	assert.Zero(t, c.Pending())
	assert.ErrorIs(t, c.Flush(), ErrClosed)
}

func TestProcess_StopsOnClose(t *testing.T) {
	a, b, _, _ := pipePair(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Process(context.Background(), func(transport.Message) error { return nil })
	}()

	require.NoError(t, a.Close())
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("Process did not return")
	}
}

func TestProcess_AppliesPacketsReadBeforeClose(t *testing.T) {
	a, b, _, _ := pipePair(t)

	for i := 1; i <= 3; i++ {
		require.NoError(t, a.SendPayload(protocol.Phase, protocol.PhasePayload{Phase: i}))
	}
	require.NoError(t, a.Flush())
	require.NoError(t, a.Close())

	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed")
	}

	var phases []int
	err := b.Process(context.Background(), func(m transport.Message) error {
		var p protocol.PhasePayload
		require.NoError(t, m.Decode(&p))
		phases = append(phases, p.Phase)
		return nil
	})
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []int{1, 2, 3}, phases)
}

func TestProcess_Context(t *testing.T) {
	_, b, _, _ := pipePair(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Process(ctx, func(transport.Message) error { return nil }), context.Canceled)
}

func TestBadFrameClosesConnection(t *testing.T) {
	a, b := net.Pipe()
	d := &disconnects{}
	c, err := New(b, Options{Codec: testCodec(t), OnDisconnect: d.record})
	require.NoError(t, err)
	defer c.Close()

	go func() {
		_, _ = a.Write([]byte{9, 0, 0, 0, 0, 0, 0, 0, 0})
	}()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed")
	}
	require.Len(t, d.list(), 1)
	assert.ErrorIs(t, d.list()[0], transport.ErrBadFrame)
}

func TestNew_NeedsCodec(t *testing.T) {
	a, _ := net.Pipe()
	_, err := New(a, Options{})
	require.Error(t, err)
}

func TestWebSocketStream(t *testing.T) {
	codec := testCodec(t)
	upgrader := ws.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c, err := New(NewWebSocketStream(conn), Options{Codec: codec, Kind: "websocket"})
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.Process(context.Background(), func(m transport.Message) error {
			return c.Send(m.Packet)
		})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	client, err := New(NewWebSocketStream(conn), Options{Codec: codec, Kind: "websocket"})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.SendPayload(protocol.Hello, protocol.HelloPayload{Name: "lance", Version: protocol.Version}))
	require.NoError(t, client.SendPayload(protocol.EndPhase, nil))

	got := collect(t, client, 2)
	assert.Equal(t, protocol.Hello, got[0].Command)
	assert.Equal(t, protocol.EndPhase, got[1].Command)
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_SendRecv(t *testing.T) {
	a, b := Pipe("a", "b")

	require.NoError(t, a.Send([]byte("hello")))
	frame, err := b.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), frame)

	assert.Equal(t, "a", a.LocalEndpoint())
	assert.Equal(t, "b", a.RemoteEndpoint())
	assert.Equal(t, "b", b.LocalEndpoint())
	assert.Equal(t, "a", b.RemoteEndpoint())
}

func TestPipe_CloseClosesBothEnds(t *testing.T) {
	a, b := Pipe("a", "b")

	require.NoError(t, a.Send([]byte("last")))
	require.NoError(t, b.Close())

	assert.True(t, a.IsClosed())
	assert.ErrorIs(t, a.Send([]byte("x")), ErrConnectionClosed)

	// 关闭前送达的帧仍可读出
	frame, err := b.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("last"), frame)

	_, err = b.Recv()
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestPipe_SendCopiesFrame(t *testing.T) {
	a, b := Pipe("a", "b")

	buf := []byte("abc")
	require.NoError(t, a.Send(buf))
	buf[0] = 'x'

	frame, err := b.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), frame)
}

func TestTransport_DialListen(t *testing.T) {
	hub := NewHub()
	server := NewTransport(hub)
	client := NewTransport(hub)

	l, err := server.Listen("node-a")
	require.NoError(t, err)
	defer l.Close()

	accepted := make(chan error, 1)
	go func() {
		conn, err := l.Accept()
		if err == nil {
			_, err = conn.Recv()
		}
		accepted <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	conn, err := client.Dial(ctx, "node-a")
	require.NoError(t, err)
	assert.Equal(t, "node-a", conn.RemoteEndpoint())
	require.NoError(t, conn.Send([]byte("ping")))

	select {
	case err := <-accepted:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("accept timed out")
	}
}

func TestTransport_DialUnknownEndpoint(t *testing.T) {
	tr := NewTransport(NewHub())

	_, err := tr.Dial(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoListener)
}

func TestTransport_ListenTwice(t *testing.T) {
	hub := NewHub()
	tr := NewTransport(hub)

	l, err := tr.Listen("node-a")
	require.NoError(t, err)

	_, err = tr.Listen("node-a")
	assert.ErrorIs(t, err, ErrEndpointInUse)

	require.NoError(t, l.Close())
	_, err = l.Accept()
	assert.ErrorIs(t, err, ErrListenerClosed)

	// 关闭后端点可重新使用
	l2, err := tr.Listen("node-a")
	require.NoError(t, err)
	require.NoError(t, l2.Close())
}

func TestTransport_Closed(t *testing.T) {
	tr := NewTransport(NewHub())
	require.NoError(t, tr.Close())

	_, err := tr.Listen("x")
	assert.ErrorIs(t, err, ErrTransportClosed)
	_, err = tr.Dial(context.Background(), "x")
	assert.ErrorIs(t, err, ErrTransportClosed)
}

package dispatch

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
)

type recordingSender struct {
	mu   sync.Mutex
	sent map[string][][]byte
}

func (s *recordingSender) Send(recipient string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = make(map[string][][]byte)
	}
	s.sent[recipient] = append(s.sent[recipient], payload)
	return nil
}

func TestDispatcher_RoutesByType(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender)

	var got *MessageContext
	d.SetHandler(HandlerFunc{
		Type: 7,
		Fn: func(payload []byte, mctx *MessageContext, s pkgif.MessageSender) error {
			got = mctx
			return s.Send(mctx.SourceID(), append([]byte("echo:"), payload...))
		},
	})

	require.True(t, d.HasHandler(7))
	require.NoError(t, d.Dispatch("conn-1", 7, []byte("hi")))

	require.NotNil(t, got)
	assert.Equal(t, "conn-1", got.SourceID())
	assert.Equal(t, MessageType(7), got.MessageType())
	assert.Equal(t, []byte("hi"), got.Payload())
	assert.Equal(t, [][]byte{[]byte("echo:hi")}, sender.sent["conn-1"])
}

func TestDispatcher_UnknownType(t *testing.T) {
	d := NewDispatcher(&recordingSender{})

	err := d.Dispatch("conn-1", 42, nil)
	require.Error(t, err)

	var de *DispatchError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, KindUnknownMessageType, de.Kind)
	assert.Equal(t, MessageType(42), de.MessageType)
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestDispatcher_Fallback(t *testing.T) {
	d := NewDispatcher(&recordingSender{})

	called := false
	d.SetFallbackHandler(HandlerFunc{Fn: func([]byte, *MessageContext, pkgif.MessageSender) error {
		called = true
		return nil
	}})

	require.NoError(t, d.Dispatch("conn-1", 99, nil))
	assert.True(t, called)
}

func TestDispatcher_HandlerErrorWrapped(t *testing.T) {
	d := NewDispatcher(&recordingSender{})
	boom := errors.New("boom")

	d.SetHandler(HandlerFunc{Type: 1, Fn: func([]byte, *MessageContext, pkgif.MessageSender) error {
		return boom
	}})
	d.SetHandler(HandlerFunc{Type: 2, Fn: func([]byte, *MessageContext, pkgif.MessageSender) error {
		return NetworkSendError(boom)
	}})

	err := d.Dispatch("c", 1, nil)
	var de *DispatchError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, KindHandler, de.Kind)
	assert.Equal(t, MessageType(1), de.MessageType)
	assert.ErrorIs(t, err, boom)

	err = d.Dispatch("c", 2, nil)
	require.True(t, errors.As(err, &de))
	assert.Equal(t, KindNetworkSend, de.Kind)
	assert.Equal(t, MessageType(2), de.MessageType)
}

func TestDispatcher_ReplaceHandler(t *testing.T) {
	d := NewDispatcher(&recordingSender{})
	hits := ""

	d.SetHandler(HandlerFunc{Type: 3, Fn: func([]byte, *MessageContext, pkgif.MessageSender) error {
		hits += "a"
		return nil
	}})
	d.SetHandler(HandlerFunc{Type: 3, Fn: func([]byte, *MessageContext, pkgif.MessageSender) error {
		hits += "b"
		return nil
	}})

	require.NoError(t, d.Dispatch("c", 3, nil))
	assert.Equal(t, "b", hits)
}

package interfaces_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-splinter/pkg/interfaces"
)

func TestConnectionNotification_String(t *testing.T) {
	tests := []struct {
		name string
		note interfaces.ConnectionNotification
		want string
	}{
		{
			name: "connected",
			note: interfaces.ConnectionNotification{Kind: interfaces.NotifyConnected, Endpoint: "inproc://a", Identity: "peer-a", ConnectionID: "c1"},
			want: "Connected{endpoint=inproc://a, identity=peer-a, connection=c1}",
		},
		{
			name: "non fatal",
			note: interfaces.ConnectionNotification{Kind: interfaces.NotifyNonFatalConnectionError, Endpoint: "inproc://a", Attempts: 3},
			want: "NonFatalConnectionError{endpoint=inproc://a, attempts=3}",
		},
		{
			name: "fatal",
			note: interfaces.ConnectionNotification{Kind: interfaces.NotifyFatalConnectionError, Endpoint: "inproc://a", Err: errors.New("gave up")},
			want: "FatalConnectionError{endpoint=inproc://a, err=gave up}",
		},
		{
			name: "disconnected",
			note: interfaces.ConnectionNotification{Kind: interfaces.NotifyDisconnected, Endpoint: "inproc://a"},
			want: "Disconnected{endpoint=inproc://a}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.note.String())
		})
	}

	assert.Equal(t, "ConnectionNotificationKind(99)", interfaces.ConnectionNotificationKind(99).String())
}

func TestPeerNotification_String(t *testing.T) {
	n := interfaces.PeerNotification{Kind: interfaces.PeerConnected, PeerID: "peer-a"}
	assert.Equal(t, "Connected{peer=peer-a}", n.String())
	assert.Equal(t, "PeerNotificationKind(0)", interfaces.PeerNotificationKind(0).String())
}

func TestSendError_Unwrap(t *testing.T) {
	cause := errors.New("closed")
	err := &interfaces.SendError{Recipient: "c1", Payload: []byte("x"), Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "c1")
}

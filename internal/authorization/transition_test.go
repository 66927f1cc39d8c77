package authorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiating_ChallengePath(t *testing.T) {
	ms := newManagedAuthorizationState()
	local := ChallengeIdentity{PublicKey: []byte{0x02, 0x01}}

	steps := []struct {
		action InitiatingAction
		want   InitiatingState
	}{
		{SendAuthProtocolRequest{}, WaitingForAuthProtocolResponse{}},
		{ChallengeInitiatingStep{Action: SendAuthChallengeNonceRequest{}},
			InitiatingChallenge{Sub: WaitingForAuthChallengeNonceResponse{}}},
		{ChallengeInitiatingStep{Action: SendAuthChallengeSubmitRequest{LocalIdentity: local}},
			InitiatingChallenge{Sub: WaitingForAuthChallengeSubmitResponse{}}},
		{ChallengeInitiatingStep{Action: ReceiveAuthChallengeSubmitResponse{}}, Authorized{}},
		{SendAuthComplete{}, WaitForComplete{}},
		{ReceiveAuthComplete{}, AuthorizedAndComplete{}},
	}

	for _, step := range steps {
		next, err := nextInitiatingState(&ms, step.action)
		require.NoError(t, err, "action %s", step.action)
		assert.Equal(t, step.want, next)
		assert.Equal(t, step.want, ms.Initiating)
	}

	assert.True(t, ms.LocalAuthorization.Equal(local))
	assert.True(t, ms.ReceivedComplete)
}

func TestInitiating_CompleteReceivedEarly(t *testing.T) {
	ms := newManagedAuthorizationState()

	_, err := nextInitiatingState(&ms, SendAuthProtocolRequest{})
	require.NoError(t, err)
	_, err = nextInitiatingState(&ms, TrustInitiatingStep{Action: SendAuthTrustRequest{Identity: TrustIdentity{ID: "a"}}})
	require.NoError(t, err)

	// 对端先完成，状态不变但记录标志
	next, err := nextInitiatingState(&ms, ReceiveAuthComplete{})
	require.NoError(t, err)
	assert.Equal(t, InitiatingTrust{Sub: WaitingForAuthTrustResponse{}}, next)
	assert.True(t, ms.ReceivedComplete)

	_, err = nextInitiatingState(&ms, TrustInitiatingStep{Action: ReceiveAuthTrustResponse{}})
	require.NoError(t, err)

	next, err = nextInitiatingState(&ms, SendAuthComplete{})
	require.NoError(t, err)
	assert.Equal(t, AuthorizedAndComplete{}, next)
	assert.Equal(t, TrustIdentity{ID: "a"}, ms.LocalAuthorization)
}

func TestInitiating_SubmitResponseUpdatesLocalIdentity(t *testing.T) {
	ms := ManagedAuthorizationState{
		Initiating:         InitiatingChallenge{Sub: WaitingForAuthChallengeSubmitResponse{}},
		Accepting:          WaitingForAuthProtocolRequest{},
		LocalAuthorization: ChallengeIdentity{PublicKey: []byte{1}},
	}

	_, err := nextInitiatingState(&ms, ChallengeInitiatingStep{Action: ReceiveAuthChallengeSubmitResponse{PublicKey: []byte{2}}})
	require.NoError(t, err)
	assert.Equal(t, ChallengeIdentity{PublicKey: []byte{2}}, ms.LocalAuthorization)
}

func TestInitiating_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name   string
		state  InitiatingState
		action InitiatingAction
	}{
		{"complete before authorized", WaitingForAuthProtocolResponse{}, SendAuthComplete{}},
		{"protocol request twice", WaitingForAuthProtocolResponse{}, SendAuthProtocolRequest{}},
		{"submit before nonce request", WaitingForStart{}, ChallengeInitiatingStep{Action: SendAuthChallengeSubmitRequest{}}},
		{"submit response before submit", InitiatingChallenge{Sub: WaitingForAuthChallengeNonceResponse{}},
			ChallengeInitiatingStep{Action: ReceiveAuthChallengeSubmitResponse{}}},
		{"submit twice", InitiatingChallenge{Sub: WaitingForAuthChallengeSubmitResponse{}},
			ChallengeInitiatingStep{Action: SendAuthChallengeSubmitRequest{}}},
		{"trust action in challenge", InitiatingChallenge{Sub: WaitingForAuthChallengeNonceResponse{}},
			TrustInitiatingStep{Action: ReceiveAuthTrustResponse{}}},
		{"trust response before request", WaitingForAuthProtocolResponse{}, TrustInitiatingStep{Action: ReceiveAuthTrustResponse{}}},
		{"complete from terminal", AuthorizedAndComplete{}, ReceiveAuthComplete{}},
		{"anything from unauthorized", Unauthorized{}, SendAuthProtocolRequest{}},
		{"complete received twice", WaitForComplete{}, SendAuthComplete{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := ManagedAuthorizationState{Initiating: tt.state, Accepting: WaitingForAuthProtocolRequest{}}

			next, err := nextInitiatingState(&ms, tt.action)
			require.Error(t, err)
			assert.Nil(t, next)

			var ist *InvalidStateTransition
			require.ErrorAs(t, err, &ist)
			assert.Equal(t, TrackInitiating, ist.Track)
			assert.Equal(t, tt.state, ms.Initiating, "state must not change")
			assert.False(t, ms.ReceivedComplete)
		})
	}
}

func TestAccepting_ChallengePath(t *testing.T) {
	ms := newManagedAuthorizationState()
	peer := ChallengeIdentity{PublicKey: []byte{0x03, 0x07}}
	nonce := []byte("nonce")

	_, err := nextAcceptingState(&ms, ReceiveAuthProtocolRequest{})
	require.NoError(t, err)

	next, err := nextAcceptingState(&ms, ChallengeAcceptingStep{Action: ReceiveAuthChallengeNonceRequest{Nonce: nonce}})
	require.NoError(t, err)
	assert.Equal(t, AcceptingChallenge{Sub: WaitingForAuthChallengeSubmitRequest{Nonce: nonce}}, next)

	next, err = nextAcceptingState(&ms, ChallengeAcceptingStep{Action: ReceiveAuthChallengeSubmitRequest{Identity: peer}})
	require.NoError(t, err)
	assert.Equal(t, AcceptingChallenge{Sub: ReceivedAuthChallengeSubmitRequest{Identity: peer}}, next)

	next, err = nextAcceptingState(&ms, ReceiveAuthComplete{})
	require.NoError(t, err)
	assert.Equal(t, Done{Identity: peer}, next)

	id, ok := ms.RemoteIdentity()
	require.True(t, ok)
	assert.True(t, id.Equal(peer))
}

func TestAccepting_TrustPath(t *testing.T) {
	ms := newManagedAuthorizationState()

	_, err := nextAcceptingState(&ms, ReceiveAuthProtocolRequest{})
	require.NoError(t, err)
	_, err = nextAcceptingState(&ms, TrustAcceptingStep{Action: ReceiveAuthTrustRequest{Identity: TrustIdentity{ID: "peer-b"}}})
	require.NoError(t, err)

	next, err := nextAcceptingState(&ms, ReceiveAuthComplete{})
	require.NoError(t, err)
	assert.Equal(t, Done{Identity: TrustIdentity{ID: "peer-b"}}, next)
}

func TestAccepting_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name   string
		state  AcceptingState
		action AcceptingAction
	}{
		{"nonce before protocol", WaitingForAuthProtocolRequest{}, ChallengeAcceptingStep{Action: ReceiveAuthChallengeNonceRequest{}}},
		{"protocol twice", SentAuthProtocolResponse{}, ReceiveAuthProtocolRequest{}},
		{"submit before nonce", SentAuthProtocolResponse{}, ChallengeAcceptingStep{Action: ReceiveAuthChallengeSubmitRequest{}}},
		{"complete before submit", AcceptingChallenge{Sub: WaitingForAuthChallengeSubmitRequest{}}, ReceiveAuthComplete{}},
		{"submit twice", AcceptingChallenge{Sub: ReceivedAuthChallengeSubmitRequest{}},
			ChallengeAcceptingStep{Action: ReceiveAuthChallengeSubmitRequest{}}},
		{"nonce inside challenge", AcceptingChallenge{Sub: WaitingForAuthChallengeSubmitRequest{}},
			ChallengeAcceptingStep{Action: ReceiveAuthChallengeNonceRequest{}}},
		{"trust in challenge", AcceptingChallenge{Sub: WaitingForAuthChallengeSubmitRequest{}},
			TrustAcceptingStep{Action: ReceiveAuthTrustRequest{}}},
		{"complete after done", Done{Identity: TrustIdentity{ID: "x"}}, ReceiveAuthComplete{}},
		{"anything from unauthorizing", Unauthorizing{}, ReceiveAuthProtocolRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := ManagedAuthorizationState{Initiating: WaitingForStart{}, Accepting: tt.state}

			next, err := nextAcceptingState(&ms, tt.action)
			require.Error(t, err)
			assert.Nil(t, next)

			var ist *InvalidStateTransition
			require.ErrorAs(t, err, &ist)
			assert.Equal(t, TrackAccepting, ist.Track)
			assert.Equal(t, tt.state, ms.Accepting)
		})
	}
}

func TestUnauthorize_FromAnyState(t *testing.T) {
	initiating := []InitiatingState{
		WaitingForStart{},
		WaitingForAuthProtocolResponse{},
		InitiatingChallenge{Sub: WaitingForAuthChallengeSubmitResponse{}},
		Authorized{},
		AuthorizedAndComplete{},
	}
	for _, s := range initiating {
		ms := ManagedAuthorizationState{Initiating: s, Accepting: WaitingForAuthProtocolRequest{}}
		next, err := nextInitiatingState(&ms, Unauthorize{})
		require.NoError(t, err)
		assert.Equal(t, Unauthorized{}, next)
	}

	accepting := []AcceptingState{
		WaitingForAuthProtocolRequest{},
		SentAuthProtocolResponse{},
		AcceptingChallenge{Sub: WaitingForAuthChallengeSubmitRequest{}},
		Done{Identity: TrustIdentity{ID: "x"}},
	}
	for _, s := range accepting {
		ms := ManagedAuthorizationState{Initiating: WaitingForStart{}, Accepting: s}
		next, err := nextAcceptingState(&ms, Unauthorize{})
		require.NoError(t, err)
		assert.Equal(t, Unauthorizing{}, next)
	}
}

func TestManagedState_Outcome(t *testing.T) {
	ms := ManagedAuthorizationState{Initiating: AuthorizedAndComplete{}, Accepting: SentAuthProtocolResponse{}}
	assert.False(t, ms.IsAuthorized())
	assert.False(t, ms.IsUnauthorized())

	ms.Accepting = Done{Identity: TrustIdentity{ID: "x"}}
	assert.True(t, ms.IsAuthorized())

	ms.Accepting = Unauthorizing{}
	assert.False(t, ms.IsAuthorized())
	assert.True(t, ms.IsUnauthorized())
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "Challenge(WaitingForAuthChallengeNonceResponse)",
		InitiatingChallenge{Sub: WaitingForAuthChallengeNonceResponse{}}.String())
	assert.Equal(t, "Trust(ReceivedAuthTrustRequest(Trust{peer}))",
		AcceptingTrust{Sub: ReceivedAuthTrustRequest{Identity: TrustIdentity{ID: "peer"}}}.String())

	err := &InvalidStateTransition{Track: TrackAccepting, State: Unauthorizing{}, Action: ReceiveAuthComplete{}}
	assert.Contains(t, err.Error(), "accepting")
	assert.Contains(t, err.Error(), "Unauthorizing")
	assert.Contains(t, err.Error(), "ReceiveAuthComplete")
}

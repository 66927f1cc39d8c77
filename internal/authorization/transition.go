package authorization

// nextInitiatingState 计算发起轨道的下一状态
//
// 成功时同步更新 ms 的 Initiating、ReceivedComplete 和 LocalAuthorization。
// 未列出的 (状态, 动作) 组合返回 *InvalidStateTransition，ms 保持不变。
func nextInitiatingState(ms *ManagedAuthorizationState, action InitiatingAction) (InitiatingState, error) {
	invalid := &InvalidStateTransition{Track: TrackInitiating, State: ms.Initiating, Action: action}

	// 失败可以从任意状态进入
	if _, ok := action.(Unauthorize); ok {
		ms.Initiating = Unauthorized{}
		return ms.Initiating, nil
	}

	var next InitiatingState
	switch cur := ms.Initiating.(type) {
	case WaitingForStart:
		switch action.(type) {
		case SendAuthProtocolRequest:
			next = WaitingForAuthProtocolResponse{}
		case ReceiveAuthComplete:
			ms.ReceivedComplete = true
			next = cur
		default:
			return nil, invalid
		}

	case WaitingForAuthProtocolResponse:
		switch a := action.(type) {
		case TrustInitiatingStep:
			send, ok := a.Action.(SendAuthTrustRequest)
			if !ok {
				return nil, invalid
			}
			ms.LocalAuthorization = send.Identity
			next = InitiatingTrust{Sub: WaitingForAuthTrustResponse{}}
		case ChallengeInitiatingStep:
			if _, ok := a.Action.(SendAuthChallengeNonceRequest); !ok {
				return nil, invalid
			}
			next = InitiatingChallenge{Sub: WaitingForAuthChallengeNonceResponse{}}
		case ReceiveAuthComplete:
			ms.ReceivedComplete = true
			next = cur
		default:
			return nil, invalid
		}

	case InitiatingTrust:
		switch a := action.(type) {
		case TrustInitiatingStep:
			if _, ok := a.Action.(ReceiveAuthTrustResponse); !ok {
				return nil, invalid
			}
			next = Authorized{}
		case ReceiveAuthComplete:
			ms.ReceivedComplete = true
			next = cur
		default:
			return nil, invalid
		}

	case InitiatingChallenge:
		switch a := action.(type) {
		case ChallengeInitiatingStep:
			switch sub := a.Action.(type) {
			case SendAuthChallengeSubmitRequest:
				if _, ok := cur.Sub.(WaitingForAuthChallengeNonceResponse); !ok {
					return nil, invalid
				}
				ms.LocalAuthorization = sub.LocalIdentity
				next = InitiatingChallenge{Sub: WaitingForAuthChallengeSubmitResponse{}}
			case ReceiveAuthChallengeSubmitResponse:
				if _, ok := cur.Sub.(WaitingForAuthChallengeSubmitResponse); !ok {
					return nil, invalid
				}
				if len(sub.PublicKey) > 0 {
					ms.LocalAuthorization = ChallengeIdentity{PublicKey: sub.PublicKey}
				}
				next = Authorized{}
			default:
				return nil, invalid
			}
		case ReceiveAuthComplete:
			ms.ReceivedComplete = true
			next = cur
		default:
			return nil, invalid
		}

	case Authorized:
		switch action.(type) {
		case SendAuthComplete:
			if ms.ReceivedComplete {
				next = AuthorizedAndComplete{}
			} else {
				next = WaitForComplete{}
			}
		case ReceiveAuthComplete:
			ms.ReceivedComplete = true
			next = cur
		default:
			return nil, invalid
		}

	case WaitForComplete:
		switch action.(type) {
		case ReceiveAuthComplete:
			ms.ReceivedComplete = true
			next = AuthorizedAndComplete{}
		default:
			return nil, invalid
		}

	default:
		// AuthorizedAndComplete 与 Unauthorized 为终态
		return nil, invalid
	}

	ms.Initiating = next
	return next, nil
}

// nextAcceptingState 计算接受轨道的下一状态
func nextAcceptingState(ms *ManagedAuthorizationState, action AcceptingAction) (AcceptingState, error) {
	invalid := &InvalidStateTransition{Track: TrackAccepting, State: ms.Accepting, Action: action}

	if _, ok := action.(Unauthorize); ok {
		ms.Accepting = Unauthorizing{}
		return ms.Accepting, nil
	}

	var next AcceptingState
	switch cur := ms.Accepting.(type) {
	case WaitingForAuthProtocolRequest:
		if _, ok := action.(ReceiveAuthProtocolRequest); !ok {
			return nil, invalid
		}
		next = SentAuthProtocolResponse{}

	case SentAuthProtocolResponse:
		switch a := action.(type) {
		case TrustAcceptingStep:
			recv, ok := a.Action.(ReceiveAuthTrustRequest)
			if !ok {
				return nil, invalid
			}
			next = AcceptingTrust{Sub: ReceivedAuthTrustRequest{Identity: recv.Identity}}
		case ChallengeAcceptingStep:
			recv, ok := a.Action.(ReceiveAuthChallengeNonceRequest)
			if !ok {
				return nil, invalid
			}
			next = AcceptingChallenge{Sub: WaitingForAuthChallengeSubmitRequest{Nonce: recv.Nonce}}
		default:
			return nil, invalid
		}

	case AcceptingTrust:
		if _, ok := action.(ReceiveAuthComplete); !ok {
			return nil, invalid
		}
		recv, ok := cur.Sub.(ReceivedAuthTrustRequest)
		if !ok {
			return nil, invalid
		}
		next = Done{Identity: recv.Identity}

	case AcceptingChallenge:
		switch a := action.(type) {
		case ChallengeAcceptingStep:
			recv, ok := a.Action.(ReceiveAuthChallengeSubmitRequest)
			if !ok {
				return nil, invalid
			}
			if _, waiting := cur.Sub.(WaitingForAuthChallengeSubmitRequest); !waiting {
				return nil, invalid
			}
			next = AcceptingChallenge{Sub: ReceivedAuthChallengeSubmitRequest{Identity: recv.Identity}}
		case ReceiveAuthComplete:
			recv, ok := cur.Sub.(ReceivedAuthChallengeSubmitRequest)
			if !ok {
				return nil, invalid
			}
			next = Done{Identity: recv.Identity}
		default:
			return nil, invalid
		}

	default:
		// Done 与 Unauthorizing 为终态
		return nil, invalid
	}

	ms.Accepting = next
	return next, nil
}

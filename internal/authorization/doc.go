// Package authorization 实现连接授权握手
//
// 每条连接维护一份 ManagedAuthorizationState，包含两条相互独立的轨道：
//   - 发起轨道（InitiatingState）：本端向对端证明身份
//   - 接受轨道（AcceptingState）：本端验证对端身份
//
// 两条轨道都是两层状态机：外层与授权方案无关，方案相关的子状态
// 嵌套在 InitiatingTrust / InitiatingChallenge 等变体中。新增授权方案时，
// 只需新增一个变体及其子状态与子动作。
//
// # 挑战方案消息流
//
//	发起方                                   接受方
//	AuthProtocolRequest            ──────►
//	                               ◄──────   AuthProtocolResponse(Challenge)
//	AuthChallengeNonceRequest      ──────►
//	                               ◄──────   AuthChallengeNonceResponse(nonce)
//	AuthChallengeSubmitRequest     ──────►   （验证每个签名）
//	                               ◄──────   AuthChallengeSubmitResponse(public_key)
//	AuthComplete                   ──────►
//
// 双方在同一连接上各自运行一遍上述流程。只有当本端发起轨道到达
// AuthorizedAndComplete 且接受轨道到达 Done(identity) 时，连接才被视为已授权。
//
// 状态转换只能通过 AuthorizationManager.NextInitiatingState / NextAcceptingState 进行；
// 非法转换返回 *InvalidStateTransition，处理器据此向对端发送 AuthorizationError
// 并终止本次握手，不做握手级重试。
package authorization

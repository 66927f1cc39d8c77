package authorization

import (
	"sync"
)

// Outcome 单条连接的握手结果
type Outcome struct {
	ConnectionID string

	// Authorized 为 false 表示握手失败，Identity 与 LocalIdentity 为空
	Authorized bool

	// Identity 对端身份
	Identity Identity

	// LocalIdentity 本端向对端声明的身份
	LocalIdentity Identity
}

// OutcomeFunc 结果回调
type OutcomeFunc func(Outcome)

// ============================================================================
//                              AuthorizationManager
// ============================================================================

// AuthorizationManager 管理所有连接的授权状态
//
// 每条连接持有独立的锁，不同连接的握手并行推进；
// 锁的范围仅限一次状态转换，不跨越网络发送。
type AuthorizationManager struct {
	mu      sync.RWMutex
	entries map[string]*managedEntry

	metrics *metrics
}

type managedEntry struct {
	mu       sync.Mutex
	state    ManagedAuthorizationState
	callback OutcomeFunc
	reported bool

	// outcome 在注册回调之前就已得出的结果
	outcome *Outcome
}

// NewAuthorizationManager 创建授权管理器
func NewAuthorizationManager(m *metrics) *AuthorizationManager {
	if m == nil {
		m = newMetrics(nil)
	}
	return &AuthorizationManager{
		entries: make(map[string]*managedEntry),
		metrics: m,
	}
}

// entry 获取连接条目，不存在时创建
func (am *AuthorizationManager) entry(connectionID string) *managedEntry {
	am.mu.RLock()
	e, ok := am.entries[connectionID]
	am.mu.RUnlock()
	if ok {
		return e
	}

	am.mu.Lock()
	defer am.mu.Unlock()
	if e, ok = am.entries[connectionID]; ok {
		return e
	}
	e = &managedEntry{state: newManagedAuthorizationState()}
	am.entries[connectionID] = e
	return e
}

// NextInitiatingState 推进发起轨道
func (am *AuthorizationManager) NextInitiatingState(connectionID string, action InitiatingAction) (InitiatingState, error) {
	e := am.entry(connectionID)

	e.mu.Lock()
	prev := e.state.Initiating
	next, err := nextInitiatingState(&e.state, action)
	report := am.settle(connectionID, e)
	e.mu.Unlock()
	report()

	if err != nil {
		am.metrics.invalidTransitions.WithLabelValues(string(TrackInitiating)).Inc()
		return nil, err
	}
	logger.Debug("发起轨道状态转换", "connID", connectionID, "from", prev, "to", next, "action", action)
	return next, nil
}

// NextAcceptingState 推进接受轨道
func (am *AuthorizationManager) NextAcceptingState(connectionID string, action AcceptingAction) (AcceptingState, error) {
	e := am.entry(connectionID)

	e.mu.Lock()
	prev := e.state.Accepting
	next, err := nextAcceptingState(&e.state, action)
	report := am.settle(connectionID, e)
	e.mu.Unlock()
	report()

	if err != nil {
		am.metrics.invalidTransitions.WithLabelValues(string(TrackAccepting)).Inc()
		return nil, err
	}
	logger.Debug("接受轨道状态转换", "connID", connectionID, "from", prev, "to", next, "action", action)
	return next, nil
}

// settle 检查连接是否已得出结果，返回需在锁外执行的回调
//
// 调用方必须持有 e.mu。
func (am *AuthorizationManager) settle(connectionID string, e *managedEntry) func() {
	if e.reported || e.outcome != nil {
		return func() {}
	}

	var out Outcome
	switch {
	case e.state.IsUnauthorized():
		out = Outcome{ConnectionID: connectionID}
	case e.state.IsAuthorized():
		id, _ := e.state.RemoteIdentity()
		out = Outcome{
			ConnectionID:  connectionID,
			Authorized:    true,
			Identity:      id,
			LocalIdentity: e.state.LocalAuthorization,
		}
	default:
		return func() {}
	}

	if out.Authorized {
		am.metrics.outcomes.WithLabelValues("authorized").Inc()
	} else {
		am.metrics.outcomes.WithLabelValues("unauthorized").Inc()
	}

	if e.callback == nil {
		e.outcome = &out
		return func() {}
	}
	e.reported = true
	cb := e.callback
	return func() { cb(out) }
}

// Register 注册连接的结果回调
//
// 若结果已经得出，回调立即在当前 goroutine 中执行。每条连接至多回调一次。
func (am *AuthorizationManager) Register(connectionID string, cb OutcomeFunc) {
	e := am.entry(connectionID)

	e.mu.Lock()
	e.callback = cb
	var pending *Outcome
	if e.outcome != nil && !e.reported {
		pending = e.outcome
		e.reported = true
	}
	e.mu.Unlock()

	if pending != nil && cb != nil {
		cb(*pending)
	}
}

// State 返回连接授权状态的快照
func (am *AuthorizationManager) State(connectionID string) (ManagedAuthorizationState, bool) {
	am.mu.RLock()
	e, ok := am.entries[connectionID]
	am.mu.RUnlock()
	if !ok {
		return ManagedAuthorizationState{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, true
}

// Unauthorize 将连接的两条轨道同时置为失败
func (am *AuthorizationManager) Unauthorize(connectionID string) {
	e := am.entry(connectionID)

	e.mu.Lock()
	_, _ = nextInitiatingState(&e.state, Unauthorize{})
	_, _ = nextAcceptingState(&e.state, Unauthorize{})
	report := am.settle(connectionID, e)
	e.mu.Unlock()

	report()
}

// Remove 删除连接的授权状态
func (am *AuthorizationManager) Remove(connectionID string) {
	am.mu.Lock()
	delete(am.entries, connectionID)
	am.mu.Unlock()
}

// Len 返回正在跟踪的连接数
func (am *AuthorizationManager) Len() int {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return len(am.entries)
}

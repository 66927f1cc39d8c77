package peer

import "fmt"

// RefMap 节点引用计数
//
// 非并发安全，只在 actor goroutine 中使用。
type RefMap struct {
	refs map[string]uint64
}

// NewRefMap 创建 RefMap
func NewRefMap() *RefMap {
	return &RefMap{refs: make(map[string]uint64)}
}

// AddRef 增加引用，返回增加后的计数
func (r *RefMap) AddRef(peerID string) uint64 {
	r.refs[peerID]++
	return r.refs[peerID]
}

// RemoveRef 减少引用，计数归零时删除条目并返回 true
func (r *RefMap) RemoveRef(peerID string) (bool, error) {
	count, ok := r.refs[peerID]
	if !ok {
		return false, fmt.Errorf("%w: no references held for %s", ErrUnknownPeer, peerID)
	}
	if count <= 1 {
		delete(r.refs, peerID)
		return true, nil
	}
	r.refs[peerID] = count - 1
	return false, nil
}

// Count 返回引用计数
func (r *RefMap) Count(peerID string) uint64 {
	return r.refs[peerID]
}

// Len 返回被引用的节点数
func (r *RefMap) Len() int {
	return len(r.refs)
}

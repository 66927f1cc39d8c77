package peer

import (
	"sort"
	"time"
)

// PeerMap 被引用节点的元数据表
//
// 同时维护端点到节点 ID 的索引。非并发安全，只在 actor goroutine 中使用。
type PeerMap struct {
	peers     map[string]*PeerMetadata
	endpoints map[string]string

	initialRetryFrequency time.Duration
}

// NewPeerMap 创建 PeerMap
func NewPeerMap(initialRetryFrequency time.Duration) *PeerMap {
	return &PeerMap{
		peers:                 make(map[string]*PeerMetadata),
		endpoints:             make(map[string]string),
		initialRetryFrequency: initialRetryFrequency,
	}
}

// Insert 插入或覆盖节点
func (pm *PeerMap) Insert(peerID, connectionID string, endpoints []string, activeEndpoint string, status PeerStatus, now time.Time) {
	if old, ok := pm.peers[peerID]; ok {
		pm.unindex(old)
	}

	meta := &PeerMetadata{
		ID:                    peerID,
		ConnectionID:          connectionID,
		Endpoints:             append([]string(nil), endpoints...),
		ActiveEndpoint:        activeEndpoint,
		Status:                status,
		RetryFrequency:        pm.initialRetryFrequency,
		LastConnectionAttempt: now,
	}
	pm.peers[peerID] = meta
	pm.index(meta)
}

// Remove 删除节点，返回被删除的元数据
func (pm *PeerMap) Remove(peerID string) (PeerMetadata, bool) {
	meta, ok := pm.peers[peerID]
	if !ok {
		return PeerMetadata{}, false
	}
	pm.unindex(meta)
	delete(pm.peers, peerID)
	return *meta, true
}

// Update 用 meta 覆盖同 ID 的节点，端点索引随之更新
func (pm *PeerMap) Update(meta PeerMetadata) error {
	old, ok := pm.peers[meta.ID]
	if !ok {
		return ErrUnknownPeer
	}
	pm.unindex(old)
	updated := meta.clone()
	pm.peers[meta.ID] = &updated
	pm.index(&updated)
	return nil
}

// Get 按节点 ID 查询
func (pm *PeerMap) Get(peerID string) (PeerMetadata, bool) {
	meta, ok := pm.peers[peerID]
	if !ok {
		return PeerMetadata{}, false
	}
	return meta.clone(), true
}

// GetByEndpoint 按端点查询
func (pm *PeerMap) GetByEndpoint(endpoint string) (PeerMetadata, bool) {
	peerID, ok := pm.endpoints[endpoint]
	if !ok {
		return PeerMetadata{}, false
	}
	return pm.Get(peerID)
}

// GetByConnectionID 按连接 ID 查询
func (pm *PeerMap) GetByConnectionID(connectionID string) (PeerMetadata, bool) {
	for _, meta := range pm.peers {
		if meta.ConnectionID == connectionID {
			return meta.clone(), true
		}
	}
	return PeerMetadata{}, false
}

// PeerIDs 返回排序后的节点 ID
func (pm *PeerMap) PeerIDs() []string {
	ids := make([]string, 0, len(pm.peers))
	for id := range pm.peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ConnectionIDs 返回节点 ID 到连接 ID 的映射
func (pm *PeerMap) ConnectionIDs() map[string]string {
	out := make(map[string]string, len(pm.peers))
	for id, meta := range pm.peers {
		out[id] = meta.ConnectionID
	}
	return out
}

// PendingPeers 返回所有 Pending 节点，按 ID 排序
func (pm *PeerMap) PendingPeers() []PeerMetadata {
	var out []PeerMetadata
	for _, id := range pm.PeerIDs() {
		meta := pm.peers[id]
		if meta.Status.Kind == StatusPending {
			out = append(out, meta.clone())
		}
	}
	return out
}

// CountByStatus 按状态统计节点数
func (pm *PeerMap) CountByStatus() map[StatusKind]int {
	counts := map[StatusKind]int{
		StatusPending:      0,
		StatusConnected:    0,
		StatusDisconnected: 0,
	}
	for _, meta := range pm.peers {
		counts[meta.Status.Kind]++
	}
	return counts
}

// Contains 判断节点是否存在
func (pm *PeerMap) Contains(peerID string) bool {
	_, ok := pm.peers[peerID]
	return ok
}

// Len 返回节点数
func (pm *PeerMap) Len() int {
	return len(pm.peers)
}

func (pm *PeerMap) index(meta *PeerMetadata) {
	for _, ep := range meta.Endpoints {
		pm.endpoints[ep] = meta.ID
	}
	if meta.ActiveEndpoint != "" {
		pm.endpoints[meta.ActiveEndpoint] = meta.ID
	}
}

func (pm *PeerMap) unindex(meta *PeerMetadata) {
	for _, ep := range meta.Endpoints {
		if pm.endpoints[ep] == meta.ID {
			delete(pm.endpoints, ep)
		}
	}
	if pm.endpoints[meta.ActiveEndpoint] == meta.ID {
		delete(pm.endpoints, meta.ActiveEndpoint)
	}
}

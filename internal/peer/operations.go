package peer

import (
	"sort"

	"github.com/google/uuid"

	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

// ============================================================================
//                              引用管理
// ============================================================================

// addPeer 增加节点引用
//
// 首次引用时：若该身份已有入站连接则直接提升为 Connected；否则按顺序
// 请求拨号直到某个端点的请求被接受，最后尝试的端点成为活动端点。
func (pm *PeerManager) addPeer(peerID string, endpoints []string) error {
	if len(endpoints) == 0 {
		return &PeerRefAddError{PeerID: peerID, Err: ErrNoEndpoints}
	}

	if count := pm.refs.AddRef(peerID); count > 1 {
		// 已被引用，只合并新端点，不重新拨号
		if meta, ok := pm.peers.Get(peerID); ok {
			for _, ep := range endpoints {
				if !meta.hasEndpoint(ep) {
					meta.Endpoints = append(meta.Endpoints, ep)
				}
			}
			pm.storePeer(meta)
		}
		logger.Debug("增加节点引用", "peerID", log.TruncateID(peerID, 16), "refs", count)
		return nil
	}

	now := pm.clock.Now()

	if unref, ok := pm.unreferenced[peerID]; ok {
		delete(pm.unreferenced, peerID)

		all := append([]string(nil), endpoints...)
		if !containsEndpoint(all, unref.Endpoint) {
			all = append(all, unref.Endpoint)
		}
		pm.peers.Insert(peerID, unref.ConnectionID, all, unref.Endpoint, Connected(), now)
		pm.notifier.broadcast(pkgif.PeerNotification{Kind: pkgif.PeerConnected, PeerID: peerID})

		logger.Info("入站节点已被引用", "peerID", log.TruncateID(peerID, 16), "endpoint", unref.Endpoint)
		return nil
	}

	connectionID := uuid.NewString()
	active := endpoints[0]
	for _, ep := range endpoints {
		active = ep
		if pm.requestConnection(ep, connectionID) {
			break
		}
	}

	pm.peers.Insert(peerID, connectionID, endpoints, active, Pending(), now)
	logger.Info("新增节点",
		"peerID", log.TruncateID(peerID, 16),
		"activeEndpoint", active,
		"connID", log.TruncateID(connectionID, 8))
	return nil
}

// addUnidentified 连接身份未知的端点，结果以通知形式到达
func (pm *PeerManager) addUnidentified(endpoint string) error {
	if endpoint == "" {
		return &PeerUnknownAddError{Endpoint: endpoint, Err: ErrNoEndpoints}
	}
	pm.requestConnection(endpoint, uuid.NewString())
	return nil
}

// removePeer 减少节点引用，归零时移除节点及其连接
func (pm *PeerManager) removePeer(peerID string) error {
	removed, err := pm.refs.RemoveRef(peerID)
	if err != nil {
		return &PeerRefRemoveError{PeerID: peerID, Err: err}
	}
	if !removed {
		return nil
	}

	meta, ok := pm.peers.Remove(peerID)
	if !ok {
		return &PeerRefRemoveError{PeerID: peerID, Err: ErrInconsistentState}
	}
	logger.Info("移除节点", "peerID", log.TruncateID(peerID, 16), "status", meta.Status)

	existed, err := pm.connector.RemoveConnection(meta.ActiveEndpoint, meta.ConnectionID)
	switch {
	case meta.Status.Kind == StatusPending:
		// 尚未建立连接
		if err != nil {
			logger.Debug("移除 Pending 节点连接", "peerID", log.TruncateID(peerID, 16), "err", err)
		}
		return nil
	case err != nil:
		return &PeerRefRemoveError{PeerID: peerID, Err: err}
	case !existed:
		logger.Debug("节点连接已不存在", "peerID", log.TruncateID(peerID, 16), "endpoint", meta.ActiveEndpoint)
	}
	return nil
}

// requestConnection 请求拨号，返回请求是否被接受
func (pm *PeerManager) requestConnection(endpoint, connectionID string) bool {
	if err := pm.connector.RequestConnection(endpoint, connectionID); err != nil {
		pm.metrics.dialRequests.WithLabelValues("error").Inc()
		logger.Warn("请求连接失败", "endpoint", endpoint, "err", err)
		return false
	}
	pm.metrics.dialRequests.WithLabelValues("ok").Inc()
	return true
}

// ============================================================================
//                              查询
// ============================================================================

func (pm *PeerManager) unreferencedIDs() []string {
	ids := make([]string, 0, len(pm.unreferenced))
	for id := range pm.unreferenced {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (pm *PeerManager) connectionIDs() map[string]string {
	out := pm.peers.ConnectionIDs()
	for id, unref := range pm.unreferenced {
		out[id] = unref.ConnectionID
	}
	return out
}

func (pm *PeerManager) lookupConnectionID(peerID string) lookupResult {
	if meta, ok := pm.peers.Get(peerID); ok {
		return lookupResult{value: meta.ConnectionID, found: true}
	}
	if unref, ok := pm.unreferenced[peerID]; ok {
		return lookupResult{value: unref.ConnectionID, found: true}
	}
	return lookupResult{}
}

func (pm *PeerManager) lookupPeerID(connectionID string) lookupResult {
	if meta, ok := pm.peers.GetByConnectionID(connectionID); ok {
		return lookupResult{value: meta.ID, found: true}
	}
	for id, unref := range pm.unreferenced {
		if unref.ConnectionID == connectionID {
			return lookupResult{value: id, found: true}
		}
	}
	return lookupResult{}
}

// storePeer 写回 actor 读出并修改过的元数据
//
// 读出与写回之间不会有其他修改，失败说明 PeerMap 已不一致。
func (pm *PeerManager) storePeer(meta PeerMetadata) {
	if err := pm.peers.Update(meta); err != nil {
		logger.Error("写回节点元数据失败", "peerID", log.TruncateID(meta.ID, 16), "err", err)
	}
}

func containsEndpoint(endpoints []string, endpoint string) bool {
	for _, ep := range endpoints {
		if ep == endpoint {
			return true
		}
	}
	return false
}

package peer

import (
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

// ============================================================================
//                              连接通知处理
// ============================================================================

// handleNotification 根据连接管理器通知更新节点状态
func (pm *PeerManager) handleNotification(n pkgif.ConnectionNotification) {
	pm.metrics.notifications.WithLabelValues(n.Kind.String()).Inc()
	logger.Debug("收到连接通知", "notification", n.String())

	switch n.Kind {
	case pkgif.NotifyDisconnected:
		pm.onDisconnected(n.Endpoint)
	case pkgif.NotifyNonFatalConnectionError:
		pm.onNonFatal(n.Endpoint, n.Attempts)
	case pkgif.NotifyInboundConnection:
		pm.onInbound(n.Endpoint, n.ConnectionID, n.Identity)
	case pkgif.NotifyConnected:
		pm.onConnected(n.Endpoint, n.ConnectionID, n.Identity)
	case pkgif.NotifyFatalConnectionError:
		pm.onFatal(n.Endpoint, n.Err)
	default:
		logger.Warn("未知的连接通知", "kind", n.Kind)
	}
}

func (pm *PeerManager) onDisconnected(endpoint string) {
	meta, ok := pm.peers.GetByEndpoint(endpoint)
	if !ok {
		pm.dropUnreferencedByEndpoint(endpoint)
		return
	}

	meta.Status = Disconnected(1)
	pm.storePeer(meta)
	pm.notifier.broadcast(pkgif.PeerNotification{Kind: pkgif.PeerDisconnected, PeerID: meta.ID})
	logger.Info("节点已断开", "peerID", log.TruncateID(meta.ID, 16), "endpoint", endpoint)
}

// onNonFatal 连续失败达到阈值后切换到其他端点
func (pm *PeerManager) onNonFatal(endpoint string, attempts uint64) {
	meta, ok := pm.peers.GetByEndpoint(endpoint)
	if !ok {
		return
	}

	if attempts >= pm.cfg.MaxRetryAttempts && len(meta.Endpoints) > 1 {
		if _, err := pm.connector.RemoveConnection(endpoint, meta.ConnectionID); err != nil {
			logger.Debug("移除失败端点的连接", "endpoint", endpoint, "err", err)
		}
		for _, ep := range meta.Endpoints {
			if ep == endpoint {
				continue
			}
			if pm.requestConnection(ep, meta.ConnectionID) {
				logger.Info("切换节点端点",
					"peerID", log.TruncateID(meta.ID, 16),
					"from", endpoint,
					"to", ep)
				meta.ActiveEndpoint = ep
				break
			}
		}
	}

	meta.Status = Disconnected(attempts)
	pm.storePeer(meta)
}

// onInbound 处理入站连接
func (pm *PeerManager) onInbound(endpoint, connectionID, identity string) {
	if meta, ok := pm.peers.Get(identity); ok {
		if meta.ConnectionID != connectionID {
			pm.removeStaleConnection(meta.ActiveEndpoint, meta.ConnectionID)
		}
		meta.ConnectionID = connectionID
		meta.ActiveEndpoint = endpoint
		if !meta.hasEndpoint(endpoint) {
			meta.Endpoints = append(meta.Endpoints, endpoint)
		}
		meta.Status = Connected()
		pm.storePeer(meta)
		pm.notifier.broadcast(pkgif.PeerNotification{Kind: pkgif.PeerConnected, PeerID: identity})
		logger.Info("节点入站连接替换", "peerID", log.TruncateID(identity, 16), "endpoint", endpoint)
		return
	}

	if old, ok := pm.unreferenced[identity]; ok && old.ConnectionID != connectionID {
		pm.removeStaleConnection(old.Endpoint, old.ConnectionID)
	}
	pm.unreferenced[identity] = unreferencedPeer{Endpoint: endpoint, ConnectionID: connectionID}
	logger.Info("记录未引用的入站节点", "peerID", log.TruncateID(identity, 16), "endpoint", endpoint)
}

// onConnected 处理出站连接建立
func (pm *PeerManager) onConnected(endpoint, connectionID, identity string) {
	meta, ok := pm.peers.GetByEndpoint(endpoint)
	if !ok {
		// 端点未登记：AddUnidentifiedPeer 的拨号结果，或已引用节点的新端点
		pm.onInbound(endpoint, connectionID, identity)
		return
	}

	switch meta.Status.Kind {
	case StatusConnected:
		pm.notifier.broadcast(pkgif.PeerNotification{Kind: pkgif.PeerConnected, PeerID: meta.ID})

	case StatusPending:
		if identity != meta.ID {
			pm.rejectMismatched(meta, endpoint, connectionID, identity)
			meta.Status = Pending()
			pm.storePeer(meta)
			return
		}
		// 重试扫描会拨号所有端点，以实际建立连接的端点为准
		meta.Status = Connected()
		meta.ActiveEndpoint = endpoint
		meta.ConnectionID = connectionID
		pm.storePeer(meta)
		pm.notifier.broadcast(pkgif.PeerNotification{Kind: pkgif.PeerConnected, PeerID: meta.ID})
		logger.Info("节点已连接", "peerID", log.TruncateID(meta.ID, 16), "endpoint", endpoint)

	case StatusDisconnected:
		if endpoint != meta.ActiveEndpoint {
			pm.removeStaleConnection(meta.ActiveEndpoint, meta.ConnectionID)
		}
		if identity != meta.ID {
			pm.rejectMismatched(meta, endpoint, connectionID, identity)
			meta.Status = Pending()
			meta.RetryFrequency = pm.cfg.nextRetryFrequency(meta.RetryFrequency)
			meta.LastConnectionAttempt = pm.clock.Now()
			pm.storePeer(meta)
			return
		}
		meta.Status = Connected()
		meta.ActiveEndpoint = endpoint
		meta.ConnectionID = connectionID
		pm.storePeer(meta)
		pm.notifier.broadcast(pkgif.PeerNotification{Kind: pkgif.PeerConnected, PeerID: meta.ID})
		logger.Info("节点已重新连接", "peerID", log.TruncateID(meta.ID, 16), "endpoint", endpoint)
	}
}

// onFatal 连接管理器放弃端点，节点回到 Pending 由重试扫描接手
func (pm *PeerManager) onFatal(endpoint string, cause error) {
	meta, ok := pm.peers.GetByEndpoint(endpoint)
	if !ok {
		logger.Error("未知端点的连接出现致命错误", "endpoint", endpoint, "err", cause)
		pm.dropUnreferencedByEndpoint(endpoint)
		return
	}

	logger.Error("节点连接出现致命错误", "peerID", log.TruncateID(meta.ID, 16), "endpoint", endpoint, "err", cause)
	pm.notifier.broadcast(pkgif.PeerNotification{Kind: pkgif.PeerDisconnected, PeerID: meta.ID})
	meta.RetryFrequency = pm.cfg.nextRetryFrequency(meta.RetryFrequency)
	meta.Status = Pending()
	pm.storePeer(meta)
}

// rejectMismatched 断开身份不符的连接
func (pm *PeerManager) rejectMismatched(meta PeerMetadata, endpoint, connectionID, identity string) {
	pm.metrics.mismatchedIdentity.Inc()
	logger.Warn("连接身份与节点不符",
		"peerID", log.TruncateID(meta.ID, 16),
		"identity", log.TruncateID(identity, 16),
		"endpoint", endpoint)

	if _, err := pm.connector.RemoveConnection(endpoint, connectionID); err != nil {
		logger.Warn("断开身份不符的连接失败", "endpoint", endpoint, "err", err)
	}
	pm.notifier.broadcast(pkgif.PeerNotification{Kind: pkgif.PeerDisconnected, PeerID: meta.ID})
}

func (pm *PeerManager) removeStaleConnection(endpoint, connectionID string) {
	if _, err := pm.connector.RemoveConnection(endpoint, connectionID); err != nil {
		logger.Debug("移除旧连接失败", "endpoint", endpoint, "err", err)
	}
}

func (pm *PeerManager) dropUnreferencedByEndpoint(endpoint string) {
	for id, unref := range pm.unreferenced {
		if unref.Endpoint == endpoint {
			delete(pm.unreferenced, id)
			logger.Debug("移除未引用的入站节点", "peerID", log.TruncateID(id, 16), "endpoint", endpoint)
		}
	}
}

// ============================================================================
//                              重试扫描
// ============================================================================

// retryPending 重新拨号到期的 Pending 节点
//
// 每个端点都会被尝试，最后一个被接受的拨号请求决定活动端点。
func (pm *PeerManager) retryPending() {
	now := pm.clock.Now()
	pm.metrics.retrySweeps.Inc()

	for _, meta := range pm.peers.PendingPeers() {
		if now.Sub(meta.LastConnectionAttempt) <= meta.RetryFrequency {
			continue
		}

		logger.Debug("重试连接节点",
			"peerID", log.TruncateID(meta.ID, 16),
			"retryFrequency", meta.RetryFrequency)

		for _, ep := range meta.Endpoints {
			if pm.requestConnection(ep, meta.ConnectionID) {
				meta.ActiveEndpoint = ep
			}
		}
		meta.RetryFrequency = pm.cfg.nextRetryFrequency(meta.RetryFrequency)
		meta.LastConnectionAttempt = now
		pm.storePeer(meta)
	}
}

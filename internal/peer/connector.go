package peer

import (
	"sync"

	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
)

// ============================================================================
//                              PeerManagerConnector
// ============================================================================

// PeerManagerConnector 节点管理器句柄，可复制、并发安全
type PeerManagerConnector struct {
	pm *PeerManager
}

// 确保实现 pkgif.PeerManagerConnector 接口
var _ pkgif.PeerManagerConnector = (*PeerManagerConnector)(nil)

// AddPeerRef 增加节点引用
func (c *PeerManagerConnector) AddPeerRef(peerID string, endpoints []string) (pkgif.PeerRef, error) {
	reply := make(chan error, 1)
	msg := addPeerRequest{
		peerID:    peerID,
		endpoints: append([]string(nil), endpoints...),
		reply:     reply,
	}
	if err := c.pm.send(msg); err != nil {
		return nil, &PeerRefAddError{PeerID: peerID, Err: err}
	}

	select {
	case err := <-reply:
		if err != nil {
			return nil, err
		}
	case <-c.pm.done:
		return nil, &PeerRefAddError{PeerID: peerID, Err: ErrShutdown}
	}
	return &PeerRef{peerID: peerID, pm: c.pm}, nil
}

// AddUnidentifiedPeer 连接身份未知的端点
func (c *PeerManagerConnector) AddUnidentifiedPeer(endpoint string) error {
	reply := make(chan error, 1)
	if err := c.pm.send(addUnidentifiedRequest{endpoint: endpoint, reply: reply}); err != nil {
		return &PeerUnknownAddError{Endpoint: endpoint, Err: err}
	}

	select {
	case err := <-reply:
		return err
	case <-c.pm.done:
		return &PeerUnknownAddError{Endpoint: endpoint, Err: ErrShutdown}
	}
}

// ListPeers 列出被引用的节点
func (c *PeerManagerConnector) ListPeers() ([]string, error) {
	reply := make(chan []string, 1)
	if err := c.pm.send(listPeersRequest{reply: reply}); err != nil {
		return nil, &PeerListError{Err: err}
	}
	select {
	case ids := <-reply:
		return ids, nil
	case <-c.pm.done:
		return nil, &PeerListError{Err: ErrShutdown}
	}
}

// ListUnreferencedPeers 列出未被引用的入站节点
func (c *PeerManagerConnector) ListUnreferencedPeers() ([]string, error) {
	reply := make(chan []string, 1)
	if err := c.pm.send(listUnreferencedRequest{reply: reply}); err != nil {
		return nil, &PeerListError{Err: err}
	}
	select {
	case ids := <-reply:
		return ids, nil
	case <-c.pm.done:
		return nil, &PeerListError{Err: ErrShutdown}
	}
}

// ConnectionIDs 返回节点 ID 到连接 ID 的映射，包括未引用节点
func (c *PeerManagerConnector) ConnectionIDs() (map[string]string, error) {
	reply := make(chan map[string]string, 1)
	if err := c.pm.send(connectionIDsRequest{reply: reply}); err != nil {
		return nil, &PeerListError{Err: err}
	}
	select {
	case ids := <-reply:
		return ids, nil
	case <-c.pm.done:
		return nil, &PeerListError{Err: ErrShutdown}
	}
}

// GetConnectionID 查询节点的连接 ID
func (c *PeerManagerConnector) GetConnectionID(peerID string) (string, bool, error) {
	reply := make(chan lookupResult, 1)
	if err := c.pm.send(getConnectionIDRequest{peerID: peerID, reply: reply}); err != nil {
		return "", false, &PeerLookupError{Err: err}
	}
	return c.awaitLookup(reply)
}

// GetPeerID 查询连接对应的节点 ID
func (c *PeerManagerConnector) GetPeerID(connectionID string) (string, bool, error) {
	reply := make(chan lookupResult, 1)
	if err := c.pm.send(getPeerIDRequest{connectionID: connectionID, reply: reply}); err != nil {
		return "", false, &PeerLookupError{Err: err}
	}
	return c.awaitLookup(reply)
}

func (c *PeerManagerConnector) awaitLookup(reply chan lookupResult) (string, bool, error) {
	select {
	case res := <-reply:
		return res.value, res.found, nil
	case <-c.pm.done:
		return "", false, &PeerLookupError{Err: ErrShutdown}
	}
}

// Peer 返回节点元数据副本
func (c *PeerManagerConnector) Peer(peerID string) (PeerMetadata, bool, error) {
	reply := make(chan metadataResult, 1)
	if err := c.pm.send(peerMetadataRequest{peerID: peerID, reply: reply}); err != nil {
		return PeerMetadata{}, false, &PeerLookupError{Err: err}
	}
	select {
	case res := <-reply:
		return res.meta, res.found, nil
	case <-c.pm.done:
		return PeerMetadata{}, false, &PeerLookupError{Err: ErrShutdown}
	}
}

// Subscribe 订阅节点通知
func (c *PeerManagerConnector) Subscribe() (pkgif.PeerNotificationIter, error) {
	reply := make(chan *NotificationIter, 1)
	if err := c.pm.send(subscribeRequest{reply: reply}); err != nil {
		return nil, &PeerManagerError{Op: "subscribe", Err: err}
	}
	select {
	case it := <-reply:
		return it, nil
	case <-c.pm.done:
		return nil, &PeerManagerError{Op: "subscribe", Err: ErrShutdown}
	}
}

// unsubscribe 取消通知订阅，节点管理器已停止时视为成功
func (pm *PeerManager) unsubscribe(id uint64) error {
	reply := make(chan error, 1)
	if err := pm.send(unsubscribeRequest{id: id, reply: reply}); err != nil {
		return nil
	}
	select {
	case err := <-reply:
		return err
	case <-pm.done:
		return nil
	}
}

// releasePeer 发送移除请求并等待结果
func (pm *PeerManager) releasePeer(peerID string) error {
	reply := make(chan error, 1)
	if err := pm.send(removePeerRequest{peerID: peerID, reply: reply}); err != nil {
		return &PeerRefRemoveError{PeerID: peerID, Err: err}
	}
	select {
	case err := <-reply:
		return err
	case <-pm.done:
		return &PeerRefRemoveError{PeerID: peerID, Err: ErrShutdown}
	}
}

// ============================================================================
//                              PeerRef
// ============================================================================

// PeerRef 节点引用
type PeerRef struct {
	peerID string
	pm     *PeerManager

	once sync.Once
	err  error
}

// 确保实现 pkgif.PeerRef 接口
var _ pkgif.PeerRef = (*PeerRef)(nil)

// PeerID 返回节点 ID
func (r *PeerRef) PeerID() string {
	return r.peerID
}

// Release 释放引用，重复调用返回第一次的结果
func (r *PeerRef) Release() error {
	r.once.Do(func() {
		r.err = r.pm.releasePeer(r.peerID)
		if r.err != nil {
			logger.Warn("释放节点引用失败", "peerID", r.peerID, "err", r.err)
		}
	})
	return r.err
}

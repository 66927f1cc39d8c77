package peer

import (
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
)

// message 邮箱中的消息
type message interface {
	isMessage()
}

type addPeerRequest struct {
	peerID    string
	endpoints []string
	reply     chan error
}

type addUnidentifiedRequest struct {
	endpoint string
	reply    chan error
}

type removePeerRequest struct {
	peerID string
	reply  chan error
}

type listPeersRequest struct {
	reply chan []string
}

type listUnreferencedRequest struct {
	reply chan []string
}

type connectionIDsRequest struct {
	reply chan map[string]string
}

type lookupResult struct {
	value string
	found bool
}

type getConnectionIDRequest struct {
	peerID string
	reply  chan lookupResult
}

type getPeerIDRequest struct {
	connectionID string
	reply        chan lookupResult
}

type metadataResult struct {
	meta  PeerMetadata
	found bool
}

type peerMetadataRequest struct {
	peerID string
	reply  chan metadataResult
}

type subscribeRequest struct {
	reply chan *NotificationIter
}

type unsubscribeRequest struct {
	id    uint64
	reply chan error
}

// connectorNotification 连接管理器的通知
type connectorNotification struct {
	notification pkgif.ConnectionNotification
}

// retryPending pacemaker 触发的重试扫描
type retryPending struct{}

func (addPeerRequest) isMessage()          {}
func (addUnidentifiedRequest) isMessage()  {}
func (removePeerRequest) isMessage()       {}
func (listPeersRequest) isMessage()        {}
func (listUnreferencedRequest) isMessage() {}
func (connectionIDsRequest) isMessage()    {}
func (getConnectionIDRequest) isMessage()  {}
func (getPeerIDRequest) isMessage()        {}
func (peerMetadataRequest) isMessage()     {}
func (subscribeRequest) isMessage()        {}
func (unsubscribeRequest) isMessage()      {}
func (connectorNotification) isMessage()   {}
func (retryPending) isMessage()            {}

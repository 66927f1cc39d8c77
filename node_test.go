package splinter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-splinter/config"
	"github.com/dep2p/go-splinter/internal/authorization"
	"github.com/dep2p/go-splinter/internal/connection"
	"github.com/dep2p/go-splinter/internal/connection/memory"
	"github.com/dep2p/go-splinter/internal/peer"
	"github.com/dep2p/go-splinter/internal/signing"
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
)

const waitTimeout = 5 * time.Second

func testConfig(listen string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Connection.ListenEndpoints = []string{listen}
	cfg.Connection.ReconnectBackoff = config.Duration(10 * time.Millisecond)
	return cfg
}

func startNode(t *testing.T, cfg *config.Config, opts ...Option) *Node {
	t.Helper()
	n, err := New(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background()))
	t.Cleanup(func() { _ = n.Stop(context.Background()) })
	return n
}

func waitPeerEvent(t *testing.T, iter pkgif.PeerNotificationIter, kind pkgif.PeerNotificationKind, peerID string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	for {
		note, err := iter.Next(ctx)
		require.NoError(t, err)
		if note.Kind == kind && note.PeerID == peerID {
			return
		}
	}
}

func TestNew_RequiresTransport(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoTransport)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Authorization.AcceptedTypes = nil
	_, err := New(cfg, WithHub(memory.NewHub()))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNode_Lifecycle(t *testing.T) {
	n, err := New(testConfig("inproc://lifecycle"), WithHub(memory.NewHub()))
	require.NoError(t, err)

	assert.Equal(t, StateIdle, n.State())
	assert.ErrorIs(t, n.Stop(context.Background()), ErrNotStarted)

	require.NoError(t, n.Start(context.Background()))
	assert.Equal(t, StateRunning, n.State())
	assert.ErrorIs(t, n.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, n.Stop(context.Background()))
	assert.Equal(t, StateStopped, n.State())
	assert.NoError(t, n.Stop(context.Background()))
	assert.ErrorIs(t, n.Start(context.Background()), ErrNodeClosed)
}

func TestNode_PeerIDFromSigner(t *testing.T) {
	signer, err := signing.GenerateEd25519Signer()
	require.NoError(t, err)

	n, err := New(testConfig("inproc://signer"), WithHub(memory.NewHub()), WithSigner(signer))
	require.NoError(t, err)
	assert.Equal(t, signing.PeerIDFromPublicKey(signer.PublicKey()), n.PeerID())
	assert.Equal(t, signer.PublicKey(), n.PublicKey())

	cfg := testConfig("inproc://trust")
	cfg.Authorization.AcceptedTypes = []string{config.SchemeTrust}
	cfg.Authorization.TrustIdentity = "trusted-node"
	n, err = New(cfg, WithHub(memory.NewHub()))
	require.NoError(t, err)
	assert.Equal(t, "trusted-node", n.PeerID())
}

func TestNode_ConnectAndSend(t *testing.T) {
	hub := memory.NewHub()
	alpha := startNode(t, testConfig("inproc://alpha"), WithHub(hub))
	beta := startNode(t, testConfig("inproc://beta"), WithHub(hub))

	frames := make(chan []byte, 1)
	beta.SetFrameHandler(func(_ string, frame []byte) { frames <- frame })

	events, err := alpha.Peers().Subscribe()
	require.NoError(t, err)
	defer events.Close()

	ref, err := alpha.Peers().AddPeerRef(beta.PeerID(), []string{"inproc://beta"})
	require.NoError(t, err)
	waitPeerEvent(t, events, pkgif.PeerConnected, beta.PeerID())

	peers, err := alpha.Peers().ListPeers()
	require.NoError(t, err)
	assert.Equal(t, []string{beta.PeerID()}, peers)

	// beta 侧未引用 alpha，记录为未引用节点
	require.Eventually(t, func() bool {
		unref, err := beta.Peers().ListUnreferencedPeers()
		return err == nil && len(unref) == 1 && unref[0] == alpha.PeerID()
	}, waitTimeout, 10*time.Millisecond)

	cid, ok, err := alpha.Peers().GetConnectionID(beta.PeerID())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, alpha.Sender().Send(cid, []byte("hello")))
	select {
	case frame := <-frames:
		assert.Equal(t, []byte("hello"), frame)
	case <-time.After(waitTimeout):
		t.Fatal("frame not delivered")
	}

	meta, ok, err := alpha.Peer(beta.PeerID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, peer.StatusConnected, meta.Status.Kind)
	assert.Equal(t, "inproc://beta", meta.ActiveEndpoint)

	require.NoError(t, ref.Release())
	peers, err = alpha.Peers().ListPeers()
	require.NoError(t, err)
	assert.Empty(t, peers)
}

func TestNode_KnownPeers(t *testing.T) {
	hub := memory.NewHub()
	beta := startNode(t, testConfig("inproc://known-beta"), WithHub(hub))

	cfg := testConfig("inproc://known-alpha")
	cfg.KnownPeers = []config.KnownPeer{{PeerID: beta.PeerID(), Endpoints: []string{"inproc://known-beta"}}}
	alpha := startNode(t, cfg, WithHub(hub))

	require.Eventually(t, func() bool {
		_, ok, err := alpha.Peers().GetConnectionID(beta.PeerID())
		return err == nil && ok
	}, waitTimeout, 10*time.Millisecond)

	// 停止时释放引用
	require.NoError(t, alpha.Stop(context.Background()))
	_, err := alpha.Peers().ListPeers()
	assert.Error(t, err)
}

func TestModules_FxGraph(t *testing.T) {
	signer, err := signing.GenerateSecp256k1Signer()
	require.NoError(t, err)

	authCfg := authorization.DefaultConfig()
	authCfg.Signers = []signing.Signer{signer}

	var peers pkgif.PeerManagerConnector
	var conns *connection.ConnectionManager

	app := fxtest.New(t,
		fx.Supply(authCfg),
		fx.Provide(func() pkgif.Transport { return memory.NewTransport(memory.NewHub()) }),
		authorization.Module,
		connection.Module,
		peer.Module,
		fx.Populate(&peers, &conns),
	)
	app.RequireStart()

	require.NotNil(t, conns)
	list, err := peers.ListPeers()
	require.NoError(t, err)
	assert.Empty(t, list)

	app.RequireStop()
}

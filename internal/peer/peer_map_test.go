package peer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerMap_InsertAndLookup(t *testing.T) {
	pm := NewPeerMap(10 * time.Second)
	now := time.Unix(1000, 0)

	pm.Insert("peer-a", "conn-a", []string{"inproc://a1", "inproc://a2"}, "inproc://a1", Pending(), now)

	meta, ok := pm.Get("peer-a")
	require.True(t, ok)
	assert.Equal(t, "conn-a", meta.ConnectionID)
	assert.Equal(t, 10*time.Second, meta.RetryFrequency)
	assert.Equal(t, now, meta.LastConnectionAttempt)

	byEp, ok := pm.GetByEndpoint("inproc://a2")
	require.True(t, ok)
	assert.Equal(t, "peer-a", byEp.ID)

	byConn, ok := pm.GetByConnectionID("conn-a")
	require.True(t, ok)
	assert.Equal(t, "peer-a", byConn.ID)

	_, ok = pm.GetByEndpoint("inproc://unknown")
	assert.False(t, ok)
}

func TestPeerMap_GetReturnsCopy(t *testing.T) {
	pm := NewPeerMap(time.Second)
	pm.Insert("peer-a", "conn-a", []string{"inproc://a"}, "inproc://a", Pending(), time.Now())

	meta, _ := pm.Get("peer-a")
	meta.Endpoints[0] = "inproc://mutated"

	again, _ := pm.Get("peer-a")
	assert.Equal(t, "inproc://a", again.Endpoints[0])
}

func TestPeerMap_UpdateReindexesEndpoints(t *testing.T) {
	pm := NewPeerMap(time.Second)
	pm.Insert("peer-a", "conn-a", []string{"inproc://a"}, "inproc://a", Pending(), time.Now())

	meta, _ := pm.Get("peer-a")
	meta.Endpoints = []string{"inproc://b"}
	meta.ActiveEndpoint = "inproc://b"
	require.NoError(t, pm.Update(meta))

	_, ok := pm.GetByEndpoint("inproc://a")
	assert.False(t, ok)
	_, ok = pm.GetByEndpoint("inproc://b")
	assert.True(t, ok)

	assert.ErrorIs(t, pm.Update(PeerMetadata{ID: "missing"}), ErrUnknownPeer)
}

func TestPeerMap_RemoveAndQueries(t *testing.T) {
	pm := NewPeerMap(time.Second)
	now := time.Now()
	pm.Insert("peer-b", "conn-b", []string{"inproc://b"}, "inproc://b", Connected(), now)
	pm.Insert("peer-a", "conn-a", []string{"inproc://a"}, "inproc://a", Pending(), now)
	pm.Insert("peer-c", "conn-c", []string{"inproc://c"}, "inproc://c", Disconnected(2), now)

	assert.Equal(t, []string{"peer-a", "peer-b", "peer-c"}, pm.PeerIDs())
	assert.Equal(t, map[string]string{"peer-a": "conn-a", "peer-b": "conn-b", "peer-c": "conn-c"}, pm.ConnectionIDs())

	pending := pm.PendingPeers()
	require.Len(t, pending, 1)
	assert.Equal(t, "peer-a", pending[0].ID)

	counts := pm.CountByStatus()
	assert.Equal(t, 1, counts[StatusPending])
	assert.Equal(t, 1, counts[StatusConnected])
	assert.Equal(t, 1, counts[StatusDisconnected])

	removed, ok := pm.Remove("peer-b")
	require.True(t, ok)
	assert.Equal(t, "conn-b", removed.ConnectionID)
	assert.False(t, pm.Contains("peer-b"))
	_, ok = pm.GetByEndpoint("inproc://b")
	assert.False(t, ok)
	assert.Equal(t, 2, pm.Len())

	_, ok = pm.Remove("peer-b")
	assert.False(t, ok)
}

func TestRefMap(t *testing.T) {
	refs := NewRefMap()

	assert.Equal(t, uint64(1), refs.AddRef("peer-a"))
	assert.Equal(t, uint64(2), refs.AddRef("peer-a"))

	removed, err := refs.RemoveRef("peer-a")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, uint64(1), refs.Count("peer-a"))

	removed, err = refs.RemoveRef("peer-a")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, refs.Len())

	_, err = refs.RemoveRef("peer-a")
	assert.ErrorIs(t, err, ErrUnknownPeer)
}

func TestPeerStatus_String(t *testing.T) {
	assert.Equal(t, "Pending", Pending().String())
	assert.Equal(t, "Connected", Connected().String())
	assert.Equal(t, "Disconnected{retry_attempts=3}", Disconnected(3).String())
}

func TestConfig_NextRetryFrequency(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 20*time.Second, cfg.nextRetryFrequency(10*time.Second))
	assert.Equal(t, DefaultMaximumRetryFrequency, cfg.nextRetryFrequency(200*time.Second))
	assert.Equal(t, DefaultMaximumRetryFrequency, cfg.nextRetryFrequency(DefaultMaximumRetryFrequency))
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero retry attempts", func(c *Config) { c.MaxRetryAttempts = 0 }},
		{"zero retry interval", func(c *Config) { c.RetryInterval = 0 }},
		{"max below initial", func(c *Config) { c.MaximumRetryFrequency = time.Second }},
		{"zero queue limit", func(c *Config) { c.NotificationQueueLimit = 0 }},
		{"nil clock", func(c *Config) { c.Clock = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRingBufferAddAndGetSince(t *testing.T) {
	rb := newRingBuffer(3)

	for seq := uint64(1); seq <= 5; seq++ {
		rb.add(Message{Topic: "chat:x", Seq: seq, Data: json.RawMessage(`{}`)})
	}

	// Oldest two were overwritten
	got := rb.getSince(0)
	assert.Len(t, got, 3)
	assert.Equal(t, uint64(3), got[0].Seq)
	assert.Equal(t, uint64(5), got[2].Seq)

	got = rb.getSince(4)
	assert.Len(t, got, 1)
	assert.Equal(t, uint64(5), got[0].Seq)

	assert.Empty(t, rb.getSince(5))
}

func TestBroadcastAndReplay(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil, 4, 100)
	defer hub.Shutdown()

	hub.Broadcast("chat:abc", []byte(`{"content":"one"}`))
	hub.Broadcast("chat:abc", []byte(`{"content":"two"}`))
	hub.Broadcast("chat:other", []byte(`{"content":"elsewhere"}`))

	// The hub loop consumes broadcasts asynchronously
	assert.Eventually(t, func() bool {
		return len(hub.Replay("chat:abc", 0)) == 2
	}, time.Second, 10*time.Millisecond)

	msgs := hub.Replay("chat:abc", 0)
	assert.Equal(t, "chat:abc", msgs[0].Topic)
	assert.Less(t, msgs[0].Seq, msgs[1].Seq)

	// Replay honors the since cursor
	assert.Len(t, hub.Replay("chat:abc", msgs[0].Seq), 1)
	assert.Empty(t, hub.Replay("chat:unknown", 0))
}

func TestPresenceCountsConnectionsPerUser(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil, 4, 10)
	defer hub.Shutdown()

	userID := uuid.New()
	first := &Client{id: "conn-1", userID: userID, send: make(chan Message, 1), subscriptions: make(map[string]uint64), hub: hub}
	second := &Client{id: "conn-2", userID: userID, send: make(chan Message, 1), subscriptions: make(map[string]uint64), hub: hub}

	hub.handleRegister(first)
	hub.handleRegister(second)
	assert.Equal(t, 2, hub.userConns[userID])

	// Closing one tab leaves the user online
	hub.handleUnregister(first)
	assert.Equal(t, 1, hub.userConns[userID])

	hub.handleUnregister(second)
	_, present := hub.userConns[userID]
	assert.False(t, present)
}

func TestShardForIsStable(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil, 8, 10)
	defer hub.Shutdown()

	assert.Same(t, hub.shardFor("client-1"), hub.shardFor("client-1"))
}

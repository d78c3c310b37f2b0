package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms-consulting-portal/backend/pkg/logger"
)

func newTestHub() *Hub {
	return NewHub(logger.New(logger.Config{Level: "error"}), nil)
}

func TestHubJoinIsIdempotent(t *testing.T) {
	hub := newTestHub()
	c := &Client{send: make(chan []byte, 4)}

	hub.Join("room-a", c)
	hub.Join("room-a", c)

	assert.Equal(t, 1, hub.RoomSize("room-a"))
	assert.True(t, hub.InRoom("room-a", c))
}

func TestHubBroadcastReachesRoomOnly(t *testing.T) {
	hub := newTestHub()
	inside := &Client{send: make(chan []byte, 4)}
	outside := &Client{send: make(chan []byte, 4)}

	hub.Join("room-a", inside)
	hub.Join("room-b", outside)

	hub.Broadcast("room-a", []byte("payload"))

	require.Len(t, inside.send, 1)
	assert.Equal(t, []byte("payload"), <-inside.send)
	assert.Empty(t, outside.send)
}

func TestHubBroadcastSkipsFullBuffers(t *testing.T) {
	hub := newTestHub()
	slow := &Client{send: make(chan []byte)}
	fast := &Client{send: make(chan []byte, 4)}

	hub.Join("room-a", slow)
	hub.Join("room-a", fast)

	// Must not block even though the slow client cannot receive
	hub.Broadcast("room-a", []byte("payload"))
	require.Len(t, fast.send, 1)
}

func TestHubUnregisterLeavesAllRooms(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	c := &Client{send: make(chan []byte, 4)}
	hub.register <- c
	hub.Join("room-a", c)
	hub.Join(AdminRoom, c)

	hub.unregister <- c

	// The send channel closing signals teardown completed
	select {
	case _, open := <-c.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}

	assert.Equal(t, 0, hub.RoomSize("room-a"))
	assert.Equal(t, 0, hub.RoomSize(AdminRoom))
	assert.Equal(t, 0, hub.ActiveConnections())
}

package websocket

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubscriber queues delivered messages in a bounded channel.
type fakeSubscriber struct {
	id     string
	inbox  chan *Message
	closed bool
	mu     sync.Mutex
}

func newFakeSubscriber(id string, buffer int) *fakeSubscriber {
	return &fakeSubscriber{id: id, inbox: make(chan *Message, buffer)}
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Deliver(msg *Message) bool {
	select {
	case f.inbox <- msg:
		return true
	default:
		return false
	}
}

func (f *fakeSubscriber) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSubscriber) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSubscriber) received() []*Message {
	var out []*Message
	for {
		select {
		case msg := <-f.inbox:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func testMessage(t *testing.T, routeID string, seq int) *Message {
	t.Helper()
	msg, err := NewMessage("location-update", routeID, map[string]int{"seq": seq})
	require.NoError(t, err)
	return msg
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	hub := NewHub()
	s := newFakeSubscriber("s1", 8)

	hub.Join(s, "route-1")
	hub.Join(s, "route-1")

	assert.Equal(t, 1, hub.RoomSize("route-1"))
	assert.Equal(t, 1, hub.RoomCount())
	assert.Equal(t, 1, hub.ClientCount())

	sender := newFakeSubscriber("sender", 8)
	assert.Equal(t, 1, hub.Publish(sender, "route-1", testMessage(t, "route-1", 1)))
	assert.Len(t, s.received(), 1)
}

func TestHub_PublishReachesMembersExceptSender(t *testing.T) {
	hub := NewHub()
	sender := newFakeSubscriber("driver", 8)
	a := newFakeSubscriber("a", 8)
	b := newFakeSubscriber("b", 8)

	hub.Join(sender, "route-1")
	hub.Join(a, "route-1")
	hub.Join(b, "route-1")

	delivered := hub.Publish(sender, "route-1", testMessage(t, "route-1", 1))

	assert.Equal(t, 2, delivered)
	assert.Len(t, a.received(), 1)
	assert.Len(t, b.received(), 1)
	assert.Empty(t, sender.received())
}

func TestHub_PublishWithoutSender(t *testing.T) {
	hub := NewHub()
	a := newFakeSubscriber("a", 8)
	hub.Join(a, "route-1")

	assert.Equal(t, 1, hub.Publish(nil, "route-1", testMessage(t, "route-1", 1)))
	assert.Len(t, a.received(), 1)
}

func TestHub_PublishIsScopedToRoom(t *testing.T) {
	hub := NewHub()
	s := newFakeSubscriber("s", 8)
	other := newFakeSubscriber("other", 8)

	hub.Join(s, "route-1")
	hub.Join(other, "route-2")

	hub.Publish(nil, "route-2", testMessage(t, "route-2", 1))
	hub.Publish(nil, "route-3", testMessage(t, "route-3", 1))

	assert.Empty(t, s.received())
	assert.Len(t, other.received(), 1)
}

func TestHub_LeaveAndDisconnectAreIdempotent(t *testing.T) {
	hub := NewHub()
	s := newFakeSubscriber("s", 8)

	hub.Leave(s, "route-1")
	hub.Disconnect(s)
	assert.Equal(t, 0, hub.ClientCount())

	hub.Join(s, "route-1")
	hub.Join(s, "route-2")
	hub.Leave(s, "route-1")
	hub.Leave(s, "route-1")

	assert.False(t, hub.IsMember(s, "route-1"))
	assert.True(t, hub.IsMember(s, "route-2"))
	assert.Equal(t, 0, hub.RoomSize("route-1"))
	assert.Equal(t, 1, hub.RoomCount())

	hub.Disconnect(s)
	hub.Disconnect(s)
	assert.Equal(t, 0, hub.RoomCount())
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_DisconnectRemovesAllMemberships(t *testing.T) {
	hub := NewHub()
	s := newFakeSubscriber("s", 8)
	for i := 0; i < 5; i++ {
		hub.Join(s, fmt.Sprintf("route-%d", i))
	}
	assert.Len(t, hub.RoomsOf(s), 5)

	hub.Disconnect(s)

	for i := 0; i < 5; i++ {
		hub.Publish(nil, fmt.Sprintf("route-%d", i), testMessage(t, "x", i))
	}
	assert.Empty(t, s.received())
	assert.Empty(t, hub.RoomsOf(s))
}

func TestHub_FullQueueIsDroppedWithoutBlockingOthers(t *testing.T) {
	hub := NewHub()
	slow := newFakeSubscriber("slow", 1)
	fast := newFakeSubscriber("fast", 16)

	hub.Join(slow, "route-1")
	hub.Join(fast, "route-1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(nil, "route-1", testMessage(t, "route-1", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Len(t, slow.received(), 1)
	assert.Len(t, fast.received(), 10)
}

func TestHub_SameSenderOrderIsPreserved(t *testing.T) {
	hub := NewHub()
	sender := newFakeSubscriber("driver", 1)
	s := newFakeSubscriber("s", 100)
	hub.Join(s, "route-1")

	for i := 0; i < 50; i++ {
		hub.Publish(sender, "route-1", testMessage(t, "route-1", i))
	}

	got := s.received()
	require.Len(t, got, 50)
	for i, msg := range got {
		var payload map[string]int
		require.NoError(t, msg.DecodeData(&payload))
		assert.Equal(t, i, payload["seq"])
	}
}

func TestHub_ConcurrentJoinLeavePublish(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newFakeSubscriber(fmt.Sprintf("s-%d", i), 256)
			for j := 0; j < 50; j++ {
				hub.Join(s, "route-1")
				hub.Publish(s, "route-1", testMessage(t, "route-1", j))
				hub.Leave(s, "route-1")
			}
			hub.Disconnect(s)
		}(i)
	}

	wg.Wait()
	assert.Equal(t, 0, hub.RoomCount())
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_RunDisconnectsEveryoneOnShutdown(t *testing.T) {
	hub := NewHub()
	a := newFakeSubscriber("a", 1)
	b := newFakeSubscriber("b", 1)
	hub.Join(a, "route-1")
	hub.Register(b)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.RoomCount())
}

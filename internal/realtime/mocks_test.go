package realtime

import (
	"context"
	"sync"

	"github.com/richxcame/transitflow/internal/tracking"
	"github.com/richxcame/transitflow/pkg/eventbus"
	"github.com/richxcame/transitflow/pkg/ratelimit"
	ws "github.com/richxcame/transitflow/pkg/websocket"
	"github.com/stretchr/testify/mock"
)

// fakeSubscriber queues delivered messages
type fakeSubscriber struct {
	id    string
	inbox chan *ws.Message
}

func newFakeSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id, inbox: make(chan *ws.Message, 16)}
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Deliver(msg *ws.Message) bool {
	select {
	case f.inbox <- msg:
		return true
	default:
		return false
	}
}

func (f *fakeSubscriber) received() []*ws.Message {
	var out []*ws.Message
	for {
		select {
		case msg := <-f.inbox:
			out = append(out, msg)
		default:
			return out
		}
	}
}

// mockPusher implements LocationPusher
type mockPusher struct {
	mock.Mock
}

func (m *mockPusher) ResolveTrip(ctx context.Context, push tracking.LocationPush, fallbackVehicle string) (tracking.LocationPush, error) {
	args := m.Called(ctx, push, fallbackVehicle)
	return args.Get(0).(tracking.LocationPush), args.Error(1)
}

func (m *mockPusher) PushLocation(ctx context.Context, push tracking.LocationPush) (*tracking.VehiclePosition, error) {
	args := m.Called(ctx, push)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tracking.VehiclePosition), args.Error(1)
}

type mockThrottle struct {
	mock.Mock
}

func (m *mockThrottle) Allow(ctx context.Context, endpoint, identity string) (ratelimit.Result, error) {
	args := m.Called(ctx, endpoint, identity)
	return args.Get(0).(ratelimit.Result), args.Error(1)
}

// fakeBus implements EventPublisher and EventSubscriber
type fakeBus struct {
	mu         sync.Mutex
	published  map[string][]*eventbus.Event
	publishErr error
	subjects   []string
	handler    eventbus.HandlerFunc
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string][]*eventbus.Event)}
}

func (b *fakeBus) Publish(ctx context.Context, subject string, event *eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published[subject] = append(b.published[subject], event)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, subject string, handler eventbus.HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	b.handler = handler
	return nil
}

func (b *fakeBus) events(subject string) []*eventbus.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published[subject]
}

package server

import (
	"context"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/relief/internal/dashboard"
	"github.com/MarcoPoloResearchLab/relief/internal/realtime"
)

const (
	StreamEventState     = "state"
	StreamEventLive      = "live"
	streamEventHeartbeat = "heartbeat"
	streamSourceBackend  = "relief-dashboard"
)

// StreamMessage is one event fanned out to every browser stream.
type StreamMessage struct {
	EventType string
	Payload   any
	Timestamp time.Time
}

// StreamDispatcher fans messages out to subscribers. Each subscriber has a bounded buffer and
// misses messages while it is full.
type StreamDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*streamSubscriber
	nextID      int64
	bufferSize  int
	clock       func() time.Time
}

type streamSubscriber struct {
	id     int64
	stream chan StreamMessage
}

func NewStreamDispatcher() *StreamDispatcher {
	return &StreamDispatcher{
		subscribers: make(map[int64]*streamSubscriber),
		bufferSize:  16,
		clock:       time.Now,
	}
}

func (d *StreamDispatcher) Subscribe(ctx context.Context) (<-chan StreamMessage, func()) {
	subscriber := &streamSubscriber{
		id:     d.nextSequence(),
		stream: make(chan StreamMessage, d.bufferSize),
	}
	d.registerSubscriber(subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() { d.unregisterSubscriber(subscriber.id) })
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *StreamDispatcher) Publish(message StreamMessage) {
	if message.EventType == "" {
		return
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = d.clock().UTC()
	}
	d.mu.RLock()
	if len(d.subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*streamSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// PublishState announces a new dashboard view.
func (d *StreamDispatcher) PublishState(state dashboard.State) {
	d.Publish(StreamMessage{EventType: StreamEventState, Payload: dashboard.BuildView(state)})
}

// PublishLive announces a new live channel snapshot.
func (d *StreamDispatcher) PublishLive(snapshot realtime.Snapshot) {
	d.Publish(StreamMessage{EventType: StreamEventLive, Payload: snapshot})
}

func (d *StreamDispatcher) subscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

func (d *StreamDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *StreamDispatcher) registerSubscriber(subscriber *streamSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[subscriber.id] = subscriber
}

func (d *StreamDispatcher) unregisterSubscriber(subscriberID int64) {
	d.mu.Lock()
	delete(d.subscribers, subscriberID)
	d.mu.Unlock()
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const DefaultBuffer = 64

type Feed struct {
	id       string
	room     string
	role     Role
	clientID string
	ch       chan Event
	broker   *Broker
	once     sync.Once
}

func (f *Feed) ID() string { return f.id }
func (f *Feed) Room() string { return f.room }
func (f *Feed) Role() Role { return f.role }
func (f *Feed) ClientID() string { return f.clientID }
func (f *Feed) C() <-chan Event { return f.ch }
func (f *Feed) Close() { f.once.Do(func() { f.broker.unsubscribe(f) }) }
func (f *Feed) String() string { return f.room + "/" + string(f.role) + "/" + f.clientID }
func (f *Feed) buffered() (int, int) { return len(f.ch), cap(f.ch) }

// topic holds the feeds of one room. Its lock is never shared across rooms.
type topic struct {
	mu     sync.Mutex
	seq    uint64
	feeds  map[string]*Feed
	closed bool
}

type Broker struct {
	mu     sync.RWMutex
	topics map[string]*topic
	buffer int

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = DefaultBuffer
	}

	return &Broker{
		topics: make(map[string]*topic),
		buffer: buffer,
	}
}

func (b *Broker) topic(room string) (*topic, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.topics[room]

	return t, ok
}

// Open starts accepting subscribers and events for room. Opening a room that
// is already open keeps its feeds and sequence.
func (b *Broker) Open(room string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.topics[room]; !ok {
		b.topics[room] = &topic{feeds: make(map[string]*Feed)}
	}
}

// Subscribe opens a live feed for one connection. The same client may hold
// several feeds at once (for example during a reconnect overlap). A room that
// was never opened or has been closed yields a feed whose channel is already
// closed.
func (b *Broker) Subscribe(room string, role Role, clientID string) *Feed {
	f := &Feed{
		id:       uuid.NewString(),
		room:     room,
		role:     role,
		clientID: clientID,
		ch:       make(chan Event, b.buffer),
		broker:   b,
	}

	t, ok := b.topic(room)
	if !ok {
		close(f.ch)

		return f
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		close(f.ch)

		return f
	}
	t.feeds[f.id] = f
	n := len(t.feeds)
	t.mu.Unlock()

	log.Debug().Str("module", "events").Str("room", room).Str("role", string(role)).Str("client", clientID).Int("feeds", n).Msg("subscribed")

	return f
}

func (b *Broker) unsubscribe(f *Feed) {
	b.mu.RLock()
	t, ok := b.topics[f.room]
	b.mu.RUnlock()
	if !ok {
		return
	}

	t.mu.Lock()
	if _, ok := t.feeds[f.id]; ok {
		delete(t.feeds, f.id)
		close(f.ch)
	}
	t.mu.Unlock()

	log.Debug().Str("module", "events").Str("room", f.room).Str("client", f.clientID).Msg("unsubscribed")
}

// Publish appends one event to every feed of the room without waiting on any of
// them. Full feeds are skipped. Events for a room that is not open go nowhere.
func (b *Broker) Publish(room, name string, payload any) (Event, PublishResult) {
	t, ok := b.topic(room)
	if !ok {
		return Event{Room: room, Name: name, Payload: payload, At: time.Now()}, PublishResult{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	ev := Event{
		Seq:     t.seq,
		Room:    room,
		Name:    name,
		Payload: payload,
		At:      time.Now(),
	}

	var res PublishResult
	for _, f := range t.feeds {
		select {
		case f.ch <- ev:
			res.SendTo++
		default:
			res.Dropped++
			used, size := f.buffered()
			log.Debug().Str("module", "events").Str("feed", f.String()).Str("event", name).Int("buffered", used).Int("cap", size).Msg("slow subscriber skipped")
		}
	}

	b.delivered.Add(uint64(res.SendTo))
	b.dropped.Add(uint64(res.Dropped))

	return ev, res
}

// CloseRoom ends every feed of the room and forgets its sequence counter.
func (b *Broker) CloseRoom(room string) {
	b.mu.Lock()
	t, ok := b.topics[room]
	delete(b.topics, room)
	b.mu.Unlock()
	if !ok {
		return
	}

	t.mu.Lock()
	t.closed = true
	for id, f := range t.feeds {
		delete(t.feeds, id)
		close(f.ch)
	}
	t.mu.Unlock()
}

func (b *Broker) Count(room string) int {
	b.mu.RLock()
	t, ok := b.topics[room]
	b.mu.RUnlock()
	if !ok {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.feeds)
}

// Connected reports whether the client currently holds at least one feed.
func (b *Broker) Connected(room, clientID string) bool {
	b.mu.RLock()
	t, ok := b.topics[room]
	b.mu.RUnlock()
	if !ok {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, f := range t.feeds {
		if f.clientID == clientID {
			return true
		}
	}

	return false
}

func (b *Broker) Stats() Stats {
	b.mu.RLock()
	topics := make([]*topic, 0, len(b.topics))
	for _, t := range b.topics {
		topics = append(topics, t)
	}
	b.mu.RUnlock()

	feeds := 0
	for _, t := range topics {
		t.mu.Lock()
		feeds += len(t.feeds)
		t.mu.Unlock()
	}

	return Stats{
		Feeds:     feeds,
		Delivered: b.delivered.Load(),
		Dropped:   b.dropped.Load(),
	}
}

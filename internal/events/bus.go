package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Bus is a lightweight pub/sub broker using channels.
type Bus struct {
	mu      sync.RWMutex
	subs    map[Event][]chan any
	streams []*stream
	seq     atomic.Uint64
}

type stream struct {
	topics map[Event]bool
	ch     chan Envelope
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]chan any)}
}

// Subscribe registers a listener for an event and returns the channel and an unsubscribe function.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	b.subs[e] = append(b.subs[e], ch)
	return ch, func() { b.remove(e, ch) }
}

func (b *Bus) remove(e Event, ch chan any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[e]
	for i, c := range subs {
		if c == ch {
			close(c)
			b.subs[e] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// SubscribeAll delivers the given topics as one stream of Envelopes, in publication
// order. The returned function unsubscribes and closes the stream.
func (b *Bus) SubscribeAll(topics []Event, buffer int) (<-chan Envelope, func()) {
	st := &stream{topics: make(map[Event]bool, len(topics)), ch: make(chan Envelope, buffer)}
	for _, topic := range topics {
		st.topics[topic] = true
	}

	b.mu.Lock()
	b.streams = append(b.streams, st)
	b.mu.Unlock()

	var once sync.Once
	return st.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, other := range b.streams {
				if other == st {
					b.streams = append(b.streams[:i], b.streams[i+1:]...)
					break
				}
			}
			close(st.ch)
		})
	}
}

// Publish fans the payload out to subscribers without blocking; slow subscribers miss it.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e] {
		select {
		case ch <- payload:
		default:
		}
	}

	env := Envelope{Seq: b.seq.Add(1), Type: e, At: time.Now(), Payload: payload}
	for _, st := range b.streams {
		if !st.topics[e] {
			continue
		}
		select {
		case st.ch <- env:
		default:
		}
	}
}

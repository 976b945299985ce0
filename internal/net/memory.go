package net

import (
	"sync"
	"sync/atomic"
)

const memoryQueue = 256

// MemoryBus is an in-process Transport. Each subscription drains its own
// queue on a dedicated goroutine so publishers never run subscriber code.
// A full queue drops the payload.
type MemoryBus struct {
	mu        sync.RWMutex
	topics    map[string]map[*memorySub]struct{}
	closed    bool
	connected atomic.Bool
}

func NewMemoryBus() *MemoryBus {
	b := &MemoryBus{topics: make(map[string]map[*memorySub]struct{})}
	b.connected.Store(true)
	return b
}

type memorySub struct {
	bus   *MemoryBus
	topic string
	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

func (b *MemoryBus) Subscribe(topic string, h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	s := &memorySub{
		bus:   b,
		topic: topic,
		queue: make(chan []byte, memoryQueue),
		done:  make(chan struct{}),
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*memorySub]struct{})
	}
	b.topics[topic][s] = struct{}{}

	go func() {
		for {
			select {
			case p := <-s.queue:
				h(p)
			case <-s.done:
				return
			}
		}
	}()
	return s, nil
}

func (b *MemoryBus) Publish(topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for s := range b.topics[topic] {
		p := append([]byte(nil), payload...)
		select {
		case s.queue <- p:
		default:
		}
	}
	return nil
}

// Connected reports the simulated link state.
func (b *MemoryBus) Connected() bool {
	return b.connected.Load()
}

// SetConnected simulates the link going down or coming back. It does not
// affect delivery; callers are expected to check Connected before publishing.
func (b *MemoryBus) SetConnected(v bool) {
	b.connected.Store(v)
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	subs := make([]*memorySub, 0)
	for _, set := range b.topics {
		for s := range set {
			subs = append(subs, s)
		}
	}
	b.topics = make(map[string]map[*memorySub]struct{})
	b.closed = true
	b.mu.Unlock()

	b.connected.Store(false)
	for _, s := range subs {
		s.stop()
	}
	return nil
}

func (s *memorySub) Unsubscribe() error {
	s.bus.mu.Lock()
	if set := s.bus.topics[s.topic]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(s.bus.topics, s.topic)
		}
	}
	s.bus.mu.Unlock()
	s.stop()
	return nil
}

func (s *memorySub) stop() {
	s.once.Do(func() { close(s.done) })
}

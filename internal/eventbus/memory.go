package eventbus

import "sync"

// InMemory is the reference EventBus: fan-out to in-process subscribers.
// Each subscriber owns a private, unbounded FIFO queue drained by a
// dedicated goroutine, so a slow subscriber never blocks Publish or
// reorders events delivered to other subscribers — the same
// isolate-each-waiter shape as the teacher's EventRouter, generalized from
// one-shot waiters to persistent topic subscriptions.
type InMemory struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription
}

type subscription struct {
	agentID     string
	executionID string

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool

	out chan Event
}

// NewInMemory creates an empty in-memory EventBus.
func NewInMemory() *InMemory {
	return &InMemory{subs: make(map[uint64]*subscription)}
}

func (b *InMemory) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.agentID != event.AgentID {
			continue
		}
		if sub.executionID != "" && sub.executionID != event.ExecutionID {
			continue
		}
		sub.enqueue(event)
	}
}

func (b *InMemory) Subscribe(agentID, executionID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{
		agentID:     agentID,
		executionID: executionID,
		out:         make(chan Event),
	}
	sub.cond = sync.NewCond(&sub.mu)
	go sub.drain()

	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.close()
	}
	return sub.out, unsubscribe
}

func (s *subscription) enqueue(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, event)
	s.cond.Signal()
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cond.Signal()
}

// drain delivers queued events to s.out in FIFO order until closed.
func (s *subscription) drain() {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		event := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.out <- event
	}
}

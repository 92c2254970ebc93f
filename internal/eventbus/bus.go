// Package eventbus carries pipeline progress signals (deliveries, topic
// outcomes, finished runs) to whoever wants to watch them: the daemon's
// run log and tests.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event types.
const (
	DeliverySent   = "delivery.sent"
	DeliveryFailed = "delivery.failed"
	TopicDone      = "topic.done"
	RunDone        = "run.done"
)

// Event is a small in-memory signal. Publish never blocks; a subscriber
// whose buffer is full misses events.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// Delivery is the Data of DeliverySent and DeliveryFailed.
type Delivery struct {
	Channel string `json:"channel"`
	URL     string `json:"url"`
	Error   string `json:"error,omitempty"`
}

// Topic is the Data of TopicDone.
type Topic struct {
	ID        string `json:"id"`
	Stage     string `json:"stage"`
	URL       string `json:"url,omitempty"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// Run is the Data of RunDone.
type Run struct {
	Mode      string        `json:"mode"`
	Topics    int           `json:"topics"`
	Posted    int           `json:"posted"`
	NextIndex int           `json:"next_index"`
	Took      time.Duration `json:"took"`
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus with no goroutines of its own.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			// Publish holds the read lock while sending, so closing under
			// the write lock cannot race a send.
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

package channel

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 16

// Broadcaster fans wake signals out to the stream sessions of a recipient.
// It is purely a latency optimization: publishes to absent or slow
// subscribers are dropped, and the stream's fallback poll makes up for any
// missed signal.
type Broadcaster struct {
	mtx  sync.Mutex
	next int64
	subs map[int64]map[int64]chan int64
}

func NewBroadcaster() *Broadcaster {
	log.Info().Msg("Initialized broadcast channel")
	return &Broadcaster{
		subs: make(map[int64]map[int64]chan int64),
	}
}

// Subscribe registers a wake channel for one recipient. The returned cancel
// function must be called when the session closes.
func (b *Broadcaster) Subscribe(recipient int64) (<-chan int64, func()) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if _, exists := b.subs[recipient]; !exists {
		b.subs[recipient] = make(map[int64]chan int64)
	}

	b.next++
	key := b.next
	ch := make(chan int64, subscriberBuffer)
	b.subs[recipient][key] = ch

	return ch, func() {
		b.mtx.Lock()
		defer b.mtx.Unlock()

		if conns, exists := b.subs[recipient]; exists {
			delete(conns, key)
			if len(conns) == 0 {
				delete(b.subs, recipient)
			}
		}
	}
}

// Publish wakes every live session of the recipient. It never blocks: a full
// subscriber buffer means that session already has deliveries pending, so
// the signal is dropped.
func (b *Broadcaster) Publish(recipient, id int64) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	for _, ch := range b.subs[recipient] {
		select {
		case ch <- id:
		default:
			log.Debug().Int64("recipient", recipient).Int64("id", id).Msg("Dropped wake signal for slow subscriber")
		}
	}
}

// Subscribers reports how many sessions are currently registered for a
// recipient.
func (b *Broadcaster) Subscribers(recipient int64) int {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	return len(b.subs[recipient])
}

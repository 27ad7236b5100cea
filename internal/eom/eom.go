// Package eom implements end-of-message fan-out: every per-alert fan-out
// task (internal/alertmgr) needs to learn, independently and without
// blocking the Audio Decoder, the moment a stream's SAME receiver emits
// an EndOfMessage burst. This is the same subscribe/fan-out shape as
// internal/radio/stream.go's Broadcaster, generalized from MP3 byte
// chunks to bare signals.
package eom

import "sync"

// Signal carries no payload; receiving on a subscription means "an
// EndOfMessage burst was just decoded on one of the streams" (a single
// Broadcaster serves every stream, and the signal does not say which).
type Signal = struct{}

type subscription struct {
	ch chan Signal
	id uint64
}

// Broadcaster fans out EndOfMessage notifications to any number of
// subscribers, dropping a notification for a subscriber whose buffer is
// already full rather than blocking the publisher — a subscriber that
// missed a signal simply times out its own wait instead.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscription
	nextID  uint64
}

// New constructs an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]*subscription)}
}

// Subscription is an opaque handle returned by Subscribe; pass it to
// Unsubscribe when done, and read from C for EndOfMessage notifications.
type Subscription struct {
	C  <-chan Signal
	id uint64
}

// Subscribe registers a new listener.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Signal, 1)
	b.subs[id] = &subscription{ch: ch, id: id}
	return &Subscription{C: ch, id: id}
}

// Unsubscribe removes a listener, closing its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(s.ch)
	}
}

// Publish notifies every current subscriber that an EndOfMessage burst
// was decoded. Subscribers whose buffer is already full (i.e. they
// haven't consumed a previous signal) are skipped rather than blocked.
func (b *Broadcaster) Publish() {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs {
		select {
		case s.ch <- Signal{}:
		default:
		}
	}
}

// Subscribers returns the current subscriber count, for diagnostics.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

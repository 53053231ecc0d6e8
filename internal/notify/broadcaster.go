package notify

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Listeners get a buffered channel so that a slow consumer does not hold up the notifier. A
// listener whose buffer is full misses the value rather than blocking delivery to the others.
const subscriberChannelBufferLength = 100

// Broadcaster fans values out to any number of channel subscribers.
//
// AddListener returns a new receive-only channel; RemoveListener unsubscribes that channel and
// closes it; Broadcast sends a value to all of the subscribed channels; Close unsubscribes and
// closes all existing channels.
type Broadcaster[V any] struct {
	subscribers []channelPair[V]
	lock        sync.Mutex
}

// Both ends are kept because a chan V and a <-chan V never compare equal.
type channelPair[V any] struct {
	sendCh    chan<- V
	receiveCh <-chan V
}

// NewBroadcaster creates a Broadcaster for the value type V.
func NewBroadcaster[V any]() *Broadcaster[V] {
	return &Broadcaster[V]{}
}

// AddListener adds a subscriber and returns a channel for it to receive values.
func (b *Broadcaster[V]) AddListener() <-chan V {
	ch := make(chan V, subscriberChannelBufferLength)
	var receiveCh <-chan V = ch
	b.lock.Lock()
	defer b.lock.Unlock()
	b.subscribers = append(b.subscribers, channelPair[V]{sendCh: ch, receiveCh: receiveCh})
	return receiveCh
}

// RemoveListener removes a subscriber. The parameter is the channel returned by AddListener.
func (b *Broadcaster[V]) RemoveListener(ch <-chan V) {
	b.lock.Lock()
	defer b.lock.Unlock()
	index := slices.IndexFunc(b.subscribers, func(s channelPair[V]) bool { return s.receiveCh == ch })
	if index < 0 {
		return
	}
	close(b.subscribers[index].sendCh)
	b.subscribers = slices.Delete(b.subscribers, index, index+1)
}

// HasListeners returns true if there are any current subscribers.
func (b *Broadcaster[V]) HasListeners() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.subscribers) > 0
}

// Broadcast sends a value to all current subscribers, returning the number of subscribers that
// could not accept it.
func (b *Broadcaster[V]) Broadcast(value V) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	missed := 0
	for _, s := range b.subscribers {
		select {
		case s.sendCh <- value:
		default:
			missed++
		}
	}
	return missed
}

// Close closes all current subscriber channels.
func (b *Broadcaster[V]) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, s := range b.subscribers {
		close(s.sendCh)
	}
	b.subscribers = nil
}

// Package notify delivers pipeline outcomes to the application's delegate without blocking the
// pipeline.
package notify

import (
	"sync"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/atinternet/go-tracker/subsystems"
)

// Kind says which delegate method a Notification corresponds to.
type Kind int

const (
	BuildEnd Kind = iota //nolint:revive
	SendEnd
	SaveEnd
	Warning
	Error
)

// Notification is one delegate callback.
type Notification struct {
	Kind    Kind
	Status  subsystems.Status
	Message string
}

const defaultInboxCapacity = 1000

// Notifier implements subsystems.Delegate by queueing each call and forwarding it, from a
// single goroutine and in order, to the configured delegate and to any listeners.
type Notifier struct {
	delegate    subsystems.Delegate
	broadcaster *Broadcaster[Notification]
	inbox       chan Notification
	done        chan struct{}
	loggers     ldlog.Loggers
	closed      bool
	lock        sync.RWMutex
	closeOnce   sync.Once
}

// New starts a Notifier. The delegate may be nil.
func New(delegate subsystems.Delegate, loggers ldlog.Loggers) *Notifier {
	n := &Notifier{
		delegate:    delegate,
		broadcaster: NewBroadcaster[Notification](),
		inbox:       make(chan Notification, defaultInboxCapacity),
		done:        make(chan struct{}),
		loggers:     loggers,
	}
	go n.run()
	return n
}

func (n *Notifier) run() {
	defer close(n.done)
	for note := range n.inbox {
		n.deliver(note)
		if missed := n.broadcaster.Broadcast(note); missed > 0 {
			n.loggers.Debugf("%d notification listener(s) missed a notification", missed)
		}
	}
}

func (n *Notifier) deliver(note Notification) {
	if n.delegate == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			n.loggers.Errorf("Delegate panicked: %v", r)
		}
	}()
	switch note.Kind {
	case BuildEnd:
		n.delegate.BuildDidEnd(note.Status, note.Message)
	case SendEnd:
		n.delegate.SendDidEnd(note.Status, note.Message)
	case SaveEnd:
		n.delegate.SaveDidEnd(note.Message)
	case Warning:
		n.delegate.WarningDidOccur(note.Message)
	case Error:
		n.delegate.ErrorDidOccur(note.Message)
	}
}

func (n *Notifier) post(note Notification) {
	n.lock.RLock()
	defer n.lock.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.inbox <- note:
	default:
		n.loggers.Warn("Delegate notification queue is full; dropping notification")
	}
}

// AddListener subscribes to every notification.
func (n *Notifier) AddListener() <-chan Notification {
	return n.broadcaster.AddListener()
}

// RemoveListener unsubscribes a channel returned by AddListener.
func (n *Notifier) RemoveListener(ch <-chan Notification) {
	n.broadcaster.RemoveListener(ch)
}

//nolint:revive // subsystems.Delegate implementation
func (n *Notifier) BuildDidEnd(status subsystems.Status, message string) {
	n.post(Notification{Kind: BuildEnd, Status: status, Message: message})
}

//nolint:revive // subsystems.Delegate implementation
func (n *Notifier) SendDidEnd(status subsystems.Status, message string) {
	n.post(Notification{Kind: SendEnd, Status: status, Message: message})
}

//nolint:revive // subsystems.Delegate implementation
func (n *Notifier) SaveDidEnd(message string) {
	n.post(Notification{Kind: SaveEnd, Message: message})
}

//nolint:revive // subsystems.Delegate implementation
func (n *Notifier) WarningDidOccur(message string) {
	n.loggers.Warn(message)
	n.post(Notification{Kind: Warning, Message: message})
}

//nolint:revive // subsystems.Delegate implementation
func (n *Notifier) ErrorDidOccur(message string) {
	n.loggers.Error(message)
	n.post(Notification{Kind: Error, Message: message})
}

// Close delivers any queued notifications, then stops the notifier and closes all listeners.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		n.lock.Lock()
		n.closed = true
		close(n.inbox)
		n.lock.Unlock()
		<-n.done
		n.broadcaster.Close()
	})
}

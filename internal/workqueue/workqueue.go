// Package workqueue provides the serial background queue that builds and sends a tracker's hits.
package workqueue

import (
	"sync"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// DefaultCapacity is the inbox size used when none is configured.
const DefaultCapacity = 10000

// Unit is one piece of work. Units run one at a time, in submission order.
type Unit interface {
	Run()
}

// UnitFunc adapts a function to the Unit interface.
type UnitFunc func()

// Run calls f.
func (f UnitFunc) Run() { f() }

// Payload of the inbox channel.
type queueMessage interface{}

type runMessage struct {
	unit Unit
}

type syncMessage struct {
	replyCh chan struct{}
}

type shutdownMessage struct {
	replyCh chan struct{}
}

// Queue is a single-worker FIFO. Nothing submitted to the same Queue ever runs concurrently.
type Queue struct {
	inboxCh       chan queueMessage
	inboxFullOnce sync.Once
	closeOnce     sync.Once
	closed        bool
	lock          sync.RWMutex
	loggers       ldlog.Loggers
}

// New starts a Queue whose inbox holds up to capacity pending units.
func New(capacity int, loggers ldlog.Loggers) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{
		inboxCh: make(chan queueMessage, capacity),
		loggers: loggers,
	}
	go q.runMainLoop()
	return q
}

// Submit queues a unit without blocking. It returns false if the queue is closed or full.
func (q *Queue) Submit(unit Unit) bool {
	q.lock.RLock()
	defer q.lock.RUnlock()
	if q.closed {
		q.loggers.Debug("Ignoring work submitted after the queue was closed")
		return false
	}
	select {
	case q.inboxCh <- runMessage{unit: unit}:
		return true
	default:
	}
	q.inboxFullOnce.Do(func() {
		q.loggers.Warn("Hits are being produced faster than they can be processed; work is being rejected")
	})
	return false
}

// IsClosed reports whether Close has been called.
func (q *Queue) IsClosed() bool {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return q.closed
}

// Sync blocks until every unit submitted before the call has run.
func (q *Queue) Sync() {
	q.lock.RLock()
	if q.closed {
		q.lock.RUnlock()
		return
	}
	m := syncMessage{replyCh: make(chan struct{})}
	q.inboxCh <- m
	q.lock.RUnlock()
	<-m.replyCh
}

// Close runs the units already queued, then stops the worker.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.lock.Lock()
		q.closed = true
		m := shutdownMessage{replyCh: make(chan struct{})}
		q.inboxCh <- m
		q.lock.Unlock()
		<-m.replyCh
	})
}

func (q *Queue) runMainLoop() {
	for message := range q.inboxCh {
		switch m := message.(type) {
		case runMessage:
			q.runUnit(m.unit)
		case syncMessage:
			m.replyCh <- struct{}{}
		case shutdownMessage:
			m.replyCh <- struct{}{}
			return
		}
	}
}

func (q *Queue) runUnit(unit Unit) {
	defer func() {
		if err := recover(); err != nil {
			q.loggers.Errorf("Unexpected panic in tracker work queue: %+v", err)
		}
	}()
	unit.Run()
}

package sharedtest

import (
	"sync"

	"github.com/atinternet/go-tracker/subsystems"
)

// MockTaskHost is a BackgroundTaskHost whose windows expire only when the test says so.
type MockTaskHost struct {
	next   subsystems.TaskHandle
	active map[subsystems.TaskHandle]func()
	Ended  chan subsystems.TaskHandle
	lock   sync.Mutex
}

// NewMockTaskHost creates a MockTaskHost.
func NewMockTaskHost() *MockTaskHost {
	return &MockTaskHost{active: make(map[subsystems.TaskHandle]func()), Ended: make(chan subsystems.TaskHandle, 100)}
}

func (h *MockTaskHost) Begin(onExpire func()) subsystems.TaskHandle { //nolint:revive
	h.lock.Lock()
	defer h.lock.Unlock()
	h.next++
	h.active[h.next] = onExpire
	return h.next
}

func (h *MockTaskHost) End(handle subsystems.TaskHandle) { //nolint:revive
	h.lock.Lock()
	_, ok := h.active[handle]
	delete(h.active, handle)
	h.lock.Unlock()
	if ok {
		h.Ended <- handle
	}
}

// Expire calls the expiration handlers of all active windows.
func (h *MockTaskHost) Expire() {
	h.lock.Lock()
	handlers := make([]func(), 0, len(h.active))
	for _, f := range h.active {
		handlers = append(handlers, f)
	}
	h.lock.Unlock()
	for _, f := range handlers {
		f()
	}
}

// ActiveCount returns the number of windows not yet ended.
func (h *MockTaskHost) ActiveCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.active)
}

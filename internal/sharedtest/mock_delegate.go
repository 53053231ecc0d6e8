package sharedtest

import (
	"sync"

	"github.com/atinternet/go-tracker/subsystems"
)

// DelegateCall is one recorded delegate callback.
type DelegateCall struct {
	Method  string
	Status  subsystems.Status
	Message string
}

// CapturingDelegate records every callback and also publishes it on Calls.
type CapturingDelegate struct {
	Calls   chan DelegateCall
	history []DelegateCall
	lock    sync.Mutex
}

// NewCapturingDelegate creates a CapturingDelegate with a generously buffered channel.
func NewCapturingDelegate() *CapturingDelegate {
	return &CapturingDelegate{Calls: make(chan DelegateCall, 1000)}
}

func (d *CapturingDelegate) record(c DelegateCall) {
	d.lock.Lock()
	d.history = append(d.history, c)
	d.lock.Unlock()
	select {
	case d.Calls <- c:
	default:
	}
}

// History returns all calls so far.
func (d *CapturingDelegate) History() []DelegateCall {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]DelegateCall(nil), d.history...)
}

// Messages returns the messages of the calls to one method.
func (d *CapturingDelegate) Messages(method string) []string {
	var ret []string
	for _, c := range d.History() {
		if c.Method == method {
			ret = append(ret, c.Message)
		}
	}
	return ret
}

func (d *CapturingDelegate) BuildDidEnd(status subsystems.Status, message string) { //nolint:revive
	d.record(DelegateCall{Method: "BuildDidEnd", Status: status, Message: message})
}

func (d *CapturingDelegate) SendDidEnd(status subsystems.Status, message string) { //nolint:revive
	d.record(DelegateCall{Method: "SendDidEnd", Status: status, Message: message})
}

func (d *CapturingDelegate) SaveDidEnd(message string) { //nolint:revive
	d.record(DelegateCall{Method: "SaveDidEnd", Message: message})
}

func (d *CapturingDelegate) WarningDidOccur(message string) { //nolint:revive
	d.record(DelegateCall{Method: "WarningDidOccur", Message: message})
}

func (d *CapturingDelegate) ErrorDidOccur(message string) { //nolint:revive
	d.record(DelegateCall{Method: "ErrorDidOccur", Message: message})
}

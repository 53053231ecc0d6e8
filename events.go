package attracker

import (
	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/param"
)

// Event is a named event with free-form properties.
type Event struct {
	bo.Base
	Name string
	Data map[string]interface{}
}

//nolint:revive // Object implementation
func (e *Event) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindEvent} }

// SetParams writes the event as a batch of one.
func (e *Event) SetParams(b *buffer.Buffer) {
	setEvents(b, []*Event{e})
}

func (e *Event) payload() map[string]interface{} {
	data := e.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	return map[string]interface{}{"name": e.Name, "data": data}
}

// Events collects events and sends them in batches.
type Events struct {
	host host
}

// Events returns the event collection.
func (t *Tracker) Events() *Events {
	return &Events{host: t}
}

// Add registers an event to be sent by the next Send or Tracker.Dispatch.
func (e *Events) Add(name string, data map[string]interface{}) *Event {
	event := &Event{Base: bo.NewBase(), Name: name, Data: data}
	e.host.register(event)
	return event
}

// Send sends every registered event in one hit.
func (e *Events) Send() {
	events := e.host.take(bo.KindEvent)
	if len(events) == 0 {
		return
	}
	e.host.dispatch(newEventBatch(events))
}

// SendSingle sends one event immediately, without registering it and without touching the
// events already registered.
func (e *Events) SendSingle(name string, data map[string]interface{}) {
	e.host.dispatch(&Event{Base: bo.NewBase(), Name: name, Data: data})
}

type eventBatch struct {
	bo.Base
	events []*Event
}

func newEventBatch(objects []bo.Object) *eventBatch {
	batch := &eventBatch{Base: bo.NewBase()}
	for _, o := range objects {
		if e, ok := o.(*Event); ok {
			batch.events = append(batch.events, e)
		}
	}
	return batch
}

func (b *eventBatch) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindEvent} }

func (b *eventBatch) SetParams(buf *buffer.Buffer) {
	setEvents(buf, b.events)
}

func setEvents(b *buffer.Buffer, events []*Event) {
	payload := make([]interface{}, len(events))
	for i, e := range events {
		payload[i] = e.payload()
	}
	b.Set(param.New("col", 2, param.Options{}))
	b.Set(param.New("events", param.AsJSON(payload), param.EncodedOptions()))
}

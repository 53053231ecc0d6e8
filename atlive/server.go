package atlive

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/launchdarkly/eventsource"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/atinternet/go-tracker/subsystems"
)

// Channel is the SSE channel hits are published on.
const Channel = "hits"

// EventName is the SSE event type of a published hit.
const EventName = "hit"

// DefaultHistorySize is the number of hits replayed to a console when it connects.
const DefaultHistorySize = 50

type hitPayload struct {
	URL          string `json:"url"`
	Type         string `json:"type"`
	CreationDate int64  `json:"creationDate"`
	Offline      bool   `json:"offline"`
}

type hitEvent struct {
	id   string
	data string
}

func (e hitEvent) Id() string    { return e.id } //nolint:revive,stylecheck
func (e hitEvent) Event() string { return EventName }
func (e hitEvent) Data() string  { return e.data }

// history is an eventsource.Repository holding the most recent hits.
type history struct {
	events []eventsource.Event
	size   int
	lock   sync.Mutex
}

func (h *history) add(e eventsource.Event) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.events = append(h.events, e)
	if len(h.events) > h.size {
		h.events = h.events[len(h.events)-h.size:]
	}
}

func (h *history) Replay(channel, lastEventID string) chan eventsource.Event {
	h.lock.Lock()
	events := make([]eventsource.Event, 0, len(h.events))
	skip := lastEventID != ""
	for _, e := range h.events {
		if skip {
			if e.Id() == lastEventID {
				skip = false
			}
			continue
		}
		events = append(events, e)
	}
	if skip {
		// The last seen event is no longer in the history, so replay all of it.
		events = append(events[:0], h.events...)
	}
	h.lock.Unlock()

	out := make(chan eventsource.Event, len(events))
	for _, e := range events {
		out <- e
	}
	close(out)
	return out
}

// Server is a subsystems.LiveTaggingSink that serves hits as SSE.
type Server struct {
	sse     *eventsource.Server
	history *history
	loggers ldlog.Loggers
	seq     int64
	lock    sync.Mutex
	closed  bool
}

var _ subsystems.LiveTaggingSink = (*Server)(nil)

// NewServer creates a Server that replays up to historySize recent hits to new subscribers.
func NewServer(historySize int, loggers ldlog.Loggers) *Server {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	s := &Server{
		sse:     eventsource.NewServer(),
		history: &history{size: historySize},
		loggers: loggers,
	}
	s.sse.ReplayAll = true
	s.sse.AllowCORS = true
	s.sse.Register(Channel, s.history)
	return s
}

// Handler serves the hit stream.
func (s *Server) Handler() http.Handler {
	return s.sse.Handler(Channel)
}

// Publish sends a hit to connected consoles.
func (s *Server) Publish(e subsystems.HitEvent) {
	data, err := json.Marshal(hitPayload{
		URL:          e.URL,
		Type:         e.Type,
		CreationDate: e.CreationDate.UnixMilli(),
		Offline:      e.Offline,
	})
	if err != nil {
		s.loggers.Warnf("Unable to encode live tagging event: %s", err)
		return
	}
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.seq++
	event := hitEvent{id: strconv.FormatInt(s.seq, 10), data: string(data)}
	s.lock.Unlock()

	s.history.add(event)
	s.sse.Publish([]string{Channel}, event)
}

// Close disconnects all consoles.
func (s *Server) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.closed {
		s.closed = true
		s.sse.Close()
	}
	return nil
}

// DecodeHit parses the data of a published event. It is used by consoles written in Go.
func DecodeHit(data string) (subsystems.HitEvent, error) {
	var p hitPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return subsystems.HitEvent{}, err
	}
	return subsystems.HitEvent{
		URL:          p.URL,
		Type:         p.Type,
		CreationDate: time.UnixMilli(p.CreationDate),
		Offline:      p.Offline,
	}, nil
}

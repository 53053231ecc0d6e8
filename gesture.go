package attracker

import (
	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/param"
)

// GestureAction is the "click" parameter of a gesture hit.
type GestureAction string

// Gesture actions.
const (
	GestureTouch    GestureAction = "A"
	GestureNavigate GestureAction = "N"
	GestureSearch   GestureAction = bo.ActionSearch
	GestureDownload GestureAction = "T"
	GestureExit     GestureAction = "X"
)

// Gesture is a user interaction. Create one with Gestures.Add and send it with one of its Send
// methods.
type Gesture struct {
	bo.Base
	Chapters
	Name   string
	Level2 int
	Action GestureAction

	host host
}

// Gestures creates gestures for a tracker.
type Gestures struct {
	host host
}

// Gestures returns the gesture factory.
func (t *Tracker) Gestures() *Gestures {
	return &Gestures{host: t}
}

// Add creates a gesture with the given name.
func (g *Gestures) Add(name string) *Gesture {
	gesture := &Gesture{Base: bo.NewBase(), Name: name, Action: GestureTouch, host: g.host}
	g.host.register(gesture)
	return gesture
}

// AddWithChapters creates a gesture with the given name and chapters.
func (g *Gestures) AddWithChapters(name string, chapters Chapters) *Gesture {
	gesture := g.Add(name)
	gesture.Chapters = chapters
	return gesture
}

// SendTouch sends the gesture as a touch.
func (g *Gesture) SendTouch() { g.send(GestureTouch) }

// SendNavigation sends the gesture as a navigation.
func (g *Gesture) SendNavigation() { g.send(GestureNavigate) }

// SendDownload sends the gesture as a download.
func (g *Gesture) SendDownload() { g.send(GestureDownload) }

// SendExit sends the gesture as an exit.
func (g *Gesture) SendExit() { g.send(GestureExit) }

// SendSearch sends the gesture as a search, together with the internal searches added before
// this call.
func (g *Gesture) SendSearch() { g.send(GestureSearch) }

func (g *Gesture) send(action GestureAction) {
	g.Action = action
	g.host.restamp(g)
	g.host.dispatch(g)
}

//nolint:revive // Object implementation
func (g *Gesture) Describe() bo.Descriptor {
	return bo.Descriptor{Kind: bo.KindGesture, Action: string(g.Action)}
}

//nolint:revive // Object implementation
func (g *Gesture) SetParams(b *buffer.Buffer) {
	b.Set(param.New("type", "click", param.Options{}))
	b.Set(param.New("click", string(g.Action), param.Options{}))
	b.Set(param.New("p", g.Chapters.path(g.Name), param.EncodedOptions()))
	setLevel2(b, g.Level2)
	g.host.screenContext().setOrigin(b, "pclick", "s2click")
}

// InternalSearch is a search made in the application. It is sent with the next screen or search
// gesture.
type InternalSearch struct {
	bo.Base
	Keyword            string
	ResultScreenNumber int
	// ResultPosition is the position of the result the visitor chose, if any.
	ResultPosition int
}

// InternalSearches creates internal searches for a tracker.
type InternalSearches struct {
	host host
}

// InternalSearches returns the internal search factory.
func (t *Tracker) InternalSearches() *InternalSearches {
	return &InternalSearches{host: t}
}

// Add registers a search for keyword whose results were shown on screen number
// resultScreenNumber.
func (s *InternalSearches) Add(keyword string, resultScreenNumber int) *InternalSearch {
	search := &InternalSearch{Base: bo.NewBase(), Keyword: keyword, ResultScreenNumber: resultScreenNumber}
	s.host.register(search)
	return search
}

//nolint:revive // Object implementation
func (s *InternalSearch) Describe() bo.Descriptor {
	return bo.Descriptor{Kind: bo.KindInternalSearch}
}

//nolint:revive // Object implementation
func (s *InternalSearch) SetParams(b *buffer.Buffer) {
	b.Set(param.New("mc", s.Keyword, param.EncodedOptions()))
	b.Set(param.New("np", s.ResultScreenNumber, param.Options{}))
	if s.ResultPosition > 0 {
		b.Set(param.New("mcrg", s.ResultPosition, param.Options{}))
	}
}

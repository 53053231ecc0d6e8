package attracker

import (
	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/param"
)

// ScreenAction is the "action" parameter of a screen hit.
type ScreenAction string

// ScreenView is the only screen action.
const ScreenView ScreenAction = "view"

// Screen is a screen view. Create one with Screens.Add, set its fields, then call SendView.
type Screen struct {
	bo.Base
	Chapters
	Name           string
	Level2         int
	Action         ScreenAction
	IsBasketScreen bool

	host host
}

// Screens creates screens for a tracker.
type Screens struct {
	host host
}

// Screens returns the screen factory.
func (t *Tracker) Screens() *Screens {
	return &Screens{host: t}
}

// Add creates a screen with the given name.
func (s *Screens) Add(name string) *Screen {
	screen := &Screen{Base: bo.NewBase(), Name: name, Action: ScreenView, host: s.host}
	s.host.register(screen)
	return screen
}

// AddWithChapters creates a screen with the given name and chapters.
func (s *Screens) AddWithChapters(name string, chapters Chapters) *Screen {
	screen := s.Add(name)
	screen.Chapters = chapters
	return screen
}

// SendView sends the screen, together with the screen information, searches, ad impressions
// and orders added before this call.
func (s *Screen) SendView() {
	s.host.restamp(s)
	s.host.dispatch(s)
}

//nolint:revive // Object implementation
func (s *Screen) Describe() bo.Descriptor {
	return bo.Descriptor{Kind: bo.KindScreen, BasketScreen: s.IsBasketScreen}
}

//nolint:revive // Object implementation
func (s *Screen) SetParams(b *buffer.Buffer) {
	action := s.Action
	if action == "" {
		action = ScreenView
	}
	path := s.Chapters.path(s.Name)
	b.Set(param.New("type", "screen", param.Options{}))
	b.Set(param.New("action", string(action), param.Options{}))
	b.Set(param.New("p", path, param.EncodedOptions()))
	setLevel2(b, s.Level2)
	if s.IsBasketScreen {
		b.Set(param.New("tp", "cart", param.Options{}))
	}
	s.host.screenContext().set(path, s.Level2)
}

package attracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/param"
)

// DefaultRefreshInterval is used by PlayWithRefresh when no interval is given.
const DefaultRefreshInterval = 5 * time.Second

// MediaType is the "type" parameter of a rich media hit.
type MediaType string

// Media types.
const (
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// Broadcast says whether a medium is on demand or live.
type Broadcast string

// Broadcast modes.
const (
	BroadcastClip Broadcast = "clip"
	BroadcastLive Broadcast = "live"
)

// MediaAction is the "a" parameter of a rich media hit.
type MediaAction string

// Media actions.
const (
	MediaPlay    MediaAction = "play"
	MediaPause   MediaAction = "pause"
	MediaStop    MediaAction = "stop"
	MediaMove    MediaAction = "move"
	MediaInfo    MediaAction = "info"
	MediaRefresh MediaAction = "refresh"
)

// MediaPlayers holds the tracker's media players. Obtain it with Tracker.MediaPlayers.
type MediaPlayers struct {
	host    host
	players map[int]*MediaPlayer
	nextID  int
	lock    sync.Mutex
}

func newMediaPlayers(h host) *MediaPlayers {
	return &MediaPlayers{host: h, players: make(map[int]*MediaPlayer), nextID: 1}
}

// MediaPlayers returns the tracker's media players.
func (t *Tracker) MediaPlayers() *MediaPlayers {
	return t.players
}

// Add creates a player with the next free id.
func (m *MediaPlayers) Add() *MediaPlayer {
	m.lock.Lock()
	defer m.lock.Unlock()
	for m.players[m.nextID] != nil {
		m.nextID++
	}
	return m.addLocked(m.nextID)
}

// AddWithID creates a player with the given id. If the id is taken, the existing player is
// returned and a warning is reported.
func (m *MediaPlayers) AddWithID(id int) *MediaPlayer {
	m.lock.Lock()
	if existing, ok := m.players[id]; ok {
		m.lock.Unlock()
		m.host.warn(fmt.Sprintf("A media player with id %d already exists", id))
		return existing
	}
	defer m.lock.Unlock()
	return m.addLocked(id)
}

func (m *MediaPlayers) addLocked(id int) *MediaPlayer {
	p := &MediaPlayer{ID: id, host: m.host, media: make(map[mediaKey]*Medium)}
	m.players[id] = p
	return p
}

// Remove stops the refresh loops of the player's media and removes the player.
func (m *MediaPlayers) Remove(id int) {
	m.lock.Lock()
	p := m.players[id]
	delete(m.players, id)
	m.lock.Unlock()
	if p != nil {
		p.stopRefreshes()
	}
}

func (m *MediaPlayers) stopAll() {
	m.lock.Lock()
	players := make([]*MediaPlayer, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.lock.Unlock()
	for _, p := range players {
		p.stopRefreshes()
	}
}

type mediaKey struct {
	mediaType MediaType
	broadcast Broadcast
	name      string
}

// MediaPlayer groups the media played in one player. Its id is sent as the plyr parameter.
type MediaPlayer struct {
	ID    int
	host  host
	media map[mediaKey]*Medium
	lock  sync.Mutex
}

// Videos returns the player's on-demand videos.
func (p *MediaPlayer) Videos() *Clips {
	return &Clips{media{player: p, mediaType: MediaVideo, broadcast: BroadcastClip}}
}

// Audios returns the player's on-demand audios.
func (p *MediaPlayer) Audios() *Clips {
	return &Clips{media{player: p, mediaType: MediaAudio, broadcast: BroadcastClip}}
}

// LiveVideos returns the player's live videos.
func (p *MediaPlayer) LiveVideos() *Lives {
	return &Lives{media{player: p, mediaType: MediaVideo, broadcast: BroadcastLive}}
}

// LiveAudios returns the player's live audios.
func (p *MediaPlayer) LiveAudios() *Lives {
	return &Lives{media{player: p, mediaType: MediaAudio, broadcast: BroadcastLive}}
}

func (p *MediaPlayer) stopRefreshes() {
	p.lock.Lock()
	media := make([]*Medium, 0, len(p.media))
	for _, m := range p.media {
		media = append(media, m)
	}
	p.lock.Unlock()
	for _, m := range media {
		m.stopRefresh()
	}
}

type media struct {
	player    *MediaPlayer
	mediaType MediaType
	broadcast Broadcast
}

func (l media) add(name string, duration int) *Medium {
	p := l.player
	key := mediaKey{l.mediaType, l.broadcast, name}
	p.lock.Lock()
	if existing, ok := p.media[key]; ok {
		p.lock.Unlock()
		p.host.warn(fmt.Sprintf("A %s %s named %q already exists in player %d", l.broadcast, l.mediaType, name, p.ID))
		return existing
	}
	defer p.lock.Unlock()
	m := &Medium{Name: name, Duration: duration, mediaType: l.mediaType, broadcast: l.broadcast, player: p}
	p.media[key] = m
	return m
}

func (l media) remove(name string) {
	p := l.player
	key := mediaKey{l.mediaType, l.broadcast, name}
	p.lock.Lock()
	m := p.media[key]
	delete(p.media, key)
	p.lock.Unlock()
	if m != nil {
		m.stopRefresh()
	}
}

// Clips are the on-demand media of one type in a player.
type Clips struct{ media }

// Add creates a clip with its duration in seconds. If a clip with the same name exists, it is
// returned and a warning is reported.
func (c *Clips) Add(name string, duration int) *Medium { return c.add(name, duration) }

// Remove stops and removes the named clip.
func (c *Clips) Remove(name string) { c.remove(name) }

// Lives are the live media of one type in a player.
type Lives struct{ media }

// Add creates a live medium. If one with the same name exists, it is returned and a warning is
// reported.
func (l *Lives) Add(name string) *Medium { return l.add(name, 0) }

// Remove stops and removes the named live medium.
func (l *Lives) Remove(name string) { l.remove(name) }

// Medium is a video or audio, on demand or live. Its fields are read each time a hit is sent;
// a refresh loop uses the values they had when it started.
type Medium struct {
	Chapters
	Name          string
	Level2        int
	Duration      int
	IsEmbedded    bool
	WebDomain     string
	LinkedContent string
	IsBuffering   bool

	mediaType MediaType
	broadcast Broadcast
	player    *MediaPlayer
	refresh   chan struct{}
	lock      sync.Mutex
}

// Play sends a play hit.
func (m *Medium) Play() {
	m.stopRefresh()
	m.send(MediaPlay)
}

// PlayWithRefresh sends a play hit, then a refresh hit every interval until the medium is
// paused, stopped or removed, or the tracker is closed.
func (m *Medium) PlayWithRefresh(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	m.stopRefresh()
	m.send(MediaPlay)
	stopCh := make(chan struct{})
	m.lock.Lock()
	m.refresh = stopCh
	m.lock.Unlock()
	snapshot := m.snapshot(MediaRefresh)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				m.lock.Lock()
				if m.refresh == stopCh {
					hit := snapshot
					hit.Base = bo.NewBase()
					m.player.host.dispatch(&hit)
				}
				m.lock.Unlock()
			}
		}
	}()
}

// Pause sends a pause hit and stops any refresh loop.
func (m *Medium) Pause() {
	m.stopRefresh()
	m.send(MediaPause)
}

// Stop sends a stop hit and stops any refresh loop.
func (m *Medium) Stop() {
	m.stopRefresh()
	m.send(MediaStop)
}

// Move sends a move hit, for a seek in the medium.
func (m *Medium) Move() {
	m.send(MediaMove)
}

// Info sends an info hit.
func (m *Medium) Info() {
	m.send(MediaInfo)
}

func (m *Medium) stopRefresh() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.refresh != nil {
		close(m.refresh)
		m.refresh = nil
	}
}

func (m *Medium) send(action MediaAction) {
	hit := m.snapshot(action)
	m.player.host.dispatch(&hit)
}

func (m *Medium) snapshot(action MediaAction) mediaHit {
	return mediaHit{
		Base:          bo.NewBase(),
		path:          m.Chapters.path(m.Name),
		level2:        m.Level2,
		duration:      m.Duration,
		embedded:      m.IsEmbedded,
		webDomain:     m.WebDomain,
		linkedContent: m.LinkedContent,
		buffering:     m.IsBuffering,
		mediaType:     m.mediaType,
		broadcast:     m.broadcast,
		player:        m.player.ID,
		action:        action,
		screen:        m.player.host.screenContext(),
	}
}

// mediaHit is the state of a medium when one of its hits was sent.
type mediaHit struct {
	bo.Base
	path          string
	level2        int
	duration      int
	embedded      bool
	webDomain     string
	linkedContent string
	buffering     bool
	mediaType     MediaType
	broadcast     Broadcast
	player        int
	action        MediaAction
	screen        *screenContext
}

func (h *mediaHit) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindRichMedia} }

func (h *mediaHit) SetParams(b *buffer.Buffer) {
	b.Set(param.New("type", string(h.mediaType), param.Options{}))
	b.Set(param.New("p", h.path, param.EncodedOptions()))
	b.Set(param.New("plyr", h.player, param.Options{}))
	b.Set(param.New("m6", string(h.broadcast), param.Options{}))
	b.Set(param.New("a", string(h.action), param.Options{}))
	if h.broadcast == BroadcastClip && h.duration > 0 {
		b.Set(param.New("m1", h.duration, param.Options{}))
	}
	if h.embedded {
		b.Set(param.New("m5", "ext", param.Options{}))
		if h.webDomain != "" {
			b.Set(param.New("m9", h.webDomain, param.EncodedOptions()))
		}
	} else {
		b.Set(param.New("m5", "int", param.Options{}))
	}
	if h.linkedContent != "" {
		b.Set(param.New("clnk", h.linkedContent, param.EncodedOptions()))
	}
	if h.buffering {
		b.Set(param.New("buf", 1, param.Options{}))
	}
	setLevel2(b, h.level2)
	h.screen.setOrigin(b, "prich", "s2rich")
}

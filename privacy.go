package attracker

import (
	"strconv"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/atinternet/go-tracker/internal/storage"
)

// PrivacyMode is the visitor's consent state.
type PrivacyMode string

const (
	// PrivacyInclusion is the default: the visitor is fully measured.
	PrivacyInclusion PrivacyMode = "inclusion"
	// PrivacyOptOut sends anonymous hits and keeps nothing on the device.
	PrivacyOptOut PrivacyMode = "optout"
	// PrivacyNoConsent is like PrivacyOptOut, with a distinct visitor id.
	PrivacyNoConsent PrivacyMode = "no-consent"
	// PrivacyExempt measures the visitor without crash reports.
	PrivacyExempt PrivacyMode = "exempt"
)

// DefaultPrivacyDuration is how long a privacy mode is kept when no duration is given.
const DefaultPrivacyDuration = 397 * 24 * time.Hour

// Client ids sent in place of the real one.
const (
	OptOutClientID    = "opt-out"
	NoConsentClientID = "Consent-NO"
)

type privacy struct {
	mode     PrivacyMode
	settings *storage.Settings
	loggers  ldlog.Loggers
	now      func() time.Time
	lock     sync.RWMutex
}

func loadPrivacy(settings *storage.Settings, loggers ldlog.Loggers) *privacy {
	p := &privacy{mode: PrivacyInclusion, settings: settings, loggers: loggers, now: time.Now}
	stored, ok := settings.Get(storage.SettingPrivacyMode)
	if !ok {
		return p
	}
	expiration, _ := settings.Get(storage.SettingPrivacyExpiration)
	seconds, err := strconv.ParseInt(expiration, 10, 64)
	if err != nil || !p.now().Before(time.Unix(seconds, 0)) {
		p.forget()
		return p
	}
	switch mode := PrivacyMode(stored); mode {
	case PrivacyOptOut, PrivacyNoConsent, PrivacyExempt:
		p.mode = mode
	}
	return p
}

func (p *privacy) current() PrivacyMode {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.mode
}

func (p *privacy) set(mode PrivacyMode, duration time.Duration) {
	if duration <= 0 {
		duration = DefaultPrivacyDuration
	}
	p.lock.Lock()
	p.mode = mode
	p.lock.Unlock()
	if mode == PrivacyInclusion {
		p.forget()
		return
	}
	expiration := strconv.FormatInt(p.now().Add(duration).Unix(), 10)
	if err := p.settings.Set(storage.SettingPrivacyMode, string(mode)); err != nil {
		p.loggers.Errorf("Unable to save privacy mode: %s", err)
		return
	}
	if err := p.settings.Set(storage.SettingPrivacyExpiration, expiration); err != nil {
		p.loggers.Errorf("Unable to save privacy mode: %s", err)
	}
}

func (p *privacy) forget() {
	_ = p.settings.Delete(storage.SettingPrivacyMode)
	_ = p.settings.Delete(storage.SettingPrivacyExpiration)
}

func (p *privacy) storageAllowed() bool {
	mode := p.current()
	return mode != PrivacyOptOut && mode != PrivacyNoConsent
}

func (p *privacy) crashReportingAllowed() bool {
	return p.current() == PrivacyInclusion
}

func (p *privacy) clientIDOverride() (string, bool) {
	switch p.current() {
	case PrivacyOptOut:
		return OptOutClientID, true
	case PrivacyNoConsent:
		return NoConsentClientID, true
	default:
		return "", false
	}
}

// SetPrivacyMode changes the privacy mode for the given duration, after which the tracker
// returns to PrivacyInclusion. A duration of zero means DefaultPrivacyDuration.
//
// Switching to PrivacyOptOut or PrivacyNoConsent deletes the stored hits and the identified
// visitor.
func (t *Tracker) SetPrivacyMode(mode PrivacyMode, duration time.Duration) {
	switch mode {
	case PrivacyInclusion, PrivacyOptOut, PrivacyNoConsent, PrivacyExempt:
	default:
		t.warn("Ignoring unknown privacy mode " + string(mode))
		return
	}
	t.privacy.set(mode, duration)
	if !t.privacy.storageAllowed() {
		if n := t.sender.Store().Delete(); n > 0 {
			t.loggers.Infof("Deleted %d offline hit(s) after privacy mode change", n)
		}
		t.IdentifiedVisitor().Unset()
	}
}

// PrivacyMode returns the current privacy mode.
func (t *Tracker) PrivacyMode() PrivacyMode {
	return t.privacy.current()
}

// Package lifecycle computes the session metrics appended to every hit and keeps the pending
// crash report.
package lifecycle

import (
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/atinternet/go-tracker/internal/storage"
)

const dateLayout = "20060102"

// Provider is the default subsystems.MetricsProvider, backed by durable settings.
type Provider struct {
	settings   *storage.Settings
	appVersion string
	loggers    ldlog.Loggers
	now        func() time.Time

	sessionID        string
	firstSession     bool
	firstAfterUpdate bool
	lock             sync.Mutex
}

// New creates a Provider and starts a session.
func New(settings *storage.Settings, appVersion string, loggers ldlog.Loggers) *Provider {
	return newWithClock(settings, appVersion, loggers, time.Now)
}

func newWithClock(settings *storage.Settings, appVersion string, loggers ldlog.Loggers,
	now func() time.Time) *Provider {
	p := &Provider{settings: settings, appVersion: appVersion, loggers: loggers, now: now}
	p.NewSession()
	return p
}

// NewSession records the start of a session: the first one ever, or the first since the
// application version changed, is flagged until the next session starts.
func (p *Provider) NewSession() {
	p.lock.Lock()
	defer p.lock.Unlock()
	today := p.now().Format(dateLayout)

	_, seen := p.settings.Get(storage.SettingFirstSessionDate)
	p.firstSession = !seen
	if !seen {
		p.put(storage.SettingFirstSessionDate, today)
	}

	version, hasVersion := p.settings.Get(storage.SettingVersion)
	p.firstAfterUpdate = hasVersion && version != p.appVersion
	if !hasVersion || p.firstAfterUpdate {
		p.put(storage.SettingVersion, p.appVersion)
		p.put(storage.SettingVersionDate, today)
		p.put(storage.SettingSessionCountVersion, "0")
	}

	p.put(storage.SettingSessionCount, strconv.Itoa(p.getInt(storage.SettingSessionCount)+1))
	p.put(storage.SettingSessionCountVersion, strconv.Itoa(p.getInt(storage.SettingSessionCountVersion)+1))

	if last, ok := p.settings.Get(storage.SettingLastSessionDate); ok {
		p.put(storage.SettingPreviousSessionDate, last)
	}
	p.put(storage.SettingLastSessionDate, today)
	p.sessionID = uuid.NewString()
}

// Metrics returns the life-cycle object for the current session.
func (p *Provider) Metrics() map[string]interface{} {
	p.lock.Lock()
	defer p.lock.Unlock()
	now := p.now()
	m := map[string]interface{}{
		"fs":        boolInt(p.firstSession),
		"fsau":      boolInt(p.firstAfterUpdate),
		"sc":        p.getInt(storage.SettingSessionCount),
		"scsu":      p.getInt(storage.SettingSessionCountVersion),
		"sessionId": p.sessionID,
	}
	if first, ok := p.settings.Get(storage.SettingFirstSessionDate); ok {
		m["fsd"], _ = strconv.Atoi(first)
		m["dsfs"] = daysSince(first, now)
	}
	if previous, ok := p.settings.Get(storage.SettingPreviousSessionDate); ok {
		m["dsls"] = daysSince(previous, now)
	} else {
		m["dsls"] = 0
	}
	if updated, ok := p.settings.Get(storage.SettingVersionDate); ok && p.appVersion != "" {
		m["fsdau"], _ = strconv.Atoi(updated)
		m["dsu"] = daysSince(updated, now)
	}
	return m
}

// RecordCrash stores a crash report to be sent with the next hit.
func (p *Provider) RecordCrash(report map[string]interface{}) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return p.settings.Set(storage.SettingCrash, string(data))
}

// Compute returns and clears the pending crash report.
func (p *Provider) Compute() (map[string]interface{}, bool) {
	raw, ok := p.settings.Get(storage.SettingCrash)
	if !ok {
		return nil, false
	}
	_ = p.settings.Delete(storage.SettingCrash)
	var report map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		p.loggers.Warnf("Discarding unreadable crash report: %s", err)
		return nil, false
	}
	return report, true
}

func (p *Provider) put(key, value string) {
	if err := p.settings.Set(key, value); err != nil {
		p.loggers.Errorf("Unable to save life-cycle setting %q: %s", key, err)
	}
}

func (p *Provider) getInt(key string) int {
	v, _ := p.settings.Get(key)
	n, _ := strconv.Atoi(v)
	return n
}

func daysSince(date string, now time.Time) int {
	t, err := time.ParseInLocation(dateLayout, date, now.Location())
	if err != nil {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(today.Sub(t).Hours() / 24)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

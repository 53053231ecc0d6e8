package attracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/dispatcher"
	"github.com/atinternet/go-tracker/internal/param"
	"github.com/atinternet/go-tracker/internal/storage"
)

// Screen information objects are registered when created and written into the next screen hit.

// Aisle is a location in the application's merchandising structure.
type Aisle struct {
	bo.Base
	Levels [6]string
}

// Aisles creates aisles for a tracker.
type Aisles struct {
	host host
}

// Aisles returns the aisle factory.
func (t *Tracker) Aisles() *Aisles {
	return &Aisles{host: t}
}

// Add registers an aisle with up to six levels.
func (a *Aisles) Add(levels ...string) *Aisle {
	aisle := &Aisle{Base: bo.NewBase()}
	copy(aisle.Levels[:], levels)
	a.host.register(aisle)
	return aisle
}

//nolint:revive // Object implementation
func (a *Aisle) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindScreenInfo} }

//nolint:revive // Object implementation
func (a *Aisle) SetParams(b *buffer.Buffer) {
	levels := make([]string, 0, len(a.Levels))
	for _, l := range a.Levels {
		if l != "" {
			levels = append(levels, l)
		}
	}
	if len(levels) > 0 {
		b.Set(param.New("aisl", strings.Join(levels, "::"), param.EncodedOptions()))
	}
}

// CustomTreeStructure classifies a screen in up to three custom categories.
type CustomTreeStructure struct {
	bo.Base
	Category1 int
	Category2 int
	Category3 int
}

// CustomTreeStructures creates custom tree structures for a tracker.
type CustomTreeStructures struct {
	host host
}

// CustomTreeStructures returns the custom tree structure factory.
func (t *Tracker) CustomTreeStructures() *CustomTreeStructures {
	return &CustomTreeStructures{host: t}
}

// Add registers a custom tree structure.
func (c *CustomTreeStructures) Add(category1, category2, category3 int) *CustomTreeStructure {
	cts := &CustomTreeStructure{Base: bo.NewBase(), Category1: category1, Category2: category2, Category3: category3}
	c.host.register(cts)
	return cts
}

//nolint:revive // Object implementation
func (c *CustomTreeStructure) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindScreenInfo} }

//nolint:revive // Object implementation
func (c *CustomTreeStructure) SetParams(b *buffer.Buffer) {
	b.Set(param.New("ptype", fmt.Sprintf("%d-%d-%d", c.Category1, c.Category2, c.Category3), param.Options{}))
}

// Location is the device's geographical position.
type Location struct {
	bo.Base
	Latitude  float64
	Longitude float64
}

// Locations creates locations for a tracker.
type Locations struct {
	host host
}

// Locations returns the location factory.
func (t *Tracker) Locations() *Locations {
	return &Locations{host: t}
}

// Add registers a location.
func (l *Locations) Add(latitude, longitude float64) *Location {
	loc := &Location{Base: bo.NewBase(), Latitude: latitude, Longitude: longitude}
	l.host.register(loc)
	return loc
}

//nolint:revive // Object implementation
func (l *Location) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindScreenInfo} }

//nolint:revive // Object implementation
func (l *Location) SetParams(b *buffer.Buffer) {
	b.Set(param.New("gy", fmt.Sprintf("%.2f,%.2f", l.Latitude, l.Longitude), param.EncodedOptions()))
}

// CustomVarType is the scope of a custom variable.
type CustomVarType string

const (
	// CustomVarApp is a site-level variable (x parameters).
	CustomVarApp CustomVarType = "x"
	// CustomVarScreen is a screen-level variable (f parameters).
	CustomVarScreen CustomVarType = "f"
)

// CustomVar is a numbered custom variable.
type CustomVar struct {
	bo.Base
	VarID int
	Value string
	Type  CustomVarType
}

// CustomVars creates custom variables for a tracker.
type CustomVars struct {
	host host
}

// CustomVars returns the custom variable factory.
func (t *Tracker) CustomVars() *CustomVars {
	return &CustomVars{host: t}
}

// Add registers a custom variable.
func (c *CustomVars) Add(id int, value string, varType CustomVarType) *CustomVar {
	v := &CustomVar{Base: bo.NewBase(), VarID: id, Value: value, Type: varType}
	c.host.register(v)
	return v
}

//nolint:revive // Object implementation
func (c *CustomVar) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindScreenInfo} }

//nolint:revive // Object implementation
func (c *CustomVar) SetParams(b *buffer.Buffer) {
	varType := c.Type
	if varType == "" {
		varType = CustomVarApp
	}
	b.Set(param.New(string(varType)+strconv.Itoa(c.VarID), c.Value, param.EncodedOptions()))
}

// Campaign is the marketing campaign that brought the visitor. It is remembered as the remanent
// campaign and reported on later screen hits until it expires.
type Campaign struct {
	bo.Base
	CampaignID string

	settings        *storage.Settings
	lifetimeDays    int
	lastPersistence bool
	loggers         ldlog.Loggers
	now             func() time.Time
}

// Campaigns creates campaigns for a tracker.
type Campaigns struct {
	tracker *Tracker
}

// Campaigns returns the campaign factory.
func (t *Tracker) Campaigns() *Campaigns {
	return &Campaigns{tracker: t}
}

// Add registers a campaign with the given id.
func (c *Campaigns) Add(id string) *Campaign {
	t := c.tracker
	campaign := &Campaign{
		Base:            bo.NewBase(),
		CampaignID:      id,
		settings:        t.settings,
		lifetimeDays:    t.campaignLifetimeDays,
		lastPersistence: t.campaignLastPersistence,
		loggers:         t.loggers,
		now:             time.Now,
	}
	t.register(campaign)
	return campaign
}

//nolint:revive // Object implementation
func (c *Campaign) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindScreenInfo} }

//nolint:revive // Object implementation
func (c *Campaign) SetParams(b *buffer.Buffer) {
	now := c.now()
	remanent, ok := c.settings.Get(storage.SettingCampaign)
	if ok && remanent != "" {
		if c.remanentExpired(now) {
			c.forget()
			ok = false
		} else {
			b.Set(param.New(dispatcher.KeyRemanentCampaign, remanent, param.EncodedOptions()))
		}
	}
	if !ok || c.lastPersistence {
		c.save(storage.SettingCampaign, c.CampaignID)
		c.save(storage.SettingCampaignDate, strconv.FormatInt(now.Unix(), 10))
	}
	b.Set(param.New("xto", c.CampaignID, param.EncodedOptions()))
	c.save(storage.SettingCampaignAdded, "true")
}

func (c *Campaign) remanentExpired(now time.Time) bool {
	raw, ok := c.settings.Get(storage.SettingCampaignDate)
	if !ok {
		return false
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true
	}
	return now.Sub(time.Unix(seconds, 0)) > time.Duration(c.lifetimeDays)*24*time.Hour
}

func (c *Campaign) forget() {
	for _, key := range []string{storage.SettingCampaign, storage.SettingCampaignDate, storage.SettingCampaignAdded} {
		_ = c.settings.Delete(key)
	}
}

func (c *Campaign) save(key, value string) {
	if err := c.settings.Set(key, value); err != nil {
		c.loggers.Errorf("Unable to save campaign state: %s", err)
	}
}

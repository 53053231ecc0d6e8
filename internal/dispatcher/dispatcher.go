// Package dispatcher turns pending business objects into a hit: it flushes objects into the
// parameter buffer in a fixed order, appends session metadata, and queues the build.
package dispatcher

import (
	"strconv"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/builder"
	"github.com/atinternet/go-tracker/internal/hit"
	"github.com/atinternet/go-tracker/internal/param"
	"github.com/atinternet/go-tracker/internal/storage"
	"github.com/atinternet/go-tracker/internal/workqueue"
	"github.com/atinternet/go-tracker/subsystems"
)

// Parameter keys written by the dispatcher.
const (
	KeyCustomContext    = "stc"
	KeyRemanentCampaign = "xtor"
	KeyVisitorNumeric   = "an"
	KeyVisitorText      = "at"
	KeyVisitorCategory  = "ac"
	KeyLevel2           = "s2"
)

// DefaultCampaignLifetime is the number of days a remanent campaign is kept.
const DefaultCampaignLifetime = 30

// DefaultIdentifier is reported as idType when none is configured.
const DefaultIdentifier = "UUID"

// CartSource returns the tracker's cart when it has an id.
type CartSource func() (bo.Object, bool)

// Config holds everything the dispatcher reads or writes besides the objects themselves.
type Config struct {
	Buffer   *buffer.Buffer
	Registry *bo.Registry
	Queue    *workqueue.Queue
	Endpoint builder.Endpoint
	Builder  builder.Collaborators
	Settings *storage.Settings
	Cart     CartSource
	Metrics  subsystems.MetricsProvider
	// CrashReportingAllowed is consulted on every dispatch. Nil means never.
	CrashReportingAllowed func() bool
	Identifier            string
	CampaignLifetimeDays  int
	PersistVisitor        bool
	Encryptor             subsystems.Encryptor
	Level2                string
	Loggers               ldlog.Loggers
}

// Dispatcher serializes dispatch passes for one tracker.
type Dispatcher struct {
	config Config
	now    func() time.Time
	lock   sync.Mutex
}

// New creates a Dispatcher.
func New(config Config) *Dispatcher {
	if config.CampaignLifetimeDays <= 0 {
		config.CampaignLifetimeDays = DefaultCampaignLifetime
	}
	if config.Identifier == "" {
		config.Identifier = DefaultIdentifier
	}
	return &Dispatcher{config: config, now: time.Now}
}

// Dispatch flushes objects and their dependents into the buffer and queues one hit.
func (d *Dispatcher) Dispatch(objects ...bo.Object) {
	d.lock.Lock()
	defer d.lock.Unlock()

	buf, registry := d.config.Buffer, d.config.Registry
	registeredAtStart := make(map[string]bool, len(objects))
	for _, o := range objects {
		registeredAtStart[o.ID()] = registry.Contains(o.ID())
	}

	for _, o := range objects {
		if registeredAtStart[o.ID()] && !registry.Contains(o.ID()) {
			continue
		}
		desc := o.Describe()
		switch desc.Kind.Class() {
		case bo.ClassScreenLike:
			d.dispatchScreen(o, desc)
		case bo.ClassGesture:
			o.SetParams(buf)
			if desc.Action == bo.ActionSearch {
				flush(buf, registry.Take(olderOfKind(o, bo.KindInternalSearch)))
			}
			registry.Remove(o.ID())
		case bo.ClassDefault:
			o.SetParams(buf)
			registry.Remove(o.ID())
		}
		flush(buf, registry.Take(func(x bo.Object) bool {
			return x.Describe().Kind.IsCustomData() && x.Timestamp() <= o.Timestamp()
		}))
	}

	d.appendSessionContext()
	d.appendRemanentCampaign()
	d.appendIdentifiedVisitor()
	d.queueBuild()
}

func (d *Dispatcher) dispatchScreen(o bo.Object, desc bo.Descriptor) {
	buf, registry := d.config.Buffer, d.config.Registry
	dependents := registry.Take(func(x bo.Object) bool {
		return x.ID() != o.ID() && x.Describe().Kind.IsScreenContext() && x.Timestamp() <= o.Timestamp()
	})
	orderFlushed := desc.Kind == bo.KindOrder
	for _, dep := range dependents {
		dep.SetParams(buf)
		if dep.Describe().Kind == bo.KindOrder {
			orderFlushed = true
		}
	}
	o.SetParams(buf)
	if d.config.Cart != nil && (desc.BasketScreen || orderFlushed) {
		if cart, ok := d.config.Cart(); ok {
			cart.SetParams(buf)
		}
	}
	registry.Remove(o.ID())
}

func olderOfKind(o bo.Object, kind bo.Kind) func(bo.Object) bool {
	return func(x bo.Object) bool {
		return x.Describe().Kind == kind && x.Timestamp() <= o.Timestamp()
	}
}

func flush(buf *buffer.Buffer, objects []bo.Object) {
	for _, o := range objects {
		o.SetParams(buf)
	}
}

func (d *Dispatcher) setContext(name string, value interface{}) {
	d.config.Buffer.Set(param.New(KeyCustomContext, param.AsJSON(map[string]interface{}{name: value}),
		param.AppendEncodedOptions()))
}

func (d *Dispatcher) appendSessionContext() {
	if metrics := d.config.Metrics; metrics != nil {
		d.setContext("lifecycle", metrics.Metrics())
		if d.config.CrashReportingAllowed != nil && d.config.CrashReportingAllowed() {
			if report, ok := metrics.Compute(); ok {
				d.setContext("crash", report)
			}
		}
	}
	d.setContext("idType", d.config.Identifier)
}

func (d *Dispatcher) appendRemanentCampaign() {
	settings := d.config.Settings
	if settings == nil {
		return
	}
	persistent, volatile := d.config.Buffer.Snapshot()
	if hit.ClassifyParams(persistent, volatile) != hit.Screen {
		return
	}
	campaign, ok := settings.Get(storage.SettingCampaign)
	if !ok || campaign == "" {
		return
	}
	if d.campaignExpired() {
		for _, key := range []string{storage.SettingCampaign, storage.SettingCampaignDate, storage.SettingCampaignAdded} {
			_ = settings.Delete(key)
		}
		return
	}
	if added, _ := settings.Get(storage.SettingCampaignAdded); added == "true" {
		return
	}
	d.config.Buffer.Set(param.New(KeyRemanentCampaign, campaign, param.EncodedOptions()))
	if err := settings.Set(storage.SettingCampaignAdded, "true"); err != nil {
		d.config.Loggers.Errorf("Unable to save campaign state: %s", err)
	}
}

func (d *Dispatcher) campaignExpired() bool {
	raw, ok := d.config.Settings.Get(storage.SettingCampaignDate)
	if !ok {
		return false
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true
	}
	age := d.now().Sub(time.Unix(seconds, 0))
	return age > time.Duration(d.config.CampaignLifetimeDays)*24*time.Hour
}

func (d *Dispatcher) appendIdentifiedVisitor() {
	if !d.config.PersistVisitor || d.config.Settings == nil {
		return
	}
	for _, v := range []struct {
		setting string
		key     string
		options param.Options
	}{
		{storage.SettingVisitorNumeric, KeyVisitorNumeric, param.Options{}},
		{storage.SettingVisitorText, KeyVisitorText, param.EncodedOptions()},
		{storage.SettingVisitorCategory, KeyVisitorCategory, param.Options{}},
	} {
		stored, ok := d.config.Settings.Get(v.setting)
		if !ok || stored == "" {
			continue
		}
		value := stored
		if enc := d.config.Encryptor; enc != nil {
			plain, err := enc.Decrypt(stored)
			if err != nil {
				d.config.Loggers.Warnf("Unable to decrypt identified visitor setting %q: %s", v.setting, err)
				continue
			}
			value = plain
		}
		d.config.Buffer.Set(param.New(v.key, value, v.options))
	}
}

func (d *Dispatcher) queueBuild() {
	buf := d.config.Buffer
	persistent, volatile := buf.TakeVolatile()
	unit := builder.New(d.config.Endpoint, persistent, volatile, d.config.Builder)
	queue := d.config.Queue
	switch {
	case queue != nil && queue.Submit(unit):
	case queue != nil && !queue.IsClosed() && d.config.Builder.Overflow != nil:
		// The queue is full. Keep the hit for the next drain rather than losing it.
		unit.RunOffline()
	default:
		if d.config.Builder.Delegate != nil {
			d.config.Builder.Delegate.WarningDidOccur("Hit could not be queued for building and was dropped")
		}
	}
	if d.config.Level2 != "" {
		buf.Set(param.New(KeyLevel2, d.config.Level2, param.PersistentOptions()))
	}
}

package attracker

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/atinternet/go-tracker/atcomponents"
	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/builder"
	"github.com/atinternet/go-tracker/internal/dispatcher"
	"github.com/atinternet/go-tracker/internal/lifecycle"
	"github.com/atinternet/go-tracker/internal/notify"
	"github.com/atinternet/go-tracker/internal/param"
	"github.com/atinternet/go-tracker/internal/sender"
	"github.com/atinternet/go-tracker/internal/storage"
	"github.com/atinternet/go-tracker/internal/techcontext"
	"github.com/atinternet/go-tracker/internal/workqueue"
	"github.com/atinternet/go-tracker/subsystems"
)

// Version is the tracker version reported in every hit.
const Version = techcontext.SDKVersion

// Tracker is the analytics tracker. Create one with New and close it with Close.
//
// All methods are safe for concurrent use.
type Tracker struct {
	config     subsystems.ConfigProvider
	loggers    ldlog.Loggers
	notifier   *notify.Notifier
	buffer     *buffer.Buffer
	registry   *bo.Registry
	queue      *workqueue.Queue
	sender     *sender.Sender
	dispatcher *dispatcher.Dispatcher
	database   *storage.Database
	settings   *storage.Settings
	encryptor  subsystems.Encryptor
	live       subsystems.LiveTaggingSink
	tasks      subsystems.BackgroundTaskHost
	metrics    subsystems.MetricsProvider
	screen     *screenContext
	privacy    *privacy
	clientID   string

	persistVisitor          bool
	campaignLifetimeDays    int
	campaignLastPersistence bool
	crashDetection          bool

	cart      *Cart
	products  *Products
	players   *MediaPlayers
	closeOnce sync.Once
	lock      sync.Mutex
}

// ErrCrashReportingUnavailable is returned by RecordCrash when the configured MetricsProvider
// cannot store crash reports.
var ErrCrashReportingUnavailable = errors.New("the metrics provider does not record crash reports")

// New creates a Tracker.
//
// The returned error is a *ConfigError if the collector address is incomplete, or the error of
// the first component configurer that failed. Offline storage problems are not fatal: they are
// logged and the tracker runs without durable storage.
func New(config Config) (*Tracker, error) {
	configProvider := config.ConfigProvider
	if configProvider == nil {
		configProvider = subsystems.BasicClientContext{}.GetConfig()
	}
	clientContext := subsystems.BasicClientContext{Config: configProvider}

	logging, err := buildComponent[subsystems.LoggingConfiguration](config.Logging, atcomponents.Logging(), clientContext)
	if err != nil {
		return nil, err
	}
	clientContext.Logging = logging
	loggers := logging.Loggers

	endpoint := builder.EndpointFromConfig(configProvider)
	if err := endpoint.Validate(); err != nil {
		return nil, err
	}

	httpConfig, err := buildComponent[subsystems.HTTPConfiguration](config.HTTP, atcomponents.HTTP(), clientContext)
	if err != nil {
		return nil, err
	}
	clientContext.HTTP = httpConfig

	delivery, err := buildComponent[subsystems.HitDeliveryConfiguration](config.Hits, atcomponents.SendHits(), clientContext)
	if err != nil {
		return nil, err
	}
	storageConfig, err := buildComponent[subsystems.StorageConfiguration](config.Storage, atcomponents.OfflineStorage(), clientContext)
	if err != nil {
		return nil, err
	}
	var encryptor subsystems.Encryptor
	if config.Encryption != nil {
		if encryptor, err = config.Encryption.Build(clientContext); err != nil {
			return nil, err
		}
	}
	var live subsystems.LiveTaggingSink
	if config.LiveTagging != nil {
		if live, err = config.LiveTagging.Build(clientContext); err != nil {
			return nil, err
		}
	}

	loggers.Infof("Starting tracker %s for site %s", Version, endpoint.Site)

	t := &Tracker{
		config:                  configProvider,
		loggers:                 loggers,
		notifier:                notify.New(config.Delegate, loggers),
		registry:                bo.NewRegistry(),
		encryptor:               encryptor,
		live:                    live,
		tasks:                   config.BackgroundTasks,
		screen:                  &screenContext{},
		persistVisitor:          configBool(configProvider, ConfigPersistIdentifiedVisitor),
		campaignLifetimeDays:    configInt(configProvider, ConfigCampaignLifetime, dispatcher.DefaultCampaignLifetime),
		campaignLastPersistence: configBool(configProvider, ConfigCampaignLastPersistence),
		crashDetection:          configBool(configProvider, ConfigEnableCrashDetection),
	}

	store := t.openStorage(config.location, storageConfig, encryptor)
	t.privacy = loadPrivacy(t.settings, loggers)

	info := config.TechnicalContext.info(configProvider)
	t.clientID = t.resolveClientID(configProvider)
	info.ID = t.clientID
	t.buffer = buffer.New(info, loggers)
	t.buffer.Set(param.New(buffer.KeyClientID, param.ValueFunc(t.hitClientID), param.PersistentEncodedOptions()))

	t.metrics = config.Metrics
	if t.metrics == nil {
		t.metrics = lifecycle.New(t.settings, info.ApplicationVersion(), loggers)
	}

	t.queue = workqueue.New(delivery.QueueCapacity, loggers)
	t.sender = sender.New(sender.Config{
		Mode:           storageConfig.Mode,
		MaxRetryCount:  delivery.MaxRetryCount,
		RetryDelay:     delivery.RetryDelay,
		RetryJitter:    delivery.RetryJitter,
		RequestTimeout: httpConfig.RequestTimeout,
		Headers:        httpConfig.DefaultHeaders,
		StorageAllowed: t.privacy.storageAllowed,
	}, httpConfig.CreateHTTPClient(), store, t.notifier, loggers)

	level2, _ := configProvider.Get(ConfigLevel2)
	level2 = strings.TrimSpace(level2)
	if n, err := strconv.Atoi(level2); err != nil || n <= 0 {
		level2 = ""
	}
	t.dispatcher = dispatcher.New(dispatcher.Config{
		Buffer:   t.buffer,
		Registry: t.registry,
		Queue:    t.queue,
		Endpoint: endpoint,
		Builder: builder.Collaborators{
			Delegate:    t.notifier,
			LiveTagging: live,
			Sender:      t.sender,
			Overflow:    t.sender,
			Loggers:     loggers,
		},
		Settings: t.settings,
		Cart:     t.cartSource,
		Metrics:  t.metrics,
		CrashReportingAllowed: func() bool {
			return t.crashDetection && t.privacy.crashReportingAllowed()
		},
		Identifier:           configString(configProvider, ConfigIdentifier),
		CampaignLifetimeDays: t.campaignLifetimeDays,
		PersistVisitor:       t.persistVisitor,
		Encryptor:            encryptor,
		Level2:               level2,
		Loggers:              loggers,
	})
	if level2 != "" {
		t.buffer.Set(param.New(dispatcher.KeyLevel2, level2, param.PersistentOptions()))
	}
	t.players = newMediaPlayers(t)
	return t, nil
}

func buildComponent[T any](
	configurer subsystems.ComponentConfigurer[T],
	defaultConfigurer subsystems.ComponentConfigurer[T],
	clientContext subsystems.ClientContext,
) (T, error) {
	if configurer == nil {
		configurer = defaultConfigurer
	}
	return configurer.Build(clientContext)
}

func (t *Tracker) openStorage(location *storage.Location, config subsystems.StorageConfiguration,
	encryptor subsystems.Encryptor) storage.HitStore {
	if location == nil {
		location = storage.DefaultLocation
	}
	if config.Directory != "" {
		location.SetDirectory(config.Directory, t.loggers)
	}
	path, err := location.Path()
	if err == nil {
		t.database, err = storage.OpenDatabase(path)
	}
	if err != nil {
		t.loggers.Errorf("Offline storage is unavailable, hits will not be kept: %s", err)
		t.settings = storage.NewMemorySettings(t.loggers)
		return storage.NewNullStore()
	}
	t.settings = storage.NewSettings(t.database, t.loggers)
	// A new tracker starts a new session, in which the remanent campaign is reported again.
	_ = t.settings.Delete(storage.SettingCampaignAdded)

	if config.Mode == subsystems.StorageNever {
		return storage.NewNullStore()
	}
	store := storage.NewHitStore(t.database, storage.Codec{Compress: config.Compress, Encryptor: encryptor}, t.loggers)
	if config.RetentionDays > 0 {
		if n := store.DeleteOlderThanDays(config.RetentionDays); n > 0 {
			t.loggers.Infof("Purged %d offline hit(s) older than %d days", n, config.RetentionDays)
		}
	}
	return store
}

func (t *Tracker) resolveClientID(config subsystems.ConfigProvider) string {
	if id := configString(config, ConfigClientID); id != "" {
		return id
	}
	if id, ok := t.settings.Get(storage.SettingClientID); ok && id != "" {
		return id
	}
	id := techcontext.NewClientID()
	if err := t.settings.Set(storage.SettingClientID, id); err != nil {
		t.loggers.Warnf("Unable to save client id: %s", err)
	}
	return id
}

func (t *Tracker) hitClientID() string {
	if id, ok := t.privacy.clientIDOverride(); ok {
		return id
	}
	return t.clientID
}

// SetParam sets a volatile parameter for the next hit. A value of a func() string or param
// Value type is evaluated when the hit is built.
func (t *Tracker) SetParam(key string, value interface{}) *Tracker {
	return t.SetParamWithOptions(key, value, ParamOptions{})
}

// SetParamWithOptions sets a parameter with explicit placement, encoding and persistence.
func (t *Tracker) SetParamWithOptions(key string, value interface{}, options ParamOptions) *Tracker {
	t.buffer.Set(param.New(key, value, options))
	return t
}

// UnsetParam removes a parameter from both the volatile and the persistent lists.
func (t *Tracker) UnsetParam(key string) *Tracker {
	t.buffer.Unset(key)
	return t
}

// Dispatch builds one hit from every pending business object and the parameters set so far.
// Pending events are sent together as one batch.
func (t *Tracker) Dispatch() {
	events := t.take(bo.KindEvent)
	objects := t.registry.All()
	if len(events) > 0 {
		objects = append(objects, newEventBatch(events))
	}
	t.dispatcher.Dispatch(objects...)
}

func (t *Tracker) register(o bo.Object) {
	t.registry.Add(o)
}

func (t *Tracker) restamp(o bo.Restampable) {
	t.registry.Restamp(o)
}

func (t *Tracker) dispatch(objects ...bo.Object) {
	t.dispatcher.Dispatch(objects...)
}

func (t *Tracker) pending(kind bo.Kind) []bo.Object {
	var ret []bo.Object
	for _, o := range t.registry.All() {
		if o.Describe().Kind == kind {
			ret = append(ret, o)
		}
	}
	return ret
}

func (t *Tracker) take(kind bo.Kind) []bo.Object {
	return t.registry.Take(func(o bo.Object) bool { return o.Describe().Kind == kind })
}

func (t *Tracker) screenContext() *screenContext {
	return t.screen
}

func (t *Tracker) warn(message string) {
	t.loggers.Warn(message)
	t.notifier.WarningDidOccur(message)
}

// Sync blocks until every hit dispatched so far has been built and handed to the sender.
func (t *Tracker) Sync() {
	t.queue.Sync()
}

// Offline returns the view of the offline hit store.
func (t *Tracker) Offline() *Offline {
	return &Offline{tracker: t}
}

// OnBackground drains the offline store within a background execution window. If the window
// expires first, stored hits whose sending has not started stay stored.
func (t *Tracker) OnBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	if t.tasks == nil {
		if !t.queue.Submit(workqueue.UnitFunc(func() {
			defer cancel()
			t.sender.Drain(ctx)
		})) {
			cancel()
		}
		return
	}
	handle := t.tasks.Begin(func() {
		cancel()
		t.sender.CancelPendingOffline()
	})
	if !t.queue.Submit(workqueue.UnitFunc(func() {
		defer t.tasks.End(handle)
		defer cancel()
		t.sender.Drain(ctx)
	})) {
		cancel()
		t.tasks.End(handle)
	}
}

// OnConnectivityRestored sends the stored hits. It returns immediately.
func (t *Tracker) OnConnectivityRestored() {
	t.queue.Submit(workqueue.UnitFunc(func() {
		t.sender.Drain(context.Background())
	}))
}

// AddNotificationListener returns a channel receiving the same notifications as the Delegate.
// The channel must be drained until RemoveNotificationListener is called.
func (t *Tracker) AddNotificationListener() <-chan Notification {
	return t.notifier.AddListener()
}

// RemoveNotificationListener unregisters a channel returned by AddNotificationListener.
func (t *Tracker) RemoveNotificationListener(ch <-chan Notification) {
	t.notifier.RemoveListener(ch)
}

// RecordCrash stores a crash report to be attached to the next hit, when crash detection is
// enabled and the privacy mode allows it.
func (t *Tracker) RecordCrash(report map[string]interface{}) error {
	recorder, ok := t.metrics.(interface {
		RecordCrash(map[string]interface{}) error
	})
	if !ok {
		return ErrCrashReportingUnavailable
	}
	return recorder.RecordCrash(report)
}

// LiveTagging returns the live tagging sink, or nil if none is configured.
func (t *Tracker) LiveTagging() subsystems.LiveTaggingSink {
	return t.live
}

// Close stops media refresh loops, waits for queued hits to be sent or stored, and releases
// storage. The tracker must not be used afterward.
func (t *Tracker) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.loggers.Info("Closing tracker")
		t.players.stopAll()
		t.queue.Close()
		t.notifier.Close()
		if t.live != nil {
			err = t.live.Close()
		}
		if t.database != nil {
			if dbErr := t.database.Close(); dbErr != nil && err == nil {
				err = dbErr
			}
		}
	})
	return err
}

func configString(config subsystems.ConfigProvider, key string) string {
	v, _ := config.Get(key)
	return strings.TrimSpace(v)
}

func configBool(config subsystems.ConfigProvider, key string) bool {
	return strings.EqualFold(configString(config, key), "true")
}

func configInt(config subsystems.ConfigProvider, key string, defaultValue int) int {
	n, err := strconv.Atoi(configString(config, key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func (tc TechnicalContext) info(config subsystems.ConfigProvider) techcontext.Info {
	explicit := techcontext.Info{
		Lang:       tc.Language,
		Model:      tc.DeviceModel,
		OSName:     tc.OSName,
		OSVersion:  tc.OSVersion,
		AppID:      tc.ApplicationIdentifier,
		AppVersion: tc.ApplicationVersion,
		Resolution: tc.ScreenResolution,
		Operator:   tc.Carrier,
		Connection: tc.ConnectionType,
		UA:         tc.UserAgent,
	}
	configured := techcontext.Info{
		Lang:       configString(config, ConfigLanguage),
		Model:      configString(config, ConfigDeviceModel),
		AppID:      configString(config, ConfigApplicationIdentifier),
		AppVersion: configString(config, ConfigApplicationVersion),
		Resolution: configString(config, ConfigScreenResolution),
		Operator:   configString(config, ConfigCarrier),
		Connection: configString(config, ConfigConnectionType),
		Download:   configString(config, ConfigDownloadSource),
		UA:         configString(config, ConfigUserAgent),
	}
	merged := explicit.Merge(configured)
	if merged.UA != "" {
		merged = merged.Merge(techcontext.FromUserAgent(merged.UA))
	}
	return merged
}

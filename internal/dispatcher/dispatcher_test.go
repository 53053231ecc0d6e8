package dispatcher

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/builder"
	"github.com/atinternet/go-tracker/internal/hit"
	"github.com/atinternet/go-tracker/internal/param"
	"github.com/atinternet/go-tracker/internal/sharedtest"
	"github.com/atinternet/go-tracker/internal/storage"
	"github.com/atinternet/go-tracker/internal/techcontext"
	"github.com/atinternet/go-tracker/internal/workqueue"
)

type recordingObject struct {
	bo.Base
	desc   bo.Descriptor
	name   string
	key    string
	record func(string)
}

func (o *recordingObject) Describe() bo.Descriptor { return o.desc }

func (o *recordingObject) SetParams(b *buffer.Buffer) {
	o.record(o.name)
	if o.key != "" {
		b.Set(param.New(o.key, o.name, param.Options{}))
	}
}

type collectingSender struct {
	lock sync.Mutex
	hits []hit.Hit
}

func (s *collectingSender) Send(h hit.Hit) {
	s.lock.Lock()
	s.hits = append(s.hits, h)
	s.lock.Unlock()
}

func (s *collectingSender) urls() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	ret := make([]string, 0, len(s.hits))
	for _, h := range s.hits {
		ret = append(ret, h.URL)
	}
	return ret
}

type savingRecorder struct {
	lock sync.Mutex
	hits []hit.Hit
}

func (s *savingRecorder) SaveOffline(h hit.Hit) {
	s.lock.Lock()
	s.hits = append(s.hits, h)
	s.lock.Unlock()
}

type fixture struct {
	dispatcher *Dispatcher
	buffer     *buffer.Buffer
	registry   *bo.Registry
	queue      *workqueue.Queue
	sender     *collectingSender
	settings   *storage.Settings
	lock       sync.Mutex
	order      []string
}

func newFixture(t *testing.T, configure func(*Config)) *fixture {
	loggers := sharedtest.NewTestLoggers()
	f := &fixture{
		buffer:   buffer.New(techcontext.Info{ID: "client"}, loggers),
		registry: bo.NewRegistry(),
		queue:    workqueue.New(0, loggers),
		sender:   &collectingSender{},
		settings: storage.NewMemorySettings(loggers),
	}
	t.Cleanup(f.queue.Close)
	config := Config{
		Buffer:   f.buffer,
		Registry: f.registry,
		Queue:    f.queue,
		Endpoint: builder.Endpoint{Log: "logp", Domain: "xiti.com", PixelPath: builder.DefaultPixelPath, Site: "123"},
		Builder:  builder.Collaborators{Sender: f.sender, Loggers: loggers},
		Settings: f.settings,
		Loggers:  loggers,
	}
	if configure != nil {
		configure(&config)
	}
	f.dispatcher = New(config)
	return f
}

func (f *fixture) record(name string) {
	f.lock.Lock()
	f.order = append(f.order, name)
	f.lock.Unlock()
}

func (f *fixture) object(name string, kind bo.Kind, ts float64, key string) *recordingObject {
	o := &recordingObject{Base: bo.NewBaseAt(ts), desc: bo.Descriptor{Kind: kind}, name: name, key: key, record: f.record}
	f.registry.Add(o)
	return o
}

func (f *fixture) sentURLs() []string {
	f.queue.Sync()
	return f.sender.urls()
}

func TestScreenFlushesEarlierScreenInfoFirst(t *testing.T) {
	f := newFixture(t, nil)
	a := f.object("A", bo.KindScreenInfo, 100.0, "stc_a")
	b := f.object("B", bo.KindScreen, 105.0, "p")

	f.dispatcher.Dispatch(b)

	assert.Equal(t, []string{"A", "B"}, f.order)
	assert.False(t, f.registry.Contains(a.ID()))
	assert.False(t, f.registry.Contains(b.ID()))
	urls := f.sentURLs()
	require.Len(t, urls, 1)
	assert.Less(t, strings.Index(urls[0], "stc_a=A"), strings.Index(urls[0], "p=B"))
}

func TestLaterScreenContextIsNotFlushed(t *testing.T) {
	f := newFixture(t, nil)
	later := f.object("later", bo.KindInternalSearch, 200.0, "")
	screen := f.object("screen", bo.KindScreen, 150.0, "p")

	f.dispatcher.Dispatch(screen)

	assert.Equal(t, []string{"screen"}, f.order)
	assert.True(t, f.registry.Contains(later.ID()))
}

func TestObjectFlushedEarlierInPassIsSkipped(t *testing.T) {
	f := newFixture(t, nil)
	info := f.object("info", bo.KindScreenInfo, 100.0, "")
	screen := f.object("screen", bo.KindScreen, 105.0, "")

	f.dispatcher.Dispatch(screen, info)

	assert.Equal(t, []string{"info", "screen"}, f.order)
}

func TestCartIsFlushedForBasketScreensAndOrders(t *testing.T) {
	var cartFlushes int
	f := newFixture(t, nil)
	cart := &recordingObject{Base: bo.NewBase(), desc: bo.Descriptor{Kind: bo.KindCart}, name: "cart",
		record: func(string) { cartFlushes++ }}
	f.dispatcher.config.Cart = func() (bo.Object, bool) { return cart, true }

	f.dispatcher.Dispatch(f.object("plain", bo.KindScreen, 1, ""))
	assert.Equal(t, 0, cartFlushes)

	basket := f.object("basket", bo.KindScreen, 2, "")
	basket.desc.BasketScreen = true
	f.dispatcher.Dispatch(basket)
	assert.Equal(t, 1, cartFlushes)

	f.object("order", bo.KindOrder, 3, "")
	f.dispatcher.Dispatch(f.object("after-order", bo.KindScreen, 4, ""))
	assert.Equal(t, 2, cartFlushes)
}

func TestSearchGestureFlushesInternalSearches(t *testing.T) {
	f := newFixture(t, nil)
	search := f.object("search", bo.KindInternalSearch, 10, "mc")
	gesture := f.object("gesture", bo.KindGesture, 11, "p")
	gesture.desc.Action = bo.ActionSearch

	f.dispatcher.Dispatch(gesture)

	assert.Equal(t, []string{"gesture", "search"}, f.order)
	assert.False(t, f.registry.Contains(search.ID()))
}

func TestNavigationGestureLeavesInternalSearches(t *testing.T) {
	f := newFixture(t, nil)
	search := f.object("search", bo.KindInternalSearch, 10, "")
	gesture := f.object("gesture", bo.KindGesture, 11, "")
	gesture.desc.Action = "N"

	f.dispatcher.Dispatch(gesture)

	assert.True(t, f.registry.Contains(search.ID()))
}

func TestCustomDataIsFlushedAfterEveryBranch(t *testing.T) {
	f := newFixture(t, nil)
	f.object("custom", bo.KindCustomObject, 1, "")
	f.object("nuggad", bo.KindNuggAd, 2, "")
	event := f.object("event", bo.KindEvent, 3, "")

	f.dispatcher.Dispatch(event)

	assert.Equal(t, []string{"event", "custom", "nuggad"}, f.order)
	assert.Equal(t, 0, f.registry.Len())
}

func TestVolatileIsClearedAndPersistentSurvives(t *testing.T) {
	f := newFixture(t, nil)
	f.dispatcher.Dispatch(f.object("home", bo.KindScreen, 1, "p"))

	assert.Empty(t, f.buffer.Volatile())
	_, ok := f.buffer.Get(buffer.KeySDKVersion)
	assert.True(t, ok)
	_, ok = f.buffer.Get(buffer.KeyPlatform)
	assert.True(t, ok)
}

func TestConcurrentVolatileParametersAreNeverLost(t *testing.T) {
	f := newFixture(t, nil)
	const writers, perWriter = 4, 250
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				f.buffer.Set(param.New("k"+strconv.Itoa(w)+"_"+strconv.Itoa(i), "v", param.Options{}))
			}
		}(w)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			f.dispatcher.Dispatch()
			f.queue.Sync()
		}
	}
	f.dispatcher.Dispatch()

	seen := make(map[string]int)
	for _, u := range f.sentURLs() {
		for _, pair := range strings.Split(u, "&") {
			if key := strings.SplitN(pair, "=", 2)[0]; strings.HasPrefix(key, "k") {
				seen[key]++
			}
		}
	}
	assert.Len(t, seen, writers*perWriter)
	for key, n := range seen {
		assert.Equal(t, 1, n, key)
	}
}

func TestFullQueueStoresHitOffline(t *testing.T) {
	saver := &savingRecorder{}
	delegate := sharedtest.NewCapturingDelegate()
	small := workqueue.New(1, sharedtest.NewTestLoggers())
	t.Cleanup(small.Close)
	f := newFixture(t, func(c *Config) {
		c.Queue = small
		c.Builder.Overflow = saver
		c.Builder.Delegate = delegate
	})
	block := make(chan struct{})
	started := make(chan struct{})
	require.True(t, small.Submit(workqueue.UnitFunc(func() {
		close(started)
		<-block
	})))
	<-started
	require.True(t, small.Submit(workqueue.UnitFunc(func() {})))

	f.dispatcher.Dispatch(f.object("home", bo.KindScreen, 1, "p"))
	close(block)
	small.Sync()

	require.Len(t, saver.hits, 1)
	assert.Contains(t, saver.hits[0].URL, "&p=home")
	assert.Empty(t, f.sender.urls())
	assert.Empty(t, delegate.Messages("WarningDidOccur"))
	assert.Empty(t, f.buffer.Volatile())
}

func TestClosedQueueDropsHitWithWarning(t *testing.T) {
	saver := &savingRecorder{}
	delegate := sharedtest.NewCapturingDelegate()
	f := newFixture(t, func(c *Config) {
		c.Builder.Overflow = saver
		c.Builder.Delegate = delegate
	})
	f.queue.Close()
	f.dispatcher.Dispatch(f.object("home", bo.KindScreen, 1, "p"))

	assert.Empty(t, saver.hits)
	assert.Len(t, delegate.Messages("WarningDidOccur"), 1)
}

func TestLevel2IsRestoredAfterDispatch(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Level2 = "7" })
	f.buffer.Set(param.New(KeyLevel2, "9", param.PersistentOptions()))
	f.dispatcher.Dispatch(f.object("home", bo.KindScreen, 1, "p"))

	urls := f.sentURLs()
	require.Len(t, urls, 1)
	assert.Contains(t, urls[0], "&s2=9")
	p, ok := f.buffer.Get(KeyLevel2)
	require.True(t, ok)
	v, _ := p.Evaluate()
	assert.Equal(t, "7", v)
}

func TestIdentifierIsAlwaysInCustomContext(t *testing.T) {
	f := newFixture(t, nil)
	f.dispatcher.Dispatch(f.object("home", bo.KindScreen, 1, "p"))

	urls := f.sentURLs()
	require.Len(t, urls, 1)
	assert.Contains(t, urls[0], "&stc="+builder.Encode(`{"idType":"UUID"}`))
}

type staticMetrics struct {
	crash map[string]interface{}
}

func (m *staticMetrics) Metrics() map[string]interface{} { return map[string]interface{}{"sc": 1} }

func (m *staticMetrics) Compute() (map[string]interface{}, bool) {
	report := m.crash
	m.crash = nil
	return report, report != nil
}

func TestCrashReportRequiresPermission(t *testing.T) {
	allowed := false
	metrics := &staticMetrics{crash: map[string]interface{}{"crn": "main"}}
	f := newFixture(t, func(c *Config) {
		c.Metrics = metrics
		c.CrashReportingAllowed = func() bool { return allowed }
	})

	f.dispatcher.Dispatch(f.object("one", bo.KindScreen, 1, "p"))
	allowed = true
	f.dispatcher.Dispatch(f.object("two", bo.KindScreen, 2, "p"))

	urls := f.sentURLs()
	require.Len(t, urls, 2)
	expected := builder.Encode(`{"crash":{"crn":"main"},"idType":"UUID","lifecycle":{"sc":1}}`)
	assert.NotContains(t, urls[0], "crash")
	assert.Contains(t, urls[0], "&stc="+builder.Encode(`{"idType":"UUID","lifecycle":{"sc":1}}`))
	assert.Contains(t, urls[1], "&stc="+expected)
}

func TestRemanentCampaignIsAddedToFirstScreenOnly(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.settings.Set(storage.SettingCampaign, "AD-1"))
	require.NoError(t, f.settings.Set(storage.SettingCampaignDate, strconv.FormatInt(time.Now().Unix(), 10)))

	f.dispatcher.Dispatch(f.object("touch", bo.KindGesture, 1, "click"))
	f.dispatcher.Dispatch(f.object("home", bo.KindScreen, 2, "p"))
	f.dispatcher.Dispatch(f.object("next", bo.KindScreen, 3, "p"))

	urls := f.sentURLs()
	require.Len(t, urls, 3)
	assert.NotContains(t, urls[0], "xtor=")
	assert.Contains(t, urls[1], "&xtor=AD-1")
	assert.NotContains(t, urls[2], "xtor=")
}

func TestExpiredCampaignIsForgotten(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.CampaignLifetimeDays = 2 })
	old := time.Now().Add(-72 * time.Hour).Unix()
	require.NoError(t, f.settings.Set(storage.SettingCampaign, "AD-1"))
	require.NoError(t, f.settings.Set(storage.SettingCampaignDate, strconv.FormatInt(old, 10)))

	f.dispatcher.Dispatch(f.object("home", bo.KindScreen, 1, "p"))

	urls := f.sentURLs()
	require.Len(t, urls, 1)
	assert.NotContains(t, urls[0], "xtor=")
	_, ok := f.settings.Get(storage.SettingCampaign)
	assert.False(t, ok)
}

type reversingEncryptor struct{}

func (reversingEncryptor) Encrypt(s string) (string, error) { return reverse(s), nil }
func (reversingEncryptor) Decrypt(s string) (string, error) { return reverse(s), nil }

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func TestIdentifiedVisitorIsDecrypted(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.PersistVisitor = true
		c.Encryptor = reversingEncryptor{}
	})
	require.NoError(t, f.settings.Set(storage.SettingVisitorNumeric, "321"))
	require.NoError(t, f.settings.Set(storage.SettingVisitorCategory, "7"))

	f.dispatcher.Dispatch(f.object("home", bo.KindScreen, 1, "p"))

	urls := f.sentURLs()
	require.Len(t, urls, 1)
	assert.Contains(t, urls[0], "&an=123")
	assert.Contains(t, urls[0], "&ac=7")
	assert.NotContains(t, urls[0], "&at=")
}

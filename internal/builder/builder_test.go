package builder

import (
	"strings"
	"testing"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinternet/go-tracker/internal/hit"
	"github.com/atinternet/go-tracker/internal/param"
	"github.com/atinternet/go-tracker/subsystems"
)

var testEndpoint = Endpoint{Secure: true, Log: "logp", LogSSL: "logs", Domain: "xiti.com", Site: "123"}

const testPrefix = "https://logs.xiti.com/hit.xiti?s=123"

func build(t *testing.T, persistent, volatile []param.Param) string {
	h, err := New(testEndpoint, persistent, volatile, Collaborators{Loggers: ldlog.NewDisabledLoggers()}).Build()
	require.NoError(t, err)
	return h.URL
}

func opts(f func(*param.Options)) param.Options {
	o := param.Options{}
	f(&o)
	return o
}

func TestBuildJoinsPersistentThenVolatile(t *testing.T) {
	url := build(t,
		[]param.Param{param.New("vtag", "2.21.0", param.PersistentOptions())},
		[]param.Param{param.New("p", "home", param.Options{})})
	assert.Equal(t, testPrefix+"&vtag=2.21.0&p=home", url)
}

func TestVolatileReplacesPersistentInPlace(t *testing.T) {
	url := build(t,
		[]param.Param{
			param.New("s2", "1", param.PersistentOptions()),
			param.New("vtag", "x", param.PersistentOptions()),
		},
		[]param.Param{param.New("s2", "4", param.Options{})})
	assert.Equal(t, testPrefix+"&s2=4&vtag=x", url)
}

func TestSamePersistentKeyTwiceIsSerializedOnce(t *testing.T) {
	url := build(t, []param.Param{
		param.New("an", "7", param.PersistentOptions()),
		param.New("an", "7", param.PersistentOptions()),
	}, nil)
	assert.Equal(t, 1, strings.Count(url, "&an="))
}

func TestAppendJoinsWithSeparator(t *testing.T) {
	appendOpts := opts(func(o *param.Options) { o.Append = true; o.Separator = "|" })
	url := build(t, nil, []param.Param{
		param.New("x", "a", appendOpts),
		param.New("x", "b", appendOpts),
	})
	assert.Equal(t, testPrefix+"&x=a|b", url)
}

func TestAppendedJSONObjectsAreMerged(t *testing.T) {
	url := build(t, nil, []param.Param{
		param.New("stc", map[string]interface{}{"lifecycle": map[string]interface{}{"fs": 1}}, param.AppendEncodedOptions()),
		param.New("stc", map[string]interface{}{"idType": "UUID"}, param.AppendEncodedOptions()),
	})
	assert.Equal(t, testPrefix+"&stc="+Encode(`{"idType":"UUID","lifecycle":{"fs":1}}`), url)
}

func TestUnserializableJSONBecomesEmptyObjectWithWarning(t *testing.T) {
	d := &warningRecorder{}
	h, err := New(testEndpoint, nil, []param.Param{
		param.New("stc", param.AsJSON(map[string]interface{}{"c": make(chan int)}), param.EncodedOptions()),
	}, Collaborators{Delegate: d, Loggers: ldlog.NewDisabledLoggers()}).Build()
	require.NoError(t, err)
	assert.Equal(t, testPrefix+"&stc="+Encode("{}"), h.URL)
	require.Len(t, d.warnings, 1)
	assert.Contains(t, d.warnings[0], "stc")
}

func TestEncodeUsesPercentTwenty(t *testing.T) {
	assert.Equal(t, "a%20b%26c%3Dd%2F%5B1%5D", Encode("a b&c=d/[1]"))
	url := build(t, nil, []param.Param{param.New("p", "my page", param.EncodedOptions())})
	assert.Equal(t, testPrefix+"&p=my%20page", url)
}

func TestArraysUseSeparator(t *testing.T) {
	url := build(t, nil, []param.Param{param.New("tag", []string{"a", "b"}, opts(func(o *param.Options) { o.Separator = "-" }))})
	assert.Equal(t, testPrefix+"&tag=a-b", url)
}

func TestRelativePositions(t *testing.T) {
	url := build(t, nil, []param.Param{
		param.New("a", "1", param.Options{}),
		param.New("z", "9", opts(func(o *param.Options) { o.RelativePosition = param.Last })),
		param.New("b", "2", param.Options{}),
		param.New("f", "0", opts(func(o *param.Options) { o.RelativePosition = param.First })),
		param.New("c", "3", param.Options{}),
		param.New("bb", "x", opts(func(o *param.Options) {
			o.RelativePosition = param.Before
			o.RelativeParameterKey = "b"
		})),
		param.New("aa", "y", opts(func(o *param.Options) {
			o.RelativePosition = param.After
			o.RelativeParameterKey = "a"
		})),
		param.New("orphan", "o", opts(func(o *param.Options) {
			o.RelativePosition = param.After
			o.RelativeParameterKey = "missing"
		})),
	})
	assert.Equal(t, testPrefix+"&f=0&a=1&aa=y&bb=x&b=2&c=3&orphan=o&z=9", url)
}

func TestRelativeToRelative(t *testing.T) {
	url := build(t, nil, []param.Param{
		param.New("y", "2", opts(func(o *param.Options) {
			o.RelativePosition = param.After
			o.RelativeParameterKey = "x"
		})),
		param.New("x", "1", opts(func(o *param.Options) {
			o.RelativePosition = param.After
			o.RelativeParameterKey = "a"
		})),
		param.New("a", "0", param.Options{}),
	})
	assert.Equal(t, testPrefix+"&a=0&x=1&y=2", url)
}

func TestClassificationSurvivesBuild(t *testing.T) {
	persistent := []param.Param{param.New("vtag", "2.21.0", param.PersistentOptions())}
	volatile := []param.Param{param.New("type", "video", param.Options{})}
	assert.Equal(t, hit.Video, hit.ClassifyParams(persistent, volatile))
	assert.Equal(t, hit.Video, hit.Classify(build(t, persistent, volatile)))
}

func TestMissingSiteIsConfigError(t *testing.T) {
	endpoint := testEndpoint
	endpoint.Site = ""
	_, err := New(endpoint, nil, nil, Collaborators{}).Build()
	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, ConfigSite, configErr.Key)
}

func TestEndpointFromConfig(t *testing.T) {
	e := EndpointFromConfig(mapConfig{"log": "logp", "domain": "xiti.com", "site": "42", "secure": "false", "pixelPath": "pix"})
	prefix, err := e.Prefix()
	require.NoError(t, err)
	assert.Equal(t, "http://logp.xiti.com/pix?s=42", prefix)

	_, err = EndpointFromConfig(mapConfig{"site": "42"}).Prefix()
	assert.Error(t, err)
}

func TestRunReportsAndForwards(t *testing.T) {
	d := &warningRecorder{}
	live := &liveRecorder{}
	sender := &senderRecorder{}
	New(testEndpoint, nil, []param.Param{param.New("p", "home", param.Options{})},
		Collaborators{Delegate: d, LiveTagging: live, Sender: sender, Loggers: ldlog.NewDisabledLoggers()}).Run()

	require.Len(t, sender.hits, 1)
	assert.Equal(t, testPrefix+"&p=home", sender.hits[0].URL)
	require.Len(t, live.events, 1)
	assert.Equal(t, "screen", live.events[0].Type)
	assert.Equal(t, []string{"success"}, d.builds)
}

func TestRunReportsBuildFailure(t *testing.T) {
	d := &warningRecorder{}
	sender := &senderRecorder{}
	New(Endpoint{}, nil, nil, Collaborators{Delegate: d, Sender: sender, Loggers: ldlog.NewDisabledLoggers()}).Run()
	assert.Empty(t, sender.hits)
	assert.Equal(t, []string{"failed"}, d.builds)
}

func TestRunOfflineHandsHitToOverflow(t *testing.T) {
	d := &warningRecorder{}
	sender := &senderRecorder{}
	saver := &saverRecorder{}
	New(testEndpoint, nil, []param.Param{param.New("p", "home", param.Options{})},
		Collaborators{Delegate: d, Sender: sender, Overflow: saver, Loggers: ldlog.NewDisabledLoggers()}).RunOffline()

	assert.Empty(t, sender.hits)
	require.Len(t, saver.hits, 1)
	assert.Equal(t, testPrefix+"&p=home", saver.hits[0].URL)
	assert.Equal(t, []string{"success"}, d.builds)
}

type mapConfig map[string]string

func (m mapConfig) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}
func (m mapConfig) All() map[string]string { return m }

type warningRecorder struct {
	warnings []string
	builds   []string
}

func (w *warningRecorder) BuildDidEnd(status subsystems.Status, _ string) {
	w.builds = append(w.builds, status.String())
}
func (w *warningRecorder) SendDidEnd(subsystems.Status, string) {}
func (w *warningRecorder) SaveDidEnd(string)                    {}
func (w *warningRecorder) WarningDidOccur(message string)       { w.warnings = append(w.warnings, message) }
func (w *warningRecorder) ErrorDidOccur(string)                 {}

type liveRecorder struct{ events []subsystems.HitEvent }

func (l *liveRecorder) Publish(e subsystems.HitEvent) { l.events = append(l.events, e) }
func (l *liveRecorder) Close() error                  { return nil }

type senderRecorder struct{ hits []hit.Hit }

func (s *senderRecorder) Send(h hit.Hit) { s.hits = append(s.hits, h) }

type saverRecorder struct{ hits []hit.Hit }

func (s *saverRecorder) SaveOffline(h hit.Hit) { s.hits = append(s.hits, h) }

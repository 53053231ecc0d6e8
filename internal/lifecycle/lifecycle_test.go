package lifecycle

import (
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinternet/go-tracker/internal/storage"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestFirstSessionMetrics(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	p := newWithClock(storage.NewMemorySettings(ldlog.NewDisabledLoggers()), "1.0", ldlog.NewDisabledLoggers(), c.now)
	m := p.Metrics()
	assert.Equal(t, 1, m["fs"])
	assert.Equal(t, 0, m["fsau"])
	assert.Equal(t, 1, m["sc"])
	assert.Equal(t, 20240310, m["fsd"])
	assert.Equal(t, 0, m["dsfs"])
	assert.Equal(t, 0, m["dsls"])
	assert.NotEmpty(t, m["sessionId"])
}

func TestLaterSessionsCountDaysAndUpdates(t *testing.T) {
	settings := storage.NewMemorySettings(ldlog.NewDisabledLoggers())
	c := &clock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	first := newWithClock(settings, "1.0", ldlog.NewDisabledLoggers(), c.now)
	firstSession := first.Metrics()["sessionId"]

	c.t = c.t.AddDate(0, 0, 4)
	p := newWithClock(settings, "1.0", ldlog.NewDisabledLoggers(), c.now)
	m := p.Metrics()
	assert.Equal(t, 0, m["fs"])
	assert.Equal(t, 2, m["sc"])
	assert.Equal(t, 2, m["scsu"])
	assert.Equal(t, 4, m["dsfs"])
	assert.Equal(t, 4, m["dsls"])
	assert.NotEqual(t, firstSession, m["sessionId"])

	c.t = c.t.AddDate(0, 0, 1)
	updated := newWithClock(settings, "2.0", ldlog.NewDisabledLoggers(), c.now)
	m = updated.Metrics()
	assert.Equal(t, 1, m["fsau"])
	assert.Equal(t, 1, m["scsu"])
	assert.Equal(t, 3, m["sc"])
	assert.Equal(t, 0, m["dsu"])
	assert.Equal(t, 20240315, m["fsdau"])
}

func TestCrashReportIsReturnedOnce(t *testing.T) {
	p := New(storage.NewMemorySettings(ldlog.NewDisabledLoggers()), "1.0", ldlog.NewDisabledLoggers())
	_, ok := p.Compute()
	assert.False(t, ok)

	require.NoError(t, p.RecordCrash(map[string]interface{}{"crash": "SIGSEGV", "lastScreen": "home"}))
	report, ok := p.Compute()
	require.True(t, ok)
	assert.Equal(t, "SIGSEGV", report["crash"])
	_, ok = p.Compute()
	assert.False(t, ok)
}

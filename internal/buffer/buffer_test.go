package buffer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinternet/go-tracker/internal/param"
	"github.com/atinternet/go-tracker/internal/techcontext"
)

func makeBuffer() *Buffer {
	return New(techcontext.Info{AppVersion: "1.2", Operator: "Orange", ID: "client-1"}, ldlog.NewDisabledLoggers())
}

func keys(list []param.Param) []string {
	ret := make([]string, 0, len(list))
	for _, p := range list {
		ret = append(ret, p.Key)
	}
	return ret
}

func TestContextVariablesArePersistent(t *testing.T) {
	b := makeBuffer()
	assert.Equal(t, []string{"vtag", "ptag", "lng", "mfmd", "os", "apid", "apvr", "hl", "r", "car", "cn", "ts", "dls", "idclient"},
		keys(b.Persistent()))
	assert.Empty(t, b.Volatile())
	for _, p := range b.Persistent() {
		assert.True(t, p.Options.Persistent, p.Key)
	}
}

func TestAppVersionIsBracketed(t *testing.T) {
	b := makeBuffer()
	p, ok := b.Get(KeyAppVersion)
	require.True(t, ok)
	v, _ := p.Evaluate()
	assert.Equal(t, "[1.2]", v)
	assert.True(t, p.Options.Encode)
}

func TestCarrierOmittedWhenUnknown(t *testing.T) {
	b := New(techcontext.Info{}, ldlog.NewDisabledLoggers())
	_, ok := b.Get(KeyCarrier)
	assert.False(t, ok)
}

func TestTimestampIsFreshOnEachEvaluation(t *testing.T) {
	b := makeBuffer()
	p, ok := b.Get(KeyTimestamp)
	require.True(t, ok)
	first, _ := p.Evaluate()
	second, _ := p.Evaluate()
	assert.NotEqual(t, first, second)
}

func TestSettingSamePersistentKeyTwiceKeepsOneEntry(t *testing.T) {
	b := makeBuffer()
	before := len(b.Persistent())
	b.Set(param.New("x", "1", param.PersistentOptions()))
	b.Set(param.New("x", "1", param.PersistentOptions()))
	after := b.Persistent()
	assert.Len(t, after, before+1)
}

func TestOverwriteKeepsOriginalPosition(t *testing.T) {
	b := makeBuffer()
	b.Set(param.New("a", "1", param.Options{}))
	b.Set(param.New("b", "2", param.Options{}))
	b.Set(param.New("a", "3", param.Options{}))
	vol := b.Volatile()
	assert.Equal(t, []string{"a", "b"}, keys(vol))
	v, _ := vol[0].Evaluate()
	assert.Equal(t, "3", v)
}

func TestAppendKeepsAllEntries(t *testing.T) {
	b := makeBuffer()
	b.Set(param.New("stc", map[string]interface{}{"a": 1}, param.AppendEncodedOptions()))
	b.Set(param.New("stc", map[string]interface{}{"b": 2}, param.AppendEncodedOptions()))
	assert.Len(t, b.Volatile(), 2)
}

func TestNonAppendReplacesAppendedEntries(t *testing.T) {
	b := makeBuffer()
	b.Set(param.New("stc", "1", param.AppendEncodedOptions()))
	b.Set(param.New("stc", "2", param.AppendEncodedOptions()))
	b.Set(param.New("stc", "3", param.Options{}))
	vol := b.Volatile()
	require.Len(t, vol, 1)
	v, _ := vol[0].Evaluate()
	assert.Equal(t, "3", v)
}

func TestUnsetRemovesFromBothLists(t *testing.T) {
	b := makeBuffer()
	b.Set(param.New("k", "p", param.PersistentOptions()))
	b.Set(param.New("k", "v", param.Options{}))
	b.Unset("k")
	_, ok := b.Get("k")
	assert.False(t, ok)
}

func TestTakeVolatileReturnsAndClearsVolatile(t *testing.T) {
	b := makeBuffer()
	b.Set(param.New("p", "home", param.Options{}))
	persistent, volatile := b.TakeVolatile()
	require.Len(t, volatile, 1)
	assert.Equal(t, "p", volatile[0].Key)
	assert.NotEmpty(t, persistent)
	assert.Empty(t, b.Volatile())
	_, ok := b.Get(KeySDKVersion)
	assert.True(t, ok)
	_, ok = b.Get(KeyPlatform)
	assert.True(t, ok)
}

func TestTakeVolatileLosesNoConcurrentParameter(t *testing.T) {
	b := makeBuffer()
	const writers, perWriter = 4, 500
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				b.Set(param.New(fmt.Sprintf("k%d_%d", w, i), "v", param.Options{}))
			}
		}(w)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	seen := make(map[string]int)
	collect := func() {
		_, volatile := b.TakeVolatile()
		for _, p := range volatile {
			seen[p.Key]++
		}
	}
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			collect()
		}
	}
	collect()

	assert.Len(t, seen, writers*perWriter)
	for key, n := range seen {
		assert.Equal(t, 1, n, key)
	}
}

func TestVolatileShadowsPersistentInGet(t *testing.T) {
	b := makeBuffer()
	b.Set(param.New("s2", "1", param.PersistentOptions()))
	b.Set(param.New("s2", "4", param.Options{}))
	p, ok := b.Get("s2")
	require.True(t, ok)
	v, _ := p.Evaluate()
	assert.Equal(t, "4", v)
}

func TestEmptyKeyIsRejected(t *testing.T) {
	mockLog := ldlogtest.NewMockLog()
	b := New(techcontext.Info{}, mockLog.Loggers)
	b.Set(param.New("", "x", param.Options{}))
	assert.Empty(t, b.Volatile())
	mockLog.AssertMessageMatch(t, true, ldlog.Warn, "empty key")
}

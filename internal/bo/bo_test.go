package bo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinternet/go-tracker/internal/buffer"
)

type fakeObject struct {
	Base
	kind Kind
}

func (f *fakeObject) Describe() Descriptor       { return Descriptor{Kind: f.kind} }
func (f *fakeObject) SetParams(b *buffer.Buffer) {}

func newFake(kind Kind, ts float64) *fakeObject {
	return &fakeObject{Base: NewBaseAt(ts), kind: kind}
}

func TestKindClasses(t *testing.T) {
	for _, k := range []Kind{KindScreen, KindScreenInfo, KindInternalSearch, KindOnAppAdView, KindOrder} {
		assert.Equal(t, ClassScreenLike, k.Class())
	}
	assert.Equal(t, ClassGesture, KindGesture.Class())
	for _, k := range []Kind{KindOnAppAdTouch, KindCart, KindProduct, KindEvent, KindCustomObject, KindNuggAd, KindMvTesting, KindRichMedia} {
		assert.Equal(t, ClassDefault, k.Class())
	}
	assert.False(t, KindScreen.IsScreenContext())
	assert.True(t, KindOrder.IsScreenContext())
	assert.True(t, KindNuggAd.IsCustomData())
	assert.False(t, KindProduct.IsCustomData())
}

func TestNewBaseHasUniqueIDAndCurrentTime(t *testing.T) {
	a, b := NewBase(), NewBase()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Greater(t, a.Timestamp(), float64(1e9))
}

func TestRegistryOrdersByTimestampThenInsertion(t *testing.T) {
	r := NewRegistry()
	late := newFake(KindScreen, 105)
	first := newFake(KindScreenInfo, 100)
	second := newFake(KindCart, 100)
	r.Add(late)
	r.Add(first)
	r.Add(second)
	r.Add(first)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []Object{first, second, late}, r.All())
}

func TestRegistryTakeRemovesMatches(t *testing.T) {
	r := NewRegistry()
	info := newFake(KindScreenInfo, 100)
	custom := newFake(KindCustomObject, 101)
	screen := newFake(KindScreen, 102)
	r.Add(info)
	r.Add(custom)
	r.Add(screen)

	taken := r.Take(func(o Object) bool { return o.Describe().Kind.IsScreenContext() })
	require.Equal(t, []Object{info}, taken)
	assert.False(t, r.Contains(info.ID()))
	assert.True(t, r.Contains(custom.ID()))

	got, ok := r.Get(screen.ID())
	assert.True(t, ok)
	assert.Equal(t, screen, got)
	assert.True(t, r.Remove(screen.ID()))
	assert.False(t, r.Remove(screen.ID()))
}

func TestRegistryRestampMovesObjectToEnd(t *testing.T) {
	r := NewRegistry()
	screen := newFake(KindScreen, 100)
	info := newFake(KindScreenInfo, 101)
	r.Add(screen)
	r.Add(info)

	r.Restamp(screen)
	assert.Greater(t, screen.Timestamp(), info.Timestamp())
	assert.Equal(t, []Object{info, screen}, r.All())
}

func TestRegistryRestampDoesNotRegister(t *testing.T) {
	r := NewRegistry()
	screen := newFake(KindScreen, 100)
	r.Restamp(screen)
	assert.Greater(t, screen.Timestamp(), float64(100))
	assert.Equal(t, 0, r.Len())
}

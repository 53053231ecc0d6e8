package attracker

import (
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/param"
)

// host is the part of the Tracker that business objects use.
type host interface {
	register(o bo.Object)
	restamp(o bo.Restampable)
	dispatch(objects ...bo.Object)
	pending(kind bo.Kind) []bo.Object
	take(kind bo.Kind) []bo.Object
	screenContext() *screenContext
	warn(message string)
}

// screenContext remembers the last screen written to a hit, so that gestures, ad touches and
// media hits can refer to it.
type screenContext struct {
	name   string
	level2 int
	lock   sync.RWMutex
}

func (c *screenContext) set(name string, level2 int) {
	c.lock.Lock()
	c.name, c.level2 = name, level2
	c.lock.Unlock()
}

func (c *screenContext) get() (string, int) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.name, c.level2
}

// setOrigin writes the last screen under nameKey and its level 2 under level2Key.
func (c *screenContext) setOrigin(b *buffer.Buffer, nameKey, level2Key string) {
	name, level2 := c.get()
	if name != "" {
		b.Set(param.New(nameKey, name, param.EncodedOptions()))
	}
	if level2 > 0 {
		b.Set(param.New(level2Key, level2, param.Options{}))
	}
}

// Chapters places a name in up to three levels of hierarchy.
type Chapters struct {
	Chapter1 string
	Chapter2 string
	Chapter3 string
}

// path joins the non-empty chapters and the name with "::".
func (c Chapters) path(name string) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{c.Chapter1, c.Chapter2, c.Chapter3, name} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "::")
}

func setLevel2(b *buffer.Buffer, level2 int) {
	if level2 > 0 {
		b.Set(param.New("s2", level2, param.Options{}))
	}
}

func boolParam(v bool) int {
	if v {
		return 1
	}
	return 0
}

func sortedKeys[V any](m map[int]V) []int {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

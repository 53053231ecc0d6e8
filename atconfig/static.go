package atconfig

import (
	"golang.org/x/exp/maps"

	"github.com/atinternet/go-tracker/subsystems"
)

// Map is a fixed configuration.
type Map map[string]string

var _ subsystems.ConfigProvider = Map(nil)

// Static returns a provider over a copy of values.
func Static(values map[string]string) Map {
	return Map(maps.Clone(values))
}

// Get returns the value for key.
func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// All returns a copy of every entry.
func (m Map) All() map[string]string {
	ret := maps.Clone(map[string]string(m))
	if ret == nil {
		ret = map[string]string{}
	}
	return ret
}

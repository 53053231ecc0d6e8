package sharedtest

// MapConfig is a ConfigProvider over a literal map.
type MapConfig map[string]string

func (m MapConfig) Get(key string) (string, bool) { //nolint:revive
	v, ok := m[key]
	return v, ok
}

func (m MapConfig) All() map[string]string { //nolint:revive
	ret := make(map[string]string, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}

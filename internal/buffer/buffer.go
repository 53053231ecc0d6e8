// Package buffer holds the parameters waiting to be serialized into the next hit.
package buffer

import (
	"strconv"
	"sync"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/atinternet/go-tracker/internal/param"
	"github.com/atinternet/go-tracker/internal/techcontext"
)

// Context parameter keys written by addContextVariables.
const (
	KeySDKVersion       = "vtag"
	KeyPlatform         = "ptag"
	KeyLanguage         = "lng"
	KeyDevice           = "mfmd"
	KeyOS               = "os"
	KeyApplicationID    = "apid"
	KeyAppVersion       = "apvr"
	KeyLocalHour        = "hl"
	KeyScreenResolution = "r"
	KeyCarrier          = "car"
	KeyConnection       = "cn"
	KeyTimestamp        = "ts"
	KeyDownloadSource   = "dls"
	KeyClientID         = "idclient"
)

// Buffer owns the persistent and volatile parameter lists of one tracker.
//
// Persistent parameters are carried into every hit until they are unset; volatile parameters
// are scoped to the next hit and cleared by the dispatcher after each dispatch.
type Buffer struct {
	persistent []param.Param
	volatile   []param.Param
	lock       sync.Mutex
	loggers    ldlog.Loggers
	timestamps techcontext.Timestamps
}

// New creates a Buffer and seeds it with the tracker-wide context parameters.
func New(context techcontext.Provider, loggers ldlog.Loggers) *Buffer {
	b := &Buffer{loggers: loggers}
	b.addContextVariables(context)
	return b
}

func (b *Buffer) addContextVariables(context techcontext.Provider) {
	persistent := param.PersistentOptions()
	encoded := param.PersistentEncodedOptions()

	b.Set(param.New(KeySDKVersion, context.SDKVersion(), persistent))
	b.Set(param.New(KeyPlatform, context.Platform(), persistent))
	b.Set(param.New(KeyLanguage, context.Language(), persistent))
	b.Set(param.New(KeyDevice, context.Device(), encoded))
	b.Set(param.New(KeyOS, context.OperatingSystem(), encoded))
	b.Set(param.New(KeyApplicationID, context.ApplicationIdentifier(), persistent))
	appVersion := context.ApplicationVersion()
	if appVersion != "" {
		appVersion = "[" + appVersion + "]"
	}
	b.Set(param.New(KeyAppVersion, appVersion, encoded))
	b.Set(param.New(KeyLocalHour, param.ValueFunc(techcontext.LocalHour), persistent))
	b.Set(param.New(KeyScreenResolution, context.ScreenResolution(), persistent))
	if carrier := context.Carrier(); carrier != "" {
		b.Set(param.New(KeyCarrier, carrier, encoded))
	}
	b.Set(param.New(KeyConnection, context.ConnectionType(), encoded))
	b.Set(param.New(KeyTimestamp, param.ValueFunc(func() string {
		return strconv.FormatInt(b.timestamps.Next(), 10)
	}), persistent))
	b.Set(param.New(KeyDownloadSource, context.DownloadSource(), persistent))
	b.Set(param.New(KeyClientID, context.ClientID(), encoded))
}

// Set adds a parameter to the persistent or volatile list, as selected by its options.
//
// Unless the parameter is appending, any existing entries with the same key in the target list
// are removed first, so setting the same key twice leaves a single effective value.
func (b *Buffer) Set(p param.Param) {
	if p.Key == "" {
		b.loggers.Warn("Ignoring a hit parameter with an empty key")
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if p.Options.Persistent {
		b.persistent = setInList(b.persistent, p)
	} else {
		b.volatile = setInList(b.volatile, p)
	}
}

func setInList(list []param.Param, p param.Param) []param.Param {
	if p.Options.Append {
		return append(list, p)
	}
	for i, existing := range list {
		if existing.Key == p.Key {
			// Keep the position of the first entry so that re-asserting a parameter does
			// not reorder the hit.
			list[i] = p
			return removeKeyAfter(list, p.Key, i)
		}
	}
	return append(list, p)
}

func removeKeyAfter(list []param.Param, key string, index int) []param.Param {
	ret := list[:index+1]
	for _, existing := range list[index+1:] {
		if existing.Key != key {
			ret = append(ret, existing)
		}
	}
	return ret
}

// Unset removes every entry for the key from both lists.
func (b *Buffer) Unset(key string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.persistent = removeKey(b.persistent, key)
	b.volatile = removeKey(b.volatile, key)
}

func removeKey(list []param.Param, key string) []param.Param {
	ret := list[:0]
	for _, p := range list {
		if p.Key != key {
			ret = append(ret, p)
		}
	}
	return ret
}

// Persistent returns a copy of the persistent list.
func (b *Buffer) Persistent() []param.Param {
	b.lock.Lock()
	defer b.lock.Unlock()
	return copyList(b.persistent)
}

// Volatile returns a copy of the volatile list.
func (b *Buffer) Volatile() []param.Param {
	b.lock.Lock()
	defer b.lock.Unlock()
	return copyList(b.volatile)
}

// Snapshot returns copies of both lists taken under a single lock.
func (b *Buffer) Snapshot() (persistent, volatile []param.Param) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return copyList(b.persistent), copyList(b.volatile)
}

// TakeVolatile returns copies of both lists and empties the volatile list, all under one lock,
// so a parameter set concurrently lands either in the returned lists or in the next hit.
func (b *Buffer) TakeVolatile() (persistent, volatile []param.Param) {
	b.lock.Lock()
	defer b.lock.Unlock()
	persistent, volatile = copyList(b.persistent), b.volatile
	b.volatile = nil
	return persistent, volatile
}

// Get returns the last entry for key, looking at the volatile list before the persistent one.
func (b *Buffer) Get(key string) (param.Param, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, list := range [][]param.Param{b.volatile, b.persistent} {
		for i := len(list) - 1; i >= 0; i-- {
			if list[i].Key == key {
				return list[i], true
			}
		}
	}
	return param.Param{}, false
}

func copyList(list []param.Param) []param.Param {
	if len(list) == 0 {
		return nil
	}
	ret := make([]param.Param, len(list))
	copy(ret, list)
	return ret
}

// Package techcontext supplies the device and application facts that every hit carries.
package techcontext

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"
)

// SDKVersion is reported in the vtag parameter.
const SDKVersion = "2.21.0"

// Platform is reported in the ptag parameter.
const Platform = "go"

// Provider exposes the facts the buffer writes as context parameters.
type Provider interface {
	SDKVersion() string
	Platform() string
	Language() string
	Device() string
	OperatingSystem() string
	ApplicationIdentifier() string
	ApplicationVersion() string
	ScreenResolution() string
	Carrier() string
	ConnectionType() string
	DownloadSource() string
	ClientID() string
	UserAgent() string
}

// Info is the default Provider. Fields left empty are filled from the user-agent string when
// one is given, then from the runtime.
type Info struct {
	Lang       string
	Model      string
	OSName     string
	OSVersion  string
	AppID      string
	AppVersion string
	Resolution string
	Operator   string
	Connection string
	Download   string
	ID         string
	UA         string
}

// FromUserAgent fills an Info from a user-agent string.
func FromUserAgent(ua string) Info {
	parsed := useragent.Parse(ua)
	info := Info{UA: ua, OSName: parsed.OS, OSVersion: parsed.OSVersion, Model: parsed.Device}
	if info.Model == "" {
		switch {
		case parsed.Tablet:
			info.Model = "tablet"
		case parsed.Mobile:
			info.Model = "mobile"
		case parsed.Desktop:
			info.Model = "desktop"
		}
	}
	return info
}

// Merge returns a copy of i where empty fields are taken from other.
func (i Info) Merge(other Info) Info {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return Info{
		Lang:       pick(i.Lang, other.Lang),
		Model:      pick(i.Model, other.Model),
		OSName:     pick(i.OSName, other.OSName),
		OSVersion:  pick(i.OSVersion, other.OSVersion),
		AppID:      pick(i.AppID, other.AppID),
		AppVersion: pick(i.AppVersion, other.AppVersion),
		Resolution: pick(i.Resolution, other.Resolution),
		Operator:   pick(i.Operator, other.Operator),
		Connection: pick(i.Connection, other.Connection),
		Download:   pick(i.Download, other.Download),
		ID:         pick(i.ID, other.ID),
		UA:         pick(i.UA, other.UA),
	}
}

//nolint:revive // Provider implementation
func (i Info) SDKVersion() string { return SDKVersion }

//nolint:revive // Provider implementation
func (i Info) Platform() string { return Platform }

//nolint:revive // Provider implementation
func (i Info) Language() string {
	if i.Lang == "" {
		return "en-US"
	}
	return i.Lang
}

//nolint:revive // Provider implementation
func (i Info) Device() string {
	if i.Model == "" {
		return "[" + runtime.GOARCH + "]"
	}
	return "[" + i.Model + "]"
}

//nolint:revive // Provider implementation
func (i Info) OperatingSystem() string {
	name := i.OSName
	if name == "" {
		name = runtime.GOOS
	}
	if i.OSVersion == "" {
		return "[" + name + "]"
	}
	return fmt.Sprintf("[%s] [%s]", name, i.OSVersion)
}

//nolint:revive // Provider implementation
func (i Info) ApplicationIdentifier() string { return i.AppID }

//nolint:revive // Provider implementation
func (i Info) ApplicationVersion() string { return i.AppVersion }

//nolint:revive // Provider implementation
func (i Info) ScreenResolution() string { return i.Resolution }

//nolint:revive // Provider implementation
func (i Info) Carrier() string { return i.Operator }

//nolint:revive // Provider implementation
func (i Info) ConnectionType() string {
	if i.Connection == "" {
		return "wifi"
	}
	return i.Connection
}

//nolint:revive // Provider implementation
func (i Info) DownloadSource() string {
	if i.Download == "" {
		return "ext"
	}
	return i.Download
}

//nolint:revive // Provider implementation
func (i Info) ClientID() string { return i.ID }

// UserAgent returns the configured user agent, or one derived from the SDK version.
func (i Info) UserAgent() string {
	if i.UA != "" {
		return i.UA
	}
	return fmt.Sprintf("ATInternet-Go/%s (%s; %s)", SDKVersion, runtime.GOOS, runtime.GOARCH)
}

// NewClientID returns a fresh client identifier.
func NewClientID() string {
	return strings.ToUpper(uuid.NewString())
}

// LocalHour renders the current local time the way the collector expects it (H.m.s).
func LocalHour() string {
	now := time.Now()
	return fmt.Sprintf("%d.%d.%d", now.Hour(), now.Minute(), now.Second())
}

// Timestamps produces cache-busting timestamps that strictly increase across calls, even when
// the wall clock does not advance between two hits.
type Timestamps struct {
	lock sync.Mutex
	last int64
}

// Next returns the next timestamp in milliseconds.
func (t *Timestamps) Next() int64 {
	now := time.Now().UnixMilli()
	t.lock.Lock()
	defer t.lock.Unlock()
	if now <= t.last {
		now = t.last + 1
	}
	t.last = now
	return now
}

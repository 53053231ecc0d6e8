// Package hit defines a serialized analytics hit and the rule used to classify it.
package hit

import (
	"net/url"
	"strings"
	"time"

	"github.com/atinternet/go-tracker/internal/param"
)

// Hit is one fully-serialized event ready for delivery.
type Hit struct {
	// ID is the storage row id. It is zero for a hit that has never been stored.
	ID           int64
	URL          string
	CreationDate time.Time
	RetryCount   int
	IsOffline    bool
}

// New returns a fresh, never-stored hit for url created now.
func New(rawURL string) Hit {
	return Hit{URL: rawURL, CreationDate: time.Now()}
}

// Type is derived from the URL each time it is requested.
func (h Hit) Type() Type {
	return Classify(h.URL)
}

// Type is the semantic category of a hit.
type Type int

const (
	Unknown Type = iota //nolint:revive
	Screen
	Touch
	Audio
	Video
	Animation
	Podcast
	RSS
	Email
	Publicite
	AdTracking
	ProductDisplay
	Weborama
	MvTesting
)

var typeNames = map[Type]string{ //nolint:gochecknoglobals
	Unknown:        "unknown",
	Screen:         "screen",
	Touch:          "touch",
	Audio:          "audio",
	Video:          "video",
	Animation:      "animation",
	Podcast:        "podcast",
	RSS:            "rss",
	Email:          "email",
	Publicite:      "publicite",
	AdTracking:     "adTracking",
	ProductDisplay: "productDisplay",
	Weborama:       "weborama",
	MvTesting:      "mvTesting",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return typeNames[Unknown]
}

// Values of the "type" query parameter.
var typeTable = map[string]Type{ //nolint:gochecknoglobals
	"screen":    Screen,
	"click":     Touch,
	"audio":     Audio,
	"video":     Video,
	"animation": Animation,
	"podcast":   Podcast,
	"rss":       RSS,
	"email":     Email,
	"pub":       Publicite,
	"ar":        AdTracking,
	"pdt":       ProductDisplay,
	"wbo":       Weborama,
	"mvt":       MvTesting,
}

const (
	typeKey     = "type"
	clickKey    = "click"
	clickAltKey = "clic"
	querySep    = "&"
	keyValueSep = "="
)

// classifier accumulates what one scan has seen. The rule is: the last "type" entry decides
// when there is one, otherwise any "clic"/"click" entry means Touch, otherwise Screen.
type classifier struct {
	typeValue string
	hasType   bool
	hasClick  bool
}

func (c *classifier) observe(key, value string) {
	switch key {
	case typeKey:
		c.typeValue, c.hasType = value, true
	case clickKey, clickAltKey:
		c.hasClick = true
	}
}

func (c *classifier) result() Type {
	if c.hasType {
		if t, ok := typeTable[c.typeValue]; ok {
			return t
		}
		return Unknown
	}
	if c.hasClick {
		return Touch
	}
	return Screen
}

// Classify scans the query string of a serialized hit.
//
// An empty or unparsable URL is Unknown.
func Classify(rawURL string) Type {
	if rawURL == "" {
		return Unknown
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Unknown
	}
	var c classifier
	for _, pair := range strings.Split(u.RawQuery, querySep) {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, keyValueSep)
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		c.observe(key, value)
	}
	return c.result()
}

// ClassifyParams applies the same rule as Classify to in-memory parameter lists, in the order
// the builder would emit them.
func ClassifyParams(lists ...[]param.Param) Type {
	var c classifier
	for _, list := range lists {
		for _, p := range list {
			if p.Key != typeKey && p.Key != clickKey && p.Key != clickAltKey {
				continue
			}
			value, err := p.Evaluate()
			if err != nil {
				continue
			}
			c.observe(p.Key, value)
		}
	}
	return c.result()
}

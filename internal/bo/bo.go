// Package bo defines the contract shared by every business object: the entities that write
// themselves into the parameter buffer when a hit is dispatched.
package bo

import (
	"time"

	"github.com/google/uuid"

	"github.com/atinternet/go-tracker/internal/buffer"
)

// Kind is the closed set of business object variants the dispatcher distinguishes.
type Kind int

const (
	KindScreen Kind = iota //nolint:revive
	KindScreenInfo
	KindInternalSearch
	KindOnAppAdView
	KindOnAppAdTouch
	KindOrder
	KindGesture
	KindCart
	KindProduct
	KindEvent
	KindCustomObject
	KindNuggAd
	KindMvTesting
	KindRichMedia
)

// Class groups kinds by the dispatch branch they take.
type Class int

const (
	// ClassDefault objects write their parameters and are removed.
	ClassDefault Class = iota
	// ClassScreenLike objects also flush the screen-scoped context that precedes them.
	ClassScreenLike
	// ClassGesture objects may flush pending internal searches.
	ClassGesture
)

// Class returns the dispatch branch for k.
func (k Kind) Class() Class {
	switch k {
	case KindScreen, KindScreenInfo, KindInternalSearch, KindOnAppAdView, KindOrder:
		return ClassScreenLike
	case KindGesture:
		return ClassGesture
	case KindOnAppAdTouch, KindCart, KindProduct, KindEvent, KindCustomObject, KindNuggAd,
		KindMvTesting, KindRichMedia:
		return ClassDefault
	}
	return ClassDefault
}

// IsScreenContext reports whether objects of kind k are flushed by a later screen-like object.
func (k Kind) IsScreenContext() bool {
	switch k {
	case KindScreenInfo, KindInternalSearch, KindOnAppAdView, KindOrder:
		return true
	default:
		return false
	}
}

// IsCustomData reports whether objects of kind k are flushed after every dispatched object.
func (k Kind) IsCustomData() bool {
	return k == KindCustomObject || k == KindNuggAd
}

// ActionSearch is the gesture action that flushes pending internal searches.
const ActionSearch = "S"

// Descriptor is what the dispatcher needs to know about an object.
type Descriptor struct {
	Kind Kind
	// BasketScreen is set on screens that show the cart.
	BasketScreen bool
	// Action is the gesture action code.
	Action string
}

// Object is implemented by every business object.
type Object interface {
	ID() string
	// Timestamp is the creation time in seconds since the epoch.
	Timestamp() float64
	Describe() Descriptor
	SetParams(b *buffer.Buffer)
}

// Base carries the identity fields shared by all objects. Embed it to satisfy ID and Timestamp.
type Base struct {
	id        string
	timestamp float64
}

// NewBase creates a Base with a fresh id and the current time.
func NewBase() Base {
	return NewBaseAt(nowSeconds())
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// NewBaseAt creates a Base with a fresh id and the given timestamp.
func NewBaseAt(timestamp float64) Base {
	return Base{id: uuid.NewString(), timestamp: timestamp}
}

//nolint:revive // Object implementation
func (b Base) ID() string { return b.id }

//nolint:revive // Object implementation
func (b Base) Timestamp() float64 { return b.timestamp }

// Restamp sets the timestamp to the current time. Registered objects must be restamped through
// Registry.Restamp so that the registry never reads a timestamp while it changes.
func (b *Base) Restamp() { b.timestamp = nowSeconds() }

package attracker

import (
	"github.com/atinternet/go-tracker/internal/hit"
	"github.com/atinternet/go-tracker/internal/notify"
	"github.com/atinternet/go-tracker/internal/param"
	"github.com/atinternet/go-tracker/subsystems"
)

// ParamOptions controls how a parameter set with SetParamWithOptions is stored and serialized.
type ParamOptions = param.Options

// RelativePosition places a parameter relative to the rest of the hit.
type RelativePosition = param.RelativePosition

// Relative positions for ParamOptions.
const (
	PositionNone   = param.None
	PositionFirst  = param.First
	PositionLast   = param.Last
	PositionBefore = param.Before
	PositionAfter  = param.After
)

// Notification is one delegate callback, as seen by a notification listener.
type Notification = notify.Notification

// NotificationKind says which delegate method a Notification corresponds to.
type NotificationKind = notify.Kind

// Notification kinds.
const (
	NotificationBuildEnd = notify.BuildEnd
	NotificationSendEnd  = notify.SendEnd
	NotificationSaveEnd  = notify.SaveEnd
	NotificationWarning  = notify.Warning
	NotificationError    = notify.Error
)

// Hit is a built hit, as kept in offline storage.
type Hit = hit.Hit

// HitType is the semantic category of a hit, derived from its URL.
type HitType = hit.Type

// ClassifyHit returns the type of the hit with the given URL.
func ClassifyHit(url string) HitType {
	return hit.Classify(url)
}

// HitEvent is what a live tagging sink receives for each built hit.
type HitEvent = subsystems.HitEvent

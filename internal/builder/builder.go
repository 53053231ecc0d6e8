// Package builder serializes a snapshot of the parameter buffer into a hit URL.
package builder

import (
	"fmt"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/atinternet/go-tracker/internal/hit"
	"github.com/atinternet/go-tracker/internal/param"
	"github.com/atinternet/go-tracker/subsystems"
)

// Sender receives every hit the builder produces.
type Sender interface {
	Send(h hit.Hit)
}

// Saver stores a hit for a later send.
type Saver interface {
	SaveOffline(h hit.Hit)
}

// Builder is the work unit that turns one dispatch into a hit.
type Builder struct {
	endpoint   Endpoint
	persistent []param.Param
	volatile   []param.Param
	delegate   subsystems.Delegate
	live       subsystems.LiveTaggingSink
	sender     Sender
	overflow   Saver
	loggers    ldlog.Loggers
}

// Collaborators are the components a Builder reports to. Any of them may be nil.
type Collaborators struct {
	Delegate    subsystems.Delegate
	LiveTagging subsystems.LiveTaggingSink
	Sender      Sender
	// Overflow receives the hit when the builder has to run outside the work queue.
	Overflow Saver
	Loggers  ldlog.Loggers
}

// New captures the parameter lists. The slices must not be modified afterward.
func New(endpoint Endpoint, persistent, volatile []param.Param, collaborators Collaborators) *Builder {
	return &Builder{
		endpoint:   endpoint,
		persistent: persistent,
		volatile:   volatile,
		delegate:   collaborators.Delegate,
		live:       collaborators.LiveTagging,
		sender:     collaborators.Sender,
		overflow:   collaborators.Overflow,
		loggers:    collaborators.Loggers,
	}
}

// Run builds the hit, reports the outcome, and hands the hit to the sender.
func (b *Builder) Run() {
	if h, ok := b.buildAndReport(); ok && b.sender != nil {
		b.sender.Send(h)
	}
}

// RunOffline builds the hit like Run but hands it to the overflow saver instead of the sender.
// It is used when the work queue cannot take the builder.
func (b *Builder) RunOffline() {
	if h, ok := b.buildAndReport(); ok && b.overflow != nil {
		b.overflow.SaveOffline(h)
	}
}

func (b *Builder) buildAndReport() (hit.Hit, bool) {
	h, err := b.Build()
	if err != nil {
		b.loggers.Errorf("Unable to build hit: %s", err)
		if b.delegate != nil {
			b.delegate.BuildDidEnd(subsystems.StatusFailed, err.Error())
		}
		return h, false
	}
	if b.delegate != nil {
		b.delegate.BuildDidEnd(subsystems.StatusSuccess, h.URL)
	}
	if b.live != nil {
		b.live.Publish(subsystems.HitEvent{URL: h.URL, Type: h.Type().String(), CreationDate: h.CreationDate})
	}
	return h, true
}

// Build produces the hit without side effects other than delegate warnings.
func (b *Builder) Build() (hit.Hit, error) {
	prefix, err := b.endpoint.Prefix()
	if err != nil {
		return hit.Hit{}, err
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, s := range arrange(merge(b.persistent, b.volatile)) {
		value := b.render(s)
		sb.WriteString("&")
		sb.WriteString(s.key)
		sb.WriteString("=")
		sb.WriteString(value)
	}
	return hit.New(sb.String()), nil
}

func (b *Builder) render(s slot) string {
	opts := s.options()
	var value string
	if s.isJSON() {
		value = b.renderJSON(s)
	} else {
		values := make([]string, 0, len(s.params))
		for _, p := range s.params {
			v, err := p.Evaluate()
			if err != nil {
				b.warn(fmt.Sprintf("Unable to evaluate parameter %q: %s", p.Key, err))
			}
			values = append(values, v)
		}
		value = strings.Join(values, opts.Separator)
	}
	if opts.Encode {
		value = Encode(value)
	}
	return value
}

func (b *Builder) renderJSON(s slot) string {
	values := make([]string, 0, len(s.params))
	for _, p := range s.params {
		v, err := p.Evaluate()
		if err != nil {
			b.warn(fmt.Sprintf("Parameter %q is not JSON-serializable, sending an empty object: %s", p.Key, err))
			v = "{}"
		}
		values = append(values, v)
	}
	if len(values) == 1 {
		return values[0]
	}
	merged, ok := mergeJSONObjects(values)
	if !ok {
		return strings.Join(values, s.options().Separator)
	}
	return merged
}

func (b *Builder) warn(message string) {
	if b.delegate != nil {
		b.delegate.WarningDidOccur(message)
	} else {
		b.loggers.Warn(message)
	}
}

// mergeJSONObjects combines JSON objects, later keys overriding earlier ones. It fails if any
// value is not an object.
func mergeJSONObjects(values []string) (string, bool) {
	merged := ldvalue.ObjectBuild()
	for _, raw := range values {
		v := ldvalue.Parse([]byte(raw))
		if v.Type() != ldvalue.ObjectType {
			return "", false
		}
		for _, key := range v.Keys(nil) {
			merged.Set(key, v.GetByKey(key))
		}
	}
	// Marshal through a plain map so that keys come out sorted.
	data, err := json.Marshal(merged.Build().AsArbitraryValue())
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Encode percent-encodes a parameter value. Spaces become %20.
func Encode(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

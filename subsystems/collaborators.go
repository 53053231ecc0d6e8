package subsystems

import (
	"time"
)

// ConfigProvider is a read-only string-keyed configuration source.
//
// Changes made to the underlying source after a tracker has been created are not guaranteed to
// be observed by that tracker.
type ConfigProvider interface {
	Get(key string) (string, bool)
	All() map[string]string
}

// MetricsProvider supplies the life-cycle and crash data appended to every hit.
type MetricsProvider interface {
	// Metrics returns JSON-serializable life-cycle metrics.
	Metrics() map[string]interface{}
	// Compute returns a crash report, if one is pending.
	Compute() (map[string]interface{}, bool)
}

// TaskHandle identifies a background execution window.
type TaskHandle int64

// BackgroundTaskHost grants bounded background execution windows. The host calls onExpire when
// the window is about to close.
type BackgroundTaskHost interface {
	Begin(onExpire func()) TaskHandle
	End(handle TaskHandle)
}

// Status is the outcome reported to a Delegate.
type Status int

const (
	// StatusSuccess means the step completed.
	StatusSuccess Status = iota
	// StatusFailed means the step did not complete.
	StatusFailed
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "failed"
}

// Delegate receives developer-facing notifications about the pipeline. Calls are made
// asynchronously and their duration never delays hit delivery.
type Delegate interface {
	BuildDidEnd(status Status, message string)
	SendDidEnd(status Status, message string)
	SaveDidEnd(message string)
	WarningDidOccur(message string)
	ErrorDidOccur(message string)
}

// Encryptor protects data written to durable storage.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// HitEvent is the view of a hit given to a LiveTaggingSink.
type HitEvent struct {
	URL          string
	Type         string
	CreationDate time.Time
	Offline      bool
}

// LiveTaggingSink mirrors hits to a debugging console. Publish must not block and failures are
// not reported.
type LiveTaggingSink interface {
	Publish(event HitEvent)
	Close() error
}

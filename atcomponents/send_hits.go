package atcomponents

import (
	"strconv"
	"time"

	"github.com/atinternet/go-tracker/internal/sender"
	"github.com/atinternet/go-tracker/internal/workqueue"
	"github.com/atinternet/go-tracker/subsystems"
)

const (
	// DefaultMaxRetryCount is the number of retries after a failed delivery attempt.
	DefaultMaxRetryCount = sender.DefaultMaxRetryCount
	// DefaultRetryDelay is the base delay between delivery attempts.
	DefaultRetryDelay = sender.DefaultRetryDelay
	// DefaultRetryJitter is the randomized fraction of the retry delay.
	DefaultRetryJitter = sender.DefaultRetryJitter
	// DefaultQueueCapacity is the number of work units a tracker queues before dropping hits.
	DefaultQueueCapacity = workqueue.DefaultCapacity
)

// HitDeliveryBuilder provides methods for configuring hit delivery.
//
//	config := attracker.Config{
//	    Hits: atcomponents.SendHits().MaxRetryCount(3).RetryDelay(time.Second),
//	}
type HitDeliveryBuilder struct {
	maxRetryCount *int
	retryDelay    time.Duration
	retryJitter   float64
	queueCapacity int
}

// SendHits returns a configuration builder for hit delivery.
func SendHits() *HitDeliveryBuilder {
	return &HitDeliveryBuilder{
		retryDelay:    DefaultRetryDelay,
		retryJitter:   DefaultRetryJitter,
		queueCapacity: DefaultQueueCapacity,
	}
}

// MaxRetryCount sets how many times a failed delivery is retried before the hit is stored.
// Zero disables retries. If not set, the "maxRetryCount" configuration key is used.
func (b *HitDeliveryBuilder) MaxRetryCount(n int) *HitDeliveryBuilder {
	if n < 0 {
		n = 0
	}
	b.maxRetryCount = &n
	return b
}

// RetryDelay sets the base delay between attempts.
func (b *HitDeliveryBuilder) RetryDelay(delay time.Duration) *HitDeliveryBuilder {
	if delay < 0 {
		delay = 0
	}
	b.retryDelay = delay
	return b
}

// RetryJitter sets the fraction of the delay that is randomized, between 0 and 1.
func (b *HitDeliveryBuilder) RetryJitter(ratio float64) *HitDeliveryBuilder {
	switch {
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}
	b.retryJitter = ratio
	return b
}

// QueueCapacity sets the number of work units a tracker can queue.
func (b *HitDeliveryBuilder) QueueCapacity(capacity int) *HitDeliveryBuilder {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	b.queueCapacity = capacity
	return b
}

// Build is called internally by the tracker.
func (b *HitDeliveryBuilder) Build(context subsystems.ClientContext) (subsystems.HitDeliveryConfiguration, error) {
	retries := DefaultMaxRetryCount
	if b.maxRetryCount != nil {
		retries = *b.maxRetryCount
	} else if s, ok := context.GetConfig().Get(ConfigMaxRetryCount); ok {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			context.GetLogging().Loggers.Warnf("Ignoring invalid %s value %q", ConfigMaxRetryCount, s)
		} else {
			retries = n
		}
	}
	return subsystems.HitDeliveryConfiguration{
		MaxRetryCount: retries,
		RetryDelay:    b.retryDelay,
		RetryJitter:   b.retryJitter,
		QueueCapacity: b.queueCapacity,
	}, nil
}

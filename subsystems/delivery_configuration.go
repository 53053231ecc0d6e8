package subsystems

import "time"

// HitDeliveryConfiguration controls how built hits are sent. See atcomponents.SendHits.
type HitDeliveryConfiguration struct {
	// MaxRetryCount is the number of retries after the first failed attempt.
	MaxRetryCount int
	// RetryDelay is the base delay between attempts.
	RetryDelay time.Duration
	// RetryJitter is the fraction of RetryDelay that is randomized.
	RetryJitter float64
	// QueueCapacity bounds the number of work units waiting on a tracker's queue.
	QueueCapacity int
}

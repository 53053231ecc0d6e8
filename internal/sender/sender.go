// Package sender delivers hits to the collector, falling back to offline storage.
package sender

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"golang.org/x/sync/singleflight"

	"github.com/atinternet/go-tracker/internal/hit"
	"github.com/atinternet/go-tracker/internal/storage"
	"github.com/atinternet/go-tracker/subsystems"
)

// Defaults for Config.
const (
	DefaultMaxRetryCount = 5
	DefaultRetryDelay    = 2 * time.Second
	DefaultRetryJitter   = 0.5
)

// OfflineTimeKey is appended to stored hits when they are finally sent.
const OfflineTimeKey = "olt"

// Config controls delivery.
type Config struct {
	Mode           subsystems.StorageMode
	MaxRetryCount  int
	RetryDelay     time.Duration
	RetryJitter    float64
	RequestTimeout time.Duration
	Headers        http.Header
	// StorageAllowed is consulted before a hit is written to storage. Nil means always.
	StorageAllowed func() bool
}

// Sender delivers hits. Send and Drain are expected to be called from the tracker's work queue,
// but Drain is also safe to call concurrently: overlapping drains collapse into one.
type Sender struct {
	config   Config
	client   *http.Client
	store    storage.HitStore
	delegate subsystems.Delegate
	loggers  ldlog.Loggers

	sleep      func(ctx context.Context, d time.Duration) error
	drainGroup singleflight.Group
	units      unitSet
	rand       *rand.Rand
	randLock   sync.Mutex
}

// DrainResult summarizes one drain of the offline store.
type DrainResult struct {
	Sent      int
	Dropped   int
	Remaining int
	// Completed is false if the drain stopped early on a failure or a cancellation.
	Completed bool
}

// New creates a Sender. A nil client means http.DefaultClient.
func New(config Config, client *http.Client, store storage.HitStore, delegate subsystems.Delegate,
	loggers ldlog.Loggers) *Sender {
	if config.MaxRetryCount < 0 {
		config.MaxRetryCount = DefaultMaxRetryCount
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.RetryJitter < 0 || config.RetryJitter > 1 {
		config.RetryJitter = DefaultRetryJitter
	}
	if client == nil {
		client = http.DefaultClient
	}
	if store == nil {
		store = storage.NewNullStore()
	}
	return &Sender{
		config:   config,
		client:   client,
		store:    store,
		delegate: delegate,
		loggers:  loggers,
		sleep:    sleepContext,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Store returns the offline store the sender writes to.
func (s *Sender) Store() storage.HitStore {
	return s.store
}

// Send delivers a freshly built hit.
func (s *Sender) Send(h hit.Hit) {
	if s.config.Mode == subsystems.StorageAlways && s.storageAllowed() {
		h.IsOffline = true
		s.save(h)
		return
	}
	if s.store.Count() > 0 {
		if result := s.Drain(context.Background()); !result.Completed {
			// Keep stored hits ahead of this one.
			h.IsOffline = true
			s.saveOrDrop(h, "offline hits could not be delivered")
			return
		}
	}
	retries, err := s.deliver(context.Background(), h.URL)
	switch {
	case err == nil:
		s.notifySend(subsystems.StatusSuccess, h.URL)
	case !isRecoverable(err):
		s.notifySend(subsystems.StatusFailed, h.URL)
		s.warn(fmt.Sprintf("Hit could not be delivered and was dropped: %s", err))
	default:
		s.notifySend(subsystems.StatusFailed, h.URL)
		h.IsOffline = true
		h.RetryCount = retries
		s.saveOrDrop(h, err.Error())
	}
}

// SaveOffline stores a hit that could not be queued for delivery, so that the next drain sends
// it. The hit is dropped with a warning when storage is not allowed.
func (s *Sender) SaveOffline(h hit.Hit) {
	h.IsOffline = true
	s.saveOrDrop(h, "work queue is full")
}

// deliver sends url, retrying recoverable failures. It returns the number of retries made.
func (s *Sender) deliver(ctx context.Context, url string) (int, error) {
	for retries := 0; ; retries++ {
		err := s.get(ctx, url)
		if err == nil {
			return retries, nil
		}
		if retries >= s.config.MaxRetryCount {
			s.loggers.Warnf("Error sending hit (giving up after %d retries): %s", retries, err)
			return retries, err
		}
		if !checkIfErrorIsRecoverableAndLog(s.loggers, err, "will retry") {
			return retries, err
		}
		if sleepErr := s.sleep(ctx, s.retryDelay()); sleepErr != nil {
			return retries, err
		}
	}
}

func isRecoverable(err error) bool {
	switch e := err.(type) {
	case httpStatusError:
		return isHTTPErrorRecoverable(e.Code)
	case malformedHitError:
		return false
	default:
		return true
	}
}

// retryDelay is RetryDelay with up to RetryJitter of it removed at random.
func (s *Sender) retryDelay() time.Duration {
	base := s.config.RetryDelay
	if s.config.RetryJitter == 0 {
		return base
	}
	s.randLock.Lock()
	f := s.rand.Float64()
	s.randLock.Unlock()
	return base - time.Duration(float64(base)*s.config.RetryJitter*f)
}

func (s *Sender) storageAllowed() bool {
	return s.config.Mode != subsystems.StorageNever &&
		(s.config.StorageAllowed == nil || s.config.StorageAllowed())
}

func (s *Sender) saveOrDrop(h hit.Hit, reason string) {
	if !s.storageAllowed() {
		s.warn(fmt.Sprintf("Hit could not be delivered and offline storage is disabled; dropping it (%s)", reason))
		return
	}
	s.save(h)
}

func (s *Sender) save(h hit.Hit) {
	if _, err := s.store.Insert(h); err != nil {
		s.loggers.Errorf("Unable to store hit: %s", err)
		if s.delegate != nil {
			s.delegate.ErrorDidOccur(fmt.Sprintf("Unable to store hit: %s", err))
		}
		return
	}
	if s.delegate != nil {
		s.delegate.SaveDidEnd(h.URL)
	}
}

// Drain sends every stored hit, oldest first, stopping at the first failure. Concurrent calls
// share one drain.
func (s *Sender) Drain(ctx context.Context) DrainResult {
	result, _, _ := s.drainGroup.Do("drain", func() (interface{}, error) {
		return s.drain(ctx), nil
	})
	return result.(DrainResult)
}

func (s *Sender) drain(ctx context.Context) DrainResult {
	var result DrainResult
	units := s.units.reset(s.store.Get())
	defer s.units.clear()
	for i, u := range units {
		if ctx.Err() != nil || !u.start() {
			result.Remaining = len(units) - i
			return result
		}
		ok := s.sendStored(ctx, u.hit, &result)
		u.finish()
		if !ok {
			result.Remaining = len(units) - i
			return result
		}
	}
	result.Completed = true
	return result
}

func (s *Sender) sendStored(ctx context.Context, h hit.Hit, result *DrainResult) bool {
	url := withOfflineTime(h)
	err := s.get(ctx, url)
	switch {
	case err == nil:
		s.store.DeleteHit(h.ID)
		s.notifySend(subsystems.StatusSuccess, url)
		result.Sent++
		return true
	case !isRecoverable(err):
		s.store.DeleteHit(h.ID)
		s.notifySend(subsystems.StatusFailed, url)
		s.warn(fmt.Sprintf("Stored hit could not be delivered and was dropped: %s", err))
		result.Dropped++
		return true
	default:
		s.loggers.Warnf("Error sending stored hit (will try again later): %s", err)
		s.store.UpdateRetryCount(h.ID, h.RetryCount+1)
		s.notifySend(subsystems.StatusFailed, url)
		return false
	}
}

// CancelPendingOffline cancels the stored-hit sends of the current drain that have not started.
// A send already in progress completes. It returns the number of sends cancelled.
func (s *Sender) CancelPendingOffline() int {
	n := s.units.cancelPending()
	if n > 0 {
		s.loggers.Infof("Cancelled %d pending offline hit(s)", n)
	}
	return n
}

func withOfflineTime(h hit.Hit) string {
	if strings.Contains(h.URL, "&"+OfflineTimeKey+"=") {
		return h.URL
	}
	return h.URL + "&" + OfflineTimeKey + "=" + strconv.FormatInt(h.CreationDate.Unix(), 10)
}

func (s *Sender) notifySend(status subsystems.Status, url string) {
	if s.delegate != nil {
		s.delegate.SendDidEnd(status, url)
	}
}

func (s *Sender) warn(message string) {
	if s.delegate != nil {
		s.delegate.WarningDidOccur(message)
	} else {
		s.loggers.Warn(message)
	}
}

package sender

import (
	"sync"
	"sync/atomic"

	"github.com/atinternet/go-tracker/internal/hit"
)

const (
	unitPending int32 = iota
	unitExecuting
	unitDone
	unitCancelled
)

// offlineUnit is the send of one stored hit. It can be cancelled until it starts executing.
type offlineUnit struct {
	hit   hit.Hit
	state int32
}

func (u *offlineUnit) start() bool {
	return atomic.CompareAndSwapInt32(&u.state, unitPending, unitExecuting)
}

func (u *offlineUnit) finish() {
	atomic.StoreInt32(&u.state, unitDone)
}

func (u *offlineUnit) cancel() bool {
	return atomic.CompareAndSwapInt32(&u.state, unitPending, unitCancelled)
}

func (u *offlineUnit) isExecuting() bool {
	return atomic.LoadInt32(&u.state) == unitExecuting
}

// unitSet tracks the units of the drain in progress.
type unitSet struct {
	units []*offlineUnit
	lock  sync.Mutex
}

func (s *unitSet) reset(hits []hit.Hit) []*offlineUnit {
	units := make([]*offlineUnit, len(hits))
	for i, h := range hits {
		units[i] = &offlineUnit{hit: h}
	}
	s.lock.Lock()
	s.units = units
	s.lock.Unlock()
	return units
}

func (s *unitSet) clear() {
	s.lock.Lock()
	s.units = nil
	s.lock.Unlock()
}

// cancelPending cancels every unit that is neither executing nor finished.
func (s *unitSet) cancelPending() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	n := 0
	for _, u := range s.units {
		if u.hit.IsOffline && !u.isExecuting() && u.cancel() {
			n++
		}
	}
	return n
}

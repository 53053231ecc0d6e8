package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldtime"

	"github.com/atinternet/go-tracker/internal/hit"
)

// HitStore is the durable queue of undelivered hits.
//
// Count and the Delete methods return -1 when the outcome is unknown because of an I/O error;
// callers must not read that as "empty".
type HitStore interface {
	Insert(h hit.Hit) (hit.Hit, error)
	Get() []hit.Hit
	Count() int
	Delete() int
	DeleteOlderThan(t time.Time) int
	DeleteOlderThanDays(days int) int
	DeleteHit(id int64) bool
	UpdateRetryCount(id int64, retryCount int) bool
	First() (hit.Hit, bool)
	Last() (hit.Hit, bool)
}

type hitRow struct {
	ID           int64  `db:"id"`
	URL          string `db:"url"`
	CreationDate int64  `db:"creation_date"`
	RetryCount   int    `db:"retry_count"`
	IsOffline    bool   `db:"is_offline"`
	Flags        int    `db:"flags"`
}

type sqlHitStore struct {
	db      *Database
	codec   Codec
	loggers ldlog.Loggers
}

// NewHitStore returns a HitStore backed by db.
func NewHitStore(db *Database, codec Codec, loggers ldlog.Loggers) HitStore {
	return &sqlHitStore{db: db, codec: codec, loggers: loggers}
}

func (s *sqlHitStore) Insert(h hit.Hit) (hit.Hit, error) {
	stored, flags, err := s.codec.encode(h.URL)
	if err != nil {
		return h, err
	}
	if h.CreationDate.IsZero() {
		h.CreationDate = time.Now()
	}
	result, err := s.db.exec("insert-hit", stored, int64(ldtime.UnixMillisFromTime(h.CreationDate)),
		h.RetryCount, h.IsOffline, flags)
	if err != nil {
		return h, err
	}
	if h.ID, err = result.LastInsertId(); err != nil {
		return h, err
	}
	return h, nil
}

func (s *sqlHitStore) Get() []hit.Hit {
	var rows []hitRow
	if err := s.db.selectRows("list-hits", &rows); err != nil {
		s.loggers.Errorf("Unable to read stored hits: %s", err)
		return nil
	}
	ret := make([]hit.Hit, 0, len(rows))
	for _, row := range rows {
		if h, ok := s.fromRow(row); ok {
			ret = append(ret, h)
		}
	}
	return ret
}

func (s *sqlHitStore) fromRow(row hitRow) (hit.Hit, bool) {
	url, err := s.codec.decode(row.URL, row.Flags)
	if err != nil {
		// An unreadable row would otherwise keep the store non-empty forever.
		s.loggers.Warnf("Deleting unreadable stored hit %d: %s", row.ID, err)
		s.DeleteHit(row.ID)
		return hit.Hit{}, false
	}
	return hit.Hit{
		ID:           row.ID,
		URL:          url,
		CreationDate: time.UnixMilli(row.CreationDate),
		RetryCount:   row.RetryCount,
		IsOffline:    row.IsOffline,
	}, true
}

func (s *sqlHitStore) Count() int {
	var n int
	if err := s.db.get("count-hits", &n); err != nil {
		s.loggers.Errorf("Unable to count stored hits: %s", err)
		return -1
	}
	return n
}

func (s *sqlHitStore) Delete() int {
	return s.deleteWith("delete-all-hits")
}

func (s *sqlHitStore) DeleteOlderThan(t time.Time) int {
	return s.deleteWith("delete-hits-before", int64(ldtime.UnixMillisFromTime(t)))
}

func (s *sqlHitStore) DeleteOlderThanDays(days int) int {
	return s.DeleteOlderThan(time.Now().AddDate(0, 0, -days))
}

func (s *sqlHitStore) deleteWith(name string, args ...interface{}) int {
	result, err := s.db.exec(name, args...)
	if err != nil {
		s.loggers.Errorf("Unable to delete stored hits: %s", err)
		return -1
	}
	n, err := result.RowsAffected()
	if err != nil {
		return -1
	}
	return int(n)
}

func (s *sqlHitStore) DeleteHit(id int64) bool {
	return s.deleteWith("delete-hit", id) == 1
}

func (s *sqlHitStore) UpdateRetryCount(id int64, retryCount int) bool {
	result, err := s.db.exec("update-retry-count", retryCount, id)
	if err != nil {
		s.loggers.Errorf("Unable to update stored hit %d: %s", id, err)
		return false
	}
	n, err := result.RowsAffected()
	return err == nil && n == 1
}

func (s *sqlHitStore) First() (hit.Hit, bool) {
	return s.one("first-hit")
}

func (s *sqlHitStore) Last() (hit.Hit, bool) {
	return s.one("last-hit")
}

func (s *sqlHitStore) one(name string) (hit.Hit, bool) {
	var row hitRow
	if err := s.db.get(name, &row); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.loggers.Errorf("Unable to read stored hit: %s", err)
		}
		return hit.Hit{}, false
	}
	return s.fromRow(row)
}

// NewNullStore returns the store used when offline storage is disabled. Its mutators succeed
// without doing anything and it never holds a hit.
func NewNullStore() HitStore {
	return nullHitStore{}
}

type nullHitStore struct{}

func (nullHitStore) Insert(h hit.Hit) (hit.Hit, error) { return h, nil }
func (nullHitStore) Get() []hit.Hit                    { return nil }
func (nullHitStore) Count() int                        { return 0 }
func (nullHitStore) Delete() int                       { return 0 }
func (nullHitStore) DeleteOlderThan(time.Time) int     { return 0 }
func (nullHitStore) DeleteOlderThanDays(int) int       { return 0 }
func (nullHitStore) DeleteHit(int64) bool              { return true }
func (nullHitStore) UpdateRetryCount(int64, int) bool  { return true }
func (nullHitStore) First() (hit.Hit, bool)            { return hit.Hit{}, false }
func (nullHitStore) Last() (hit.Hit, bool)             { return hit.Hit{}, false }

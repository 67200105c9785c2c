package occurrence

import (
	"fmt"
	"sync"
	"time"

	"lifeplanner-api/internal/cache"
	"lifeplanner-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeriesKey identifies the series a task belongs to. Tasks created before
// series ids existed fall back to (title, recurrence type, interval).
func SeriesKey(t *models.Task) string {
	if t.SeriesID != nil && *t.SeriesID != "" {
		return "series:" + *t.SeriesID
	}
	return fmt.Sprintf("legacy:%s|%s|%d", t.Title, t.RecurrenceType, t.Interval())
}

// EnsureSeriesID gives a recurring task a series id if it has none.
func EnsureSeriesID(t *models.Task) {
	if t.IsRecurring() && (t.SeriesID == nil || *t.SeriesID == "") {
		t.SeriesID = models.StringPtr(uuid.NewString())
	}
}

// openMembers scopes q to incomplete members of t's series other than t.
func openMembers(q *gorm.DB, t *models.Task) *gorm.DB {
	q = q.Model(&models.Task{}).Where("is_complete = ? AND id <> ?", false, t.ID)
	if t.SeriesID != nil && *t.SeriesID != "" {
		return q.Where("series_id = ?", *t.SeriesID)
	}
	return q.Where("title = ? AND recurrence_type = ? AND recurrence_interval = ?",
		t.Title, t.RecurrenceType, t.Interval())
}

// sameSeries is the in-memory form of openMembers' series match.
func sameSeries(t, other *models.Task) bool {
	if t.SeriesID != nil && *t.SeriesID != "" {
		return other.SeriesID != nil && *other.SeriesID == *t.SeriesID
	}
	return other.Title == t.Title &&
		other.RecurrenceType == t.RecurrenceType &&
		other.Interval() == t.Interval()
}

// cascadeCondition selects members of t's series for deletion purposes.
// Legacy rows match on title and recurrence type only.
func cascadeCondition(t *models.Task) (string, []any) {
	if t.SeriesID != nil && *t.SeriesID != "" {
		return "series_id = ?", []any{*t.SeriesID}
	}
	return "title = ? AND recurrence_type = ?", []any{t.Title, t.RecurrenceType}
}

// SeriesLocks serializes spawns per series inside one process.
// Idle locks expire after ttl and are dropped by Purge.
type SeriesLocks struct {
	locks cache.Cache[string, *sync.Mutex]
	ttl   time.Duration
}

// NewSeriesLocks returns an empty lock table.
func NewSeriesLocks(ttl time.Duration) *SeriesLocks {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SeriesLocks{
		locks: cache.NewSimpleCache[string, *sync.Mutex](),
		ttl:   ttl,
	}
}

// Lock acquires the mutex for key and returns its release func.
func (s *SeriesLocks) Lock(key string) func() {
	mu := s.locks.GetOrSet(key, s.ttl, func() *sync.Mutex { return &sync.Mutex{} })
	mu.Lock()
	return mu.Unlock
}

// Len returns the number of live locks.
func (s *SeriesLocks) Len() int {
	return s.locks.Len()
}

// Purge drops locks idle for longer than the ttl.
func (s *SeriesLocks) Purge() int {
	return s.locks.PurgeExpired()
}

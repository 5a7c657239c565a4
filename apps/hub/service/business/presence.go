package business

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/salavathhari/devcollab/apps/hub/service"
)

// Presence statuses a user can set explicitly.
const (
	StatusActive = "active"
	StatusAway   = "away"
	StatusBusy   = "busy"
)

// PresenceRecord is the stored presence state for a user within a project.
type PresenceRecord struct {
	UserID    string    `json:"userId"`
	ProjectID string    `json:"projectId"`
	Status    string    `json:"status"`
	LastSeen  time.Time `json:"lastSeen"`

	// Review cursor position, populated while the user is in a review session.
	FilePath   string `json:"filePath,omitempty"`
	LineNumber int    `json:"lineNumber,omitempty"`
}

// PresenceTracker keeps per-project presence records in a keyed store and
// applies a liveness window at read time: a record whose last heartbeat is
// older than the window is reported as away regardless of its stored status.
type PresenceTracker struct {
	store  KeyedStore[PresenceRecord]
	window time.Duration
	now    func() time.Time

	// Serializes the read-modify-write per record so a heartbeat and a
	// cursor update from two tabs never clobber each other.
	locks sync.Map
}

func NewPresenceTracker(store KeyedStore[PresenceRecord], window time.Duration) *PresenceTracker {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &PresenceTracker{store: store, window: window, now: time.Now}
}

func presenceKey(projectID, userID string) string {
	return fmt.Sprintf("presence:%s:%s", projectID, userID)
}

func presencePrefix(projectID string) string {
	return fmt.Sprintf("presence:%s:", projectID)
}

func (t *PresenceTracker) recordLock(key string) *sync.Mutex {
	v, _ := t.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Touch refreshes the user's heartbeat without changing their status. A user
// with no record yet starts as active.
func (t *PresenceTracker) Touch(ctx context.Context, projectID, userID string) error {
	key := presenceKey(projectID, userID)
	lock := t.recordLock(key)
	lock.Lock()
	defer lock.Unlock()

	rec, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		rec = PresenceRecord{UserID: userID, ProjectID: projectID, Status: StatusActive}
	}
	rec.LastSeen = t.now()
	return t.store.Set(ctx, key, rec, 2*t.window)
}

// SetStatus records an explicit status change and refreshes the heartbeat.
func (t *PresenceTracker) SetStatus(ctx context.Context, projectID, userID, status string) error {
	switch status {
	case StatusActive, StatusAway, StatusBusy:
	default:
		return fmt.Errorf("%w: got %q", service.ErrInvalidStatus, status)
	}
	key := presenceKey(projectID, userID)
	lock := t.recordLock(key)
	lock.Lock()
	defer lock.Unlock()

	rec, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		rec = PresenceRecord{UserID: userID, ProjectID: projectID}
	}
	rec.Status = status
	rec.LastSeen = t.now()
	return t.store.Set(ctx, key, rec, 2*t.window)
}

// RecordCursor stores the user's review cursor position alongside presence.
func (t *PresenceTracker) RecordCursor(ctx context.Context, projectID, userID, filePath string, line int) error {
	key := presenceKey(projectID, userID)
	lock := t.recordLock(key)
	lock.Lock()
	defer lock.Unlock()

	rec, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		rec = PresenceRecord{UserID: userID, ProjectID: projectID, Status: StatusActive}
	}
	rec.FilePath = filePath
	rec.LineNumber = line
	rec.LastSeen = t.now()
	return t.store.Set(ctx, key, rec, 2*t.window)
}

// MarkAway flips the stored status to away, used on disconnect cleanup.
func (t *PresenceTracker) MarkAway(ctx context.Context, projectID, userID string) error {
	key := presenceKey(projectID, userID)
	lock := t.recordLock(key)
	lock.Lock()
	defer lock.Unlock()

	rec, ok, err := t.store.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	rec.Status = StatusAway
	rec.FilePath = ""
	rec.LineNumber = 0
	return t.store.Set(ctx, key, rec, 2*t.window)
}

// Get returns the effective presence for one user, applying the liveness
// window.
func (t *PresenceTracker) Get(ctx context.Context, projectID, userID string) (PresenceRecord, bool, error) {
	rec, ok, err := t.store.Get(ctx, presenceKey(projectID, userID))
	if err != nil || !ok {
		return PresenceRecord{}, false, err
	}
	return t.effective(rec), true, nil
}

// Project returns effective presence for every user with a record in the
// project, ordered by user id for deterministic payloads.
func (t *PresenceTracker) Project(ctx context.Context, projectID string) ([]PresenceRecord, error) {
	var out []PresenceRecord
	err := t.store.ForEach(ctx, presencePrefix(projectID), func(_ string, rec PresenceRecord) bool {
		out = append(out, t.effective(rec))
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (t *PresenceTracker) effective(rec PresenceRecord) PresenceRecord {
	if t.now().Sub(rec.LastSeen) > t.window && rec.Status != StatusAway {
		rec.Status = StatusAway
	}
	return rec
}

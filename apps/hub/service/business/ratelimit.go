package business

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type RateWindow struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// RateLimiter enforces a fixed window per user: at most maxEvents rate-limited
// events per window. The window resets fully once its duration elapses, so a
// user who hits the cap regains capacity at the next window boundary.
type RateLimiter struct {
	store     KeyedStore[RateWindow]
	window    time.Duration
	maxEvents int
	now       func() time.Time

	// Serializes the read-modify-write per user so two tabs racing never
	// lose a count.
	locks sync.Map
}

func NewRateLimiter(store KeyedStore[RateWindow], window time.Duration, maxEvents int) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if maxEvents <= 0 {
		maxEvents = 30
	}
	return &RateLimiter{store: store, window: window, maxEvents: maxEvents, now: time.Now}
}

// Allow records one event for the user and reports whether it is within the
// current window's budget. When denied it also returns the seconds remaining
// until the window resets.
func (r *RateLimiter) Allow(ctx context.Context, userID string) (bool, int, error) {
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	key := fmt.Sprintf("ratelimit:%s", userID)
	now := r.now()

	win, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return false, 0, err
	}
	if !ok || now.Sub(win.Start) >= r.window {
		win = RateWindow{Start: now}
	}

	if win.Count >= r.maxEvents {
		retry := int(win.Start.Add(r.window).Sub(now).Seconds())
		if retry < 1 {
			retry = 1
		}
		return false, retry, nil
	}

	win.Count++
	if err := r.store.Set(ctx, key, win, r.window); err != nil {
		return false, 0, err
	}
	return true, 0, nil
}

func (r *RateLimiter) userLock(userID string) *sync.Mutex {
	v, _ := r.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

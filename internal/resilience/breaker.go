package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is the breaker's position in its closed/open/half-open cycle.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the breaker rejects a call without running it.
var ErrOpen = errors.New("breaker open")

// Options configures a Breaker. Zero fields fall back to defaults.
type Options struct {
	// Name identifies the guarded downstream in logs.
	Name string

	// FailureThreshold is the consecutive-failure count that trips the breaker.
	FailureThreshold int

	// CoolDown is how long a tripped breaker rejects calls before probing.
	CoolDown time.Duration

	// ProbeQuota is the number of successful probes needed to close again.
	ProbeQuota int

	// OnStateChange is invoked on every transition.
	OnStateChange func(name string, from, to State)
}

// Breaker fails fast against a downstream that keeps erroring, so a dead
// broadcast backbone cannot stall every room fan-out behind publish retries.
type Breaker struct {
	opts Options

	mu        sync.Mutex
	state     State
	failures  int
	probes    int
	trippedAt time.Time
}

func NewBreaker(opts Options) *Breaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.CoolDown <= 0 {
		opts.CoolDown = 30 * time.Second
	}
	if opts.ProbeQuota <= 0 {
		opts.ProbeQuota = 3
	}
	return &Breaker{opts: opts, state: StateClosed}
}

// Do runs fn unless the breaker is open, in which case it returns ErrOpen
// without calling fn.
func (b *Breaker) Do(fn func() error) error {
	if !b.admit() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

// State reports the current position, folding in cool-down expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position()
}

func (b *Breaker) Name() string { return b.opts.Name }

// position must be called with b.mu held.
func (b *Breaker) position() State {
	if b.state == StateOpen && time.Since(b.trippedAt) >= b.opts.CoolDown {
		b.transition(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.position() {
	case StateOpen:
		return false
	case StateHalfOpen:
		return b.probes < b.opts.ProbeQuota
	default:
		return true
	}
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.position() {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.probes++
		if b.probes >= b.opts.ProbeQuota {
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.position() {
	case StateClosed:
		b.failures++
		if b.failures >= b.opts.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		// One failed probe re-trips immediately.
		b.transition(StateOpen)
	}
}

// transition must be called with b.mu held.
func (b *Breaker) transition(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.failures = 0
	b.probes = 0
	b.trippedAt = time.Now()

	if b.opts.OnStateChange != nil {
		b.opts.OnStateChange(b.opts.Name, prev, next)
	}
}

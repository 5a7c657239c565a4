// Package health aggregates readiness checks over the hub's external
// collaborators, for Kubernetes style liveness/readiness probes.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Report is the aggregate outcome across every registered checker.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one probed component.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

const checkTimeout = 2 * time.Second

// Registry holds the registered checkers and evaluates them on demand.
type Registry struct {
	mu       sync.RWMutex
	checkers []Checker
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a checker.
func (r *Registry) Add(checker Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, checker)
	r.mu.Unlock()
}

// Evaluate runs every checker and folds the results: any unhealthy component
// makes the whole report unhealthy, any degraded one degrades it.
func (r *Registry) Evaluate(ctx context.Context) Report {
	r.mu.RLock()
	checkers := make([]Checker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	report := Report{Status: StatusHealthy, Checks: make(map[string]CheckResult, len(checkers))}
	for _, checker := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		result := checker.Check(checkCtx)
		cancel()

		report.Checks[checker.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			report.Status = StatusUnhealthy
		case StatusDegraded:
			if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

// DatabaseChecker probes the relational store backing the durable records.
type DatabaseChecker struct {
	db *gorm.DB
}

func NewDatabaseChecker(db *gorm.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (c *DatabaseChecker) Name() string { return "database" }

func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	sqlDB, err := c.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	result := CheckResult{Status: StatusHealthy, LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
	}
	return result
}

// RedisChecker probes the shared presence/rate-limit store. A broken cache
// degrades the hub rather than failing it outright: connections stay up and
// individual events report errors.
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	err := c.client.Ping(ctx).Err()
	result := CheckResult{Status: StatusHealthy, LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		result.Status = StatusDegraded
		result.Error = err.Error()
	}
	return result
}

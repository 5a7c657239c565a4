package health_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salavathhari/devcollab/internal/health"
)

type stubChecker struct {
	name   string
	result health.CheckResult
}

func (s stubChecker) Name() string                             { return s.name }
func (s stubChecker) Check(context.Context) health.CheckResult { return s.result }

func TestRegistryAllHealthy(t *testing.T) {
	r := health.NewRegistry()
	r.Add(stubChecker{name: "database", result: health.CheckResult{Status: health.StatusHealthy}})
	r.Add(stubChecker{name: "redis", result: health.CheckResult{Status: health.StatusHealthy}})

	report := r.Evaluate(context.Background())
	assert.Equal(t, health.StatusHealthy, report.Status)
	require.Len(t, report.Checks, 2)
}

func TestRegistryDegradedDoesNotHideUnhealthy(t *testing.T) {
	r := health.NewRegistry()
	r.Add(stubChecker{name: "redis", result: health.CheckResult{Status: health.StatusDegraded, Error: "timeout"}})
	r.Add(stubChecker{name: "database", result: health.CheckResult{
		Status: health.StatusUnhealthy,
		Error:  errors.New("connection refused").Error(),
	}})

	report := r.Evaluate(context.Background())
	assert.Equal(t, health.StatusUnhealthy, report.Status)
	assert.Equal(t, health.StatusDegraded, report.Checks["redis"].Status)
}

func TestRegistryDegradedOnly(t *testing.T) {
	r := health.NewRegistry()
	r.Add(stubChecker{name: "database", result: health.CheckResult{Status: health.StatusHealthy}})
	r.Add(stubChecker{name: "redis", result: health.CheckResult{Status: health.StatusDegraded}})

	report := r.Evaluate(context.Background())
	assert.Equal(t, health.StatusDegraded, report.Status)
}

func TestRegistryEmpty(t *testing.T) {
	report := health.NewRegistry().Evaluate(context.Background())
	assert.Equal(t, health.StatusHealthy, report.Status)
	assert.Empty(t, report.Checks)
}

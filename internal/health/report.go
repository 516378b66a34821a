// Package health implements the dependency health-check engine: one probe per
// dependency and an aggregator that turns probe results into a Report.
package health

import (
	"net/http"
	"time"
)

// Status is the aggregate health of the application.
type Status string

// Aggregate statuses.
const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)

// Dependency names as they appear in the report.
const (
	DependencyDatabase = "database"
	DependencyRedis    = "redis"
)

// TimestampLayout is ISO-8601 extended with a numeric offset, e.g. 2024-01-01T00:00:00+00:00.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// Checks holds the outcome of every dependency probe.
type Checks struct {
	Database bool `json:"database"`
	Redis    bool `json:"redis"`
}

// Healthy reports whether every dependency passed.
func (c Checks) Healthy() bool {
	return c.Database && c.Redis
}

// Report is the response envelope returned by the health endpoint.
type Report struct {
	Status    Status `json:"status"`
	Checks    Checks `json:"checks"`
	Timestamp string `json:"timestamp"`
}

// NewReport builds a report for the given checks at instant now.
func NewReport(checks Checks, now time.Time) Report {
	status := StatusDegraded
	if checks.Healthy() {
		status = StatusOK
	}

	return Report{
		Status:    status,
		Checks:    checks,
		Timestamp: now.UTC().Format(TimestampLayout),
	}
}

// HTTPStatus returns 200 for a healthy report and 503 otherwise.
func (r Report) HTTPStatus() int {
	if r.Status == StatusOK {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// Package metrics keeps lightweight pipeline counters for the periodic
// health log line. No HTTP exposition; the snapshot is logged by the app.
package metrics

import (
	"sync"
	"time"
)

// Metrics aggregates counters across pipeline stages. Safe for concurrent
// use by the worker pool.
type Metrics struct {
	mu sync.RWMutex

	articlesAdmitted    int64
	articlesSkipped     int64
	fetchFailures       int64
	notificationsSent   int64
	duplicateDeliveries int64
	sendFailures        int64

	lastFetch time.Time
	lastError string
}

// New returns zeroed metrics. Passed by reference to the stages that
// report into it.
func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) AddAdmitted(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articlesAdmitted += n
	m.lastFetch = time.Now()
}

func (m *Metrics) AddSkipped(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articlesSkipped += n
}

func (m *Metrics) IncFetchFailure(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchFailures++
	m.lastError = err
}

func (m *Metrics) IncSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationsSent++
}

func (m *Metrics) IncDuplicate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicateDeliveries++
}

func (m *Metrics) IncSendFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendFailures++
}

// Snapshot returns the current counters as slog-friendly key/value pairs.
func (m *Metrics) Snapshot() []any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []any{
		"articles_admitted", m.articlesAdmitted,
		"articles_skipped", m.articlesSkipped,
		"fetch_failures", m.fetchFailures,
		"notifications_sent", m.notificationsSent,
		"duplicate_deliveries", m.duplicateDeliveries,
		"send_failures", m.sendFailures,
	}
	if !m.lastFetch.IsZero() {
		out = append(out, "last_fetch", m.lastFetch.Format(time.RFC3339))
	}
	if m.lastError != "" {
		out = append(out, "last_error", m.lastError)
	}
	return out
}

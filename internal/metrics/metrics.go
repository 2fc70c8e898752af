package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ItemsFetched       int64
	NewTitlesDetected  int64
	StaleItemsFiltered int64
	ReportsPushed      int64
	AIAnalysesRun      int64
	FetchFailures      int64

	// Timings
	LastRunDuration    time.Duration
	TotalRunDuration   time.Duration
	AverageRunDuration time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddItemsFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsFetched += int64(n)
}

func (m *Metrics) AddNewTitles(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NewTitlesDetected += int64(n)
}

func (m *Metrics) AddStaleFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StaleItemsFiltered += int64(n)
}

func (m *Metrics) IncrementReportsPushed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReportsPushed++
}

func (m *Metrics) IncrementAIAnalyses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AIAnalysesRun++
}

func (m *Metrics) IncrementFetchFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchFailures++
}

func (m *Metrics) RecordRunDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++

	if m.RunCount > 0 {
		m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"items_fetched":           m.ItemsFetched,
		"new_titles_detected":     m.NewTitlesDetected,
		"stale_items_filtered":    m.StaleItemsFiltered,
		"reports_pushed":          m.ReportsPushed,
		"ai_analyses_run":         m.AIAnalysesRun,
		"fetch_failures":          m.FetchFailures,
		"last_run_duration_ms":    m.LastRunDuration.Milliseconds(),
		"average_run_duration_ms": m.AverageRunDuration.Milliseconds(),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}

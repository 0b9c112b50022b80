package main

import (
	"database/sql"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event types for analytics tracking
const (
	EvtMatchStart   = "match_start"
	EvtMatchEnd     = "match_end"
	EvtElimination  = "elimination"
	EvtBedDestroyed = "bed_destroyed"
	EvtPurchase     = "purchase"
	EvtAchievement  = "achievement"
	EvtSessionStart = "session_start"
	EvtSessionEnd   = "session_end"
	EvtLevelUp      = "level_up"
)

const (
	analyticsBuffer     = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	AccountID int64
	Data      string // JSON metadata (optional)
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	log    *logrus.Entry

	mu    sync.RWMutex
	peers int
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, analyticsBuffer),
		stop:   make(chan struct{}),
		log:    logger.WithField("component", "analytics"),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType string, accountID int64, data string) {
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		AccountID: accountID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Channel full, drop rather than block the tick
	}
}

// SetConcurrentPeers updates live connection count metric
func (a *Analytics) SetConcurrentPeers(n int) {
	a.mu.Lock()
	a.peers = n
	a.mu.Unlock()
}

// ConcurrentPeers returns the live connection count
func (a *Analytics) ConcurrentPeers() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.peers
}

// Stop drains pending events and shuts the writer down. Safe to call twice.
func (a *Analytics) Stop() {
	a.once.Do(func() { close(a.stop) })
	a.wg.Wait()
}

func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		a.log.WithError(err).Warn("begin tx")
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, account_id, data, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		a.log.WithError(err).Warn("prepare insert")
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		aid := sql.NullInt64{Int64: evt.AccountID, Valid: evt.AccountID > 0}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Type, aid, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			a.log.WithError(err).Warn("insert event")
		}
	}
	if err := tx.Commit(); err != nil {
		a.log.WithError(err).Warn("commit")
	}
}

// --- Query methods for the API ---

// DAUCount returns number of distinct accounts active today
func (a *Analytics) DAUCount() (int, error) {
	if a.db == nil {
		return 0, nil
	}
	var count int
	err := a.db.conn.QueryRow(`
		SELECT COUNT(DISTINCT account_id) FROM analytics_events
		WHERE account_id IS NOT NULL AND created_at >= date('now')
	`).Scan(&count)
	return count, err
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	result := make(map[string]int)
	if a.db == nil {
		return result, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// MatchStats aggregates finished matches by end reason for the last N days
func (a *Analytics) MatchStats(days int) ([]MatchAnalytics, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT COALESCE(json_extract(data, '$.reason'), 'unknown') AS reason, COUNT(*) AS cnt,
			AVG(CAST(json_extract(data, '$.duration') AS REAL)) AS avg_dur
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data) AND created_at >= date('now', '-' || ? || ' days')
		GROUP BY reason
		ORDER BY cnt DESC
	`, EvtMatchEnd, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MatchAnalytics
	for rows.Next() {
		var m MatchAnalytics
		var avgDur sql.NullFloat64
		if err := rows.Scan(&m.Reason, &m.Count, &avgDur); err != nil {
			return nil, err
		}
		m.AvgDuration = avgDur.Float64
		result = append(result, m)
	}
	return result, rows.Err()
}

// PopularPurchases returns the most purchased items
func (a *Analytics) PopularPurchases(limit int) ([]ItemAnalytics, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT COALESCE(json_extract(data, '$.item'), 'unknown') AS item, COUNT(*) AS cnt
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data)
		GROUP BY item ORDER BY cnt DESC LIMIT ?
	`, EvtPurchase, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ItemAnalytics
	for rows.Next() {
		var ia ItemAnalytics
		if err := rows.Scan(&ia.Item, &ia.Count); err != nil {
			return nil, err
		}
		result = append(result, ia)
	}
	return result, rows.Err()
}

// MatchAnalytics holds aggregated match statistics
type MatchAnalytics struct {
	Reason      string  `json:"reason"`
	Count       int     `json:"count"`
	AvgDuration float64 `json:"avg_duration"`
}

// ItemAnalytics holds purchase count per item
type ItemAnalytics struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// StatsReport is the /api/stats payload
type StatsReport struct {
	Online    int              `json:"online"`
	Phase     MatchPhase       `json:"phase"`
	DAU       int              `json:"dau"`
	Events    map[string]int   `json:"events"`
	Matches   []MatchAnalytics `json:"matches"`
	Purchases []ItemAnalytics  `json:"purchases"`
}

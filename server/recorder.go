package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PlayerResult is one seated player's contribution to a finished match
type PlayerResult struct {
	PlayerID  string
	AccountID int64
	Stats     PlayerStats
	Won       bool
}

// MatchResult is produced exactly once per match, on the tick it ends
type MatchResult struct {
	Winner   string
	Reason   string
	Duration time.Duration
	Players  []PlayerResult
}

// Unlock is an achievement earned by an account in a recorded match
type Unlock struct {
	AccountID   int64
	Achievement AchievementDef
}

// Recorder persists match results off the tick goroutine
type Recorder struct {
	db      *DB
	tracker Tracker
	results chan *MatchResult
	notify  func(Unlock)
	wg      sync.WaitGroup
	once    sync.Once
	log     *logrus.Entry
}

// NewRecorder starts the writer. notify is called from the writer goroutine.
func NewRecorder(db *DB, tracker Tracker, notify func(Unlock)) *Recorder {
	r := &Recorder{
		db:      db,
		tracker: tracker,
		results: make(chan *MatchResult, 16),
		notify:  notify,
		log:     logger.WithField("component", "recorder"),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Submit queues a result, dropping it if the writer is backed up
func (r *Recorder) Submit(res *MatchResult) {
	select {
	case r.results <- res:
	default:
		r.log.WithField("winner", res.Winner).Warn("recorder queue full, match not recorded")
	}
}

// Stop flushes queued results and waits for the writer. Safe to call twice.
func (r *Recorder) Stop() {
	r.once.Do(func() { close(r.results) })
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for res := range r.results {
		r.record(res)
	}
}

func (r *Recorder) record(res *MatchResult) {
	if r.db == nil {
		return
	}
	before := make(map[int64]int)
	for _, p := range res.Players {
		if p.AccountID == 0 {
			continue
		}
		if s, err := r.db.GetStats(p.AccountID); err == nil && s != nil {
			before[p.AccountID] = s.Level
		}
	}

	id, err := r.db.RecordMatch(res)
	if err != nil {
		r.log.WithError(err).Error("record match")
		return
	}
	r.log.WithFields(logrus.Fields{"match": id, "players": len(res.Players)}).Info("match recorded")

	for _, p := range res.Players {
		if p.AccountID == 0 {
			continue
		}
		if s, err := r.db.GetStats(p.AccountID); err == nil && s != nil && s.Level > before[p.AccountID] && r.tracker != nil {
			r.tracker.Track(EvtLevelUp, p.AccountID, fmt.Sprintf(`{"level":%d}`, s.Level))
		}
		for _, def := range CheckAchievements(r.db, p.AccountID, p.Stats, p.Won) {
			if r.tracker != nil {
				r.tracker.Track(EvtAchievement, p.AccountID, fmt.Sprintf(`{"id":%q}`, def.ID))
			}
			if r.notify != nil {
				r.notify(Unlock{AccountID: p.AccountID, Achievement: def})
			}
		}
	}
}

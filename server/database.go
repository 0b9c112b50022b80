package main

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// AccountRow represents a registered account
type AccountRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// StatsRow represents lifetime account stats
type StatsRow struct {
	AccountID  int64
	Kills      int
	FinalKills int
	BedsBroken int
	Deaths     int
	Wins       int
	Losses     int
	Playtime   float64 // seconds
	XP         int
	Level      int
}

// MatchPlayerRow represents one account's result in a recorded match
type MatchPlayerRow struct {
	MatchID    int64
	AccountID  int64
	Kills      int
	FinalKills int
	BedsBroken int
	Deaths     int
	Won        bool
	XPEarned   int
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// WAL lets the analytics writer and request handlers read concurrently
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		pass_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stats (
		account_id INTEGER PRIMARY KEY REFERENCES accounts(id),
		kills INTEGER NOT NULL DEFAULT 0,
		final_kills INTEGER NOT NULL DEFAULT 0,
		beds_broken INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		playtime REAL NOT NULL DEFAULT 0,
		xp INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		duration REAL NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		winner TEXT NOT NULL DEFAULT '',
		players INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS match_players (
		match_id INTEGER NOT NULL REFERENCES matches(id),
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		kills INTEGER NOT NULL DEFAULT 0,
		final_kills INTEGER NOT NULL DEFAULT 0,
		beds_broken INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		won INTEGER NOT NULL DEFAULT 0,
		xp_earned INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (match_id, account_id)
	);

	CREATE TABLE IF NOT EXISTS achievements (
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		achievement_id TEXT NOT NULL,
		unlocked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (account_id, achievement_id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		account_id INTEGER,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_match_players_account ON match_players(account_id);
	CREATE INDEX IF NOT EXISTS idx_analytics_type_time ON analytics_events(event_type, created_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// CreateAccount creates a new account with an empty stats row
func (db *DB) CreateAccount(username, passHash string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec("INSERT INTO accounts (username, pass_hash) VALUES (?, ?)", username, passHash)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec("INSERT INTO stats (account_id) VALUES (?)", id); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetAccountByUsername returns nil, nil when no account matches
func (db *DB) GetAccountByUsername(username string) (*AccountRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM accounts WHERE username = ?",
		username,
	)
	a := &AccountRow{}
	err := row.Scan(&a.ID, &a.Username, &a.PassHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM accounts WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetStats returns nil, nil for an unknown account
func (db *DB) GetStats(accountID int64) (*StatsRow, error) {
	row := db.conn.QueryRow(
		`SELECT account_id, kills, final_kills, beds_broken, deaths, wins, losses, playtime, xp, level
		 FROM stats WHERE account_id = ?`,
		accountID,
	)
	s := &StatsRow{}
	err := row.Scan(&s.AccountID, &s.Kills, &s.FinalKills, &s.BedsBroken, &s.Deaths, &s.Wins, &s.Losses, &s.Playtime, &s.XP, &s.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// XPForLevel returns the total XP required to reach a given level.
// Formula: sum of 100 * i^1.5 for i in 1..level-1
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	total := 0.0
	for i := 1; i < level; i++ {
		total += 100.0 * math.Pow(float64(i), 1.5)
	}
	return int(total)
}

// CalculateLevel returns the level for a given total XP amount, capped at 100
func CalculateLevel(totalXP int) int {
	level := 1
	for level < 100 && totalXP >= XPForLevel(level+1) {
		level++
	}
	return level
}

// MatchXP scores one player's match
func MatchXP(s PlayerStats, won bool) int {
	xp := 20 + s.Kills*10 + s.FinalKills*25 + s.BedsBroken*50
	if won {
		xp += 100
	}
	return xp
}

// RecordMatch stores a finished match and credits every registered participant.
// Guests (AccountID 0) are skipped.
func (db *DB) RecordMatch(res *MatchResult) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	r, err := tx.Exec(
		"INSERT INTO matches (duration, reason, winner, players) VALUES (?, ?, ?, ?)",
		res.Duration.Seconds(), res.Reason, res.Winner, len(res.Players),
	)
	if err != nil {
		return 0, fmt.Errorf("insert match: %w", err)
	}
	matchID, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, p := range res.Players {
		if p.AccountID == 0 {
			continue
		}
		xp := MatchXP(p.Stats, p.Won)
		win, loss := 0, 1
		if p.Won {
			win, loss = 1, 0
		}
		if _, err := tx.Exec(
			`INSERT INTO match_players (match_id, account_id, kills, final_kills, beds_broken, deaths, won, xp_earned)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			matchID, p.AccountID, p.Stats.Kills, p.Stats.FinalKills, p.Stats.BedsBroken, p.Stats.Deaths, win, xp,
		); err != nil {
			return 0, fmt.Errorf("insert match player %d: %w", p.AccountID, err)
		}
		if _, err := tx.Exec(`
			UPDATE stats SET
				kills = kills + ?,
				final_kills = final_kills + ?,
				beds_broken = beds_broken + ?,
				deaths = deaths + ?,
				wins = wins + ?,
				losses = losses + ?,
				playtime = playtime + ?,
				xp = xp + ?
			WHERE account_id = ?`,
			p.Stats.Kills, p.Stats.FinalKills, p.Stats.BedsBroken, p.Stats.Deaths, win, loss,
			res.Duration.Seconds(), xp, p.AccountID,
		); err != nil {
			return 0, fmt.Errorf("update stats %d: %w", p.AccountID, err)
		}
		var total int
		if err := tx.QueryRow("SELECT xp FROM stats WHERE account_id = ?", p.AccountID).Scan(&total); err != nil {
			return 0, err
		}
		if _, err := tx.Exec("UPDATE stats SET level = ? WHERE account_id = ?", CalculateLevel(total), p.AccountID); err != nil {
			return 0, err
		}
	}
	return matchID, tx.Commit()
}

// GetMatchHistory returns recent results for an account, newest first
func (db *DB) GetMatchHistory(accountID int64, limit int) ([]MatchPlayerRow, error) {
	rows, err := db.conn.Query(`
		SELECT mp.match_id, mp.account_id, mp.kills, mp.final_kills, mp.beds_broken, mp.deaths, mp.won, mp.xp_earned
		FROM match_players mp
		JOIN matches m ON m.id = mp.match_id
		WHERE mp.account_id = ?
		ORDER BY m.id DESC
		LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MatchPlayerRow
	for rows.Next() {
		var r MatchPlayerRow
		if err := rows.Scan(&r.MatchID, &r.AccountID, &r.Kills, &r.FinalKills, &r.BedsBroken, &r.Deaths, &r.Won, &r.XPEarned); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	Username   string `json:"username"`
	Level      int    `json:"level"`
	XP         int    `json:"xp"`
	Kills      int    `json:"kills"`
	FinalKills int    `json:"final_kills"`
	BedsBroken int    `json:"beds_broken"`
	Deaths     int    `json:"deaths"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
}

// GetLeaderboard returns top accounts sorted by the given field
func (db *DB) GetLeaderboard(orderBy string, limit int) ([]LeaderboardEntry, error) {
	// Whitelist valid order columns
	validCols := map[string]string{
		"kills": "s.kills", "final_kills": "s.final_kills", "beds": "s.beds_broken",
		"wins": "s.wins", "level": "s.level", "xp": "s.xp",
		"kd": "CASE WHEN s.deaths > 0 THEN CAST(s.kills AS REAL)/s.deaths ELSE s.kills END",
	}
	col, ok := validCols[orderBy]
	if !ok {
		col = "s.xp"
	}

	query := `SELECT a.username, s.level, s.xp, s.kills, s.final_kills, s.beds_broken, s.deaths, s.wins, s.losses
		FROM stats s JOIN accounts a ON a.id = s.account_id
		ORDER BY ` + col + ` DESC, a.id ASC LIMIT ?`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []LeaderboardEntry{}
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Level, &e.XP, &e.Kills, &e.FinalKills, &e.BedsBroken, &e.Deaths, &e.Wins, &e.Losses); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetSetting returns "" when the key is unset
func (db *DB) GetSetting(key string) string {
	var v string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v); err != nil {
		return ""
	}
	return v
}

// SetSetting upserts a key
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// GetAchievements returns the unlocked achievement ids of an account
func (db *DB) GetAchievements(accountID int64) ([]string, error) {
	rows, err := db.conn.Query("SELECT achievement_id FROM achievements WHERE account_id = ? ORDER BY unlocked_at", accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UnlockAchievement reports true only the first time an id is unlocked
func (db *DB) UnlockAchievement(accountID int64, id string) (bool, error) {
	res, err := db.conn.Exec(
		"INSERT OR IGNORE INTO achievements (account_id, achievement_id) VALUES (?, ?)",
		accountID, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

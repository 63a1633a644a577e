// Package analytics records page visits in a local SQLite database and
// serves simple aggregate stats to the admin.
package analytics

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Visit is one recorded page view.
type Visit struct {
	Path      string    `json:"path"`
	Referrer  string    `json:"referrer,omitempty"`
	IPHash    string    `json:"-"`
	UserAgent string    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// PathCount is a per-path visit total.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// Summary aggregates visits over a window.
type Summary struct {
	Total    int         `json:"total"`
	Visitors int         `json:"visitors"`
	TopPaths []PathCount `json:"topPaths"`
}

// Store provides database operations for analytics.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the analytics SQLite database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create analytics dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			referrer TEXT,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_visits_path ON visits(path);
	`)
	return err
}

// HashIP returns a stable, non-reversible visitor key for an IP address.
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}

// RecordVisit inserts one visit.
func (s *Store) RecordVisit(v Visit) error {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO visits (path, referrer, ip_hash, user_agent, timestamp) VALUES (?, ?, ?, ?, ?)`,
		v.Path, v.Referrer, v.IPHash, v.UserAgent, v.Timestamp,
	)
	return err
}

// Summarize aggregates visits from the last `days` days.
func (s *Store) Summarize(days int) (Summary, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	var out Summary
	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT ip_hash) FROM visits WHERE timestamp >= ?`, since,
	).Scan(&out.Total, &out.Visitors)
	if err != nil {
		return out, err
	}
	rows, err := s.db.Query(
		`SELECT path, COUNT(*) AS n FROM visits WHERE timestamp >= ? GROUP BY path ORDER BY n DESC LIMIT 10`, since,
	)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var pc PathCount
		if err := rows.Scan(&pc.Path, &pc.Count); err != nil {
			return out, err
		}
		out.TopPaths = append(out.TopPaths, pc)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes visits older than the retention window.
func (s *Store) DeleteOlderThan(days int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	_, err := s.db.Exec(`DELETE FROM visits WHERE timestamp < ?`, cutoff)
	return err
}

// StartCleanupScheduler periodically prunes old visits. The returned
// function stops the scheduler.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.DeleteOlderThan(retentionDays); err != nil {
					fmt.Fprintf(os.Stderr, "analytics: cleanup: %v\n", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

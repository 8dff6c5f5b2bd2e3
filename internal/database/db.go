package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fplscraper/fplscraper/internal/stats"
	"github.com/fplscraper/fplscraper/pkg/models"
)

// Starts are stored in UTC so the lexicographic ORDER BY on the column is
// also chronological regardless of the offsets readings arrive with.
const timeLayout = "2006-01-02 15:04:05-07:00"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS statistics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		series_id TEXT NOT NULL,
		start TEXT NOT NULL,
		state REAL NOT NULL,
		sum REAL NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(series_id, start)
	);
	CREATE INDEX IF NOT EXISTS idx_statistics_series ON statistics(series_id);
	CREATE INDEX IF NOT EXISTS idx_statistics_start ON statistics(start);

	CREATE TABLE IF NOT EXISTS series (
		series_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		unit TEXT NOT NULL,
		source TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		account TEXT PRIMARY KEY,
		taken_at TEXT NOT NULL,
		record TEXT NOT NULL
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// LastSum returns the newest cumulative sum and bucket start recorded for a
// series. ok is false when the series has no statistics yet.
func (db *DB) LastSum(seriesID string) (float64, time.Time, bool, error) {
	query := `
	SELECT sum, start
	FROM statistics
	WHERE series_id = ?
	ORDER BY start DESC
	LIMIT 1
	`

	var sum float64
	var startStr string
	err := db.conn.QueryRow(query, seriesID).Scan(&sum, &startStr)
	if err == sql.ErrNoRows {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("querying last sum: %w", err)
	}

	start, err := time.Parse(timeLayout, startStr)
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("parsing start: %w", err)
	}

	return sum, start, true, nil
}

// Append records series metadata and inserts the points, ignoring any
// bucket start the series already has.
func (db *DB) Append(series stats.Series, points []models.StatisticPoint) error {
	_, err := db.conn.Exec(`
	INSERT INTO series (series_id, name, unit, source) VALUES (?, ?, ?, ?)
	ON CONFLICT(series_id) DO UPDATE SET name = excluded.name, unit = excluded.unit
	`, series.ID, series.Name, series.Unit, series.Source)
	if err != nil {
		return fmt.Errorf("upserting series metadata: %w", err)
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	for _, point := range points {
		_, err := db.conn.Exec(`
		INSERT OR IGNORE INTO statistics (series_id, start, state, sum, created_at)
		VALUES (?, ?, ?, ?, ?)
		`, series.ID, point.Start.UTC().Format(timeLayout), point.State, point.Sum, createdAt)
		if err != nil {
			return fmt.Errorf("inserting statistic point: %w", err)
		}
	}

	return nil
}

// ListSeries returns all known statistic series
func (db *DB) ListSeries() ([]stats.Series, error) {
	rows, err := db.conn.Query(`SELECT series_id, name, unit, source FROM series ORDER BY series_id`)
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	defer rows.Close()

	var result []stats.Series
	for rows.Next() {
		var s stats.Series
		if err := rows.Scan(&s.ID, &s.Name, &s.Unit, &s.Source); err != nil {
			return nil, fmt.Errorf("scanning series: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// ListStatistics returns the newest points for a series, newest first
func (db *DB) ListStatistics(seriesID string, limit int) ([]models.StatisticPoint, error) {
	query := `
	SELECT start, state, sum
	FROM statistics
	WHERE series_id = ?
	ORDER BY start DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.conn.Query(query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("querying statistics: %w", err)
	}
	defer rows.Close()

	var result []models.StatisticPoint
	for rows.Next() {
		var point models.StatisticPoint
		var startStr string
		if err := rows.Scan(&startStr, &point.State, &point.Sum); err != nil {
			return nil, fmt.Errorf("scanning statistic point: %w", err)
		}
		point.Start, err = time.Parse(timeLayout, startStr)
		if err != nil {
			return nil, fmt.Errorf("parsing start: %w", err)
		}
		result = append(result, point)
	}
	return result, rows.Err()
}

// SaveSnapshot stores the latest normalized record for an account,
// replacing the previous cycle's snapshot.
func (db *DB) SaveSnapshot(account string, rec *models.AccountRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	_, err = db.conn.Exec(`
	INSERT INTO snapshots (account, taken_at, record) VALUES (?, ?, ?)
	ON CONFLICT(account) DO UPDATE SET taken_at = excluded.taken_at, record = excluded.record
	`, account, time.Now().UTC().Format(time.RFC3339), string(data))
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent stored record for an account, or
// nil when none exists.
func (db *DB) LatestSnapshot(account string) (*models.AccountRecord, time.Time, error) {
	var takenAtStr, data string
	err := db.conn.QueryRow(`SELECT taken_at, record FROM snapshots WHERE account = ?`, account).Scan(&takenAtStr, &data)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("querying snapshot: %w", err)
	}

	takenAt, err := time.Parse(time.RFC3339, takenAtStr)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing taken_at: %w", err)
	}

	var rec models.AccountRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding record: %w", err)
	}
	return &rec, takenAt, nil
}

// ListSnapshotAccounts returns the accounts with a stored snapshot
func (db *DB) ListSnapshotAccounts() ([]string, error) {
	rows, err := db.conn.Query(`SELECT account FROM snapshots ORDER BY account`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var account string
		if err := rows.Scan(&account); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

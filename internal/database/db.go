package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jgoulah/gridconvert/pkg/models"
)

const timeLayout = "2006-01-02 15:04:05"

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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		frequency TEXT NOT NULL,
		strategy TEXT NOT NULL,
		files INTEGER NOT NULL,
		records INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS consumption_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		kwh REAL,
		source_file TEXT NOT NULL,
		column_name TEXT NOT NULL DEFAULT '',
		missing_flag INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		published INTEGER DEFAULT 0,
		UNIQUE(timestamp, source_file, column_name)
	);
	CREATE INDEX IF NOT EXISTS idx_records_source ON consumption_records(source_file);
	CREATE INDEX IF NOT EXISTS idx_records_timestamp ON consumption_records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_records_published ON consumption_records(published);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertRun stores a conversion run, assigning it an id if it has none
func (db *DB) InsertRun(run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO runs (id, started_at, frequency, strategy, files, records)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.conn.Exec(query, run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.Frequency, run.Strategy, run.Files, run.Records)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// InsertRecords stores merged records, ignoring duplicates of (timestamp, source_file, column).
// It returns how many records were new.
func (db *DB) InsertRecords(runID string, records []models.UsageRecord) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
	INSERT OR IGNORE INTO consumption_records (run_id, timestamp, kwh, source_file, column_name, missing_flag, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	createdAt := time.Now().UTC().Format(time.RFC3339)
	inserted := 0
	for _, rec := range records {
		res, err := stmt.Exec(runID, rec.Timestamp.UTC().Format(timeLayout), rec.KWh, rec.SourceFile, rec.Column, rec.MissingFlag, createdAt)
		if err != nil {
			return 0, fmt.Errorf("inserting record: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("counting inserted rows: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing records: %w", err)
	}
	return inserted, nil
}

// ListRuns retrieves all runs, newest first
func (db *DB) ListRuns() ([]models.Run, error) {
	rows, err := db.conn.Query(`
	SELECT id, started_at, frequency, strategy, files, records
	FROM runs
	ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var results []models.Run
	for rows.Next() {
		var run models.Run
		var startedAt string
		if err := rows.Scan(&run.ID, &startedAt, &run.Frequency, &run.Strategy, &run.Files, &run.Records); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		results = append(results, run)
	}

	return results, rows.Err()
}

// ListSources retrieves the distinct source files with stored records
func (db *DB) ListSources() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source_file FROM consumption_records ORDER BY source_file`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, src)
	}
	return results, rows.Err()
}

// ListRecords retrieves the records of a source file ordered by timestamp and column
func (db *DB) ListRecords(sourceFile string) ([]models.UsageRecord, error) {
	query := `
	SELECT id, timestamp, kwh, source_file, column_name, missing_flag
	FROM consumption_records
	WHERE source_file = ?
	ORDER BY timestamp, column_name
	`
	return db.queryRecords(query, sourceFile)
}

// ListUnpublished retrieves the records of a source file not yet published
func (db *DB) ListUnpublished(sourceFile string) ([]models.UsageRecord, error) {
	query := `
	SELECT id, timestamp, kwh, source_file, column_name, missing_flag
	FROM consumption_records
	WHERE source_file = ? AND published = 0
	ORDER BY timestamp, column_name
	`
	return db.queryRecords(query, sourceFile)
}

func (db *DB) queryRecords(query string, args ...interface{}) ([]models.UsageRecord, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var results []models.UsageRecord
	for rows.Next() {
		var rec models.UsageRecord
		var ts string
		if err := rows.Scan(&rec.ID, &ts, &rec.KWh, &rec.SourceFile, &rec.Column, &rec.MissingFlag); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec.Timestamp, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

// MarkPublished marks a record as published
func (db *DB) MarkPublished(id int) error {
	query := `UPDATE consumption_records SET published = 1 WHERE id = ?`
	_, err := db.conn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("marking record as published: %w", err)
	}
	return nil
}

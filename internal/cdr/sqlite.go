package cdr

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps call records in an embedded SQLite database with
// WAL mode enabled.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens the record database under dataDir and runs any
// pending migrations.
func Open(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "callgrid.db")
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	slog.Info("record database opened", "path", dbPath)
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate runs all pending SQL migration files in order.
func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version := strings.TrimSuffix(entry.Name(), ".sql")

		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
		if err != nil {
			return fmt.Errorf("checking migration %s: %w", version, err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", version, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %s: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", version, err)
		}

		slog.Info("applied migration", "version", version)
	}

	return nil
}

const recordColumns = `id, record_id, call_id, number, call_type, video_call,
	 direction, disposition, slot_id, emergency, start_time,
	 ring_begin_time, ring_end_time, answer_time, end_time, duration`

// Create inserts a new call record.
func (s *SQLiteStore) Create(ctx context.Context, rec *Record) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO call_records (record_id, call_id, number, call_type,
		 video_call, direction, disposition, slot_id, emergency, start_time,
		 ring_begin_time, ring_end_time, answer_time, end_time, duration)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RecordID, rec.CallID, rec.Number, rec.CallType, rec.VideoCall,
		rec.Direction, rec.Disposition, rec.SlotID, rec.Emergency,
		rec.StartTime, rec.RingBeginTime, rec.RingEndTime, rec.AnswerTime,
		rec.EndTime, rec.Duration,
	)
	if err != nil {
		return fmt.Errorf("inserting call record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// GetByRecordID returns a record by its UUID, or nil when not found.
func (s *SQLiteStore) GetByRecordID(ctx context.Context, recordID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM call_records WHERE record_id = ?`, recordID)
	return scanOne(row)
}

// List returns records matching the filter, along with the total count.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Record, int, error) {
	where := "1=1"
	args := []any{}

	if filter.Direction != "" {
		where += " AND direction = ?"
		args = append(args, filter.Direction)
	}
	if filter.Disposition != "" {
		where += " AND disposition = ?"
		args = append(args, filter.Disposition)
	}
	if filter.Search != "" {
		where += " AND number LIKE ?"
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.StartDate != "" {
		where += " AND start_time >= ?"
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		where += " AND start_time <= ?"
		args = append(args, filter.EndDate)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM call_records WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting call records: %w", err)
	}

	query := `SELECT ` + recordColumns + ` FROM call_records WHERE ` + where +
		` ORDER BY start_time DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing call records: %w", err)
	}
	defer rows.Close()

	recs, err := scanRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// ListRecent returns the most recent records up to the given limit.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM call_records
		 ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent call records: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Count returns the total number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM call_records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting call records: %w", err)
	}
	return count, nil
}

func scanOne(row *sql.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.RecordID, &r.CallID, &r.Number, &r.CallType,
		&r.VideoCall, &r.Direction, &r.Disposition, &r.SlotID, &r.Emergency,
		&r.StartTime, &r.RingBeginTime, &r.RingEndTime, &r.AnswerTime,
		&r.EndTime, &r.Duration)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning call record: %w", err)
	}
	return &r, nil
}

func scanRows(rows *sql.Rows) ([]Record, error) {
	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.RecordID, &r.CallID, &r.Number,
			&r.CallType, &r.VideoCall, &r.Direction, &r.Disposition,
			&r.SlotID, &r.Emergency, &r.StartTime, &r.RingBeginTime,
			&r.RingEndTime, &r.AnswerTime, &r.EndTime, &r.Duration); err != nil {
			return nil, fmt.Errorf("scanning call record row: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating call record rows: %w", err)
	}
	return recs, nil
}

// Package pgstore implements the call record store on PostgreSQL for
// deployments that centralize billing data off-device.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/callgrid/callgrid/internal/cdr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements cdr.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New opens a PostgreSQL connection and runs pending migrations.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgresql: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgresql: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	slog.Info("postgresql record store opened")
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending SQL migration files in order.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
		err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = $1", version).Scan(&count)
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

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
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
func (s *Store) Create(ctx context.Context, rec *cdr.Record) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO call_records (record_id, call_id, number, call_type,
		 video_call, direction, disposition, slot_id, emergency, start_time,
		 ring_begin_time, ring_end_time, answer_time, end_time, duration)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id`,
		rec.RecordID, rec.CallID, rec.Number, rec.CallType, rec.VideoCall,
		rec.Direction, rec.Disposition, rec.SlotID, rec.Emergency,
		rec.StartTime, rec.RingBeginTime, rec.RingEndTime, rec.AnswerTime,
		rec.EndTime, rec.Duration,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("inserting call record: %w", err)
	}
	return nil
}

// GetByRecordID returns a record by its UUID, or nil when not found.
func (s *Store) GetByRecordID(ctx context.Context, recordID string) (*cdr.Record, error) {
	var r cdr.Record
	err := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM call_records WHERE record_id = $1`, recordID,
	).Scan(&r.ID, &r.RecordID, &r.CallID, &r.Number, &r.CallType,
		&r.VideoCall, &r.Direction, &r.Disposition, &r.SlotID, &r.Emergency,
		&r.StartTime, &r.RingBeginTime, &r.RingEndTime, &r.AnswerTime,
		&r.EndTime, &r.Duration)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying call record: %w", err)
	}
	return &r, nil
}

// List returns records matching the filter, along with the total count.
func (s *Store) List(ctx context.Context, filter cdr.ListFilter) ([]cdr.Record, int, error) {
	where := "1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Direction != "" {
		where += " AND direction = " + arg(filter.Direction)
	}
	if filter.Disposition != "" {
		where += " AND disposition = " + arg(filter.Disposition)
	}
	if filter.Search != "" {
		where += " AND number LIKE " + arg("%"+filter.Search+"%")
	}
	if filter.StartDate != "" {
		where += " AND start_time >= " + arg(filter.StartDate)
	}
	if filter.EndDate != "" {
		where += " AND start_time <= " + arg(filter.EndDate)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM call_records WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting call records: %w", err)
	}

	query := `SELECT ` + recordColumns + ` FROM call_records WHERE ` + where +
		` ORDER BY start_time DESC LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(filter.Offset)

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
func (s *Store) ListRecent(ctx context.Context, limit int) ([]cdr.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM call_records
		 ORDER BY start_time DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent call records: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM call_records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting call records: %w", err)
	}
	return count, nil
}

func scanRows(rows *sql.Rows) ([]cdr.Record, error) {
	var recs []cdr.Record
	for rows.Next() {
		var r cdr.Record
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

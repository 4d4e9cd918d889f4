// Package cdr persists call detail records. The default backend is an
// embedded SQLite database; deployments that centralize billing point
// the service at PostgreSQL instead (see pgstore).
package cdr

import (
	"context"
	"time"
)

// Dispositions describe how a call ended.
const (
	DispositionAnswered = "answered"
	DispositionMissed   = "missed"
	DispositionRejected = "rejected"
	DispositionNoAnswer = "no_answer"
)

// Record is one call detail record. RecordID is a UUID assigned when
// the record is written; the numeric call id is only unique within one
// service run.
type Record struct {
	ID            int64
	RecordID      string
	CallID        int32
	Number        string
	CallType      string
	VideoCall     bool
	Direction     string
	Disposition   string
	SlotID        int32
	Emergency     bool
	StartTime     time.Time
	RingBeginTime *time.Time
	RingEndTime   *time.Time
	AnswerTime    *time.Time
	EndTime       *time.Time
	Duration      *int
}

// ListFilter narrows a record listing. Zero values match everything.
type ListFilter struct {
	Direction   string
	Disposition string
	Search      string
	StartDate   string
	EndDate     string
	Limit       int
	Offset      int
}

// Store is the persistence boundary for call detail records.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	GetByRecordID(ctx context.Context, recordID string) (*Record, error)
	List(ctx context.Context, filter ListFilter) ([]Record, int, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

package cdr

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/callgrid/callgrid/internal/call"
)

// writeTimeout bounds one record insert so a slow backend cannot stall
// the notification path.
const writeTimeout = 5 * time.Second

// Recorder turns call lifecycle notifications into persisted records.
// It sits in the notifier chain: every notification is forwarded to the
// next notifier, and a record is written when a call is destroyed.
type Recorder struct {
	logger *slog.Logger
	store  Store
	next   call.CallStateNotifier

	written atomic.Uint64
	failed  atomic.Uint64
}

func NewRecorder(store Store, next call.CallStateNotifier, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		logger: logger.With("subsystem", "cdr"),
		store:  store,
		next:   next,
	}
}

// WrittenCount and FailedCount feed the metrics collector.
func (r *Recorder) WrittenCount() uint64 { return r.written.Load() }

func (r *Recorder) FailedCount() uint64 { return r.failed.Load() }

func (r *Recorder) NotifyNewCallCreated(info call.CallAttributeInfo) {
	if r.next != nil {
		r.next.NotifyNewCallCreated(info)
	}
}

func (r *Recorder) NotifyCallStateUpdated(info call.CallAttributeInfo, prior, next call.TelCallState) {
	if r.next != nil {
		r.next.NotifyCallStateUpdated(info, prior, next)
	}
}

func (r *Recorder) NotifyCallDestroyed(info call.CallAttributeInfo) {
	r.persist(info)
	if r.next != nil {
		r.next.NotifyCallDestroyed(info)
	}
}

func (r *Recorder) NotifyIncomingCallAnswered(info call.CallAttributeInfo) {
	if r.next != nil {
		r.next.NotifyIncomingCallAnswered(info)
	}
}

func (r *Recorder) NotifyIncomingCallRejected(info call.CallAttributeInfo) {
	if r.next != nil {
		r.next.NotifyIncomingCallRejected(info)
	}
}

func (r *Recorder) NotifyCallEventUpdated(event call.CellularCallEventInfo) {
	if r.next != nil {
		r.next.NotifyCallEventUpdated(event)
	}
}

func (r *Recorder) persist(info call.CallAttributeInfo) {
	rec := BuildRecord(info)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.store.Create(ctx, rec); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to write call record",
			"call_id", info.CallID, "record_id", rec.RecordID, "error", err)
		return
	}
	r.written.Add(1)
	r.logger.Debug("call record written",
		"call_id", info.CallID, "record_id", rec.RecordID, "disposition", rec.Disposition)
}

// BuildRecord maps a final call snapshot to a record.
func BuildRecord(info call.CallAttributeInfo) *Record {
	rec := &Record{
		RecordID:    uuid.NewString(),
		CallID:      info.CallID,
		Number:      info.Number,
		CallType:    info.CallType.String(),
		VideoCall:   info.VideoState == call.VideoStateVideo,
		Direction:   directionString(info.Direction),
		Disposition: disposition(info),
		SlotID:      info.SlotID,
		Emergency:   info.IsEcc,
		StartTime:   info.CreateTime,
	}
	if !info.RingBeginTime.IsZero() {
		t := info.RingBeginTime
		rec.RingBeginTime = &t
	}
	if !info.RingEndTime.IsZero() {
		t := info.RingEndTime
		rec.RingEndTime = &t
	}
	if !info.BeginTime.IsZero() {
		t := info.BeginTime
		rec.AnswerTime = &t
	}
	if !info.EndTime.IsZero() {
		t := info.EndTime
		rec.EndTime = &t
	}
	if rec.AnswerTime != nil && rec.EndTime != nil {
		d := int(rec.EndTime.Sub(*rec.AnswerTime) / time.Second)
		rec.Duration = &d
	}
	return rec
}

func disposition(info call.CallAttributeInfo) string {
	if !info.BeginTime.IsZero() {
		return DispositionAnswered
	}
	if info.Direction == call.DirectionIn {
		if info.AnswerType == call.AnswerTypeRejected {
			return DispositionRejected
		}
		return DispositionMissed
	}
	return DispositionNoAnswer
}

func directionString(d call.CallDirection) string {
	if d == call.DirectionOut {
		return "outbound"
	}
	return "inbound"
}

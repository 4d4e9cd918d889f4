package cdr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/callgrid/callgrid/internal/call"
)

type captureStore struct {
	created []Record
	err     error
}

func (c *captureStore) Create(_ context.Context, rec *Record) error {
	if c.err != nil {
		return c.err
	}
	c.created = append(c.created, *rec)
	return nil
}

func (c *captureStore) GetByRecordID(context.Context, string) (*Record, error) { return nil, nil }
func (c *captureStore) List(context.Context, ListFilter) ([]Record, int, error) {
	return nil, 0, nil
}
func (c *captureStore) ListRecent(context.Context, int) ([]Record, error) { return nil, nil }
func (c *captureStore) Count(context.Context) (int64, error)              { return int64(len(c.created)), nil }
func (c *captureStore) Close() error                                      { return nil }

type countingNotifier struct {
	created, destroyed, answered int
}

func (n *countingNotifier) NotifyNewCallCreated(call.CallAttributeInfo) { n.created++ }
func (n *countingNotifier) NotifyCallStateUpdated(call.CallAttributeInfo, call.TelCallState, call.TelCallState) {
}
func (n *countingNotifier) NotifyCallDestroyed(call.CallAttributeInfo)        { n.destroyed++ }
func (n *countingNotifier) NotifyIncomingCallAnswered(call.CallAttributeInfo) { n.answered++ }
func (n *countingNotifier) NotifyIncomingCallRejected(call.CallAttributeInfo) {}
func (n *countingNotifier) NotifyCallEventUpdated(call.CellularCallEventInfo) {}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func answeredSnapshot() call.CallAttributeInfo {
	start := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	return call.CallAttributeInfo{
		CallID:     7,
		Number:     "5551234",
		CallType:   call.TypeIMS,
		VideoState: call.VideoStateVideo,
		Direction:  call.DirectionOut,
		SlotID:     1,
		CreateTime: start,
		BeginTime:  start.Add(10 * time.Second),
		EndTime:    start.Add(70 * time.Second),
	}
}

func TestRecorderPersistsOnDestroy(t *testing.T) {
	store := &captureStore{}
	next := &countingNotifier{}
	rec := NewRecorder(store, next, quietLogger())

	info := answeredSnapshot()
	rec.NotifyNewCallCreated(info)
	rec.NotifyCallDestroyed(info)

	if len(store.created) != 1 {
		t.Fatalf("created %d records, want 1", len(store.created))
	}
	got := store.created[0]
	if got.CallID != 7 || got.CallType != "ims" || !got.VideoCall {
		t.Errorf("record = %+v", got)
	}
	if got.Disposition != DispositionAnswered {
		t.Errorf("disposition = %s, want answered", got.Disposition)
	}
	if got.Duration == nil || *got.Duration != 60 {
		t.Errorf("duration = %v, want 60", got.Duration)
	}
	if got.RecordID == "" {
		t.Error("record id not assigned")
	}

	// The chain still sees every notification.
	if next.created != 1 || next.destroyed != 1 {
		t.Errorf("forwarded created=%d destroyed=%d", next.created, next.destroyed)
	}
	if rec.WrittenCount() != 1 || rec.FailedCount() != 0 {
		t.Errorf("written=%d failed=%d", rec.WrittenCount(), rec.FailedCount())
	}
}

func TestRecorderCountsFailures(t *testing.T) {
	store := &captureStore{err: errors.New("disk full")}
	next := &countingNotifier{}
	rec := NewRecorder(store, next, quietLogger())

	rec.NotifyCallDestroyed(answeredSnapshot())

	if rec.FailedCount() != 1 || rec.WrittenCount() != 0 {
		t.Errorf("written=%d failed=%d", rec.WrittenCount(), rec.FailedCount())
	}
	// A failed write must not break the notifier chain.
	if next.destroyed != 1 {
		t.Errorf("destroyed forwarded %d times, want 1", next.destroyed)
	}
}

func TestBuildRecordDispositions(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		info call.CallAttributeInfo
		want string
	}{
		{
			name: "answered outbound",
			info: call.CallAttributeInfo{Direction: call.DirectionOut, CreateTime: start, BeginTime: start.Add(time.Second)},
			want: DispositionAnswered,
		},
		{
			name: "answered inbound",
			info: call.CallAttributeInfo{Direction: call.DirectionIn, CreateTime: start, BeginTime: start.Add(time.Second)},
			want: DispositionAnswered,
		},
		{
			name: "missed inbound",
			info: call.CallAttributeInfo{Direction: call.DirectionIn, CreateTime: start},
			want: DispositionMissed,
		},
		{
			name: "rejected inbound",
			info: call.CallAttributeInfo{Direction: call.DirectionIn, CreateTime: start, AnswerType: call.AnswerTypeRejected},
			want: DispositionRejected,
		},
		{
			name: "unanswered outbound",
			info: call.CallAttributeInfo{Direction: call.DirectionOut, CreateTime: start},
			want: DispositionNoAnswer,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := BuildRecord(tc.info)
			if rec.Disposition != tc.want {
				t.Errorf("disposition = %s, want %s", rec.Disposition, tc.want)
			}
		})
	}
}

func TestBuildRecordOmitsUnsetTimes(t *testing.T) {
	rec := BuildRecord(call.CallAttributeInfo{
		Direction:  call.DirectionIn,
		CreateTime: time.Now(),
	})
	if rec.RingBeginTime != nil || rec.RingEndTime != nil || rec.AnswerTime != nil || rec.EndTime != nil {
		t.Errorf("unset times should stay nil: %+v", rec)
	}
	if rec.Duration != nil {
		t.Errorf("duration should stay nil, got %v", rec.Duration)
	}
}

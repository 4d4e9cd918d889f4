package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/callgrid/callgrid/internal/cdr"
)

const (
	defaultRecordPageSize = 50
	maxRecordPageSize     = 200
)

// recordDTO is the JSON shape of one call detail record.
type recordDTO struct {
	RecordID      string     `json:"record_id"`
	CallID        int32      `json:"call_id"`
	Number        string     `json:"number"`
	CallType      string     `json:"call_type"`
	Video         bool       `json:"video"`
	Direction     string     `json:"direction"`
	Disposition   string     `json:"disposition"`
	SlotID        int32      `json:"slot_id"`
	Emergency     bool       `json:"emergency"`
	StartTime     time.Time  `json:"start_time"`
	RingBeginTime *time.Time `json:"ring_begin_time,omitempty"`
	RingEndTime   *time.Time `json:"ring_end_time,omitempty"`
	AnswerTime    *time.Time `json:"answer_time,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	Duration      *int       `json:"duration,omitempty"`
}

func toRecordDTO(rec cdr.Record) recordDTO {
	return recordDTO{
		RecordID:      rec.RecordID,
		CallID:        rec.CallID,
		Number:        rec.Number,
		CallType:      rec.CallType,
		Video:         rec.VideoCall,
		Direction:     rec.Direction,
		Disposition:   rec.Disposition,
		SlotID:        rec.SlotID,
		Emergency:     rec.Emergency,
		StartTime:     rec.StartTime,
		RingBeginTime: rec.RingBeginTime,
		RingEndTime:   rec.RingEndTime,
		AnswerTime:    rec.AnswerTime,
		EndTime:       rec.EndTime,
		Duration:      rec.Duration,
	}
}

type recordPage struct {
	Records []recordDTO `json:"records"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
}

// handleListRecords lists call detail records with optional filters:
// direction, disposition, search (number substring), start_date,
// end_date (YYYY-MM-DD), limit and offset.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := cdr.ListFilter{
		Direction:   q.Get("direction"),
		Disposition: q.Get("disposition"),
		Search:      q.Get("search"),
		StartDate:   q.Get("start_date"),
		EndDate:     q.Get("end_date"),
		Limit:       defaultRecordPageSize,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = min(n, maxRecordPageSize)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	records, total, err := s.store.List(r.Context(), filter)
	if err != nil {
		slog.Error("record listing failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "could not list records")
		return
	}

	out := make([]recordDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, recordPage{
		Records: out,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

// handleGetRecord returns one record by its UUID.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")

	rec, err := s.store.GetByRecordID(r.Context(), recordID)
	if err != nil {
		slog.Error("record lookup failed", "record_id", recordID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "could not load record")
		return
	}
	if rec == nil {
		writeError(w, r, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(*rec))
}

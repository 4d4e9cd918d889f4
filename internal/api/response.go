package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// apiError is the error half of a response. Code is stable so clients
// can branch without matching message text; RequestID ties the failure
// back to the server log line that explains it.
type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// envelope wraps every JSON response. Exactly one of Data and Error is
// set.
type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

// errorCode maps an HTTP status to the stable error code. The conflict
// and bad-gateway codes are the call-control ones: a 409 always means
// the call exists but its state refuses the operation, a 502 always
// means the carrier driver refused the request.
func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "call_state_conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusBadGateway:
		return "carrier_refused"
	case http.StatusServiceUnavailable:
		return "shutting_down"
	default:
		return "internal"
	}
}

// writeJSON sends data wrapped in the response envelope. The payload is
// marshalled before any bytes go out so an encoding failure yields a
// clean 500 instead of a truncated body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(envelope{Data: data})
	if err != nil {
		slog.Error("api response encoding failed", "error", err)
		http.Error(w, `{"error":{"code":"internal","message":"response encoding failed"}}`,
			http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck
}

// writeError sends an error envelope carrying the request id from chi's
// RequestID middleware.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	body, err := json.Marshal(envelope{Error: &apiError{
		Code:      errorCode(status),
		Message:   msg,
		RequestID: chimw.GetReqID(r.Context()),
	}})
	if err != nil {
		slog.Error("api error encoding failed", "error", err)
		http.Error(w, `{"error":{"code":"internal","message":"response encoding failed"}}`,
			http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck
}

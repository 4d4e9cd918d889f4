package middleware

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// errorReply mirrors the api package's error envelope so refusals made
// before a handler runs look the same to clients as handler refusals.
type errorReply struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func replyError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	var body errorReply
	body.Error.Code = code
	body.Error.Message = msg
	body.Error.RequestID = chimw.GetReqID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

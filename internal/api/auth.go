package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	mw "github.com/callgrid/callgrid/internal/api/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin verifies operator credentials and issues a JWT.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if len(s.passwordHash) == 0 {
		writeError(w, r, http.StatusForbidden, "operator login not configured")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.APIUser)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password))
	if !userOK || passErr != nil {
		slog.Warn("api login failed", "username", req.Username, "remote_addr", r.RemoteAddr)
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := mw.GenerateToken(s.jwtSecret, req.Username)
	if err != nil {
		slog.Error("api token generation failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "could not issue token")
		return
	}

	slog.Info("operator logged in", "username", req.Username)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

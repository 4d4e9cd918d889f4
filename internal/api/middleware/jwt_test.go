package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func protected(t *testing.T) http.Handler {
	t.Helper()
	return RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if op := OperatorFromContext(r.Context()); op != "operator" {
			t.Errorf("operator in context = %q", op)
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAuthValidToken(t *testing.T) {
	token, _, err := GenerateToken(testSecret, "operator")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequireAuthRejections(t *testing.T) {
	otherToken, _, err := GenerateToken([]byte("ffffffffffffffffffffffffffffffff"), "operator")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong key", "Bearer " + otherToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler reached without valid token")
			})).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

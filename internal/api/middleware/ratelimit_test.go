package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestThrottleAllowPerIP(t *testing.T) {
	th := NewThrottle("read", Quota{Rate: 1, Burst: 2})
	defer th.Close()

	// Burst of two passes, the third is refused.
	if !th.allow("10.0.0.1") || !th.allow("10.0.0.1") {
		t.Fatal("burst requests should be allowed")
	}
	if th.allow("10.0.0.1") {
		t.Fatal("request beyond burst should be refused")
	}

	// A different IP has its own bucket.
	if !th.allow("10.0.0.2") {
		t.Fatal("second ip should have a fresh bucket")
	}
}

func TestThrottleMiddleware(t *testing.T) {
	th := NewThrottle("call-mutation", Quota{Rate: 1, Burst: 1})
	defer th.Close()

	handler := th.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/calls/dial", nil)
	req.RemoteAddr = "10.0.0.3:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	var body errorReply
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode refusal body: %v", err)
	}
	if body.Error.Code != "rate_limited" {
		t.Errorf("error code = %q, want rate_limited", body.Error.Code)
	}
}

func TestThrottleSweepDropsIdleVisitors(t *testing.T) {
	th := NewThrottle("read", Quota{Rate: 1, Burst: 1})
	defer th.Close()

	th.allow("10.0.0.4")
	th.allow("10.0.0.5")

	// Sweeping with a future cutoff treats every visitor as idle.
	th.sweep(time.Now().Add(time.Minute))

	th.mu.Lock()
	n := len(th.visitors)
	th.mu.Unlock()
	if n != 0 {
		t.Fatalf("visitors after sweep = %d, want 0", n)
	}
}

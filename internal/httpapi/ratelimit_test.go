package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wirechat/wirechat/internal/auth"
)

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	// Slow refill so the burst exhausts deterministically.
	rl := NewRateLimiter(1, time.Hour, 3)

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow(1); !ok {
			t.Fatalf("request %d denied within burst", i+1)
		}
	}
	ok, wait := rl.Allow(1)
	if ok {
		t.Fatal("request allowed past burst")
	}
	if wait <= 0 {
		t.Errorf("wait = %v, want positive", wait)
	}
}

func TestRateLimiter_BucketsArePerUser(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour, 1)

	if ok, _ := rl.Allow(1); !ok {
		t.Fatal("first request denied")
	}
	if ok, _ := rl.Allow(1); ok {
		t.Fatal("second request from same user allowed")
	}
	if ok, _ := rl.Allow(2); !ok {
		t.Error("other user throttled by a stranger's bucket")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(userID int64) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		if userID != 0 {
			r = r.WithContext(auth.WithUser(r.Context(), userID, false))
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	if w := do(7); w.Code != http.StatusNoContent {
		t.Fatalf("first request code = %d", w.Code)
	}
	w := do(7)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request code = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on 429")
	}

	// Unauthenticated requests (public routes) bypass the limiter.
	if w := do(0); w.Code != http.StatusNoContent {
		t.Errorf("unauthenticated request code = %d", w.Code)
	}
}

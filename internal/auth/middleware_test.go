package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.IssuePair(42, true)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	var gotUserID int64
	var gotAdmin bool
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserID(r.Context())
		gotAdmin = IsAdmin(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(authorization string) int {
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		if authorization != "" {
			r.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	if code := do("Bearer " + pair.AccessToken); code != http.StatusNoContent {
		t.Fatalf("valid token code = %d", code)
	}
	if gotUserID != 42 || !gotAdmin {
		t.Errorf("context identity = %d/%v", gotUserID, gotAdmin)
	}

	for name, header := range map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"garbage token":  "Bearer garbage",
		"refresh token":  "Bearer " + pair.RefreshToken,
	} {
		if code := do(header); code != http.StatusUnauthorized {
			t.Errorf("%s: code = %d, want 401", name, code)
		}
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wirechat/wirechat/internal/store"
)

func TestParseLimit(t *testing.T) {
	cases := []struct {
		q    string
		def  int
		max  int
		want int
	}{
		{"", 50, 100, 50},
		{"25", 50, 100, 25},
		{"0", 50, 100, 50},
		{"-3", 50, 100, 50},
		{"1000", 50, 100, 100},
		{"abc", 50, 100, 50},
		{"100", 50, 100, 100},
	}
	for _, tc := range cases {
		if got := parseLimit(tc.q, tc.def, tc.max); got != tc.want {
			t.Errorf("parseLimit(%q, %d, %d) = %d, want %d", tc.q, tc.def, tc.max, got, tc.want)
		}
	}
}

func TestParseID(t *testing.T) {
	cases := []struct {
		q    string
		want int64
	}{
		{"", 0},
		{"42", 42},
		{"-5", 0},
		{"abc", 0},
	}
	for _, tc := range cases {
		if got := parseID(tc.q); got != tc.want {
			t.Errorf("parseID(%q) = %d, want %d", tc.q, got, tc.want)
		}
	}
}

func TestPathID(t *testing.T) {
	req := func(val string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", val)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	if id, ok := pathID(req("42"), "id"); !ok || id != 42 {
		t.Errorf("pathID(42) = %d, %v", id, ok)
	}
	for _, bad := range []string{"", "0", "-1", "abc"} {
		if _, ok := pathID(req(bad), "id"); ok {
			t.Errorf("pathID(%q) accepted", bad)
		}
	}
}

func TestStoreError_Mapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{store.ErrNotFound, http.StatusNotFound, "Not found"},
		{fmt.Errorf("get chat: %w", store.ErrNotFound), http.StatusNotFound, "Not found"},
		{store.ErrConflict, http.StatusConflict, "Already exists"},
		{store.ErrForeignKey, http.StatusBadRequest, "Referenced entity does not exist"},
		{errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/chats/1", nil)
		storeError(w, r, tc.err)

		if w.Code != tc.code {
			t.Errorf("storeError(%v) code = %d, want %d", tc.err, w.Code, tc.code)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("body is not JSON: %v", err)
		}
		if body["error"] != tc.msg {
			t.Errorf("storeError(%v) message = %q, want %q", tc.err, body["error"], tc.msg)
		}
	}
}

func TestWriteError_Shape(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusTeapot, "nope")

	if w.Code != http.StatusTeapot {
		t.Errorf("code = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] != "nope" {
		t.Errorf("body = %q (err %v)", w.Body.String(), err)
	}
}

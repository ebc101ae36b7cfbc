package main

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func multipartRequest(t *testing.T, withHeader bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("q1", "A")
	mw.WriteField("timestamp", "15/01/2567 17:00:00")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/submit", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if withHeader {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	return req
}

func TestTransportOf(t *testing.T) {
	form := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader("q1=A"))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	tests := []struct {
		name string
		req  *http.Request
		want string
	}{
		{"fetch", multipartRequest(t, true), "fetch"},
		{"xhr", multipartRequest(t, false), "xhr"},
		{"iframe", form, "iframe"},
		{"jsonp", httptest.NewRequest(http.MethodGet, "/submit?q1=A&callback=cb", nil), "jsonp"},
		{"probe", httptest.NewRequest(http.MethodGet, "/submit?test=1", nil), "probe"},
		{"unknown", httptest.NewRequest(http.MethodGet, "/submit", nil), ""},
	}
	for _, tt := range tests {
		if got := transportOf(tt.req); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestSubmit_RejectsConfiguredTransport(t *testing.T) {
	s := newStub("fetch, iframe")
	h := s.routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, true))
	if rec.Code != http.StatusForbidden {
		t.Errorf("fetch: expected 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, false))
	if rec.Code != http.StatusOK {
		t.Errorf("xhr: expected 200, got %d", rec.Code)
	}
	if s.count != 1 || s.rejected["fetch"] != 1 {
		t.Errorf("unexpected counters: count=%d rejected=%v", s.count, s.rejected)
	}
}

func TestSubmit_JSONPCallsBack(t *testing.T) {
	h := newStub("").routes()

	q := url.Values{"q1": {"A"}, "callback": {"__jsonp_cb_1"}}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/submit?"+q.Encode(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), `__jsonp_cb_1({"result":"success"`) {
		t.Errorf("unexpected script %q", rec.Body.String())
	}
}

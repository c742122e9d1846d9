package promexport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/ws", want: "/ws"},
		{path: "/data.js", want: "/data.js"},
		{path: "/api/v1/runs", want: "/api/v1/runs/*"},
		{path: "/api/v1/runs/history", want: "/api/v1/runs/*"},
		{path: "/api/v1/trends", want: "/api/v1/trends/*"},
		{path: "/api/v1/datafile/export", want: "/api/v1/datafile/*"},
		{path: "/api/v1/auth/login", want: "/api/v1/*"},
		{path: "/healthz", want: "other"},
		{path: "/", want: "other"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := normalizeRoute(tc.path); got != tc.want {
				t.Fatalf("normalizeRoute(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}

func TestMiddleware_RecordsRequests(t *testing.T) {
	m := New()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	wrapped := m.Middleware(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/history", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := scrape.Body.String()
	if !strings.Contains(body, `bench_requests_total{method="GET",route="/api/v1/runs/*",status="418"} 1`) {
		t.Fatalf("scrape output missing request counter:\n%s", body)
	}
}

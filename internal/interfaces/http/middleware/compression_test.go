package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveCompressed(t *testing.T, contentType, body string, acceptGzip bool) *httptest.ResponseRecorder {
	t.Helper()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	})

	req := httptest.NewRequest(http.MethodGet, "/data.js", nil)
	if acceptGzip {
		req.Header.Set("Accept-Encoding", "gzip")
	}
	rec := httptest.NewRecorder()
	Compression(next).ServeHTTP(rec, req)
	return rec
}

func TestCompression_DataFile(t *testing.T) {
	body := `window.BENCHMARK_DATA = {"entries":{}}` + strings.Repeat(" ", 256)
	rec := serveCompressed(t, "application/javascript; charset=utf-8", body, true)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatal("Expected data.js to be gzipped")
	}
	if rec.Header().Get("Vary") != "Accept-Encoding" {
		t.Error("Expected Vary: Accept-Encoding header")
	}

	gz, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("Failed to open gzip body: %v", err)
	}
	decoded, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("Failed to decompress body: %v", err)
	}
	if string(decoded) != body {
		t.Error("Decompressed body does not match original")
	}
}

func TestCompression_SkipsNonCompressibleTypes(t *testing.T) {
	rec := serveCompressed(t, "image/png", "fake image bytes", true)

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("Expected image response to pass through uncompressed")
	}
	if rec.Body.String() != "fake image bytes" {
		t.Error("Expected body unchanged")
	}
}

func TestCompression_NoAcceptEncoding(t *testing.T) {
	rec := serveCompressed(t, "application/json", `{"ok":true}`, false)

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("Expected uncompressed response without Accept-Encoding")
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Error("Expected body unchanged")
	}
}

func TestCompression_PreservesStatusCode(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	Compression(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	// http.Error выставляет text/plain, такой ответ сжимается
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Error("Expected error response to be gzipped")
	}
}

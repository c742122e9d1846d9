package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
	"sync"
)

// Сжимаем только то, что реально отдает сервис: data.js, JSON API
// и статические страницы. Остальное проходит как есть.
var compressibleTypes = []string{
	"application/javascript",
	"application/json",
	"text/html",
	"text/css",
	"text/plain",
}

func compressible(contentType string) bool {
	for _, t := range compressibleTypes {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

// Level 5: история бенчмарков в data.js сжимается в разы уже на
// средних уровнях, выше только растет CPU.
var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, 5)
		return w
	},
}

// gzipResponseWriter решает, сжимать ли ответ, в момент записи заголовков,
// когда handler уже выставил Content-Type.
type gzipResponseWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	compressing bool
	wroteHeader bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	if status != http.StatusNoContent && compressible(w.Header().Get("Content-Type")) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Del("Content-Length")
		w.gz.Reset(w.ResponseWriter)
		w.compressing = true
	}

	w.ResponseWriter.WriteHeader(status)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.compressing {
		return w.gz.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *gzipResponseWriter) close() {
	if w.compressing {
		_ = w.gz.Close()
	}
	w.gz.Reset(nil)
	gzipWriterPool.Put(w.gz)
}

// Compression добавляет gzip для клиентов с Accept-Encoding: gzip.
// WebSocket upgrade проходит мимо: hijack несовместим с оберткой writer'а.
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") ||
			r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Accept-Encoding")

		gzw := &gzipResponseWriter{
			ResponseWriter: w,
			gz:             gzipWriterPool.Get().(*gzip.Writer),
		}
		defer gzw.close()

		next.ServeHTTP(gzw, r)
	})
}

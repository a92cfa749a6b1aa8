package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig selects the routes whose responses are compressed.
type BrotliConfig struct {
	Quality int
	// MinLength is the smallest body worth compressing.
	MinLength int
	// Prefixes lists the route prefixes that may be compressed. Anything
	// else, including the websocket and webhook routes, passes through.
	Prefixes []string
	// StreamSuffixes marks routes under Prefixes that flush frame by frame.
	StreamSuffixes []string
}

// APIBrotli compresses JSON under /api/ except the checkout event streams.
// Quiz and plan listings are the payloads that usually cross MinLength.
var APIBrotli = BrotliConfig{
	Quality:        brotli.DefaultCompression,
	MinLength:      1024,
	Prefixes:       []string{"/api/"},
	StreamSuffixes: []string{"/events"},
}

func (cfg BrotliConfig) compresses(path string) bool {
	for _, suffix := range cfg.StreamSuffixes {
		if strings.HasSuffix(path, suffix) {
			return false
		}
	}
	for _, prefix := range cfg.Prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// brotliWriter holds the body back until it reaches min bytes, then switches
// to compressing everything written.
type brotliWriter struct {
	gin.ResponseWriter
	br      *brotli.Writer
	pending []byte
	min     int
	quality int
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	if w.br != nil {
		return w.br.Write(data)
	}
	w.pending = append(w.pending, data...)
	if len(w.pending) < w.min {
		return len(data), nil
	}

	h := w.ResponseWriter.Header()
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	w.br = brotli.NewWriterLevel(w.ResponseWriter, w.quality)
	if _, err := w.br.Write(w.pending); err != nil {
		return 0, err
	}
	w.pending = nil
	return len(data), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// finish ends the brotli stream, or writes a short body as is.
func (w *brotliWriter) finish() error {
	if w.br != nil {
		return w.br.Close()
	}
	if len(w.pending) == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.pending)
	w.pending = nil
	return err
}

// Brotli compresses responses on the configured routes for clients that accept br.
func Brotli(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = APIBrotli.MinLength
	}

	return func(c *gin.Context) {
		if !cfg.compresses(c.Request.URL.Path) {
			c.Next()
			return
		}
		c.Header("Vary", "Accept-Encoding")
		if !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		bw := &brotliWriter{ResponseWriter: c.Writer, min: cfg.MinLength, quality: cfg.Quality}
		c.Writer = bw
		defer func() {
			if err := bw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()
		c.Next()
	}
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}

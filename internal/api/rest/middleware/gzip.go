package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/danilovkiri/dk-go-panel/internal/api/rest/httputil"
)

type gzipBody struct {
	*gzip.Reader
	raw io.ReadCloser
}

func (b *gzipBody) Close() error {
	b.Reader.Close()
	return b.raw.Close()
}

// DecompressHandle transparently inflates gzip-encoded request bodies.
func DecompressHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(strings.ToLower(r.Header.Get("Content-Encoding")), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid gzip body")
			return
		}
		r.Body = &gzipBody{Reader: gz, raw: r.Body}
		r.Header.Del("Content-Encoding")
		r.Header.Del("Content-Length")
		r.ContentLength = -1
		next.ServeHTTP(w, r)
	})
}

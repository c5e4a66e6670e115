// Package devserver serves a built output directory over HTTP. It serves files only:
// there is no live reload or rebuild on change.
package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/uibundle/internal/logger"
)

var ErrNoContent = errors.New("content directory not found")

type Options struct {
	// Dir is the directory served
	Dir string
	// Prefix is stripped from request paths before lookup, for example /ui/
	Prefix string
	// CORSOrigins enables CORS for the listed origins when not empty
	CORSOrigins []string
}

// Handler returns the dev server handler for the options.
func Handler(log zerolog.Logger, opts Options) (http.Handler, error) {
	info, err := os.Stat(opts.Dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, opts.Dir)
	}

	files := http.FileServer(http.Dir(opts.Dir))

	var h http.Handler = &content{
		files:    files,
		prefixed: cacheControl(stripPrefix(opts.Prefix, files)),
	}

	h = gzhttp.GzipHandler(h)

	if len(opts.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		}).Handler(h)
	}

	return logger.HTTPRequests(log)(AccessLog()(h)), nil
}

// content serves /favicon.ico from the directory root regardless of prefix, and
// everything else below the prefix.
type content struct {
	files    http.Handler
	prefixed http.Handler
}

func (c *content) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/favicon.ico" {
		c.files.ServeHTTP(w, r)
		return
	}
	c.prefixed.ServeHTTP(w, r)
}

func stripPrefix(prefix string, h http.Handler) http.Handler {
	if prefix == "" || prefix == "/" {
		return h
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return http.StripPrefix(prefix, h)
}

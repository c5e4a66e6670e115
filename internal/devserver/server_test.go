package devserver

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func contentDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"favicon.ico":         "icon",
		"login.html":          "<html><body>login</body></html>",
		"bundle-abc123.js":    strings.Repeat("console.log('hello');\n", 200),
		"media/0123abcd.png":  "png",
		"styles-abc123.css":   "body{color:red}",
		"nested/page.html":    "<p>nested</p>",
		"nested/asset-01.txt": "text",
	}
	for name, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	}
	return dir
}

func newHandler(t *testing.T, opts Options) http.Handler {
	t.Helper()

	h, err := Handler(zerolog.Nop(), opts)
	require.NoError(t, err)
	return h
}

func get(h http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandler_missingDir(t *testing.T) {
	_, err := Handler(zerolog.Nop(), Options{Dir: filepath.Join(t.TempDir(), "missing")})
	require.ErrorIs(t, err, ErrNoContent)
}

func TestHandler_cacheControl(t *testing.T) {
	h := newHandler(t, Options{Dir: contentDir(t)})

	tests := []struct {
		name  string
		path  string
		cache string
	}{
		{name: "hashed script", path: "/bundle-abc123.js", cache: "public, max-age=31536000"},
		{name: "stylesheet", path: "/styles-abc123.css", cache: "public, max-age=31536000"},
		{name: "media", path: "/media/0123abcd.png", cache: "public, max-age=31536000"},
		{name: "page", path: "/login.html", cache: "no-cache"},
		{name: "nested page", path: "/nested/page.html", cache: "no-cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(h, tt.path, nil)
			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, tt.cache, w.Header().Get("Cache-Control"))
		})
	}
}

func TestHandler_prefix(t *testing.T) {
	h := newHandler(t, Options{Dir: contentDir(t), Prefix: "/ui/"})

	w := get(h, "/ui/login.html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "login")

	w = get(h, "/login.html", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_prefixWithoutSlashes(t *testing.T) {
	h := newHandler(t, Options{Dir: contentDir(t), Prefix: "ui"})

	w := get(h, "/ui/nested/asset-01.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text", w.Body.String())
}

func TestHandler_faviconBypassesPrefix(t *testing.T) {
	h := newHandler(t, Options{Dir: contentDir(t), Prefix: "/ui/"})

	w := get(h, "/favicon.ico", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "icon", w.Body.String())
	require.Empty(t, w.Header().Get("Cache-Control"))
}

func TestHandler_gzip(t *testing.T) {
	dir := contentDir(t)
	h := newHandler(t, Options{Dir: dir})

	w := get(h, "/bundle-abc123.js", map[string]string{"Accept-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)

	want, err := os.ReadFile(filepath.Join(dir, "bundle-abc123.js"))
	require.NoError(t, err)
	require.Equal(t, want, body)
}

func TestHandler_cors(t *testing.T) {
	h := newHandler(t, Options{Dir: contentDir(t), CORSOrigins: []string{"https://app.example.com"}})

	w := get(h, "/styles-abc123.css", map[string]string{"Origin": "https://app.example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(h, "/styles-abc123.css", map[string]string{"Origin": "https://evil.example.com"})
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

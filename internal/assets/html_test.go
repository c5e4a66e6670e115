package assets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/uibundle/internal/config"
)

const page = `<!DOCTYPE html>
<html>
<head><title>Login</title></head>
<body>
  <!-- comment -->
  <main>content</main>
</body>
</html>`

func TestInjectTags(t *testing.T) {
	tests := []struct {
		name   string
		inject config.Inject
		module bool
		// scriptAfter is the tag the script must follow
		scriptAfter string
	}{
		{name: "body", inject: config.InjectBody, scriptAfter: "<body>"},
		{name: "head", inject: config.InjectHead, scriptAfter: "<head>"},
		{name: "module", inject: config.InjectBody, module: true, scriptAfter: "<body>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := injectTags([]byte(page), tt.inject, []string{"bundle-1.js"}, []string{"styles-1.css"}, tt.module)
			require.NoError(t, err)

			html := string(out)
			require.Contains(t, html, `<link href="styles-1.css" rel="stylesheet"/>`)
			require.Less(t, strings.Index(html, "<link"), strings.Index(html, "</head>"))

			script := strings.Index(html, `<script src="bundle-1.js"`)
			require.Greater(t, script, strings.Index(html, tt.scriptAfter))
			if tt.inject == config.InjectHead {
				require.Less(t, script, strings.Index(html, "</head>"))
			}

			if tt.module {
				require.Contains(t, html, `type="module"`)
			} else {
				require.NotContains(t, html, `type="module"`)
			}
		})
	}
}

func TestInjectTags_synthesisesDocument(t *testing.T) {
	out, err := injectTags([]byte("<p>fragment</p>"), config.InjectBody, []string{"a.js"}, nil, false)
	require.NoError(t, err)
	require.Contains(t, string(out), `<body><p>fragment</p><script src="a.js"></script></body>`)
}

func TestMinifyHTML(t *testing.T) {
	both, err := minifyHTML([]byte(page), config.HTMLMinify{CollapseWhitespace: true, RemoveComments: true})
	require.NoError(t, err)
	stripOnly, err := minifyHTML([]byte(page), config.HTMLMinify{RemoveComments: true})
	require.NoError(t, err)
	collapseOnly, err := minifyHTML([]byte(page), config.HTMLMinify{CollapseWhitespace: true})
	require.NoError(t, err)

	for _, out := range [][]byte{both, stripOnly, collapseOnly} {
		require.Contains(t, string(out), "<main>content</main>")
		require.Contains(t, string(out), "</body>")
	}

	require.NotContains(t, string(both), "comment")
	require.NotContains(t, string(stripOnly), "comment")
	require.Contains(t, string(collapseOnly), "comment")

	require.Less(t, len(both), len(stripOnly))
	require.Less(t, len(stripOnly), len(page))
}

func TestPrefixed(t *testing.T) {
	require.Equal(t, []string{"/ui/a.js", "/ui/b.js"}, prefixed("/ui/", []string{"a.js", "b.js"}))
	require.Empty(t, prefixed("/ui/", nil))
}

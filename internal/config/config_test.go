package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func loginProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.js"), `import "./style.css";`)
	writeFile(t, filepath.Join(dir, "login.html"), `<html><body></body></html>`)
	return dir
}

func TestDefault_validates(t *testing.T) {
	dir := loginProject(t)

	cfg := Default()
	cfg.Context = dir

	v, err := cfg.Validate()
	require.NoError(t, err)

	require.Equal(t, ModeProduction, v.Mode())
	require.Equal(t, filepath.Join(dir, "index.js"), v.Entry())
	require.Equal(t, filepath.Join(dir, "dist"), v.OutputPath())
	require.Equal(t, "media/[hash]", v.AssetNames())
	require.Equal(t, "styles-[hash].css", v.ExtractCSS().Filename)
	require.Equal(t, "[id].css", v.ExtractCSS().ChunkFilename)
	require.True(t, v.Clean())
	require.Equal(t, map[string]string{"$": "jquery", "jQuery": "jquery"}, v.Provide())
	require.Len(t, v.Rules(), 2)
	require.Len(t, v.Optimizers(), 2)
	require.Equal(t, filepath.Join(dir, "dist"), v.DevServer().ContentBase)

	html := v.HTML()
	require.Len(t, html, 1)
	require.Equal(t, filepath.Join(dir, "login.html"), html[0].Template)
	require.Equal(t, InjectBody, html[0].Inject)
}

func TestDefault_fontsMatchVersionSuffix(t *testing.T) {
	dir := loginProject(t)
	cfg := Default()
	cfg.Context = dir

	v, err := cfg.Validate()
	require.NoError(t, err)

	fonts := v.Rules()[1].Matcher
	require.True(t, fonts.MatchString("fontawesome-webfont.woff2?v=4.7.0"))
	require.True(t, fonts.MatchString("logo.png"))
	require.False(t, fonts.MatchString("style.css"))
}

func TestValidate_developmentHasNoOptimizers(t *testing.T) {
	dir := loginProject(t)
	cfg := Default()
	cfg.Context = dir
	cfg.Mode = ModeDevelopment

	v, err := cfg.Validate()
	require.NoError(t, err)
	require.Empty(t, v.Optimizers())
	require.Len(t, v.Minimizers(), 2)
}

func TestValidate_accumulatesViolations(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Context = dir
	cfg.Mode = "staging"
	cfg.Entry = "./missing.js"
	cfg.Output.Filename = "bundle.js"
	cfg.Rules = append(cfg.Rules, Rule{Test: `\.(png`, Use: []Use{{Loader: ProcessorText}}})
	cfg.Rules = append(cfg.Rules, Rule{Test: `\.txt$`})
	cfg.Optimization.Minimizers = append(cfg.Optimization.Minimizers, Minimizer{Type: "wasm"})

	_, err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	for _, target := range []error{ErrInvalidMode, ErrMissingEntry, ErrBadPattern, ErrBadRule, ErrBadOptimizer, ErrBadPlugin} {
		require.ErrorIs(t, err, target)
	}
	// mode, entry, filename, bad regexp, empty chain, minimizer, missing template
	require.Len(t, verr.Violations, 7)
}

func TestValidate_missingEntry(t *testing.T) {
	dir := loginProject(t)
	cfg := Default()
	cfg.Context = dir
	cfg.Entry = "./nope.js"

	_, err := cfg.Validate()
	require.ErrorIs(t, err, ErrMissingEntry)
	require.NotErrorIs(t, err, ErrBadRule)
}

func TestValidate_rules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{
			name: "unknown processor",
			rule: Rule{Test: `\.less$`, Use: []Use{{Loader: "less"}}},
		},
		{
			name: "extract before css",
			rule: Rule{Test: `\.css$`, Use: []Use{{Loader: ProcessorExtractCSS}, {Loader: ProcessorCSS}}},
		},
		{
			name: "conflicting asset names",
			rule: Rule{Test: `\.webp$`, Use: []Use{{Loader: ProcessorFile, Options: map[string]string{"name": "img/[name].[ext]"}}}},
		},
		{
			name: "ext in the middle",
			rule: Rule{Test: `\.ico$`, Use: []Use{{Loader: ProcessorFile, Options: map[string]string{"name": "media/[ext]/[hash]"}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := loginProject(t)
			cfg := Default()
			cfg.Context = dir
			cfg.Rules = append(cfg.Rules, tt.rule)

			_, err := cfg.Validate()
			require.ErrorIs(t, err, ErrBadRule)
		})
	}
}

func TestValidate_outputContainingContext(t *testing.T) {
	dir := loginProject(t)
	cfg := Default()
	cfg.Context = dir
	cfg.Output.Path = "."

	_, err := cfg.Validate()
	require.ErrorIs(t, err, ErrBadOutput)
}

func TestValidate_plugins(t *testing.T) {
	dir := loginProject(t)
	cfg := Default()
	cfg.Context = dir
	cfg.Plugins.Provide["not-an-ident"] = "jquery"
	cfg.Plugins.HTML = append(cfg.Plugins.HTML, HTML{Template: "login.html", Filename: "login.html", Inject: "footer"})

	_, err := cfg.Validate()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 3)
	for _, v := range verr.Violations {
		require.True(t, errors.Is(v, ErrBadPlugin), v.Error())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ui", "index.js"), `console.log("hi")`)
	writeFile(t, filepath.Join(dir, "ui", "login.html"), `<html><body></body></html>`)
	writeFile(t, filepath.Join(dir, "uibundle.yaml"), `
mode: development
context: ui
entry: ./index.js
output:
  path: dist
  filename: bundle-[contenthash:8].js
rules:
  - test: '\.css$'
    use: [css-loader, mini-css-extract-plugin]
  - test: '\.(png|svg)$'
    use:
      - 'file-loader?&name=media/[hash].[ext]'
  - test: '\.txt$'
    use:
      - loader: text
plugins:
  clean: {}
  provide:
    $: jquery
  html:
    - template: login.html
      filename: login.html
      minify:
        collapseWhitespace: true
`)

	cfg, err := Load(filepath.Join(dir, "uibundle.yaml"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "ui"), cfg.Context)
	require.Equal(t, []Use{{Loader: ProcessorCSS}, {Loader: ProcessorExtractCSS}}, cfg.Rules[0].Use)
	require.Equal(t, Use{Loader: ProcessorFile, Options: map[string]string{"name": "media/[hash].[ext]"}}, cfg.Rules[1].Use[0])
	require.Equal(t, ProcessorText, cfg.Rules[2].Use[0].Loader)
	require.NotNil(t, cfg.Plugins.Clean)
	require.True(t, cfg.Plugins.HTML[0].Minify.CollapseWhitespace)

	v, err := cfg.Validate()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "ui", "dist"), v.OutputPath())
	require.Equal(t, "[name]-[contenthash].css", v.ExtractCSS().Filename)
	require.Empty(t, v.Optimizers())
}

func TestLoad_badShorthand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "uibundle.yaml"), `
rules:
  - test: '\.png$'
    use: ['?name=x']
`)

	_, err := Load(filepath.Join(dir, "uibundle.yaml"))
	require.ErrorIs(t, err, ErrBadRule)
}

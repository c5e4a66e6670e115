package config

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var (
	// ErrInvalidMode indicates the mode is neither development nor production
	ErrInvalidMode = errors.New("invalid mode")
	// ErrMissingEntry indicates the entry module does not exist
	ErrMissingEntry = errors.New("missing entry")
	// ErrBadRule indicates a transform rule is malformed
	ErrBadRule = errors.New("bad rule")
	// ErrBadPattern indicates an output filename pattern is malformed
	ErrBadPattern = errors.New("bad filename pattern")
	// ErrBadOutput indicates the output settings are unusable
	ErrBadOutput = errors.New("bad output")
	// ErrBadPlugin indicates an emission plugin is misconfigured
	ErrBadPlugin = errors.New("bad plugin")
	// ErrBadOptimizer indicates an optimization pass is misconfigured
	ErrBadOptimizer = errors.New("bad optimizer")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Violation is a single failed validation rule.
type Violation struct {
	Field string
	Err   error
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s: %v", v.Field, v.Err)
}

func (v Violation) Unwrap() error {
	return v.Err
}

// ValidationError lists every violation found in a configuration.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid build configuration (%d problems)", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.Error())
	}
	return b.String()
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Violations))
	for i, v := range e.Violations {
		errs[i] = v
	}
	return errs
}

// CompiledRule is a transform rule with its matcher compiled.
type CompiledRule struct {
	Index   int
	Test    string
	Matcher *regexp.Regexp
	Use     []Use
}

// Validated is a configuration that passed validation. All paths are absolute.
type Validated struct {
	mode       Mode
	context    string
	entry      string
	outputPath string
	output     Output
	devtool    string
	rules      []CompiledRule
	assetNames string
	minimizers []Minimizer
	cacheDir   string
	extractCSS ExtractCSS
	clean      bool
	provide    map[string]string
	html       []HTML
	devServer  DevServer
}

func (v *Validated) Mode() Mode { return v.mode }
func (v *Validated) Context() string { return v.context }
func (v *Validated) Entry() string { return v.entry }
func (v *Validated) OutputPath() string { return v.outputPath }
func (v *Validated) Output() Output { return v.output }
func (v *Validated) Devtool() string { return v.devtool }
func (v *Validated) Rules() []CompiledRule { return slices.Clone(v.rules) }
func (v *Validated) AssetNames() string { return v.assetNames }
func (v *Validated) CacheDir() string { return v.cacheDir }
func (v *Validated) ExtractCSS() ExtractCSS { return v.extractCSS }
func (v *Validated) Clean() bool { return v.clean }
func (v *Validated) HTML() []HTML { return slices.Clone(v.html) }
func (v *Validated) DevServer() DevServer { return v.devServer }
func (v *Validated) Production() bool { return v.mode == ModeProduction }
func (v *Validated) Minimizers() []Minimizer { return slices.Clone(v.minimizers) }
func (v *Validated) Provide() map[string]string { return maps.Clone(v.provide) }

// Optimizers returns the minimizers that apply to this build: none outside production.
func (v *Validated) Optimizers() []Minimizer {
	if !v.Production() {
		return nil
	}
	return v.Minimizers()
}

type validator struct {
	violations []Violation
}

func (c *validator) add(field string, err error) {
	c.violations = append(c.violations, Violation{Field: field, Err: err})
}

// Validate checks every rule and returns all violations together. The only I/O it
// performs is a stat of the entry module and HTML templates.
func (b *Build) Validate() (*Validated, error) {
	c := &validator{}
	v := &Validated{
		mode:      b.Mode,
		output:    b.Output,
		devtool:   b.Devtool,
		clean:     b.Plugins.Clean != nil,
		devServer: b.DevServer,
	}

	if b.Mode != ModeDevelopment && b.Mode != ModeProduction {
		c.add("mode", fmt.Errorf("%w: %q must be %q or %q", ErrInvalidMode, b.Mode, ModeDevelopment, ModeProduction))
	}

	ctxDir, err := filepath.Abs(cmp.Or(b.Context, "."))
	if err != nil {
		c.add("context", fmt.Errorf("%w: %v", ErrBadOutput, err))
	}
	v.context = ctxDir
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(ctxDir, p)
	}

	c.checkEntry(b.Entry, resolve, v)
	c.checkOutput(b.Output, resolve, v)

	switch b.Devtool {
	case "", "none", "inline":
	default:
		c.add("devtool", fmt.Errorf("%w: devtool %q must be none or inline", ErrBadOutput, b.Devtool))
	}

	c.checkRules(b.Rules, v)
	c.checkMinimizers(b.Optimization, resolve, v)
	c.checkPlugins(b.Plugins, resolve, v)

	if v.devServer.ContentBase == "" {
		v.devServer.ContentBase = v.outputPath
	} else {
		v.devServer.ContentBase = resolve(v.devServer.ContentBase)
	}
	if v.devServer.Listen == "" {
		v.devServer.Listen = "localhost:8080"
	}

	if len(c.violations) > 0 {
		return nil, &ValidationError{Violations: c.violations}
	}
	return v, nil
}

func (c *validator) checkEntry(entry string, resolve func(string) string, v *Validated) {
	if entry == "" {
		c.add("entry", fmt.Errorf("%w: no entry module configured", ErrMissingEntry))
		return
	}

	v.entry = resolve(entry)
	info, err := os.Stat(v.entry)
	switch {
	case err != nil:
		c.add("entry", fmt.Errorf("%w: %s", ErrMissingEntry, v.entry))
	case info.IsDir():
		c.add("entry", fmt.Errorf("%w: %s is a directory", ErrMissingEntry, v.entry))
	}
}

func (c *validator) checkOutput(out Output, resolve func(string) string, v *Validated) {
	if out.Path == "" {
		c.add("output.path", fmt.Errorf("%w: no output directory configured", ErrBadOutput))
	} else {
		v.outputPath = resolve(out.Path)
		// cleaning the context or one of its parents would delete the sources
		if rel, err := filepath.Rel(v.outputPath, v.context); err == nil && !strings.HasPrefix(rel, "..") {
			c.add("output.path", fmt.Errorf("%w: %s contains the build context", ErrBadOutput, v.outputPath))
		}
	}

	c.checkUniquePattern("output.filename", out.Filename, ".js")

	if out.Splitting {
		if v.output.ChunkFilename == "" {
			v.output.ChunkFilename = "chunk-[hash].js"
		}
		c.checkChunkPattern("output.chunkFilename", v.output.ChunkFilename)
	}

	for i, enc := range out.Compress {
		if enc != "gzip" && enc != "zstd" {
			c.add(fmt.Sprintf("output.compress[%d]", i), fmt.Errorf("%w: unknown encoding %q", ErrBadOutput, enc))
		}
	}

	if out.Manifest != "" && (filepath.IsAbs(out.Manifest) || strings.Contains(out.Manifest, "..")) {
		c.add("output.manifest", fmt.Errorf("%w: manifest %q must be relative to the output directory", ErrBadOutput, out.Manifest))
	}
}

func (c *validator) checkUniquePattern(field, pattern, ext string) {
	if err := CheckPattern(pattern); err != nil {
		c.add(field, err)
		return
	}
	if !HasUniqueToken(pattern) {
		c.add(field, fmt.Errorf("%w: %q has no [hash] or [contenthash] placeholder", ErrBadPattern, pattern))
	}
	if ext != "" && !strings.HasSuffix(pattern, ext) {
		c.add(field, fmt.Errorf("%w: %q must end in %s", ErrBadPattern, pattern, ext))
	}
}

// checkChunkPattern restricts split chunk names to placeholders esbuild understands.
func (c *validator) checkChunkPattern(field, pattern string) {
	if err := CheckPattern(pattern); err != nil {
		c.add(field, err)
		return
	}
	for _, m := range tokenPattern.FindAllStringSubmatch(pattern, -1) {
		if (m[1] != "hash" && m[1] != "name") || m[2] != "" {
			c.add(field, fmt.Errorf("%w: chunk names only support [name] and [hash], got %q", ErrBadPattern, m[0]))
		}
	}
	if !strings.HasSuffix(pattern, ".js") {
		c.add(field, fmt.Errorf("%w: %q must end in .js", ErrBadPattern, pattern))
	}
}

func (c *validator) checkRules(rules []Rule, v *Validated) {
	for i, rule := range rules {
		field := fmt.Sprintf("rules[%d]", i)

		matcher, err := regexp.Compile(rule.Test)
		switch {
		case rule.Test == "":
			c.add(field+".test", fmt.Errorf("%w: empty matcher", ErrBadRule))
		case err != nil:
			c.add(field+".test", fmt.Errorf("%w: %v", ErrBadRule, err))
		}

		if len(rule.Use) == 0 {
			c.add(field+".use", fmt.Errorf("%w: %q has no processors", ErrBadRule, rule.Test))
		}

		sawCSS := false
		for j, use := range rule.Use {
			useField := fmt.Sprintf("%s.use[%d]", field, j)
			if !use.Loader.Known() {
				c.add(useField, fmt.Errorf("%w: unknown processor %q", ErrBadRule, use.Loader))
				continue
			}

			switch use.Loader {
			case ProcessorCSS:
				sawCSS = true
			case ProcessorExtractCSS, ProcessorInlineCSS:
				if !sawCSS {
					c.add(useField, fmt.Errorf("%w: %s must follow the css processor", ErrBadRule, use.Loader))
				}
			case ProcessorFile:
				c.checkAssetName(useField, use.Options["name"], v)
			}
		}

		if err == nil && rule.Test != "" {
			v.rules = append(v.rules, CompiledRule{Index: i, Test: rule.Test, Matcher: matcher, Use: rule.Use})
		}
	}
}

// checkAssetName converts a file processor name such as "media/[hash].[ext]" into the
// esbuild asset naming scheme, which appends the extension itself.
func (c *validator) checkAssetName(field, name string, v *Validated) {
	if name == "" {
		name = "[hash].[ext]"
	}

	for _, m := range tokenPattern.FindAllStringSubmatch(name, -1) {
		switch m[1] {
		case "hash", "contenthash", "name", "ext":
		default:
			c.add(field+".name", fmt.Errorf("%w: unsupported placeholder %q in %q", ErrBadRule, m[0], name))
			return
		}
	}

	base := strings.TrimSuffix(name, ".[ext]")
	if strings.Contains(base, "[ext]") {
		c.add(field+".name", fmt.Errorf("%w: [ext] may only appear as the final .[ext] in %q", ErrBadRule, name))
		return
	}
	if strings.HasPrefix(base, "/") || strings.Contains(base, "..") {
		c.add(field+".name", fmt.Errorf("%w: %q must stay inside the output directory", ErrBadRule, name))
		return
	}
	base = strings.ReplaceAll(base, "[contenthash]", "[hash]")

	if v.assetNames != "" && v.assetNames != base {
		c.add(field+".name", fmt.Errorf("%w: all file processors must share one name pattern (%q vs %q)", ErrBadRule, v.assetNames, base))
		return
	}
	v.assetNames = base
}

func (c *validator) checkMinimizers(opt Optimization, resolve func(string) string, v *Validated) {
	seen := map[MinimizerType]bool{}
	for i, m := range opt.Minimizers {
		field := fmt.Sprintf("optimization.minimizer[%d]", i)
		if m.Type != MinimizerJS && m.Type != MinimizerCSS {
			c.add(field, fmt.Errorf("%w: unknown minimizer %q", ErrBadOptimizer, m.Type))
			continue
		}
		if seen[m.Type] {
			c.add(field, fmt.Errorf("%w: duplicate %s minimizer", ErrBadOptimizer, m.Type))
			continue
		}
		seen[m.Type] = true
		v.minimizers = append(v.minimizers, m)
	}
	if opt.CacheDir != "" {
		v.cacheDir = resolve(opt.CacheDir)
	}
}

func (c *validator) checkPlugins(p Plugins, resolve func(string) string, v *Validated) {
	v.extractCSS = ExtractCSS{
		Filename:      "[name]-[contenthash].css",
		ChunkFilename: "[id]-[contenthash].css",
	}
	if p.ExtractCSS != nil {
		if p.ExtractCSS.Filename != "" {
			v.extractCSS.Filename = p.ExtractCSS.Filename
		}
		if p.ExtractCSS.ChunkFilename != "" {
			v.extractCSS.ChunkFilename = p.ExtractCSS.ChunkFilename
		}
	}
	c.checkUniquePattern("plugins.extractCSS.filename", v.extractCSS.Filename, ".css")
	if err := CheckPattern(v.extractCSS.ChunkFilename); err != nil {
		c.add("plugins.extractCSS.chunkFilename", err)
	}

	v.provide = make(map[string]string, len(p.Provide))
	for symbol, module := range p.Provide {
		field := fmt.Sprintf("plugins.provide[%s]", symbol)
		if !identifierPattern.MatchString(symbol) {
			c.add(field, fmt.Errorf("%w: %q is not a valid identifier", ErrBadPlugin, symbol))
			continue
		}
		if strings.TrimSpace(module) == "" {
			c.add(field, fmt.Errorf("%w: no module for %q", ErrBadPlugin, symbol))
			continue
		}
		v.provide[symbol] = module
	}

	filenames := map[string]bool{}
	for i, h := range p.HTML {
		field := fmt.Sprintf("plugins.html[%d]", i)

		if h.Inject == "" {
			h.Inject = InjectBody
		}
		if h.Filename == "" {
			h.Filename = "index.html"
		}

		switch h.Inject {
		case InjectBody, InjectHead, InjectNone:
		default:
			c.add(field+".inject", fmt.Errorf("%w: inject %q must be body, head or none", ErrBadPlugin, h.Inject))
		}

		if filepath.IsAbs(h.Filename) || strings.Contains(h.Filename, "..") {
			c.add(field+".filename", fmt.Errorf("%w: %q must be relative to the output directory", ErrBadPlugin, h.Filename))
		}
		if filenames[h.Filename] {
			c.add(field+".filename", fmt.Errorf("%w: %q is generated twice", ErrBadPlugin, h.Filename))
		}
		filenames[h.Filename] = true

		if h.Template == "" {
			c.add(field+".template", fmt.Errorf("%w: no template configured", ErrBadPlugin))
		} else {
			h.Template = resolve(h.Template)
			if info, err := os.Stat(h.Template); err != nil || info.IsDir() {
				c.add(field+".template", fmt.Errorf("%w: template %s not found", ErrBadPlugin, h.Template))
			}
		}

		v.html = append(v.html, h)
	}
}

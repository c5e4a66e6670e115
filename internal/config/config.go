package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Build is the declarative build configuration. It is read once per invocation and
// validated into a Validated before any build runs.
type Build struct {
	Mode         Mode         `yaml:"mode"`
	Context      string       `yaml:"context"`
	Entry        string       `yaml:"entry"`
	Output       Output       `yaml:"output"`
	Devtool      string       `yaml:"devtool"`
	Rules        []Rule       `yaml:"rules"`
	Optimization Optimization `yaml:"optimization"`
	Plugins      Plugins      `yaml:"plugins"`
	DevServer    DevServer    `yaml:"devServer"`
}

type Output struct {
	// Directory all build artifacts are written to
	Path string `yaml:"path"`
	// Pattern for the entry bundle, e.g. "bundle-[hash].js"
	Filename string `yaml:"filename"`
	// Pattern for split JS chunks (only used with Splitting)
	ChunkFilename string `yaml:"chunkFilename"`
	// Prefix used for references written into generated HTML
	PublicPath string `yaml:"publicPath"`
	// Emit ESM with code splitting instead of a single IIFE bundle
	Splitting bool `yaml:"splitting"`
	// Precompressed siblings to emit next to text assets ("gzip", "zstd")
	Compress []string `yaml:"compress"`
	// Optional manifest file name, relative to Path
	Manifest string `yaml:"manifest"`
}

// Rule routes every module whose path matches Test through the Use chain.
type Rule struct {
	Test string `yaml:"test"`
	Use  []Use  `yaml:"use"`
}

type Optimization struct {
	Minimizers []Minimizer `yaml:"minimizer"`
	// Directory for the persistent minifier cache, empty keeps it in memory only
	CacheDir string `yaml:"cacheDir"`
}

type MinimizerType string

const (
	MinimizerJS  MinimizerType = "js"
	MinimizerCSS MinimizerType = "css"
)

type Minimizer struct {
	Type     MinimizerType `yaml:"type"`
	Cache    bool          `yaml:"cache"`
	Parallel bool          `yaml:"parallel"`
}

type Plugins struct {
	Clean      *Clean            `yaml:"clean"`
	ExtractCSS *ExtractCSS       `yaml:"extractCSS"`
	Provide    map[string]string `yaml:"provide"`
	HTML       []HTML            `yaml:"html"`
}

type Clean struct{}

type ExtractCSS struct {
	Filename      string `yaml:"filename"`
	ChunkFilename string `yaml:"chunkFilename"`
}

type Inject string

const (
	InjectBody Inject = "body"
	InjectHead Inject = "head"
	InjectNone Inject = "none"
)

type HTML struct {
	Template string     `yaml:"template"`
	Inject   Inject     `yaml:"inject"`
	Filename string     `yaml:"filename"`
	Title    string     `yaml:"title"`
	Minify   HTMLMinify `yaml:"minify"`
}

type HTMLMinify struct {
	CollapseWhitespace bool `yaml:"collapseWhitespace"`
	RemoveComments     bool `yaml:"removeComments"`
}

type DevServer struct {
	ContentBase string `yaml:"contentBase"`
	Listen      string `yaml:"listen"`
	Prefix      string `yaml:"prefix"`
}

// Default returns the login UI configuration: a production build of ./index.js with
// extracted CSS, hashed media, jQuery provided as $ and jQuery, and a minified login.html.
func Default() *Build {
	return &Build{
		Mode:    ModeProduction,
		Context: ".",
		Entry:   "./index.js",
		Output: Output{
			Path:     "dist",
			Filename: "bundle-[hash].js",
		},
		Devtool: "none",
		Rules: []Rule{
			{
				Test: `\.css$`,
				Use:  []Use{{Loader: ProcessorCSS}, {Loader: ProcessorExtractCSS}},
			},
			{
				Test: `\.(woff|woff2|ttf|eot|svg|gif|png|jpg)(\?v=[0-9]\.[0-9]\.[0-9])?$`,
				Use: []Use{{
					Loader:  ProcessorFile,
					Options: map[string]string{"name": "media/[hash].[ext]"},
				}},
			},
		},
		Optimization: Optimization{
			Minimizers: []Minimizer{
				{Type: MinimizerJS, Cache: true, Parallel: true},
				{Type: MinimizerCSS},
			},
		},
		Plugins: Plugins{
			Clean: &Clean{},
			ExtractCSS: &ExtractCSS{
				Filename:      "styles-[hash].css",
				ChunkFilename: "[id].css",
			},
			Provide: map[string]string{
				"$":      "jquery",
				"jQuery": "jquery",
			},
			HTML: []HTML{{
				Template: "login.html",
				Inject:   InjectBody,
				Filename: "login.html",
				Minify: HTMLMinify{
					CollapseWhitespace: true,
					RemoveComments:     true,
				},
			}},
		},
		DevServer: DevServer{
			ContentBase: "./dist",
			Listen:      "localhost:8080",
		},
	}
}

// Load reads a YAML build configuration. A relative or empty context is resolved
// against the directory containing the file.
func Load(path string) (*Build, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Build
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	dir := filepath.Dir(path)
	switch {
	case cfg.Context == "":
		cfg.Context = dir
	case !filepath.IsAbs(cfg.Context):
		cfg.Context = filepath.Join(dir, cfg.Context)
	}

	return &cfg, nil
}

// Resolve returns p relative to the build context unless it is already absolute.
func (b *Build) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.Context, p)
}

package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/uibundle/internal/config"
)

// transform bundles the entry with esbuild. Modules matching a rule are loaded through
// that rule's processor chain; stylesheets reached from the entry are extracted into
// their own outputs.
func (p *Pipeline) transform(ctx context.Context, b *build) error {
	log := zerolog.Ctx(ctx)
	cfg := b.cfg
	out := cfg.Output()

	plugins := []api.Plugin{rulesPlugin(cfg.Rules(), cfg.Context(), b.routes)}
	if len(b.inject) > 0 {
		plugins = append(plugins, globalsPlugin(b.inject[0], cfg.Context(), cfg.Provide()))
	}

	opts := api.BuildOptions{
		EntryPoints:   []string{cfg.Entry()},
		AbsWorkingDir: cfg.Context(),
		Bundle:        true,
		Write:         false,
		Outdir:        cfg.OutputPath(),
		EntryNames:    "[name]",
		AssetNames:    cfg.AssetNames(),
		PublicPath:    out.PublicPath,
		Platform:      api.PlatformBrowser,
		Format:        cond(out.Splitting, api.FormatESModule, api.FormatIIFE),
		Splitting:     out.Splitting,
		Inject:        b.inject,
		Plugins:       plugins,
		Metafile:      true,
		LogLevel:      api.LogLevelSilent,
		Sourcemap:     cond(cfg.Devtool() == "inline" && !cfg.Production(), api.SourceMapInline, api.SourceMapNone),
		Define: map[string]string{
			"process.env.NODE_ENV": fmt.Sprintf("%q", cfg.Mode()),
		},
	}
	if out.Splitting {
		opts.ChunkNames = strings.TrimSuffix(out.ChunkFilename, ".js")
	}

	result := api.Build(opts)

	for _, msg := range result.Warnings {
		ev := log.Warn().Str("warning", msg.Text)
		if msg.Location != nil {
			ev = ev.Str("file", msg.Location.File).Int("line", msg.Location.Line)
		}
		ev.Msg("Build warning")
	}

	if len(result.Errors) > 0 {
		return fromMessages(StageTransform, "esbuild", result.Errors)
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return stageErr(StageTransform, ErrProcessor, "metafile", err)
	}

	outputs, err := classify(cfg, result.OutputFiles, &metadata)
	if err != nil {
		return stageErr(StageTransform, ErrProcessor, "classify", err)
	}
	b.outputs = outputs

	for _, o := range b.outputs {
		log.Debug().Str("file", o.Path).Str("kind", string(o.Kind)).Int("bytes", len(o.Contents)).Msg("Transformed output")
	}

	return nil
}

// classify maps esbuild outputs to file kinds using the metafile, whose keys are relative
// to the working directory.
func classify(cfg *config.Validated, files []api.OutputFile, metadata *BuildMetadata) ([]*output, error) {
	kinds := make(map[string]FileKind, len(metadata.Outputs))
	for key, info := range metadata.Outputs {
		abs := filepath.Join(cfg.Context(), filepath.FromSlash(key))
		switch {
		case info.EntryPoint != "" && strings.HasSuffix(key, ".js"):
			kinds[abs] = KindScript
			if info.CSSBundle != "" {
				kinds[filepath.Join(cfg.Context(), filepath.FromSlash(info.CSSBundle))] = KindStyle
			}
		case strings.HasSuffix(key, ".js"):
			if _, ok := kinds[abs]; !ok {
				kinds[abs] = KindChunk
			}
		case strings.HasSuffix(key, ".css"):
			if _, ok := kinds[abs]; !ok {
				kinds[abs] = KindStyleChunk
			}
		case strings.HasSuffix(key, ".map"):
			kinds[abs] = KindSourceMap
		default:
			kinds[abs] = KindAsset
		}
	}

	outputs := make([]*output, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(cfg.OutputPath(), f.Path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("output %s escapes %s", f.Path, cfg.OutputPath())
		}
		rel = filepath.ToSlash(rel)

		kind, ok := kinds[f.Path]
		if !ok {
			kind = KindAsset
		}

		outputs = append(outputs, &output{
			Path:     rel,
			Source:   rel,
			Kind:     kind,
			Contents: f.Contents,
		})
	}

	slices.SortFunc(outputs, func(a, b *output) int { return strings.Compare(a.Path, b.Path) })
	return outputs, nil
}

// module is the unit flowing through a processor chain.
type module struct {
	Path     string
	Contents []byte
	Loader   api.Loader
}

type processorFunc func(m *module, options map[string]string) error

var processors = map[config.Processor]processorFunc{
	config.ProcessorCSS:        setLoader(api.LoaderCSS),
	config.ProcessorExtractCSS: extractCSS,
	config.ProcessorInlineCSS:  inlineCSS,
	config.ProcessorFile:       setLoader(api.LoaderFile),
	config.ProcessorJS:         setLoader(api.LoaderJS),
	config.ProcessorJSX:        setLoader(api.LoaderJSX),
	config.ProcessorTS:         setLoader(api.LoaderTS),
	config.ProcessorTSX:        setLoader(api.LoaderTSX),
	config.ProcessorJSON:       setLoader(api.LoaderJSON),
	config.ProcessorText:       setLoader(api.LoaderText),
	config.ProcessorDataURL:    setLoader(api.LoaderDataURL),
	config.ProcessorBase64:     setLoader(api.LoaderBase64),
	config.ProcessorBinary:     setLoader(api.LoaderBinary),
	config.ProcessorEmpty:      setLoader(api.LoaderEmpty),
}

func setLoader(loader api.Loader) processorFunc {
	return func(m *module, _ map[string]string) error {
		m.Loader = loader
		return nil
	}
}

// extractCSS keeps the stylesheet as CSS so esbuild emits it beside the bundle.
func extractCSS(m *module, _ map[string]string) error {
	if m.Loader != api.LoaderCSS {
		return fmt.Errorf("%s is not a stylesheet", m.Path)
	}
	return nil
}

// inlineCSS replaces the stylesheet with a module appending it to the document head.
// url() references are not rewritten.
func inlineCSS(m *module, _ map[string]string) error {
	if m.Loader != api.LoaderCSS {
		return fmt.Errorf("%s is not a stylesheet", m.Path)
	}

	css, err := json.Marshal(string(m.Contents))
	if err != nil {
		return err
	}

	m.Contents = fmt.Appendf(nil, `var css = %s;
var style = document.createElement("style");
style.appendChild(document.createTextNode(css));
document.head.appendChild(style);
export default css;
`, css)
	m.Loader = api.LoaderJS
	return nil
}

// runChain passes the module through each processor in declaration order.
func runChain(m *module, chain []config.Use) (string, error) {
	for _, use := range chain {
		fn, ok := processors[use.Loader]
		if !ok {
			return string(use.Loader), fmt.Errorf("unknown processor %q", use.Loader)
		}
		if err := fn(m, use.Options); err != nil {
			return string(use.Loader), err
		}
	}
	return "", nil
}

// rulesPlugin registers one OnLoad callback per rule in declaration order. esbuild
// tries callbacks in registration order and uses the first that returns contents, so
// the first matching rule wins.
func rulesPlugin(rules []config.CompiledRule, workDir string, routes *routeTable) api.Plugin {
	return api.Plugin{
		Name: "rules",
		Setup: func(build api.PluginBuild) {
			for _, rule := range rules {
				build.OnLoad(api.OnLoadOptions{Filter: rule.Test, Namespace: "file"},
					func(args api.OnLoadArgs) (api.OnLoadResult, error) {
						data, err := os.ReadFile(args.Path)
						if err != nil {
							return api.OnLoadResult{}, err
						}

						m := &module{Path: args.Path, Contents: data, Loader: api.LoaderDefault}
						if pass, err := runChain(m, rule.Use); err != nil {
							return api.OnLoadResult{Errors: []api.Message{{
								Text:     fmt.Sprintf("%s: %v", pass, err),
								Location: &api.Location{File: relTo(workDir, args.Path)},
							}}}, nil
						}

						routes.record(relTo(workDir, args.Path), rule)

						contents := string(m.Contents)
						return api.OnLoadResult{
							Contents:   &contents,
							Loader:     m.Loader,
							ResolveDir: filepath.Dir(args.Path),
						}, nil
					})
			}
		},
	}
}

// routeTable records which rule loaded each module. esbuild loads modules concurrently.
type routeTable struct {
	mu     sync.Mutex
	routes map[string]Route
}

func newRouteTable() *routeTable {
	return &routeTable{routes: make(map[string]Route)}
}

func (t *routeTable) record(path string, rule config.CompiledRule) {
	chain := make([]config.Processor, len(rule.Use))
	for i, u := range rule.Use {
		chain[i] = u.Loader
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[path] = Route{Path: path, Rule: rule.Index, Chain: chain}
}

func (t *routeTable) list() []Route {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Route) int { return strings.Compare(a.Path, b.Path) })
	return out
}

func relTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

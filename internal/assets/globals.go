package assets

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog"
)

// injectGlobals writes a shim module exporting every provided symbol and hands it to
// esbuild as an inject file, so unqualified uses of a symbol in any module bind to the
// shim's export. Symbols sharing a module share one import, and therefore one instance.
func (p *Pipeline) injectGlobals(ctx context.Context, b *build) error {
	provide := b.cfg.Provide()
	if len(provide) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(provide))
	for symbol := range provide {
		symbols = append(symbols, symbol)
	}
	slices.Sort(symbols)

	shim := globalsShim(provide, symbols)

	// the shim path shows up in development bundles, so keep it stable across builds
	dir := filepath.Join(os.TempDir(), "uibundle-"+digest([]byte(b.cfg.Context())))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return stageErr(StageGlobals, ErrWrite, "", err)
	}
	b.temp = append(b.temp, dir)

	// esbuild reports importers by their real path
	dir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return stageErr(StageGlobals, ErrWrite, "", err)
	}
	path := filepath.Join(dir, "globals-"+digest(shim)+".js")
	if err := os.WriteFile(path, shim, 0o600); err != nil {
		return stageErr(StageGlobals, ErrWrite, "", err)
	}

	b.inject = []string{path}
	for _, symbol := range symbols {
		b.globals = append(b.globals, Global{Symbol: symbol, Module: provide[symbol]})
		zerolog.Ctx(ctx).Info().Str("symbol", symbol).Str("module", provide[symbol]).Msg("Providing global")
	}

	return nil
}

func globalsShim(provide map[string]string, symbols []string) []byte {
	var modules []string
	exports := map[string][]string{}
	for _, symbol := range symbols {
		module := provide[symbol]
		if _, ok := exports[module]; !ok {
			modules = append(modules, module)
		}
		exports[module] = append(exports[module], symbol)
	}

	var sb strings.Builder
	for i, module := range modules {
		fmt.Fprintf(&sb, "import __provided%d from %q;\n", i, module)
	}
	for i, module := range modules {
		specs := make([]string, len(exports[module]))
		for j, symbol := range exports[module] {
			specs[j] = fmt.Sprintf("__provided%d as %s", i, symbol)
		}
		fmt.Fprintf(&sb, "export { %s };\n", strings.Join(specs, ", "))
	}
	return []byte(sb.String())
}

// globalsPlugin resolves the shim's imports from the build context rather than from the
// shim's own directory.
func globalsPlugin(shimPath, workDir string, provide map[string]string) api.Plugin {
	seen := map[string]bool{}
	var modules []string
	for _, m := range provide {
		if !seen[m] {
			seen[m] = true
			modules = append(modules, regexp.QuoteMeta(m))
		}
	}
	slices.Sort(modules)

	return api.Plugin{
		Name: "globals",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^(" + strings.Join(modules, "|") + ")$"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.Importer != shimPath {
						return api.OnResolveResult{}, nil
					}

					res := build.Resolve(args.Path, api.ResolveOptions{
						ResolveDir: workDir,
						Kind:       api.ResolveJSImportStatement,
					})
					if len(res.Errors) > 0 {
						return api.OnResolveResult{Errors: res.Errors}, nil
					}

					return api.OnResolveResult{
						Path:       res.Path,
						External:   res.External,
						Namespace:  res.Namespace,
						Suffix:     res.Suffix,
						PluginData: res.PluginData,
					}, nil
				})
		},
	}
}

// digest returns the lowercase hex CRC64-NVME of data.
func digest(data []byte) string {
	h := crc64nvme.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

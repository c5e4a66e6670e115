package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/uibundle/internal/config"
	"github.com/wolfeidau/uibundle/internal/telemetry"
)

// optimize runs the configured minimizers in order. Outside production there are none.
func (p *Pipeline) optimize(ctx context.Context, b *build) error {
	for _, m := range b.cfg.Optimizers() {
		var (
			files  []*output
			loader api.Loader
		)
		switch m.Type {
		case config.MinimizerJS:
			files, loader = b.outputsOf(KindScript, KindChunk), api.LoaderJS
		case config.MinimizerCSS:
			files, loader = b.outputsOf(KindStyle, KindStyleChunk), api.LoaderCSS
		default:
			return stageErr(StageOptimize, ErrProcessor, string(m.Type), errors.New("unknown minimizer"))
		}

		if err := p.minify(ctx, m, loader, files); err != nil {
			return err
		}

		zerolog.Ctx(ctx).Debug().Str("minimizer", string(m.Type)).Int("files", len(files)).Msg("Minified outputs")
	}
	return nil
}

// minify replaces the contents of every file with its minified form. Parallel runs
// produce the same outputs as sequential ones: each file is minified independently and
// results are applied in input order.
func (p *Pipeline) minify(ctx context.Context, m config.Minimizer, loader api.Loader, files []*output) error {
	pass := string(m.Type) + "-minimizer"
	results := make([][]byte, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cond(m.Parallel, runtime.GOMAXPROCS(0), 1))

	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			key := digest(append([]byte(pass+"\x00"), f.Contents...))
			if m.Cache {
				if cached, ok := p.cache.get(key); ok {
					telemetry.GetMetrics().MinifyCacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("minimizer", string(m.Type))))
					results[i] = cached
					return nil
				}
			}

			res := api.Transform(string(f.Contents), api.TransformOptions{
				Loader:            loader,
				Sourcefile:        f.Path,
				MinifyWhitespace:  true,
				MinifyIdentifiers: true,
				MinifySyntax:      true,
				LegalComments:     api.LegalCommentsNone,
			})
			if len(res.Errors) > 0 {
				return fromMessages(StageOptimize, pass, res.Errors)
			}

			if m.Cache {
				p.cache.put(ctx, key, res.Code)
			}
			results[i] = res.Code
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var se *StageError
		if errors.As(err, &se) {
			return se
		}
		return stageErr(StageOptimize, ErrProcessor, pass, err)
	}

	for i, f := range files {
		f.Contents = results[i]
	}
	return nil
}

// minifyCache holds minified outputs keyed by a digest of pass and input. It always
// caches in memory and additionally persists to dir when set.
type minifyCache struct {
	dir     string
	mu      sync.RWMutex
	entries map[string][]byte
}

func newMinifyCache(dir string) *minifyCache {
	return &minifyCache{dir: dir, entries: make(map[string][]byte)}
}

func (c *minifyCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()
	if ok || c.dir == "" {
		return data, ok
	}

	data, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	c.entries[key] = data
	c.mu.Unlock()
	return data, true
}

func (c *minifyCache) put(ctx context.Context, key string, data []byte) {
	c.mu.Lock()
	c.entries[key] = data
	c.mu.Unlock()

	if c.dir == "" {
		return
	}

	// cache write failures do not fail the build
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("dir", c.dir).Msg("Failed to create minify cache")
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, key), data, 0o600); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Failed to write minify cache entry")
	}
}

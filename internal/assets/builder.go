package assets

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/uibundle/internal/config"
	"github.com/wolfeidau/uibundle/internal/telemetry"
)

const tracerName = "github.com/wolfeidau/uibundle/internal/assets"

// StageName identifies one step of the build.
type StageName string

const (
	StageClean     StageName = "clean"
	StageGlobals   StageName = "globals"
	StageTransform StageName = "transform"
	StageOptimize  StageName = "optimize"
	StageNaming    StageName = "naming"
	StageEmit      StageName = "emit"
	StageHTML      StageName = "html"
	StageManifest  StageName = "manifest"
)

// Stage is a single step operating on the in-progress build.
type Stage func(ctx context.Context, b *build) error

// StageDef pairs a stage name with its function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline builds the configured entry into the output directory. Builds on one
// pipeline are serialised.
type Pipeline struct {
	config *config.Validated
	cache  *minifyCache
	mu     sync.Mutex
}

// New creates a pipeline for a validated configuration.
func New(cfg *config.Validated) *Pipeline {
	return &Pipeline{
		config: cfg,
		cache:  newMinifyCache(cfg.CacheDir()),
	}
}

// Stages returns the build stages in execution order.
func (p *Pipeline) Stages() []StageDef {
	return []StageDef{
		{Name: StageClean, Fn: p.clean},
		{Name: StageGlobals, Fn: p.injectGlobals},
		{Name: StageTransform, Fn: p.transform},
		{Name: StageOptimize, Fn: p.optimize},
		{Name: StageNaming, Fn: p.name},
		{Name: StageEmit, Fn: p.emit},
		{Name: StageHTML, Fn: p.generateHTML},
		{Name: StageManifest, Fn: p.writeManifest},
	}
}

// build is the state threaded through the stages of one build.
type build struct {
	cfg     *config.Validated
	inject  []string
	outputs []*output
	routes  *routeTable
	hash    string
	files   []File
	globals []Global
	// written holds absolute paths created in the output directory, for rollback
	written []string
	// temp holds scratch directories removed once the build finishes
	temp []string
}

// output is an in-memory build artifact before it is written.
type output struct {
	// Path relative to the output directory, slash separated
	Path     string
	Source   string
	Kind     FileKind
	Contents []byte
}

// Build runs every stage in order. Any failure aborts the build, and files written by
// this build are removed so no partial output remains.
func (p *Pipeline) Build(ctx context.Context) (*Manifest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := zerolog.Ctx(ctx)
	metrics := telemetry.GetMetrics()
	started := time.Now()
	modeAttr := metric.WithAttributes(attribute.String("mode", string(p.config.Mode())))

	b := &build{cfg: p.config, routes: newRouteTable()}
	defer b.removeTemp(ctx)

	log.Info().
		Str("entry", p.config.Entry()).
		Str("output", p.config.OutputPath()).
		Str("mode", string(p.config.Mode())).
		Msg("Building assets")

	for _, stage := range p.Stages() {
		if err := p.runStage(ctx, stage, b); err != nil {
			b.rollback(ctx)
			metrics.BuildErrorsTotal.Add(ctx, 1, modeAttr)
			return nil, err
		}
	}

	metrics.BuildsTotal.Add(ctx, 1, modeAttr)
	metrics.BuildDuration.Record(ctx, float64(time.Since(started).Milliseconds()), modeAttr)

	manifest := b.manifest()

	log.Info().
		Str("hash", manifest.Hash).
		Int("files", len(manifest.Files)).
		Dur("duration", time.Since(started)).
		Msg("Build complete")

	return manifest, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage StageDef, b *build) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "assets."+string(stage.Name))
	defer span.End()

	log := zerolog.Ctx(ctx)
	started := time.Now()

	log.Debug().Str("stage", string(stage.Name)).Msg("Stage started")

	err := stage.Fn(ctx, b)

	telemetry.GetMetrics().StageDuration.Record(ctx, float64(time.Since(started).Milliseconds()),
		metric.WithAttributes(attribute.String("stage", string(stage.Name))))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Str("stage", string(stage.Name)).Msg("Stage failed")
		return err
	}

	log.Debug().
		Str("stage", string(stage.Name)).
		Dur("duration", time.Since(started)).
		Msg("Stage finished")
	return nil
}

func (b *build) manifest() *Manifest {
	return &Manifest{
		Hash:    b.hash,
		Mode:    b.cfg.Mode(),
		Files:   b.files,
		Globals: b.globals,
		Modules: b.routes.list(),
	}
}

func (b *build) rollback(ctx context.Context) {
	for i := len(b.written) - 1; i >= 0; i-- {
		if err := os.Remove(b.written[i]); err != nil && !os.IsNotExist(err) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("file", b.written[i]).Msg("Failed to remove partial output")
		}
	}
	b.written = nil
}

func (b *build) removeTemp(ctx context.Context) {
	for _, dir := range b.temp {
		if err := os.RemoveAll(dir); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("dir", dir).Msg("Failed to remove temp dir")
		}
	}
}

func (b *build) outputsOf(kinds ...FileKind) []*output {
	var out []*output
	for _, o := range b.outputs {
		for _, k := range kinds {
			if o.Kind == k {
				out = append(out, o)
				break
			}
		}
	}
	return out
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}

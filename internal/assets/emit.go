package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/uibundle/internal/telemetry"
)

// clean removes everything inside the output directory before anything is written to it.
func (p *Pipeline) clean(ctx context.Context, b *build) error {
	dir := b.cfg.OutputPath()

	if !b.cfg.Clean() {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return stageErr(StageClean, ErrWrite, "", err)
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return stageErr(StageClean, ErrWrite, "", err)
		}
	}

	zerolog.Ctx(ctx).Debug().Str("dir", dir).Int("removed", len(entries)).Msg("Cleaned output directory")
	return nil
}

// emit writes every output and its precompressed siblings.
func (p *Pipeline) emit(ctx context.Context, b *build) error {
	if err := b.mkdirs(b.cfg.OutputPath()); err != nil {
		return stageErr(StageEmit, ErrWrite, "", err)
	}

	for _, o := range b.outputs {
		if err := b.writeFile(ctx, StageEmit, o.Path, o.Kind, o.Source, o.Contents); err != nil {
			return err
		}
	}
	return nil
}

// writeManifest writes the manifest file when one is configured.
func (p *Pipeline) writeManifest(ctx context.Context, b *build) error {
	name := b.cfg.Output().Manifest
	if name == "" {
		return nil
	}

	data, err := json.MarshalIndent(b.manifest(), "", "  ")
	if err != nil {
		return stageErr(StageManifest, ErrWrite, "", err)
	}

	b.files = append(b.files, File{Path: filepath.ToSlash(name), Kind: KindManifest, Size: len(data)})
	return b.writeRaw(ctx, StageManifest, filepath.ToSlash(name), data)
}

// writeFile writes one artifact, records it in the manifest and emits compressed siblings
// for text content.
func (b *build) writeFile(ctx context.Context, stage StageName, rel string, kind FileKind, source string, data []byte) error {
	if err := b.writeRaw(ctx, stage, rel, data); err != nil {
		return err
	}
	b.files = append(b.files, File{Path: rel, Kind: kind, Size: len(data), Source: source})
	telemetry.GetMetrics().OutputBytes.Add(ctx, int64(len(data)))

	zerolog.Ctx(ctx).Info().Str("file", rel).Int("bytes", len(data)).Msg("Built file")

	if !compressible(rel) {
		return nil
	}

	for _, enc := range b.cfg.Output().Compress {
		compressed, ext, err := compress(enc, data)
		if err != nil {
			return stageErr(stage, ErrWrite, enc, err)
		}
		if err := b.writeRaw(ctx, stage, rel+ext, compressed); err != nil {
			return err
		}
		b.files = append(b.files, File{Path: rel + ext, Kind: KindCompressed, Size: len(compressed), Source: rel})
	}
	return nil
}

// writeRaw writes data below the output directory, tracking created files and
// directories for rollback.
func (b *build) writeRaw(_ context.Context, stage StageName, rel string, data []byte) error {
	target := filepath.Join(b.cfg.OutputPath(), filepath.FromSlash(rel))

	if err := b.mkdirs(filepath.Dir(target)); err != nil {
		return stageErr(stage, ErrWrite, "", err)
	}

	if err := os.WriteFile(target, data, 0o644); err != nil { //nolint:gosec // web assets are world readable
		return stageErr(stage, ErrWrite, "", fmt.Errorf("failed to write %s: %w", rel, err))
	}
	b.written = append(b.written, target)
	return nil
}

func (b *build) mkdirs(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := b.mkdirs(filepath.Dir(dir)); err != nil {
		return err
	}
	if err := os.Mkdir(dir, 0o755); err != nil && !os.IsExist(err) {
		return err
	}
	b.written = append(b.written, dir)
	return nil
}

func compressible(rel string) bool {
	switch path.Ext(rel) {
	case ".js", ".css", ".html", ".svg", ".json", ".map":
		return true
	}
	return false
}

func compress(encoding string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer

	switch encoding {
	case "gzip":
		w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(data); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ".gz", nil

	case "zstd":
		enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, "", err
		}
		if _, err := enc.Write(data); err != nil {
			return nil, "", err
		}
		if err := enc.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ".zst", nil
	}

	return nil, "", fmt.Errorf("unknown encoding %q", encoding)
}

package assets

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/uibundle/internal/config"
)

// entryName is the [name] of the single entry, as in webpack's default chunk name.
const entryName = "main"

// name computes the build hash over every output and applies the filename patterns:
// output.filename to the entry script, extractCSS.filename to its stylesheet and
// extractCSS.chunkFilename to the remaining stylesheets. Other outputs keep the names
// esbuild gave them, since the bundle references them by those names.
func (p *Pipeline) name(ctx context.Context, b *build) error {
	b.hash = buildHash(b.outputs)

	extract := b.cfg.ExtractCSS()
	styleChunk := 0
	seen := make(map[string]string, len(b.outputs))

	for _, o := range b.outputs {
		vars := config.PatternVars{
			Hash:        b.hash,
			ContentHash: digest(o.Contents),
			Name:        strings.TrimSuffix(path.Base(o.Path), path.Ext(o.Path)),
			Ext:         strings.TrimPrefix(path.Ext(o.Path), "."),
		}

		switch o.Kind {
		case KindScript:
			vars.Name = entryName
			o.Path = config.ExpandPattern(b.cfg.Output().Filename, vars)
		case KindStyle:
			vars.Name = entryName
			o.Path = config.ExpandPattern(extract.Filename, vars)
		case KindStyleChunk:
			vars.ID = strconv.Itoa(styleChunk)
			styleChunk++
			o.Path = rebase(o.Source, config.ExpandPattern(extract.ChunkFilename, vars))
		}

		if prev, ok := seen[o.Path]; ok {
			return stageErr(StageNaming, ErrNameCollision, "",
				fmt.Errorf("%s and %s both expand to %s", prev, o.Source, o.Path))
		}
		seen[o.Path] = o.Source

		if o.Path != o.Source {
			zerolog.Ctx(ctx).Debug().Str("from", o.Source).Str("to", o.Path).Msg("Renamed output")
		}
	}

	return nil
}

// buildHash digests every output path and contents in path order, so identical inputs
// give identical hashes.
func buildHash(outputs []*output) string {
	h := crc64nvme.New()
	for _, o := range outputs {
		h.Write([]byte(o.Source))
		h.Write([]byte{0})
		h.Write(o.Contents)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// rebase keeps a renamed file in the directory of the original so relative references
// written by esbuild still resolve.
func rebase(original, name string) string {
	dir := path.Dir(original)
	if dir == "." {
		return name
	}
	return dir + "/" + name
}

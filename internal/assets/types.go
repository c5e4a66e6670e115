package assets

import (
	"slices"

	"github.com/wolfeidau/uibundle/internal/config"
)

// BuildMetadata is the subset of the esbuild metafile used to classify outputs.
type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	CSSBundle  string       `json:"cssBundle"`
	Imports    []ImportInfo `json:"imports"`
	Bytes      int          `json:"bytes"`
}

type ImportInfo struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

type FileKind string

const (
	KindScript     FileKind = "script"
	KindChunk      FileKind = "chunk"
	KindStyle      FileKind = "style"
	KindStyleChunk FileKind = "style-chunk"
	KindAsset      FileKind = "asset"
	KindSourceMap  FileKind = "sourcemap"
	KindHTML       FileKind = "html"
	KindCompressed FileKind = "compressed"
	KindManifest   FileKind = "manifest"
)

// File is one artifact written to the output directory.
type File struct {
	// Path relative to the output directory, slash separated
	Path string   `json:"path"`
	Kind FileKind `json:"kind"`
	Size int      `json:"size"`
	// Source is the pre-naming output the file was produced from
	Source string `json:"source,omitempty"`
}

// Global is a symbol bound in every module's scope without an import.
type Global struct {
	Symbol string `json:"symbol"`
	Module string `json:"module"`
}

// Route records which rule and chain a module was loaded through.
type Route struct {
	Path  string             `json:"path"`
	Rule  int                `json:"rule"`
	Chain []config.Processor `json:"chain"`
}

// Manifest describes the result of a build.
type Manifest struct {
	Hash    string      `json:"hash"`
	Mode    config.Mode `json:"mode"`
	Files   []File      `json:"files"`
	Globals []Global    `json:"globals,omitempty"`
	Modules []Route     `json:"modules,omitempty"`
}

// Scripts returns the entry scripts in emission order.
func (m *Manifest) Scripts() []string {
	return m.paths(KindScript)
}

// Styles returns every emitted stylesheet in emission order.
func (m *Manifest) Styles() []string {
	return m.paths(KindStyle, KindStyleChunk)
}

// Lookup returns the file with the given path.
func (m *Manifest) Lookup(path string) (File, bool) {
	for _, f := range m.Files {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// Route returns the route taken by the module at path, relative to the build context.
func (m *Manifest) Route(path string) (Route, bool) {
	for _, r := range m.Modules {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

func (m *Manifest) paths(kinds ...FileKind) []string {
	var out []string
	for _, f := range m.Files {
		if slices.Contains(kinds, f.Kind) {
			out = append(out, f.Path)
		}
	}
	return out
}

package assets

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wolfeidau/uibundle/internal/config"
)

// templateData is available to HTML templates, for those that place tags themselves.
type templateData struct {
	Title      string
	Mode       config.Mode
	Hash       string
	PublicPath string
	Scripts    []string
	Styles     []string
}

// generateHTML renders every HTML template after all assets are emitted, referencing the
// final hashed file names from the emitted files.
func (p *Pipeline) generateHTML(ctx context.Context, b *build) error {
	if len(b.cfg.HTML()) == 0 {
		return nil
	}

	manifest := b.manifest()
	public := b.cfg.Output().PublicPath
	data := templateData{
		Mode:       b.cfg.Mode(),
		Hash:       b.hash,
		PublicPath: public,
		Scripts:    prefixed(public, manifest.Scripts()),
		Styles:     prefixed(public, manifest.Styles()),
	}

	for _, h := range b.cfg.HTML() {
		data.Title = h.Title

		page, err := renderPage(h, data, b.cfg.Output().Splitting)
		if err != nil {
			return err
		}

		if err := b.writeFile(ctx, StageHTML, filepath.ToSlash(h.Filename), KindHTML, relTo(b.cfg.Context(), h.Template), page); err != nil {
			return err
		}
	}

	return nil
}

func renderPage(h config.HTML, data templateData, module bool) ([]byte, error) {
	src, err := os.ReadFile(h.Template)
	if err != nil {
		return nil, stageErr(StageHTML, ErrResolve, "template", err)
	}

	tmpl, err := template.New(filepath.Base(h.Template)).Parse(string(src))
	if err != nil {
		return nil, stageErr(StageHTML, ErrProcessor, "template", err)
	}

	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, data); err != nil {
		return nil, stageErr(StageHTML, ErrProcessor, "template", err)
	}

	page := rendered.Bytes()
	if h.Inject != config.InjectNone {
		if page, err = injectTags(page, h.Inject, data.Scripts, data.Styles, module); err != nil {
			return nil, stageErr(StageHTML, ErrProcessor, "inject", fmt.Errorf("%s: %w", h.Template, err))
		}
	}

	if h.Minify.CollapseWhitespace || h.Minify.RemoveComments {
		if page, err = minifyHTML(page, h.Minify); err != nil {
			return nil, stageErr(StageHTML, ErrProcessor, "html-minimizer", fmt.Errorf("%s: %w", h.Template, err))
		}
	}

	return page, nil
}

// injectTags adds a stylesheet link to the head for every style, and a script tag at the
// injection point for every script.
func injectTags(page []byte, inject config.Inject, scripts, styles []string, module bool) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	// the parser always synthesises head and body
	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)
	if head == nil || body == nil {
		return nil, fmt.Errorf("template has no head or body")
	}

	for _, href := range styles {
		head.AppendChild(&html.Node{
			Type:     html.ElementNode,
			Data:     "link",
			DataAtom: atom.Link,
			Attr: []html.Attribute{
				{Key: "href", Val: href},
				{Key: "rel", Val: "stylesheet"},
			},
		})
	}

	target := cond(inject == config.InjectHead, head, body)
	for _, src := range scripts {
		attrs := []html.Attribute{{Key: "src", Val: src}}
		if module {
			attrs = append(attrs, html.Attribute{Key: "type", Val: "module"})
		}
		target.AppendChild(&html.Node{
			Type:     html.ElementNode,
			Data:     "script",
			DataAtom: atom.Script,
			Attr:     attrs,
		})
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func minifyHTML(page []byte, opts config.HTMLMinify) ([]byte, error) {
	m := minify.New()
	m.Add("text/html", &mhtml.Minifier{
		KeepWhitespace:      !opts.CollapseWhitespace,
		KeepComments:        !opts.RemoveComments,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
		KeepDefaultAttrVals: true,
	})
	return m.Bytes("text/html", page)
}

func prefixed(prefix string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = prefix + p
	}
	return out
}

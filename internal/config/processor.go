package config

import (
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

// Processor names one step of a transform rule chain.
type Processor string

const (
	// ProcessorCSS parses the module as a stylesheet, resolving @import and url()
	ProcessorCSS Processor = "css"
	// ProcessorExtractCSS emits the stylesheet as a separate file instead of the JS bundle
	ProcessorExtractCSS Processor = "extract-css"
	// ProcessorInlineCSS turns the stylesheet into a JS module appending a <style> tag
	ProcessorInlineCSS Processor = "inline-css"
	// ProcessorFile copies the module to the output under a content hashed name
	ProcessorFile Processor = "file"

	ProcessorJS      Processor = "js"
	ProcessorJSX     Processor = "jsx"
	ProcessorTS      Processor = "ts"
	ProcessorTSX     Processor = "tsx"
	ProcessorJSON    Processor = "json"
	ProcessorText    Processor = "text"
	ProcessorDataURL Processor = "dataurl"
	ProcessorBase64  Processor = "base64"
	ProcessorBinary  Processor = "binary"
	ProcessorEmpty   Processor = "empty"
)

var knownProcessors = map[Processor]bool{
	ProcessorCSS:        true,
	ProcessorExtractCSS: true,
	ProcessorInlineCSS:  true,
	ProcessorFile:       true,
	ProcessorJS:         true,
	ProcessorJSX:        true,
	ProcessorTS:         true,
	ProcessorTSX:        true,
	ProcessorJSON:       true,
	ProcessorText:       true,
	ProcessorDataURL:    true,
	ProcessorBase64:     true,
	ProcessorBinary:     true,
	ProcessorEmpty:      true,
}

// Known reports whether p is a processor the pipeline implements.
func (p Processor) Known() bool {
	return knownProcessors[p]
}

// Use is a processor with its options. In YAML it is either a mapping
// {loader: file, options: {name: ...}} or the shorthand string "file?name=media/[hash].[ext]".
type Use struct {
	Loader  Processor         `yaml:"loader"`
	Options map[string]string `yaml:"options"`
}

func (u *Use) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := ParseUse(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*u = parsed
		return nil
	}

	type plain Use
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	p.Loader = normaliseProcessor(string(p.Loader))
	*u = Use(p)
	return nil
}

// ParseUse parses the "name?key=value&key=value" shorthand. A "-loader" suffix on the
// name is accepted and dropped.
func ParseUse(s string) (Use, error) {
	name, query, _ := strings.Cut(strings.TrimSpace(s), "?")
	if name == "" {
		return Use{}, fmt.Errorf("%w: empty processor in %q", ErrBadRule, s)
	}

	u := Use{Loader: normaliseProcessor(name)}

	query = strings.TrimLeft(query, "&")
	if query == "" {
		return u, nil
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return Use{}, fmt.Errorf("%w: malformed options in %q: %v", ErrBadRule, s, err)
	}

	u.Options = make(map[string]string, len(values))
	for k, v := range values {
		u.Options[k] = v[len(v)-1]
	}
	return u, nil
}

func normaliseProcessor(name string) Processor {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "-loader")
	if name == "mini-css-extract-plugin" {
		return ProcessorExtractCSS
	}
	return Processor(name)
}

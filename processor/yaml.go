package processor

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ZaguanLabs/modtl"
)

// YAMLProcessor handles YAML language files (Rails-style locale trees and
// similar). String scalars are entries keyed by their dotted path; keys,
// comments and non-string scalars are left alone.
type YAMLProcessor struct {
	indent int
}

// NewYAMLProcessor creates a YAML processor that writes with two-space
// indentation.
func NewYAMLProcessor() *YAMLProcessor {
	return &YAMLProcessor{indent: 2}
}

type parsedYAML struct {
	doc    *yaml.Node
	values []*yaml.Node
}

// Extract parses content and returns its string scalars in document order.
func (p *YAMLProcessor) Extract(content string) (any, []Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, nil, &modtl.ProcessorError{
			Message:     "failed to parse YAML",
			Cause:       err,
			ContentType: "yaml",
		}
	}

	parsed := &parsedYAML{doc: &doc}
	var entries []Entry

	var walk func(n *yaml.Node, path string)
	walk = func(n *yaml.Node, path string) {
		switch n.Kind {
		case yaml.DocumentNode:
			for _, c := range n.Content {
				walk(c, path)
			}
		case yaml.MappingNode:
			for i := 0; i+1 < len(n.Content); i += 2 {
				walk(n.Content[i+1], joinPath(path, n.Content[i].Value))
			}
		case yaml.SequenceNode:
			for i, c := range n.Content {
				walk(c, path+"["+strconv.Itoa(i)+"]")
			}
		case yaml.ScalarNode:
			if n.Tag != "!!str" || n.Value == "" {
				return
			}
			parsed.values = append(parsed.values, n)
			entries = append(entries, Entry{
				ID:       fmt.Sprintf("yaml-%d", len(entries)),
				Key:      path,
				Line:     n.Line,
				Text:     n.Value,
				Hash:     modtl.HashText(n.Value),
				NodeType: "yaml_value",
				Context:  "key: " + path,
			})
		}
	}
	walk(&doc, "")

	return parsed, entries, nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Apply sets translated values on the parsed tree and re-encodes it.
func (p *YAMLProcessor) Apply(parsed any, entries []Entry, translations map[string]string) (string, error) {
	py, ok := parsed.(*parsedYAML)
	if !ok {
		return "", &modtl.ProcessorError{
			Message:     "invalid parsed content type",
			ContentType: "yaml",
		}
	}

	for _, n := range py.values {
		if translated, ok := translations[modtl.HashText(n.Value)]; ok {
			n.Value = translated
		}
	}

	if py.doc.Kind == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(p.indent)
	if err := enc.Encode(py.doc); err != nil {
		return "", &modtl.ProcessorError{Message: "failed to encode YAML", Cause: err, ContentType: "yaml"}
	}
	if err := enc.Close(); err != nil {
		return "", &modtl.ProcessorError{Message: "failed to encode YAML", Cause: err, ContentType: "yaml"}
	}
	return buf.String(), nil
}

// ContentType returns "yaml".
func (p *YAMLProcessor) ContentType() string {
	return "yaml"
}

var _ ContentProcessor = (*YAMLProcessor)(nil)

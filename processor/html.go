package processor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ZaguanLabs/modtl"
)

// translatableAttrs are attributes whose values are shown to players.
var translatableAttrs = map[string]bool{
	"title":       true,
	"alt":         true,
	"placeholder": true,
	"aria-label":  true,
}

// HTMLProcessor extracts and applies translations to HTML content, such as
// in-game manuals and mod description pages.
type HTMLProcessor struct {
	ignoredTags map[string]bool
}

// NewHTMLProcessor creates a new HTML processor with default ignored tags.
func NewHTMLProcessor() *HTMLProcessor {
	return &HTMLProcessor{
		ignoredTags: modtl.IgnoredTags,
	}
}

// NewHTMLProcessorWithIgnoredTags creates a new HTML processor with custom ignored tags.
func NewHTMLProcessorWithIgnoredTags(tags []string) *HTMLProcessor {
	ignored := make(map[string]bool)
	for _, tag := range tags {
		ignored[strings.ToLower(tag)] = true
	}
	return &HTMLProcessor{
		ignoredTags: ignored,
	}
}

// skip reports whether an element and its subtree stay untranslated.
func (p *HTMLProcessor) skip(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if p.ignoredTags[strings.ToLower(n.Data)] {
		return true
	}
	for _, attr := range n.Attr {
		if attr.Key == "data-no-translate" {
			return true
		}
	}
	return false
}

// walk visits every translatable text node and attribute in document order.
func (p *HTMLProcessor) walk(doc *goquery.Document, text func(n *html.Node), attr func(n *html.Node, i int)) {
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if p.skip(n) {
			return
		}
		switch n.Type {
		case html.ElementNode:
			for i, a := range n.Attr {
				if translatableAttrs[a.Key] && strings.TrimSpace(a.Val) != "" {
					attr(n, i)
				}
			}
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				text(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for _, n := range doc.Nodes {
		visit(n)
	}
}

// Extract parses HTML and returns one entry per translatable text node or
// attribute. Entries with the same text share a hash.
func (p *HTMLProcessor) Extract(content string) (any, []Entry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, nil, &modtl.ProcessorError{
			Message:     "failed to parse HTML",
			Cause:       err,
			ContentType: "html",
		}
	}

	var entries []Entry
	p.walk(doc,
		func(n *html.Node) {
			trimmed := strings.TrimSpace(n.Data)
			e := Entry{
				ID:       fmt.Sprintf("node-%d", len(entries)),
				Key:      nodePath(n.Parent),
				Text:     trimmed,
				Hash:     modtl.HashText(trimmed),
				NodeType: "html_text",
				Context:  buildContext(n),
				Metadata: map[string]string{},
			}
			if n.Parent != nil {
				e.Metadata["parent_tag"] = n.Parent.Data
			}
			entries = append(entries, e)
		},
		func(n *html.Node, i int) {
			a := n.Attr[i]
			trimmed := strings.TrimSpace(a.Val)
			entries = append(entries, Entry{
				ID:       fmt.Sprintf("node-%d", len(entries)),
				Key:      nodePath(n) + "@" + a.Key,
				Text:     trimmed,
				Hash:     modtl.HashText(trimmed),
				NodeType: "html_attr",
				Context:  fmt.Sprintf("%s attribute of <%s>", a.Key, n.Data),
				Metadata: map[string]string{"attr": a.Key},
			})
		},
	)

	return doc, entries, nil
}

// Apply writes translations into the parsed document and serializes it.
func (p *HTMLProcessor) Apply(parsed any, entries []Entry, translations map[string]string) (string, error) {
	doc, ok := parsed.(*goquery.Document)
	if !ok {
		return "", &modtl.ProcessorError{
			Message:     "invalid parsed content type",
			ContentType: "html",
		}
	}

	p.walk(doc,
		func(n *html.Node) {
			if translated, ok := translations[modtl.HashText(n.Data)]; ok {
				n.Data = preserveWhitespace(n.Data, translated)
			}
		},
		func(n *html.Node, i int) {
			if translated, ok := translations[modtl.HashText(n.Attr[i].Val)]; ok {
				n.Attr[i].Val = translated
			}
		},
	)

	out, err := doc.Html()
	if err != nil {
		return "", &modtl.ProcessorError{
			Message:     "failed to serialize HTML",
			Cause:       err,
			ContentType: "html",
		}
	}
	return out, nil
}

// ContentType returns "html".
func (p *HTMLProcessor) ContentType() string {
	return "html"
}

// nodePath returns a slash-separated element path such as
// "html/body/div[1]/p[0]", indexing each element among same-named siblings.
func nodePath(n *html.Node) string {
	var parts []string
	for ; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		idx := 0
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode && s.Data == n.Data {
				idx++
			}
		}
		if n.Data == "html" || n.Data == "body" || n.Data == "head" {
			parts = append(parts, n.Data)
		} else {
			parts = append(parts, fmt.Sprintf("%s[%d]", n.Data, idx))
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// buildContext creates a disambiguation context string for a text node.
func buildContext(n *html.Node) string {
	parent := n.Parent
	if parent == nil {
		return ""
	}

	var parts []string
	var classAttr, idAttr string
	for _, attr := range parent.Attr {
		switch attr.Key {
		case "class":
			classAttr = attr.Val
		case "id":
			idAttr = attr.Val
		}
	}
	switch {
	case classAttr != "":
		parts = append(parts, fmt.Sprintf("in <%s class=%q>", parent.Data, classAttr))
	case idAttr != "":
		parts = append(parts, fmt.Sprintf("in <%s id=%q>", parent.Data, idAttr))
	default:
		parts = append(parts, fmt.Sprintf("in <%s>", parent.Data))
	}

	var siblings []string
	for sib := parent.FirstChild; sib != nil && len(siblings) < 3; sib = sib.NextSibling {
		if sib == n || sib.Type != html.TextNode {
			continue
		}
		if t := strings.TrimSpace(sib.Data); t != "" && len(t) < 100 {
			siblings = append(siblings, t)
		}
	}
	if len(siblings) > 0 {
		parts = append(parts, "with: "+strings.Join(siblings, ", "))
	}

	var ancestors []string
	for a, i := parent.Parent, 0; a != nil && i < 3; a, i = a.Parent, i+1 {
		if a.Type == html.ElementNode && a.Data != "html" && a.Data != "body" {
			ancestors = append([]string{a.Data}, ancestors...)
		}
	}
	if len(ancestors) > 0 {
		parts = append(parts, "inside: "+strings.Join(ancestors, " > "))
	}

	return strings.Join(parts, " | ")
}

// preserveWhitespace preserves the original leading/trailing whitespace.
func preserveWhitespace(original, translated string) string {
	trimmedLeft := strings.TrimLeft(original, " \t\n\r")
	leading := original[:len(original)-len(trimmedLeft)]
	trailing := trimmedLeft[len(strings.TrimRight(trimmedLeft, " \t\n\r")):]
	return leading + translated + trailing
}

var _ ContentProcessor = (*HTMLProcessor)(nil)

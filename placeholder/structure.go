package placeholder

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// Syntax names the format a restored string must stay well-formed in.
type Syntax string

const (
	SyntaxNone       Syntax = ""
	SyntaxXML        Syntax = "xml"
	SyntaxJSON       Syntax = "json"
	SyntaxYAML       Syntax = "yaml"
	SyntaxTOML       Syntax = "toml"
	SyntaxICU        Syntax = "icu"
	SyntaxINI        Syntax = "ini"
	SyntaxCSV        Syntax = "csv"
	SyntaxMarkdown   Syntax = "markdown"
	SyntaxProperties Syntax = "properties"
	SyntaxLua        Syntax = "lua"
)

// ParseSyntax maps a format name or file extension to a Syntax.
func ParseSyntax(name string) (Syntax, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "", "none", "text", "txt":
		return SyntaxNone, nil
	case "xml", "html", "htm", "xhtml":
		return SyntaxXML, nil
	case "json":
		return SyntaxJSON, nil
	case "yaml", "yml":
		return SyntaxYAML, nil
	case "toml":
		return SyntaxTOML, nil
	case "icu":
		return SyntaxICU, nil
	case "ini", "cfg":
		return SyntaxINI, nil
	case "csv":
		return SyntaxCSV, nil
	case "md", "markdown":
		return SyntaxMarkdown, nil
	case "properties":
		return SyntaxProperties, nil
	case "lua":
		return SyntaxLua, nil
	}
	return SyntaxNone, fmt.Errorf("unknown syntax %q", name)
}

var (
	icuHead  = regexp.MustCompile(`\{\s*[A-Za-z_]\w*\s*,\s*(?:plural|selectordinal|select)\s*,`)
	tagLike  = regexp.MustCompile(`</?[A-Za-z][\w:.-]*[^<>]*>`)
	fenceRow = regexp.MustCompile("(?m)^ {0,3}(?:```|~~~)")
)

// DetectSyntax guesses the structural syntax of a raw source string. It only
// recognises shapes that are unambiguous inside a single value.
func DetectSyntax(source string) Syntax {
	switch {
	case icuHead.MatchString(source):
		return SyntaxICU
	case fenceRow.MatchString(source):
		return SyntaxMarkdown
	case tagLike.MatchString(source):
		return SyntaxXML
	}
	return SyntaxNone
}

// StructureError reports a restored string that is no longer well-formed.
type StructureError struct {
	Kind   Kind
	Syntax Syntax
	Detail string
	Err    error
}

func (e *StructureError) Error() string {
	msg := fmt.Sprintf("%s (%s)", e.Kind, e.Syntax)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StructureError) Unwrap() error {
	return e.Err
}

// CheckStructure verifies that s is well-formed in the given syntax.
// SyntaxNone always passes.
func CheckStructure(syntax Syntax, s string) error {
	var err error
	switch syntax {
	case SyntaxNone:
		return nil
	case SyntaxXML:
		err = checkTags(s)
	case SyntaxJSON:
		err = checkJSON(s)
	case SyntaxYAML:
		var node yaml.Node
		if e := yaml.Unmarshal([]byte(s), &node); e != nil {
			err = &StructureError{Kind: KindParserError, Err: e}
		}
	case SyntaxTOML:
		var v map[string]any
		if _, e := toml.Decode(s, &v); e != nil {
			err = &StructureError{Kind: KindParserError, Err: e}
		}
	case SyntaxICU:
		err = checkICU(s)
	case SyntaxINI:
		err = checkINI(s)
	case SyntaxCSV:
		err = checkCSV(s)
	case SyntaxMarkdown:
		if n := len(fenceRow.FindAllStringIndex(s, -1)); n%2 != 0 {
			err = &StructureError{Kind: KindMarkdownFenceUnbalanced, Detail: fmt.Sprintf("%d fence lines", n)}
		}
	case SyntaxProperties:
		err = checkProperties(s)
	case SyntaxLua:
		err = checkLua(s)
	default:
		return fmt.Errorf("unknown syntax %q", syntax)
	}
	var se *StructureError
	if errors.As(err, &se) {
		se.Syntax = syntax
	}
	return err
}

// CheckAgainstSource verifies restored only when source itself passes the
// check, so pre-existing breakage in the source is not blamed on the
// translation.
func CheckAgainstSource(syntax Syntax, source, restored string) error {
	if CheckStructure(syntax, source) != nil {
		return nil
	}
	return CheckStructure(syntax, restored)
}

// ReportStructure converts a structural error into a failure report for seg.
func ReportStructure(seg *Segment, restored string, err error) *FailureReport {
	kind := KindMalformedAfterRestore
	var se *StructureError
	if errors.As(err, &se) {
		kind = se.Kind
	}
	return &FailureReport{
		Kind:         kind,
		Locator:      seg.Locator,
		Source:       seg.Source,
		Preprocessed: seg.Preprocessed,
		Candidate:    restored,
		Detail:       err.Error(),
		ShowDiff:     true,
	}
}

// Elements that never take a closing tag, including Unity/TMP inline tags.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "param": true,
	"source": true, "track": true, "wbr": true,
	"sprite": true, "quad": true, "space": true, "page": true,
}

func checkTags(s string) error {
	z := html.NewTokenizer(strings.NewReader(s))
	var stack []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return &StructureError{Kind: KindMalformedAfterRestore, Err: err}
			}
			if len(stack) > 0 {
				return &StructureError{
					Kind:   KindMalformedAfterRestore,
					Detail: "unclosed <" + strings.Join(stack, ">, <") + ">",
				}
			}
			return nil
		case html.StartTagToken:
			name := tagName(z)
			if !voidTags[name] {
				stack = append(stack, name)
			}
		case html.EndTagToken:
			name := tagName(z)
			if voidTags[name] {
				continue
			}
			if len(stack) == 0 || stack[len(stack)-1] != name {
				return &StructureError{Kind: KindMalformedAfterRestore, Detail: "unexpected </" + name + ">"}
			}
			stack = stack[:len(stack)-1]
		}
	}
}

// tagName returns the lower-cased element name, cut at '=' so rich-text tags
// like <color=#fff> match their </color>.
func tagName(z *html.Tokenizer) string {
	name, _ := z.TagName()
	if i := bytes.IndexByte(name, '='); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

func checkJSON(s string) error {
	dec := json.NewDecoder(strings.NewReader(s))
	var v any
	if err := dec.Decode(&v); err != nil {
		return &StructureError{Kind: KindParserError, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return &StructureError{Kind: KindParserError, Detail: "trailing data after value"}
	}
	return nil
}

// checkICU verifies that message braces are balanced, ignoring text quoted
// with ICU apostrophes.
func checkICU(s string) error {
	depth := 0
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			if i+1 < len(s) && s[i+1] == '\'' {
				i++
				continue
			}
			if quoted || i+1 < len(s) && (s[i+1] == '{' || s[i+1] == '}') {
				quoted = !quoted
			}
		case '{':
			if !quoted {
				depth++
			}
		case '}':
			if quoted {
				continue
			}
			depth--
			if depth < 0 {
				return &StructureError{Kind: KindICUUnbalanced, Detail: fmt.Sprintf("unexpected '}' at offset %d", i)}
			}
		}
	}
	if depth != 0 {
		return &StructureError{Kind: KindICUUnbalanced, Detail: fmt.Sprintf("%d unclosed '{'", depth)}
	}
	return nil
}

func checkINI(s string) error {
	sc := bufio.NewScanner(strings.NewReader(s))
	line := 0
	for sc.Scan() {
		line++
		t := strings.TrimSpace(sc.Text())
		switch {
		case t == "", strings.HasPrefix(t, ";"), strings.HasPrefix(t, "#"):
		case strings.HasPrefix(t, "["):
			if !strings.HasSuffix(t, "]") || len(t) < 3 {
				return &StructureError{Kind: KindMalformedAfterRestore, Detail: fmt.Sprintf("line %d: bad section header", line)}
			}
		default:
			i := strings.IndexAny(t, "=:")
			if i <= 0 {
				return &StructureError{Kind: KindMalformedAfterRestore, Detail: fmt.Sprintf("line %d: expected key=value", line)}
			}
		}
	}
	return nil
}

func checkCSV(s string) error {
	r := csv.NewReader(strings.NewReader(s))
	if _, err := r.ReadAll(); err != nil {
		return &StructureError{Kind: KindParserError, Err: err}
	}
	return nil
}

// checkProperties validates Java .properties backslash escapes.
func checkProperties(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			continue
		}
		if i+1 >= len(s) {
			return &StructureError{Kind: KindPropertiesEscapeInvalid, Detail: "dangling backslash"}
		}
		c := s[i+1]
		switch c {
		case 't', 'n', 'r', 'f', '\\', '=', ':', '#', '!', ' ', '"', '\'', '\n', '\r':
			i++
		case 'u':
			if i+6 > len(s) || !isHex(s[i+2:i+6]) {
				return &StructureError{Kind: KindPropertiesEscapeInvalid, Detail: fmt.Sprintf("bad unicode escape at offset %d", i)}
			}
			i += 5
		default:
			return &StructureError{Kind: KindPropertiesEscapeInvalid, Detail: fmt.Sprintf("unknown escape \\%c at offset %d", c, i)}
		}
	}
	return nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// checkLua verifies that every Lua string literal in s is terminated.
func checkLua(s string) error {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\'':
			q := s[i]
			j := i + 1
			for ; j < len(s); j++ {
				if s[j] == '\\' {
					j++
					continue
				}
				if s[j] == q {
					break
				}
				if s[j] == '\n' {
					return &StructureError{Kind: KindLuaStringUnbalanced, Detail: fmt.Sprintf("newline in string at offset %d", i)}
				}
			}
			if j >= len(s) {
				return &StructureError{Kind: KindLuaStringUnbalanced, Detail: fmt.Sprintf("unterminated string at offset %d", i)}
			}
			i = j
		case '[':
			level, ok := longBracket(s, i)
			if !ok {
				continue
			}
			closer := "]" + strings.Repeat("=", level) + "]"
			end := strings.Index(s[i+level+2:], closer)
			if end < 0 {
				return &StructureError{Kind: KindLuaStringUnbalanced, Detail: fmt.Sprintf("unterminated long string at offset %d", i)}
			}
			i += level + 2 + end + len(closer) - 1
		}
	}
	return nil
}

// longBracket reports whether s[i:] opens a long bracket and its level.
func longBracket(s string, i int) (int, bool) {
	j := i + 1
	for j < len(s) && s[j] == '=' {
		j++
	}
	if j < len(s) && s[j] == '[' {
		return j - i - 1, true
	}
	return 0, false
}

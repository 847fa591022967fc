package protect

import (
	"errors"
	"strings"
	"testing"
)

func TestProtect_Empty(t *testing.T) {
	p := NewProtector(nil)
	f := p.Protect("")

	if f.Masked() != "" {
		t.Errorf("Expected empty masked text, got %q", f.Masked())
	}
	if f.Len() != 0 {
		t.Errorf("Expected no tokens, got %d", f.Len())
	}
	if f.Hash() == "" {
		t.Error("Hash should be set for empty input")
	}
}

func TestProtect_Placeholder(t *testing.T) {
	p := NewProtector(nil)
	f := p.Protect("Use {0} and keep it.")

	want := "Use ⟦MT:DOTNET:0⟧ and keep it."
	if f.Masked() != want {
		t.Errorf("Expected %q, got %q", want, f.Masked())
	}

	tok, ok := f.Lookup("⟦MT:DOTNET:0⟧")
	if !ok {
		t.Fatal("Expected marker to be indexed")
	}
	if tok.Value != "{0}" || tok.Start != 4 || tok.End != 7 {
		t.Errorf("Unexpected token: %+v", tok)
	}
}

func TestProtect_ICUClaimsInnerBraces(t *testing.T) {
	p := NewProtector(nil)
	in := "You have {count, plural, one {# item} other {# items}} left"
	f := p.Protect(in)

	if f.Len() != 1 {
		t.Fatalf("Expected a single ICU token, got %d: %v", f.Len(), f.Markers())
	}
	tok := f.TokenMap().Tokens[0]
	if tok.Class != ClassICU {
		t.Errorf("Expected ICU class, got %s", tok.Class)
	}
	if tok.Value != "{count, plural, one {# item} other {# items}}" {
		t.Errorf("Unexpected ICU value %q", tok.Value)
	}
}

func TestProtect_PriorityAndOrder(t *testing.T) {
	p := NewProtector(nil)
	in := `<color=#FF0000>{{hero}}</color> deals %d damage\n[b]now[/b] &amp; §a`
	f := p.Protect(in)

	wantClasses := []Class{
		ClassRichText, ClassTemplate, ClassRichText, ClassPrintf, ClassEscape,
		ClassBBCode, ClassBBCode, ClassEntity, ClassColor,
	}
	toks := f.TokenMap().Tokens
	if len(toks) != len(wantClasses) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(wantClasses), len(toks), f.Markers())
	}
	for i, tok := range toks {
		if tok.Class != wantClasses[i] {
			t.Errorf("token %d: expected class %s, got %s (%q)", i, wantClasses[i], tok.Class, tok.Value)
		}
		if i > 0 && toks[i-1].End > tok.Start {
			t.Errorf("token %d overlaps previous token", i)
		}
		if tok.Marker != Marker(tok.Class, i) {
			t.Errorf("token %d: expected marker %q, got %q", i, Marker(tok.Class, i), tok.Marker)
		}
	}
}

func TestProtect_Numbers(t *testing.T) {
	p := NewProtector(nil)
	tests := []struct {
		in    string
		class Class
	}{
		{"Weighs 10kg", ClassUnit},
		{"Walk 5 km north", ClassUnit},
		{"Wait 30s then run", ClassUnit},
		{"Chance 50%", ClassPercent},
		{"Level 10-20", ClassRange},
		{"About 6.02e23 atoms", ClassScientific},
		{"Solve $x^2 = 4$ now", ClassMath},
		{"Open textures/ui/icon.png", ClassPath},
		{"Set ${name} please", ClassShell},
		{"Ruler [Root.GetName] rises", ClassEngine},
		{"See [[wiki_link]]", ClassDoubleBracket},
		{"Hello $PLAYER_NAME$", ClassKey},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f := p.Protect(tt.in)
			if f.Len() != 1 {
				t.Fatalf("Expected 1 token, got %d: %v", f.Len(), f.Markers())
			}
			if got := f.TokenMap().Tokens[0].Class; got != tt.class {
				t.Errorf("Expected class %s, got %s", tt.class, got)
			}
		})
	}
}

func TestProtect_SpacedSingleLetterIsProse(t *testing.T) {
	p := NewProtector(nil)
	tests := []string{
		"Chapter 3 A new dawn",
		"Take 2 s and go",
		"Only 1 m left",
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			f := p.Protect(in)
			if f.Len() != 0 {
				t.Errorf("Expected no tokens, got %v", f.TokenMap().Tokens)
			}
		})
	}
}

func TestProtect_PlainTextUntouched(t *testing.T) {
	p := NewProtector(nil)
	in := "A quiet village, e.g. the one by the river."
	f := p.Protect(in)

	if f.Masked() != in {
		t.Errorf("Expected text to pass through, got %q", f.Masked())
	}
}

func TestProtect_ReservedDelimitersInInput(t *testing.T) {
	p := NewProtector(nil)
	in := "literal ⟦MT:TAG:7⟧ text"
	f := p.Protect(in)

	if strings.Count(f.Masked(), MarkerOpen) != f.Len() {
		t.Errorf("Every delimiter in masked text should belong to a marker: %q", f.Masked())
	}
	got, err := Restore(f, f.Masked())
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got != in {
		t.Errorf("Expected %q, got %q", in, got)
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	p := NewProtector(nil)
	inputs := []string{
		"",
		"plain text",
		"Use {0} and keep it.",
		"Speed {0}%",
		"<b>Bold</b> and <i>{name}</i>",
		"{n, select, male {He} female {She} other {They}} said %1$s",
		"Line one\\nLine two\\tTabbed | piped",
		"Cost: 100 gold & 5 gems &lt;3",
		"§cWarning§r: %% done, 3.5 km away",
		"Path mods/core/defs.xml and ui.main_menu",
		"Unterminated {count, plural, one {x}",
		"日本語の{0}テキスト<br/>です",
		"⟦⟧⟦",
	}

	for _, in := range inputs {
		f := p.Protect(in)
		got, err := Restore(f, f.Masked())
		if err != nil {
			t.Errorf("Restore(%q) failed: %v", in, err)
			continue
		}
		if got != in {
			t.Errorf("Round trip mismatch: want %q, got %q", in, got)
		}
	}
}

func TestRestore_MissingTokens(t *testing.T) {
	p := NewProtector(nil)
	f := p.Protect("Use {0} and keep it.")
	marker := f.Markers()[0]

	candidate := strings.Replace(f.Masked(), marker, "", 1)
	_, err := Restore(f, candidate)

	var missing *MissingTokensError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingTokensError, got %v", err)
	}
	if len(missing.Markers) != 1 || missing.Markers[0] != marker {
		t.Errorf("Expected [%s], got %v", marker, missing.Markers)
	}

	var unexpected *UnexpectedTokensError
	if errors.As(err, &unexpected) {
		t.Error("Did not expect UnexpectedTokensError")
	}
}

func TestRestore_UnexpectedTokens(t *testing.T) {
	p := NewProtector(nil)
	f := p.Protect("Use {0} and keep it.")
	injected := Marker(ClassDotNet, 99)

	out, err := Restore(f, f.Masked()+injected)

	var unexpected *UnexpectedTokensError
	if !errors.As(err, &unexpected) {
		t.Fatalf("Expected UnexpectedTokensError, got %v", err)
	}
	if len(unexpected.Markers) != 1 || unexpected.Markers[0] != injected {
		t.Errorf("Expected [%s], got %v", injected, unexpected.Markers)
	}
	if !strings.HasSuffix(out, injected) {
		t.Errorf("Unknown marker should be kept verbatim, got %q", out)
	}
	if !strings.HasPrefix(out, "Use {0} and keep it.") {
		t.Errorf("Known markers should still be restored, got %q", out)
	}
}

func TestRestore_MissingAndUnexpected(t *testing.T) {
	p := NewProtector(nil)
	f := p.Protect("<b>hi</b>")

	_, err := Restore(f, "⟦MT:TAG:5⟧hi⟦MT:RICHTEXT:1⟧")

	var missing *MissingTokensError
	var unexpected *UnexpectedTokensError
	if !errors.As(err, &missing) || !errors.As(err, &unexpected) {
		t.Fatalf("Expected both error kinds, got %v", err)
	}
	if len(missing.Markers) != 1 || missing.Markers[0] != "⟦MT:RICHTEXT:0⟧" {
		t.Errorf("Unexpected missing list %v", missing.Markers)
	}
}

func TestRestore_ReorderedMarkers(t *testing.T) {
	p := NewProtector(nil)
	f := p.Protect("{0} of {1}")

	got, err := Restore(f, "⟦MT:DOTNET:1⟧의 ⟦MT:DOTNET:0⟧")
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got != "{1}의 {0}" {
		t.Errorf("Expected reordered restore, got %q", got)
	}
}

func TestParseMarker(t *testing.T) {
	tests := []struct {
		in    string
		class Class
		index int
		ok    bool
	}{
		{"⟦MT:TAG:0⟧", ClassTag, 0, true},
		{"⟦MT:DOUBLE_BRACKET:12⟧", ClassDoubleBracket, 12, true},
		{"⟦MT:tag:0⟧", "", 0, false},
		{"⟦MT:TAG:⟧", "", 0, false},
		{"[MT:TAG:0]", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, i, ok := ParseMarker(tt.in)
			if ok != tt.ok || c != tt.class || i != tt.index {
				t.Errorf("ParseMarker(%q) = %s, %d, %v", tt.in, c, i, ok)
			}
		})
	}
}

func TestMarkerPattern_ClosedSet(t *testing.T) {
	re := MarkerPattern(ClassTag, ClassICU)

	if !re.MatchString("x ⟦MT:ICU:3⟧ y") {
		t.Error("Expected ICU marker to match")
	}
	if re.MatchString("⟦MT:BOGUS:3⟧") {
		t.Error("Unknown class should not match a closed pattern")
	}
	if !MarkerPattern().MatchString("⟦MT:BOGUS:3⟧") {
		t.Error("Structural pattern should match any class tag")
	}
}

func TestClass_Pairable(t *testing.T) {
	if !ClassTag.Pairable() || !ClassBBCode.Pairable() || !ClassRichText.Pairable() {
		t.Error("Tag-like classes should be pairable")
	}
	if ClassDotNet.Pairable() {
		t.Error("Placeholders are not pairable")
	}
	if !ClassPath.Valid() || Class("NOPE").Valid() {
		t.Error("Valid() mismatch")
	}
}

func FuzzProtectRestore(f *testing.F) {
	for _, seed := range []string{
		"",
		"Use {0} and keep it.",
		"Speed {0}%",
		"<b>Bold</b> and <i>{name}</i>",
		"{n, select, male {He} female {She} other {They}} said %1$s",
		"§cWarning§r: %% done, 3.5 km away",
		"Unterminated {count, plural, one {x}",
		"日本語の{0}テキスト<br/>です",
		"⟦MT:TAG:0⟧ literal ⟦⟧",
	} {
		f.Add(seed)
	}

	p := NewProtector(nil)
	f.Fuzz(func(t *testing.T, in string) {
		frag := p.Protect(in)
		got, err := Restore(frag, frag.Masked())
		if err != nil {
			t.Fatalf("Restore(%q) failed: %v", in, err)
		}
		if got != in {
			t.Errorf("Round trip mismatch: want %q, got %q", in, got)
		}
	})
}

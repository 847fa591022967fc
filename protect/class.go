// Package protect masks non-translatable spans of a string with sentinel
// markers and restores them after translation.
//
// A protected string looks like:
//
//	"Deal ⟦MT:DOTNET:0⟧ damage to ⟦MT:RICHTEXT:1⟧enemies⟦MT:RICHTEXT:2⟧"
//
// Markers are numbered left to right and map back to exactly one original span.
package protect

// Class is the category a protected span belongs to. The set of classes is
// closed; the tag is part of the marker wire format.
type Class string

const (
	ClassLiteral       Class = "LITERAL"        // reserved delimiter characters found in the source
	ClassICU           Class = "ICU"            // {n, plural, ...} blocks
	ClassTemplate      Class = "TEMPLATE"       // {{name}}
	ClassRichText      Class = "RICHTEXT"       // <color=#fff>, <b>, <size=20>
	ClassColor         Class = "COLOR"          // §a, §Y ... §!
	ClassTag           Class = "TAG"            // generic <tag attr="x">
	ClassAttr          Class = "ATTR"           // key="value"
	ClassKey           Class = "KEY"            // $LOC_KEY$
	ClassDoubleBracket Class = "DOUBLE_BRACKET" // [[token]]
	ClassEngine        Class = "ENGINE"         // [Root.GetName]
	ClassBBCode        Class = "BBCODE"         // [b], [/url]
	ClassEscBrace      Class = "ESC_BRACE"      // {{ or }} outside templates
	ClassEscPercent    Class = "ESC_PERCENT"    // %%
	ClassPrintf        Class = "PRINTF"         // %s, %1$d, %.2f
	ClassDotNet        Class = "DOTNET"         // {0}, {1:N2}
	ClassNamed         Class = "NAMED"          // {PAWN_name}
	ClassShell         Class = "SHELL"          // $var, ${var}
	ClassMath          Class = "MATH"           // $x^2$
	ClassScientific    Class = "SCI"            // 6.02e23
	ClassRange         Class = "RANGE"          // 10-20
	ClassPercent       Class = "PERCENT"        // 50%
	ClassUnit          Class = "UNIT"           // 10kg, 5 km, 30s
	ClassEntity        Class = "ENTITY"         // &amp; &#160;
	ClassEscape        Class = "ESCAPE"         // \n \t \r
	ClassPipe          Class = "PIPE"           // |
	ClassPath          Class = "PATH"           // textures/ui/icon.png, ui.main_menu
)

// classes lists every class in marker-grammar order.
var classes = [...]Class{
	ClassLiteral,
	ClassICU,
	ClassTemplate,
	ClassRichText,
	ClassColor,
	ClassTag,
	ClassAttr,
	ClassKey,
	ClassDoubleBracket,
	ClassEngine,
	ClassBBCode,
	ClassEscBrace,
	ClassEscPercent,
	ClassPrintf,
	ClassDotNet,
	ClassNamed,
	ClassShell,
	ClassMath,
	ClassScientific,
	ClassRange,
	ClassPercent,
	ClassUnit,
	ClassEntity,
	ClassEscape,
	ClassPipe,
	ClassPath,
}

// AllClasses returns every known class. Validators build their marker
// pattern from this list.
func AllClasses() []Class {
	out := make([]Class, len(classes))
	copy(out, classes[:])
	return out
}

// Pairable reports whether markers of this class normally come in
// open/close pairs.
func (c Class) Pairable() bool {
	switch c {
	case ClassTag, ClassRichText, ClassBBCode:
		return true
	}
	return false
}

// Valid reports whether c is one of the known classes.
func (c Class) Valid() bool {
	for _, k := range classes {
		if k == c {
			return true
		}
	}
	return false
}

// Package rendering composes typesetter-safe LaTeX source from a filtered
// document tree and a per-target template.
package rendering

import (
	"strings"

	"github.com/jonathan/cv-renderer/internal/document"
)

// EscapeLaTeX escapes special LaTeX characters in text.
// Special characters: \ { } $ & % # ^ _ ~
//
// A curated set of Unicode math and typographic symbols is preserved by
// routing it through LaTeX's own commands instead of passing the raw rune
// to the engine. The scan is a single left-to-right pass, so the
// backslashes and dollar signs a substitution emits are never themselves
// re-escaped.
func EscapeLaTeX(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) * 2) // Pre-allocate space for potential escaping

	for _, r := range text {
		switch r {
		case '\\':
			result.WriteString(`\textbackslash{}`)
		case '{':
			result.WriteString(`\{`)
		case '}':
			result.WriteString(`\}`)
		case '$':
			result.WriteString(`\$`)
		case '&':
			result.WriteString(`\&`)
		case '%':
			result.WriteString(`\%`)
		case '#':
			result.WriteString(`\#`)
		case '^':
			result.WriteString(`\textasciicircum{}`)
		case '_':
			result.WriteString(`\_`)
		case '~':
			result.WriteString(`\textasciitilde{}`)
		case '≈':
			result.WriteString(`$\approx$`)
		case '±':
			result.WriteString(`$\pm$`)
		case '×':
			result.WriteString(`$\times$`)
		case '÷':
			result.WriteString(`$\div$`)
		case '≤':
			result.WriteString(`$\leq$`)
		case '≥':
			result.WriteString(`$\geq$`)
		case '≠':
			result.WriteString(`$\neq$`)
		case '∞':
			result.WriteString(`$\infty$`)
		case '∑':
			result.WriteString(`$\sum$`)
		case '∏':
			result.WriteString(`$\prod$`)
		case '√':
			result.WriteString(`$\surd$`)
		case '°':
			result.WriteString(`$^{\circ}$`)
		case '–':
			result.WriteString(`--`)
		case '—':
			result.WriteString(`---`)
		case '‘':
			result.WriteString("`")
		case '’':
			result.WriteString(`'`)
		case '“':
			result.WriteString("``")
		case '”':
			result.WriteString(`''`)
		case '…':
			result.WriteString(`\ldots{}`)
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// EscapeTree applies EscapeLaTeX to every string scalar in a document
// tree, leaving non-string scalars and structure untouched.
func EscapeTree(n document.Node) document.Node {
	switch v := n.(type) {
	case document.Scalar:
		if s, ok := v.Value.(string); ok {
			return document.Scalar{Value: EscapeLaTeX(s)}
		}
		return v
	case document.Sequence:
		out := make(document.Sequence, len(v))
		for i, item := range v {
			out[i] = EscapeTree(item)
		}
		return out
	case *document.Map:
		out := &document.Map{}
		for _, e := range v.Entries() {
			out.Set(e.Key, EscapeTree(e.Value))
		}
		return out
	default:
		return n
	}
}

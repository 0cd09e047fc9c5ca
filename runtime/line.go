package runtime

import (
	"fmt"
	"strings"
)

// LineID identifies one author-visible line in the string table.
type LineID string

// Line is a unit of author-visible text delivered to the embedder. The VM
// carries only the id and the evaluated substitution values; the embedder
// resolves the text through its string table (see TextProvider).
type Line struct {
	ID            LineID
	Substitutions []string
}

// DialogueOption is one candidate presented to the user during an options
// instruction.
type DialogueOption struct {
	// ID is the identifier the embedder passes to SetSelectedOption. Ids
	// are assigned in presentation order starting at 0 and are only valid
	// for the most recently delivered option set.
	ID int

	Line Line

	// IsAvailable is false when the option's line condition evaluated to
	// false. Unavailable options are still delivered so the UI can show
	// them disabled.
	IsAvailable bool

	// destination is the label to jump to when this option is selected.
	destination string
}

// Command is an embedder-defined side-effecting directive invoked from
// script, with substitutions already expanded into the text.
type Command struct {
	Text string
}

// ExpandSubstitutions replaces `{0}`, `{1}`, ... markers in text with the
// corresponding substitution. Markers with no matching substitution are left
// alone.
func ExpandSubstitutions(text string, substitutions []string) string {
	for i, substitution := range substitutions {
		text = strings.ReplaceAll(text, fmt.Sprintf("{%d}", i), substitution)
	}
	return text
}

// TextProvider resolves line ids to display text. It is an explicit
// capability interface: embedders provide whichever backing they have, and
// the compiler's string table satisfies it directly.
type TextProvider interface {
	// LineText returns the text for a line id, if known.
	LineText(id LineID) (string, bool)
}

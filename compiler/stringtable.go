package compiler

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/skein-lang/skein/runtime"
)

// ---------------------------------------------------------------------------
// String table: line IDs to localizable text
// ---------------------------------------------------------------------------

// Compiled programs carry line IDs, never text. The string table is the
// compiler's other output: every author-visible line and option keyed by its
// ID, with interpolations replaced by {0}, {1}, ... placeholders that the
// runtime substitutes back in.

// LastLineTag marks the narrative line immediately preceding an option
// group, so a presenter can keep it on screen while options are shown.
const LastLineTag = "lastline"

// StringInfo is the table entry for one line.
type StringInfo struct {
	Text     string   // placeholder form, e.g. "you have {0} coins"
	Node     string   // title of the node containing the line
	File     string   // source file name
	Line     int      // 1-based source line number
	Tags     []string // hashtags, plus lastline when applicable
	Implicit bool     // true when the ID was generated, not authored
}

// StringTable maps line IDs to their entries, preserving insertion order.
type StringTable struct {
	entries map[runtime.LineID]StringInfo
	order   []runtime.LineID
}

// NewStringTable creates an empty table.
func NewStringTable() *StringTable {
	return &StringTable{entries: make(map[runtime.LineID]StringInfo)}
}

// Add inserts an entry. Duplicate IDs are an error.
func (t *StringTable) Add(id runtime.LineID, info StringInfo) error {
	if existing, ok := t.entries[id]; ok {
		return fmt.Errorf("line ID %q already used at %s:%d", id, existing.File, existing.Line)
	}
	t.entries[id] = info
	t.order = append(t.order, id)
	return nil
}

// Get looks up an entry by ID.
func (t *StringTable) Get(id runtime.LineID) (StringInfo, bool) {
	info, ok := t.entries[id]
	return info, ok
}

// IDs returns all IDs in insertion order.
func (t *StringTable) IDs() []runtime.LineID {
	return append([]runtime.LineID(nil), t.order...)
}

// Len returns the number of entries.
func (t *StringTable) Len() int { return len(t.entries) }

// LineText returns the placeholder text for a line, satisfying the
// runtime's text provider interface so a table can back a Dialogue
// directly.
func (t *StringTable) LineText(id runtime.LineID) (string, bool) {
	info, ok := t.entries[id]
	if !ok {
		return "", false
	}
	return info.Text, true
}

// Merge copies every entry of other into t. Colliding IDs are an error.
func (t *StringTable) Merge(other *StringTable) error {
	for _, id := range other.order {
		if err := t.Add(id, other.entries[id]); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// String registration pass
// ---------------------------------------------------------------------------

// implicitLineID derives a stable generated ID from the file name and the
// line's registration sequence within that file. Recompiling unchanged
// input yields identical IDs.
func implicitLineID(file string, seq int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%d", file, seq))
	return fmt.Sprintf("line:%x", sum[:4])
}

// placeholderText renders text parts into the table's placeholder form.
func placeholderText(parts []TextPart) string {
	var sb strings.Builder
	expr := 0
	for _, part := range parts {
		if part.Expression != nil {
			fmt.Fprintf(&sb, "{%d}", expr)
			expr++
		} else {
			sb.WriteString(part.Literal)
		}
	}
	return sb.String()
}

// tagLastLines appends the lastline tag to each narrative line that
// immediately precedes an option group, recursing into nested bodies.
func tagLastLines(body []Statement) {
	for i, statement := range body {
		switch s := statement.(type) {
		case *OptionGroup:
			if i > 0 {
				if prev, ok := body[i-1].(*LineStatement); ok && !hasTag(prev.Tags, LastLineTag) {
					prev.Tags = append(prev.Tags, LastLineTag)
				}
			}
			for _, option := range s.Options {
				tagLastLines(option.Body)
			}
		case *OptionStatement:
			tagLastLines(s.Body)
		case *IfStatement:
			for _, clause := range s.Clauses {
				tagLastLines(clause.Body)
			}
		}
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// registerFileStrings assigns a line ID to every line and option in the
// file and records its text in the table. The per-file sequence counter
// makes implicit IDs deterministic.
func registerFileStrings(file *File, table *StringTable) []Diagnostic {
	var diagnostics []Diagnostic
	seq := 0
	for _, node := range file.Nodes {
		tagLastLines(node.Body)
		registerBlockStrings(node.Body, file.Name, node.Title, table, &seq, &diagnostics)
	}
	return diagnostics
}

func registerBlockStrings(body []Statement, file, node string, table *StringTable, seq *int, diagnostics *[]Diagnostic) {
	register := func(parts []TextPart, explicitID string, tags []string, pos Position) string {
		id := explicitID
		implicit := false
		if id == "" {
			id = implicitLineID(file, *seq)
			implicit = true
		}
		*seq++
		err := table.Add(runtime.LineID(id), StringInfo{
			Text:     placeholderText(parts),
			Node:     node,
			File:     file,
			Line:     pos.Line,
			Tags:     tags,
			Implicit: implicit,
		})
		if err != nil {
			*diagnostics = append(*diagnostics, errorAt(file, pos, "%s", err.Error()))
		}
		return id
	}

	for _, statement := range body {
		switch s := statement.(type) {
		case *LineStatement:
			s.assignedID = register(s.Parts, s.ExplicitID, s.Tags, s.LinePos)
		case *OptionGroup:
			for _, option := range s.Options {
				option.assignedID = register(option.Parts, option.ExplicitID, option.Tags, option.LinePos)
				registerBlockStrings(option.Body, file, node, table, seq, diagnostics)
			}
		case *IfStatement:
			for _, clause := range s.Clauses {
				registerBlockStrings(clause.Body, file, node, table, seq, diagnostics)
			}
		}
	}
}

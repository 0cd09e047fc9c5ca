package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing of the whole program.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	if len(p.InitialValues) > 0 {
		sb.WriteString("; Initial values:\n")
		names := make([]string, 0, len(p.InitialValues))
		for name := range p.InitialValues {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf(";   %s = %s\n", name, p.InitialValues[name]))
		}
		sb.WriteString("\n")
	}

	for _, name := range p.NodeNames() {
		sb.WriteString(p.Nodes[name].Disassemble())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Disassemble returns a human-readable listing of one node.
func (n *Node) Disassemble() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; === %s ===\n", n.Name))
	if n.SourceFile != "" {
		sb.WriteString(fmt.Sprintf("; Source: %s:%d\n", n.SourceFile, n.SourceLine))
	}
	if len(n.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("; Tags: %s\n", strings.Join(n.Tags, " ")))
	}
	if n.TrackingNode {
		sb.WriteString("; Visit-tracked\n")
	}

	// Invert the label map so targets can be annotated inline.
	labelsAt := make(map[int][]string)
	for label, target := range n.Labels {
		labelsAt[target] = append(labelsAt[target], label)
	}
	for _, labels := range labelsAt {
		sort.Strings(labels)
	}

	for i, inst := range n.Instructions {
		for _, label := range labelsAt[i] {
			sb.WriteString(fmt.Sprintf("%s:\n", label))
		}
		sb.WriteString(fmt.Sprintf("  %04d  %-14s", i, inst.Op))
		for j, operand := range inst.Operands {
			if j > 0 {
				sb.WriteString(", ")
			} else {
				sb.WriteString(" ")
			}
			sb.WriteString(operand.String())
		}
		sb.WriteString("\n")
	}
	// Trailing labels point one past the final instruction.
	for _, label := range labelsAt[len(n.Instructions)] {
		sb.WriteString(fmt.Sprintf("%s:\n", label))
	}
	return sb.String()
}

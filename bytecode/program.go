package bytecode

import (
	"fmt"
	"sort"
	"strconv"
)

// OperandKind distinguishes the literal kinds an instruction operand may hold.
type OperandKind uint8

const (
	OperandString OperandKind = 0
	OperandFloat  OperandKind = 1
	OperandBool   OperandKind = 2
)

// String returns a human-readable name for OperandKind.
func (k OperandKind) String() string {
	switch k {
	case OperandString:
		return "string"
	case OperandFloat:
		return "float"
	case OperandBool:
		return "bool"
	default:
		return fmt.Sprintf("OperandKind(%d)", k)
	}
}

// Operand is a literal instruction argument. Label references are string
// operands naming an entry in the owning node's label map.
type Operand struct {
	Kind OperandKind
	Str  string
	Num  float64
	Bool bool
}

// StringOperand builds a string operand.
func StringOperand(s string) Operand { return Operand{Kind: OperandString, Str: s} }

// FloatOperand builds a float operand.
func FloatOperand(f float64) Operand { return Operand{Kind: OperandFloat, Num: f} }

// BoolOperand builds a bool operand.
func BoolOperand(b bool) Operand { return Operand{Kind: OperandBool, Bool: b} }

// String renders the operand the way the disassembler prints it.
func (o Operand) String() string {
	switch o.Kind {
	case OperandString:
		return strconv.Quote(o.Str)
	case OperandFloat:
		return strconv.FormatFloat(o.Num, 'g', -1, 64)
	case OperandBool:
		return strconv.FormatBool(o.Bool)
	default:
		return "?"
	}
}

// Instruction is one executable step: an opcode plus its literal operands.
type Instruction struct {
	Op       Opcode
	Operands []Operand
}

// Node is a named, independently addressable unit of compiled dialogue.
type Node struct {
	Name         string
	Instructions []Instruction
	Labels       map[string]int // label name -> instruction index
	Tags         []string       // from the node's "tags" header
	Headers      map[string]string
	TrackingNode bool // true if visit-count instrumentation applies

	// Debug information
	SourceFile string
	SourceLine int // 1-based line of the title header
}

// NewNode creates an empty node with the given name.
func NewNode(name string) *Node {
	return &Node{
		Name:    name,
		Labels:  make(map[string]int),
		Headers: make(map[string]string),
	}
}

// Emit appends an instruction and returns its index.
func (n *Node) Emit(op Opcode, operands ...Operand) int {
	idx := len(n.Instructions)
	n.Instructions = append(n.Instructions, Instruction{Op: op, Operands: operands})
	return idx
}

// AddLabel records a jump target at the current instruction position and
// returns the label name. Labels are unique within a node.
func (n *Node) AddLabel(label string) {
	n.Labels[label] = len(n.Instructions)
}

// LabelTarget resolves a label to its instruction index.
func (n *Node) LabelTarget(label string) (int, error) {
	idx, ok := n.Labels[label]
	if !ok {
		return 0, fmt.Errorf("node %q has no label %q", n.Name, label)
	}
	return idx, nil
}

// LineIDs returns every line id this node may deliver, in instruction order.
// Used for the prepare-for-lines notification before a node runs.
func (n *Node) LineIDs() []string {
	var ids []string
	for _, inst := range n.Instructions {
		switch inst.Op {
		case OpRunLine, OpAddOption:
			if len(inst.Operands) > 0 && inst.Operands[0].Kind == OperandString {
				ids = append(ids, inst.Operands[0].Str)
			}
		}
	}
	return ids
}

// Program is the compiled artifact the virtual machine executes: a set of
// uniquely named nodes plus the initial values of declared variables.
type Program struct {
	Nodes         map[string]*Node
	InitialValues map[string]Operand
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{
		Nodes:         make(map[string]*Node),
		InitialValues: make(map[string]Operand),
	}
}

// AddNode inserts a node. A duplicate name is an error, never an overwrite.
func (p *Program) AddNode(node *Node) error {
	if _, exists := p.Nodes[node.Name]; exists {
		return fmt.Errorf("duplicate node name %q", node.Name)
	}
	p.Nodes[node.Name] = node
	return nil
}

// Node returns the named node, if present.
func (p *Program) Node(name string) (*Node, bool) {
	n, ok := p.Nodes[name]
	return n, ok
}

// NodeNames returns the names of all nodes in sorted order.
func (p *Program) NodeNames() []string {
	names := make([]string, 0, len(p.Nodes))
	for name := range p.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Combine merges programs into one. A node name appearing in more than one
// input is an error: combination never silently overwrites. Initial values
// merge the same way, except that identical entries are not a conflict.
// Combination is associative for programs with disjoint node sets.
func Combine(programs ...*Program) (*Program, error) {
	combined := NewProgram()
	for _, p := range programs {
		if p == nil {
			continue
		}
		for _, name := range p.NodeNames() {
			if _, exists := combined.Nodes[name]; exists {
				return nil, fmt.Errorf("node %q appears in more than one program", name)
			}
			combined.Nodes[name] = p.Nodes[name]
		}
		for name, value := range p.InitialValues {
			if existing, ok := combined.InitialValues[name]; ok && existing != value {
				return nil, fmt.Errorf("variable %q has conflicting initial values", name)
			}
			combined.InitialValues[name] = value
		}
	}
	return combined, nil
}

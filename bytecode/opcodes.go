package bytecode

import "fmt"

// Opcode identifies one instruction in a compiled dialogue program.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Control flow (0x00-0x0F)
	// ========================================================================

	OpJumpTo      Opcode = 0x00 // Jump to label: OpJumpTo <label:string>
	OpJump        Opcode = 0x01 // Jump to the label named by the top of the stack
	OpJumpIfFalse Opcode = 0x02 // Jump to label if top of stack is false (peeks, does not pop)
	OpRunNode     Opcode = 0x03 // Pop a node name and transition to that node
	OpStop        Opcode = 0x04 // Stop all dialogue execution immediately

	// ========================================================================
	// Content delivery (0x10-0x1F)
	// ========================================================================

	OpRunLine     Opcode = 0x10 // Deliver a line: OpRunLine <lineID:string> <substitutions:float>
	OpRunCommand  Opcode = 0x11 // Deliver a command: OpRunCommand <text:string> <substitutions:float>
	OpAddOption   Opcode = 0x12 // Queue an option: OpAddOption <lineID:string> <destination:string> <substitutions:float> <hasCondition:bool>
	OpShowOptions Opcode = 0x13 // Deliver the queued options and wait for a selection

	// ========================================================================
	// Stack (0x20-0x2F)
	// ========================================================================

	OpPushString Opcode = 0x20 // Push a string constant: OpPushString <value:string>
	OpPushFloat  Opcode = 0x21 // Push a number constant: OpPushFloat <value:float>
	OpPushBool   Opcode = 0x22 // Push a boolean constant: OpPushBool <value:bool>
	OpPop        Opcode = 0x23 // Pop and discard the top of the stack

	// ========================================================================
	// Variables and functions (0x30-0x3F)
	// ========================================================================

	OpPushVariable  Opcode = 0x30 // Push a variable's value: OpPushVariable <name:string>
	OpStoreVariable Opcode = 0x31 // Store top of stack into a variable (peeks): OpStoreVariable <name:string>
	OpCallFunc      Opcode = 0x32 // Call a library function: OpCallFunc <name:string>; pops argc then args
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name        string // Human-readable name
	OperandKind string // Mnemonic of the expected operand list, e.g. "label" or "lineID, count"
	Operands    int    // Number of operands following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpJumpTo:      {"JUMP_TO", "label", 1},
	OpJump:        {"JUMP", "", 0},
	OpJumpIfFalse: {"JUMP_IF_FALSE", "label", 1},
	OpRunNode:     {"RUN_NODE", "", 0},
	OpStop:        {"STOP", "", 0},

	OpRunLine:     {"RUN_LINE", "lineID, substitutions", 2},
	OpRunCommand:  {"RUN_COMMAND", "text, substitutions", 2},
	OpAddOption:   {"ADD_OPTION", "lineID, destination, substitutions, hasCondition", 4},
	OpShowOptions: {"SHOW_OPTIONS", "", 0},

	OpPushString: {"PUSH_STRING", "value", 1},
	OpPushFloat:  {"PUSH_FLOAT", "value", 1},
	OpPushBool:   {"PUSH_BOOL", "value", 1},
	OpPop:        {"POP", "", 0},

	OpPushVariable:  {"PUSH_VARIABLE", "name", 1},
	OpStoreVariable: {"STORE_VARIABLE", "name", 1},
	OpCallFunc:      {"CALL_FUNC", "name", 1},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandCount returns the number of operands this opcode expects.
func (op Opcode) OperandCount() int {
	return GetOpcodeInfo(op).Operands
}

// IsJump returns true if this opcode transfers control within a node.
func (op Opcode) IsJump() bool {
	return op == OpJumpTo || op == OpJump || op == OpJumpIfFalse
}

// YieldsControl returns true if executing this opcode returns control to the
// embedder (a line, command, or option set is being delivered).
func (op Opcode) YieldsControl() bool {
	return op == OpRunLine || op == OpRunCommand || op == OpShowOptions
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}

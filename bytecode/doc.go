// Package bytecode defines the compiled form of a dialogue program: nodes
// of structured instructions, the opcode set and its metadata table, and a
// disassembler for debugging output.
//
// Instructions carry typed operands rather than a packed byte stream. Jump
// targets are symbolic labels resolved against each node's label map at
// execution time.
package bytecode

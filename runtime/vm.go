package runtime

import (
	"errors"
	"fmt"

	"github.com/skein-lang/skein/bytecode"
)

// ExecutionState describes what the virtual machine is doing.
type ExecutionState uint8

const (
	// StateStopped is the initial state, and the terminal state after a
	// node finishes with no further node queued.
	StateStopped ExecutionState = iota

	// StateSuspended means a node is loaded and execution is paused
	// between Continue calls (after delivering a line or command).
	StateSuspended

	// StateWaitingForOptions means an option set has been delivered and
	// the VM is blocked until the embedder calls SetSelectedOption.
	StateWaitingForOptions

	// StateRunning means the VM is actively executing instructions inside
	// a Continue call.
	StateRunning
)

// String returns a human-readable name for ExecutionState.
func (s ExecutionState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateSuspended:
		return "suspended"
	case StateWaitingForOptions:
		return "waiting-for-options"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("ExecutionState(%d)", s)
	}
}

// API misuse errors. These indicate an embedding bug, not a script error,
// and deterministically stop the offending operation.
var (
	ErrNoProgramLoaded      = errors.New("no program loaded")
	ErrNoNodeSelected       = errors.New("no node selected")
	ErrUnknownNode          = errors.New("unknown node")
	ErrNotWaitingForOptions = errors.New("not waiting for an option selection")
	ErrUnknownOption        = errors.New("option id not in the current option set")
	ErrUnknownFunction      = errors.New("unknown function")
	ErrUndefinedVariable    = errors.New("undefined variable")
)

// VirtualMachine interprets one compiled Program as a suspendable state
// machine. It is single-threaded: calls into Continue, SetNode, and
// SetSelectedOption must be serialized by the caller.
type VirtualMachine struct {
	program *bytecode.Program
	library *Library
	storage VariableStorage

	state       ExecutionState
	currentNode *bytecode.Node
	ip          int
	stack       []Value

	// Options accumulated by OpAddOption since the last OpShowOptions.
	pendingOptions []DialogueOption
	// The option set most recently delivered to the embedder.
	currentOptions []DialogueOption

	// Handlers. Each receives data copies only; any state change the
	// embedder wants (selecting an option, starting a node) must happen
	// after the handler returns.
	lineHandler             func(Line)
	optionsHandler          func([]DialogueOption)
	commandHandler          func(Command)
	nodeStartHandler        func(nodeName string)
	nodeCompleteHandler     func(nodeName string)
	dialogueCompleteHandler func()
	prepareForLinesHandler  func(ids []LineID)
}

// NewVirtualMachine creates a VM sharing the given library and storage.
func NewVirtualMachine(library *Library, storage VariableStorage) *VirtualMachine {
	return &VirtualMachine{
		library: library,
		storage: storage,
		state:   StateStopped,
	}
}

// State returns the current execution state.
func (vm *VirtualMachine) State() ExecutionState { return vm.state }

// Program returns the loaded program, if any.
func (vm *VirtualMachine) Program() *bytecode.Program { return vm.program }

// CurrentNodeName returns the name of the executing node, or "" when none
// is loaded.
func (vm *VirtualMachine) CurrentNodeName() string {
	if vm.currentNode == nil {
		return ""
	}
	return vm.currentNode.Name
}

// SetProgram loads a program and resets all execution state. Variable
// storage is untouched.
func (vm *VirtualMachine) SetProgram(program *bytecode.Program) {
	vm.program = program
	vm.resetState()
}

// resetState clears per-run execution state without touching the program or
// variable storage.
func (vm *VirtualMachine) resetState() {
	vm.state = StateStopped
	vm.currentNode = nil
	vm.ip = 0
	vm.stack = vm.stack[:0]
	vm.pendingOptions = nil
	vm.currentOptions = nil
}

// SetNode prepares the named node for execution: the instruction pointer
// and stack are reset, the pending option set is cleared, the
// prepare-for-lines and node-start handlers fire, and the VM becomes ready
// to run. Variable storage is not touched.
func (vm *VirtualMachine) SetNode(name string) error {
	return vm.enterNode(name, StateSuspended)
}

// enterNode loads a node and fires the transition handlers. The state is
// set before any handler runs, so a handler calling Continue during an
// in-flight node transition still sees the VM running and is a no-op.
func (vm *VirtualMachine) enterNode(name string, state ExecutionState) error {
	if vm.program == nil || len(vm.program.Nodes) == 0 {
		return fmt.Errorf("cannot set node %q: %w", name, ErrNoProgramLoaded)
	}
	node, ok := vm.program.Node(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}

	vm.currentNode = node
	vm.ip = 0
	vm.stack = vm.stack[:0]
	vm.pendingOptions = nil
	vm.currentOptions = nil
	vm.state = state

	if vm.prepareForLinesHandler != nil {
		ids := node.LineIDs()
		lineIDs := make([]LineID, len(ids))
		for i, id := range ids {
			lineIDs[i] = LineID(id)
		}
		vm.prepareForLinesHandler(lineIDs)
	}
	if vm.nodeStartHandler != nil {
		vm.nodeStartHandler(node.Name)
	}
	return nil
}

// SetSelectedOption tells the VM which option of the most recently
// delivered set was chosen. It fails unless the VM is waiting for a
// selection and the id belongs to that set.
func (vm *VirtualMachine) SetSelectedOption(id int) error {
	if vm.state != StateWaitingForOptions {
		return fmt.Errorf("cannot select option %d while %s: %w", id, vm.state, ErrNotWaitingForOptions)
	}
	for _, option := range vm.currentOptions {
		if option.ID != id {
			continue
		}
		// The instruction following OpShowOptions is OpJump, which reads
		// the destination label from the top of the stack.
		vm.push(StringValue(option.destination))
		vm.currentOptions = nil
		vm.state = StateSuspended
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownOption, id)
}

// Continue starts, or resumes, execution. It repeatedly executes
// instructions until a line, option set, or command is delivered, or the
// node ends. Calling Continue while the VM is already running is a no-op,
// which guards against re-entrant invocation from inside a handler.
func (vm *VirtualMachine) Continue() error {
	if vm.state == StateRunning {
		// Re-entrant call from a handler; the outer loop is already
		// driving execution.
		return nil
	}
	if vm.currentNode == nil {
		return fmt.Errorf("cannot continue: %w", ErrNoNodeSelected)
	}
	if vm.state == StateWaitingForOptions {
		return fmt.Errorf("cannot continue: %w", ErrNotWaitingForOptions)
	}

	vm.state = StateRunning
	for vm.state == StateRunning {
		if vm.ip >= len(vm.currentNode.Instructions) {
			vm.finishNode(true)
			break
		}
		instruction := vm.currentNode.Instructions[vm.ip]
		yielded, err := vm.execute(instruction)
		if err != nil {
			failed := fmt.Errorf("node %q, instruction %d (%s): %w",
				vm.currentNode.Name, vm.ip, instruction.Op, err)
			// The failing node is unloaded so a later Continue fails fast
			// instead of re-executing the bad instruction.
			vm.resetState()
			return failed
		}
		if yielded {
			break
		}
	}
	return nil
}

// execute runs one instruction. It returns true when control should yield
// back to the embedder. The instruction pointer has not been advanced when
// execute is called; non-jumping instructions advance it here.
func (vm *VirtualMachine) execute(instruction bytecode.Instruction) (bool, error) {
	operands := instruction.Operands
	switch instruction.Op {

	case bytecode.OpJumpTo:
		target, err := vm.currentNode.LabelTarget(operands[0].Str)
		if err != nil {
			return false, err
		}
		vm.ip = target

	case bytecode.OpJump:
		label, err := vm.peek()
		if err != nil {
			return false, err
		}
		target, err := vm.currentNode.LabelTarget(label.AsString())
		if err != nil {
			return false, err
		}
		vm.ip = target

	case bytecode.OpJumpIfFalse:
		top, err := vm.peek()
		if err != nil {
			return false, err
		}
		condition, err := top.AsBool()
		if err != nil {
			return false, err
		}
		if !condition {
			target, err := vm.currentNode.LabelTarget(operands[0].Str)
			if err != nil {
				return false, err
			}
			vm.ip = target
		} else {
			vm.ip++
		}

	case bytecode.OpRunNode:
		name, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.finishNode(false)
		// Execution carries straight on into the new node, staying in
		// StateRunning across the transition handlers.
		if err := vm.enterNode(name.AsString(), StateRunning); err != nil {
			return false, err
		}

	case bytecode.OpStop:
		vm.finishNode(true)
		return true, nil

	case bytecode.OpRunLine:
		line, err := vm.buildLine(operands[0].Str, int(operands[1].Num))
		if err != nil {
			return false, err
		}
		vm.ip++
		if vm.lineHandler != nil {
			vm.lineHandler(line)
		}
		vm.state = StateSuspended
		return true, nil

	case bytecode.OpRunCommand:
		substitutions, err := vm.popSubstitutions(int(operands[1].Num))
		if err != nil {
			return false, err
		}
		command := Command{Text: ExpandSubstitutions(operands[0].Str, substitutions)}
		vm.ip++
		if vm.commandHandler != nil {
			vm.commandHandler(command)
		}
		vm.state = StateSuspended
		return true, nil

	case bytecode.OpAddOption:
		available := true
		if operands[3].Bool {
			condition, err := vm.pop()
			if err != nil {
				return false, err
			}
			available, err = condition.AsBool()
			if err != nil {
				return false, err
			}
		}
		line, err := vm.buildLine(operands[0].Str, int(operands[2].Num))
		if err != nil {
			return false, err
		}
		vm.pendingOptions = append(vm.pendingOptions, DialogueOption{
			ID:          len(vm.pendingOptions),
			Line:        line,
			IsAvailable: available,
			destination: operands[1].Str,
		})
		vm.ip++

	case bytecode.OpShowOptions:
		if len(vm.pendingOptions) == 0 {
			// Nothing to show; end the dialogue rather than block forever.
			vm.finishNode(true)
			return true, nil
		}
		vm.currentOptions = vm.pendingOptions
		vm.pendingOptions = nil
		vm.ip++
		if vm.optionsHandler != nil {
			vm.optionsHandler(append([]DialogueOption(nil), vm.currentOptions...))
		}
		vm.state = StateWaitingForOptions
		return true, nil

	case bytecode.OpPushString:
		vm.push(StringValue(operands[0].Str))
		vm.ip++

	case bytecode.OpPushFloat:
		vm.push(NumberValue(operands[0].Num))
		vm.ip++

	case bytecode.OpPushBool:
		vm.push(BoolValue(operands[0].Bool))
		vm.ip++

	case bytecode.OpPop:
		if _, err := vm.pop(); err != nil {
			return false, err
		}
		vm.ip++

	case bytecode.OpPushVariable:
		name := operands[0].Str
		value, ok := vm.storage.Get(name)
		if !ok {
			// Lazily seed from the program's initial values.
			operand, seeded := vm.program.InitialValues[name]
			if !seeded {
				return false, fmt.Errorf("%w: %s", ErrUndefinedVariable, name)
			}
			value = ValueFromOperand(operand)
			vm.storage.Set(name, value)
		}
		vm.push(value)
		vm.ip++

	case bytecode.OpStoreVariable:
		value, err := vm.peek()
		if err != nil {
			return false, err
		}
		vm.storage.Set(operands[0].Str, value)
		vm.ip++

	case bytecode.OpCallFunc:
		if err := vm.callFunction(operands[0].Str); err != nil {
			return false, err
		}
		vm.ip++

	default:
		return false, fmt.Errorf("unhandled opcode %s", instruction.Op)
	}
	return false, nil
}

// callFunction pops the argument count and arguments, invokes the library
// entry, and pushes its result.
func (vm *VirtualMachine) callFunction(name string) error {
	function, ok := vm.library.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	countValue, err := vm.pop()
	if err != nil {
		return err
	}
	count, err := countValue.AsNumber()
	if err != nil {
		return err
	}
	args := make([]Value, int(count))
	for i := len(args) - 1; i >= 0; i-- {
		arg, err := vm.pop()
		if err != nil {
			return err
		}
		args[i] = arg
	}
	result, err := function.Call(args)
	if err != nil {
		return err
	}
	vm.push(result)
	return nil
}

// buildLine pops substitution values and assembles a Line.
func (vm *VirtualMachine) buildLine(id string, substitutionCount int) (Line, error) {
	substitutions, err := vm.popSubstitutions(substitutionCount)
	if err != nil {
		return Line{}, err
	}
	return Line{ID: LineID(id), Substitutions: substitutions}, nil
}

// popSubstitutions pops count values, restoring push order.
func (vm *VirtualMachine) popSubstitutions(count int) ([]string, error) {
	if count == 0 {
		return nil, nil
	}
	substitutions := make([]string, count)
	for i := count - 1; i >= 0; i-- {
		value, err := vm.pop()
		if err != nil {
			return nil, err
		}
		substitutions[i] = value.AsString()
	}
	return substitutions, nil
}

// finishNode performs the node-complete transition: the visit counter is
// incremented when the node is tracked and the node-complete handler fires.
// When the dialogue is over, the dialogue-complete handler fires and the VM
// stops.
func (vm *VirtualMachine) finishNode(dialogueOver bool) {
	node := vm.currentNode
	if node == nil {
		return
	}
	if node.TrackingNode {
		counter := VisitCounterVariable(node.Name)
		count := nodeVisitCount(vm.storage, node.Name)
		vm.storage.Set(counter, NumberValue(count+1))
	}
	if vm.nodeCompleteHandler != nil {
		vm.nodeCompleteHandler(node.Name)
	}
	if dialogueOver {
		vm.currentNode = nil
		vm.ip = 0
		vm.stack = vm.stack[:0]
		vm.pendingOptions = nil
		vm.currentOptions = nil
		vm.state = StateStopped
		if vm.dialogueCompleteHandler != nil {
			vm.dialogueCompleteHandler()
		}
	}
}

// ---------------------------------------------------------------------------
// Stack helpers
// ---------------------------------------------------------------------------

func (vm *VirtualMachine) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VirtualMachine) pop() (Value, error) {
	if len(vm.stack) == 0 {
		return Value{}, errors.New("stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VirtualMachine) peek() (Value, error) {
	if len(vm.stack) == 0 {
		return Value{}, errors.New("stack underflow")
	}
	return vm.stack[len(vm.stack)-1], nil
}

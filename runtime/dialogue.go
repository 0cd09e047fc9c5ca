package runtime

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/skein-lang/skein/bytecode"
)

// DefaultStartNode is the node StartDialogue begins at when none is named.
const DefaultStartNode = "Start"

var log = commonlog.GetLogger("skein.runtime")

// Dialogue coordinates the execution of compiled dialogue programs. It owns
// its virtual machine and shares one VariableStorage handle between the VM
// and the library's visit-tracking built-ins, so both always observe the
// same state.
//
// A Dialogue is not safe for concurrent use: Continue, SetNode, and
// SetSelectedOption must be serialized by the caller. The storage itself may
// be read from other goroutines.
type Dialogue struct {
	library *Library
	storage VariableStorage
	vm      *VirtualMachine

	textProvider TextProvider
}

// NewDialogue creates a dialogue backed by the given storage. Passing nil
// uses a fresh in-memory storage. The library starts from StandardLibrary,
// so operators and the visited/visited_count built-ins are always present.
func NewDialogue(storage VariableStorage) *Dialogue {
	if storage == nil {
		storage = NewMemoryVariableStorage()
	}
	library := StandardLibrary(storage)
	return &Dialogue{
		library: library,
		storage: storage,
		vm:      NewVirtualMachine(library, storage),
	}
}

// Library returns the function registry used to resolve script calls.
// Embedders register native functions here before compilation if they want
// signature checking, and before execution in any case.
func (d *Dialogue) Library() *Library { return d.library }

// VariableStorage returns the shared storage handle.
func (d *Dialogue) VariableStorage() VariableStorage { return d.storage }

// SetTextProvider installs the capability used by LineText. The compiler's
// string table satisfies TextProvider directly.
func (d *Dialogue) SetTextProvider(provider TextProvider) { d.textProvider = provider }

// ---------------------------------------------------------------------------
// Handler registration
// ---------------------------------------------------------------------------

// SetLineHandler installs the handler invoked when a line is delivered.
func (d *Dialogue) SetLineHandler(handler func(Line)) { d.vm.lineHandler = handler }

// SetOptionsHandler installs the handler invoked when an option set is
// delivered. SetSelectedOption must be called before the next Continue.
func (d *Dialogue) SetOptionsHandler(handler func([]DialogueOption)) { d.vm.optionsHandler = handler }

// SetCommandHandler installs the handler invoked when a command is
// delivered.
func (d *Dialogue) SetCommandHandler(handler func(Command)) { d.vm.commandHandler = handler }

// SetNodeStartHandler installs the handler invoked when a node starts.
func (d *Dialogue) SetNodeStartHandler(handler func(nodeName string)) {
	d.vm.nodeStartHandler = handler
}

// SetNodeCompleteHandler installs the handler invoked when a node
// completes.
func (d *Dialogue) SetNodeCompleteHandler(handler func(nodeName string)) {
	d.vm.nodeCompleteHandler = handler
}

// SetDialogueCompleteHandler installs the handler invoked when the dialogue
// reaches its end.
func (d *Dialogue) SetDialogueCompleteHandler(handler func()) {
	d.vm.dialogueCompleteHandler = handler
}

// SetPrepareForLinesHandler installs the handler that receives every line
// id a node may deliver, before the node runs. Embedders use it to pre-fetch
// or localize text.
func (d *Dialogue) SetPrepareForLinesHandler(handler func(ids []LineID)) {
	d.vm.prepareForLinesHandler = handler
}

// ---------------------------------------------------------------------------
// Program management
// ---------------------------------------------------------------------------

// SetProgram replaces the loaded program and resets execution state.
func (d *Dialogue) SetProgram(program *bytecode.Program) {
	d.vm.SetProgram(program)
	log.Debugf("loaded program with %d node(s)", len(program.Nodes))
}

// AddProgram combines a program with the one already loaded. A node name
// present in both is an error; combination never silently overwrites.
func (d *Dialogue) AddProgram(program *bytecode.Program) error {
	if d.vm.program == nil {
		d.SetProgram(program)
		return nil
	}
	combined, err := bytecode.Combine(d.vm.program, program)
	if err != nil {
		return fmt.Errorf("add program: %w", err)
	}
	d.vm.SetProgram(combined)
	return nil
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// SetNode prepares the named node for execution. Call Continue afterwards
// to start delivering content.
func (d *Dialogue) SetNode(name string) error {
	if err := d.vm.SetNode(name); err != nil {
		log.Errorf("set node: %v", err)
		return err
	}
	return nil
}

// StartDialogue is shorthand for SetNode(DefaultStartNode).
func (d *Dialogue) StartDialogue() error { return d.SetNode(DefaultStartNode) }

// Continue starts or resumes execution until the next line, option set,
// command, or the end of the dialogue. It has no effect while the dialogue
// is already executing instructions.
func (d *Dialogue) Continue() error {
	if err := d.vm.Continue(); err != nil {
		log.Errorf("continue: %v", err)
		return err
	}
	return nil
}

// SetSelectedOption tells the dialogue which option the user chose. It must
// be called between the options handler firing and the next Continue.
func (d *Dialogue) SetSelectedOption(id int) error {
	if err := d.vm.SetSelectedOption(id); err != nil {
		log.Errorf("select option: %v", err)
		return err
	}
	return nil
}

// IsActive reports whether the dialogue is mid-run (any state other than
// stopped).
func (d *Dialogue) IsActive() bool { return d.vm.State() != StateStopped }

// State returns the VM's current execution state.
func (d *Dialogue) State() ExecutionState { return d.vm.State() }

// ---------------------------------------------------------------------------
// Read-only views (safe to call from anywhere, including handlers)
// ---------------------------------------------------------------------------

// CurrentNode returns the name of the executing node, or "" if none.
func (d *Dialogue) CurrentNode() string { return d.vm.CurrentNodeName() }

// NodeNames returns the names of all loaded nodes in sorted order, or nil
// when no program is loaded.
func (d *Dialogue) NodeNames() []string {
	if d.vm.program == nil {
		return nil
	}
	return d.vm.program.NodeNames()
}

// NodeExists reports whether the loaded program contains the named node.
func (d *Dialogue) NodeExists(name string) bool {
	if d.vm.program == nil {
		return false
	}
	_, ok := d.vm.program.Node(name)
	return ok
}

// TagsForNode returns the source tags of the named node, or nil if the node
// is not loaded.
func (d *Dialogue) TagsForNode(name string) []string {
	if d.vm.program == nil {
		return nil
	}
	node, ok := d.vm.program.Node(name)
	if !ok {
		return nil
	}
	return append([]string(nil), node.Tags...)
}

// LineText resolves a delivered line to display text with substitutions
// expanded, using the installed TextProvider. Returns false when no
// provider is installed or the id is unknown.
func (d *Dialogue) LineText(line Line) (string, bool) {
	if d.textProvider == nil {
		return "", false
	}
	text, ok := d.textProvider.LineText(line.ID)
	if !ok {
		return "", false
	}
	return ExpandSubstitutions(text, line.Substitutions), true
}

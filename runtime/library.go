package runtime

import (
	"fmt"
	"math"
	"sort"
)

// ArityError reports a library call with the wrong number of arguments.
type ArityError struct {
	Name string
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("function %q expects %d argument(s), got %d", e.Name, e.Want, e.Got)
}

// ArgumentError reports an argument that cannot convert to the kind the
// function was registered with.
type ArgumentError struct {
	Name  string
	Index int
	Cause error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %d of %q: %v", e.Index, e.Name, e.Cause)
}

func (e *ArgumentError) Unwrap() error { return e.Cause }

// Function is one registered library entry: a fixed arity, fixed parameter
// kinds, and a uniform Value-list entry point. The parameter and return
// kinds are captured at registration and never re-inferred at call time.
type Function struct {
	Name    string
	Params  []ValueKind
	Returns ValueKind
	impl    func(args []Value) (Value, error)
}

// Arity returns the number of parameters the function was registered with.
func (f *Function) Arity() int { return len(f.Params) }

// Call validates the argument count and kinds, then dispatches. Count and
// conversion failures are reported with distinct error types.
func (f *Function) Call(args []Value) (Value, error) {
	if len(args) != len(f.Params) {
		return Value{}, &ArityError{Name: f.Name, Want: len(f.Params), Got: len(args)}
	}
	converted := make([]Value, len(args))
	for i, arg := range args {
		c, err := arg.ConvertTo(f.Params[i])
		if err != nil {
			return Value{}, &ArgumentError{Name: f.Name, Index: i, Cause: err}
		}
		converted[i] = c
	}
	return f.impl(converted)
}

// Library maps function names to typed callables. It backs both the
// operators the code generator emits and any native functions the embedder
// registers for scripts to call.
type Library struct {
	functions map[string]*Function
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{functions: make(map[string]*Function)}
}

// Register adds a function with explicit parameter kinds. Registering a name
// twice replaces the earlier entry.
func (l *Library) Register(name string, params []ValueKind, returns ValueKind, impl func(args []Value) (Value, error)) {
	l.functions[name] = &Function{
		Name:    name,
		Params:  params,
		Returns: returns,
		impl:    impl,
	}
}

// Register0 adds a native function taking no arguments.
func (l *Library) Register0(name string, returns ValueKind, fn func() (Value, error)) {
	l.Register(name, nil, returns, func([]Value) (Value, error) {
		return fn()
	})
}

// Register1 adds a native function of one argument.
func (l *Library) Register1(name string, param ValueKind, returns ValueKind, fn func(Value) (Value, error)) {
	l.Register(name, []ValueKind{param}, returns, func(args []Value) (Value, error) {
		return fn(args[0])
	})
}

// Register2 adds a native function of two arguments.
func (l *Library) Register2(name string, a, b ValueKind, returns ValueKind, fn func(Value, Value) (Value, error)) {
	l.Register(name, []ValueKind{a, b}, returns, func(args []Value) (Value, error) {
		return fn(args[0], args[1])
	})
}

// Register3 adds a native function of three arguments.
func (l *Library) Register3(name string, a, b, c ValueKind, returns ValueKind, fn func(Value, Value, Value) (Value, error)) {
	l.Register(name, []ValueKind{a, b, c}, returns, func(args []Value) (Value, error) {
		return fn(args[0], args[1], args[2])
	})
}

// Get returns the named function, if registered.
func (l *Library) Get(name string) (*Function, bool) {
	f, ok := l.functions[name]
	return f, ok
}

// Names returns every registered function name in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.functions))
	for name := range l.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extend copies every entry of other into l, replacing same-named entries.
func (l *Library) Extend(other *Library) {
	if other == nil {
		return
	}
	for name, f := range other.functions {
		l.functions[name] = f
	}
}

// Operator function names emitted by the code generator.
const (
	FuncAdd = "add"
	FuncSub = "sub"
	FuncMul = "mul"
	FuncDiv = "div"
	FuncMod = "mod"
	FuncNeg = "neg"
	FuncEq  = "eq"
	FuncNeq = "neq"
	FuncLt  = "lt"
	FuncLte = "lte"
	FuncGt  = "gt"
	FuncGte = "gte"
	FuncAnd = "and"
	FuncOr  = "or"
	FuncNot = "not"

	// Visit-tracking built-ins available to scripts.
	FuncVisited      = "visited"
	FuncVisitedCount = "visited_count"
)

// visitCounterPrefix namespaces the compiler-generated visit counters away
// from user variables.
const visitCounterPrefix = "$__visited_"

// VisitCounterVariable returns the storage name of the hidden counter
// tracking how many times a node has completed. The name is deterministic so
// the compiler, the VM, and the built-ins all agree on it.
func VisitCounterVariable(node string) string {
	return visitCounterPrefix + node
}

// StandardLibrary seeds the operators plus the visited/visited_count
// built-ins. Both built-ins close over the shared storage handle so they can
// answer independently of VM execution.
func StandardLibrary(storage VariableStorage) *Library {
	l := NewLibrary()

	// Arithmetic. add doubles as string concatenation when either side is
	// a string, matching the script-level "+" operator.
	l.Register2(FuncAdd, KindAny, KindAny, KindAny, func(a, b Value) (Value, error) {
		if a.IsString() || b.IsString() {
			return StringValue(a.AsString() + b.AsString()), nil
		}
		return numericOp(a, b, func(x, y float64) float64 { return x + y })
	})
	l.Register2(FuncSub, KindNumber, KindNumber, KindNumber, func(a, b Value) (Value, error) {
		return numericOp(a, b, func(x, y float64) float64 { return x - y })
	})
	l.Register2(FuncMul, KindNumber, KindNumber, KindNumber, func(a, b Value) (Value, error) {
		return numericOp(a, b, func(x, y float64) float64 { return x * y })
	})
	l.Register2(FuncDiv, KindNumber, KindNumber, KindNumber, func(a, b Value) (Value, error) {
		y, _ := b.AsNumber()
		if y == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		return numericOp(a, b, func(x, y float64) float64 { return x / y })
	})
	l.Register2(FuncMod, KindNumber, KindNumber, KindNumber, func(a, b Value) (Value, error) {
		y, _ := b.AsNumber()
		if y == 0 {
			return Value{}, fmt.Errorf("modulo by zero")
		}
		return numericOp(a, b, math.Mod)
	})
	l.Register1(FuncNeg, KindNumber, KindNumber, func(a Value) (Value, error) {
		x, err := a.AsNumber()
		if err != nil {
			return Value{}, err
		}
		return NumberValue(-x), nil
	})

	// Comparison.
	l.Register2(FuncEq, KindAny, KindAny, KindBoolean, func(a, b Value) (Value, error) {
		return BoolValue(a.Equals(b)), nil
	})
	l.Register2(FuncNeq, KindAny, KindAny, KindBoolean, func(a, b Value) (Value, error) {
		return BoolValue(!a.Equals(b)), nil
	})
	l.Register2(FuncLt, KindAny, KindAny, KindBoolean, comparison(func(c int) bool { return c < 0 }))
	l.Register2(FuncLte, KindAny, KindAny, KindBoolean, comparison(func(c int) bool { return c <= 0 }))
	l.Register2(FuncGt, KindAny, KindAny, KindBoolean, comparison(func(c int) bool { return c > 0 }))
	l.Register2(FuncGte, KindAny, KindAny, KindBoolean, comparison(func(c int) bool { return c >= 0 }))

	// Boolean.
	l.Register2(FuncAnd, KindBoolean, KindBoolean, KindBoolean, func(a, b Value) (Value, error) {
		x, _ := a.AsBool()
		y, _ := b.AsBool()
		return BoolValue(x && y), nil
	})
	l.Register2(FuncOr, KindBoolean, KindBoolean, KindBoolean, func(a, b Value) (Value, error) {
		x, _ := a.AsBool()
		y, _ := b.AsBool()
		return BoolValue(x || y), nil
	})
	l.Register1(FuncNot, KindBoolean, KindBoolean, func(a Value) (Value, error) {
		x, _ := a.AsBool()
		return BoolValue(!x), nil
	})

	// Visit tracking. These read storage directly so they work both inside
	// expressions and from embedder code, whether or not the VM is running.
	l.Register1(FuncVisited, KindString, KindBoolean, func(node Value) (Value, error) {
		return BoolValue(nodeVisitCount(storage, node.AsString()) > 0), nil
	})
	l.Register1(FuncVisitedCount, KindString, KindNumber, func(node Value) (Value, error) {
		return NumberValue(nodeVisitCount(storage, node.AsString())), nil
	})

	return l
}

// nodeVisitCount reads a node's completion counter; absent counters read 0.
func nodeVisitCount(storage VariableStorage, node string) float64 {
	value, ok := storage.Get(VisitCounterVariable(node))
	if !ok {
		return 0
	}
	count, err := value.AsNumber()
	if err != nil {
		return 0
	}
	return count
}

// numericOp applies a binary float operation after converting both sides.
func numericOp(a, b Value, op func(x, y float64) float64) (Value, error) {
	x, err := a.AsNumber()
	if err != nil {
		return Value{}, err
	}
	y, err := b.AsNumber()
	if err != nil {
		return Value{}, err
	}
	return NumberValue(op(x, y)), nil
}

// comparison builds an ordering operator. Numbers compare numerically,
// everything else compares by string form.
func comparison(accept func(cmp int) bool) func(Value, Value) (Value, error) {
	return func(a, b Value) (Value, error) {
		if a.IsNumber() && b.IsNumber() {
			x, _ := a.AsNumber()
			y, _ := b.AsNumber()
			cmp := 0
			switch {
			case x < y:
				cmp = -1
			case x > y:
				cmp = 1
			}
			return BoolValue(accept(cmp)), nil
		}
		x, y := a.AsString(), b.AsString()
		cmp := 0
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
		return BoolValue(accept(cmp)), nil
	}
}

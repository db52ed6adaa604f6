// Package vm implements VIPL's stack-based virtual machine: the global
// value stack, the call stack of frames, the function registry, and the
// instruction dispatch loop described in spec.md §4.2.
//
// The VM trusts the checker completely — arithmetic and locals access
// are not type-checked at run time. The violations the VM does detect
// (operand stack underflow or overflow, an unknown function, a reserved
// native-only opcode) are treated as a bug upstream of the VM and raise
// a typed Fault panic, never a returned error (spec.md §7); see Fault.
package vm

import (
	"github.com/vipl-lang/vipl/internal/bytecode"
	"github.com/vipl-lang/vipl/internal/heap"
	"github.com/vipl-lang/vipl/internal/types"
	"github.com/vipl-lang/vipl/internal/vmlog"
)

// VM is a single-threaded, non-reentrant machine instance. Its mutable
// state — the operand stack, the function registry, the dispatch cache —
// is never touched from more than one goroutine (spec.md §5).
type VM struct {
	stack []types.Value
	cfg   Config

	Functions *FunctionRegistry

	// opCodeCache resolves a Call's signature to its FunctionRecord once
	// and reuses the pointer thereafter, per spec.md §4.2's dispatch-cache
	// note.
	opCodeCache map[string]*FunctionRecord

	callStack []StackFrame
}

// New constructs a VM with the given options applied over the defaults.
func New(opts ...Option) *VM {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &VM{
		stack:       make([]types.Value, 0, cfg.HeapHint),
		cfg:         cfg,
		Functions:   NewFunctionRegistry(),
		opCodeCache: make(map[string]*FunctionRecord),
	}
}

// MakeNative registers a native function: a callable whose body is a
// host Go function of signature (vm, frame) rather than bytecode.
func (vm *VM) MakeNative(name string, params []types.DataType, body NativeBody, returnType *types.DataType) {
	argTypes := append([]types.DataType(nil), params...)
	vm.Register(&FunctionRecord{
		Name:       name,
		VarTable:   types.VarTable{Types: argTypes, ArgCount: len(argTypes)},
		ReturnType: returnType,
		Native:     body,
	})
	vmlog.Component("vm").Debug().Str("signature", types.Signature(name, params)).Msg("registered native")
}

// Register adds a bytecode function record (typically produced by
// ScanFunctions) to the registry.
func (vm *VM) Register(rec *FunctionRecord) {
	vm.Functions.Register(rec)
}

// Push appends a value to the operand stack. Natives use this to push
// their result, per the native ABI's "pushes results onto vm.stack."
func (vm *VM) Push(v types.Value) { vm.push(v) }

// Pop removes and returns the top of the operand stack. Natives rarely
// need this (arguments arrive via frame.Locals), but it is exported for
// natives that forward values (e.g. a future compose/apply native).
func (vm *VM) Pop() types.Value { return vm.pop() }

func (vm *VM) push(v types.Value) {
	if len(vm.stack) >= vm.cfg.StackLimit {
		abort(vm, "operand stack limit exceeded (%d)", vm.cfg.StackLimit)
	}
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() types.Value {
	if len(vm.stack) == 0 {
		abort(vm, "operand stack underflow")
	}
	top := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return top
}

// StackTop returns the value on top of the operand stack without
// popping it, for callers (tests, the REPL) that want to inspect the
// result of a top-level evaluation.
func (vm *VM) StackTop() (types.Value, bool) {
	if len(vm.stack) == 0 {
		return types.Value{}, false
	}
	return vm.stack[len(vm.stack)-1], true
}

func (vm *VM) pushCallStack(name string, ip int) {
	vm.callStack = append(vm.callStack, StackFrame{Name: name, IP: ip})
}

func (vm *VM) popCallStack() {
	if len(vm.callStack) > 0 {
		vm.callStack = vm.callStack[:len(vm.callStack)-1]
	}
}

func (vm *VM) traceSnapshot() []StackFrame {
	trace := make([]StackFrame, len(vm.callStack))
	copy(trace, vm.callStack)
	return trace
}

// Evaluate is the convenience entry point for a top-level program: it
// constructs a root frame sized to topLevelLocals and runs the program
// (spec.md §4.2 "evaluate"). Execution starts at instruction 0, unless
// program opens with a LocalVarTable directive declaring topLevelLocals
// itself (see bytecode.TopLevelLocals), in which case it starts right
// after that declaration.
func Evaluate(program bytecode.Program, topLevelLocals types.VarTable, vm *VM) {
	_, start := bytecode.TopLevelLocals(program)
	root := NewFrame("<top-level>", topLevelLocals, nil)
	vm.pushCallStack("<top-level>", 0)
	defer vm.popCallStack()
	Run(program, start, len(program), vm, root)
}

// Run executes opcodes starting at index until a matching Return or end
// is reached, mutating vm and frame in place (spec.md §4.2 "run"). end
// bounds the run to a sub-range of program rather than a re-sliced copy,
// so that a callee's Jmp targets — resolved by the assembler as absolute
// indices into the full stream — still land on the right instruction
// (see FunctionRecord.Program). It is used both for the top-level
// program (where FunBegin blocks are skipped, never entered; end is
// len(program)) and for a callee's body (end is its FunEnd index).
func Run(program bytecode.Program, index, end int, vm *VM, frame *Frame) {
	i := index
	for i < end {
		ins := program[i]

		switch ins.Op {
		case bytecode.OpFunBegin:
			i = skipFunctionBlock(vm, program, i)
			continue
		case bytecode.OpReturn:
			return
		case bytecode.OpJmp:
			take := ins.Kind == bytecode.Unconditional
			if !take {
				cond := vm.pop()
				take = (ins.Kind == bytecode.IfTrue) == cond.Bool()
			}
			if take {
				i = int(ins.Int)
				continue
			}
			i++
			continue
		}

		execOne(vm, frame, ins)
		i++
	}
}

// skipFunctionBlock implements spec.md §4.2's "skip to the matching
// FunEnd rather than execute the body" — function bodies are entered
// only via Call, never by falling into them at the top level.
func skipFunctionBlock(vm *VM, program bytecode.Program, begin int) int {
	depth := 1
	i := begin + 1
	for i < len(program) && depth > 0 {
		switch program[i].Op {
		case bytecode.OpFunBegin:
			depth++
		case bytecode.OpFunEnd:
			depth--
		}
		if depth == 0 {
			return i + 1
		}
		i++
	}
	abort(vm, "unterminated function block at instruction %d", begin)
	return i
}

// execOne dispatches a single non-framing instruction. It is the tight
// switch spec.md §4.2 calls for: arithmetic and pops are unchecked,
// trusting a program that passed internal/checker.
func execOne(vm *VM, frame *Frame, ins bytecode.Instruction) {
	switch ins.Op {
	case bytecode.OpPushInt:
		vm.push(types.IntVal(ins.Int))
	case bytecode.OpPushFloat:
		vm.push(types.FloatVal(ins.Float))
	case bytecode.OpPushBool:
		vm.push(types.BoolVal(ins.Bool))
	case bytecode.OpPushChar:
		vm.push(types.CharVal(ins.Char))

	case bytecode.OpPop:
		vm.pop()

	case bytecode.OpDup:
		top := vm.pop()
		vm.push(top)
		vm.push(top)

	case bytecode.OpF2I:
		v := vm.pop()
		vm.push(types.IntVal(int64(v.Float())))

	case bytecode.OpI2F:
		v := vm.pop()
		vm.push(types.FloatVal(float64(v.Int())))

	case bytecode.OpPushLocal:
		vm.push(frame.Locals[ins.Int])

	case bytecode.OpSetLocal:
		frame.Locals[ins.Int] = vm.pop()

	case bytecode.OpInc:
		incDecLocal(frame, ins, 1)
	case bytecode.OpDec:
		incDecLocal(frame, ins, -1)

	case bytecode.OpAdd:
		binArith(vm, ins.Type, func(a, b float64) float64 { return a + b }, func(a, b int64) int64 { return a + b })
	case bytecode.OpSub:
		binArith(vm, ins.Type, func(a, b float64) float64 { return a - b }, func(a, b int64) int64 { return a - b })
	case bytecode.OpMul:
		binArith(vm, ins.Type, func(a, b float64) float64 { return a * b }, func(a, b int64) int64 { return a * b })
	case bytecode.OpDiv:
		// Always yields Float, even for Int operands — see DESIGN.md.
		b := vm.pop()
		a := vm.pop()
		af, bf := numericAsFloat(a, ins.Type), numericAsFloat(b, ins.Type)
		vm.push(types.FloatVal(af / bf))

	case bytecode.OpEquals:
		b, a := vm.pop(), vm.pop()
		vm.push(types.BoolVal(valuesEqual(a, b, ins.Type)))
	case bytecode.OpGreater:
		b, a := vm.pop(), vm.pop()
		vm.push(types.BoolVal(numericAsFloat(a, ins.Type) > numericAsFloat(b, ins.Type)))
	case bytecode.OpLess:
		b, a := vm.pop(), vm.pop()
		vm.push(types.BoolVal(numericAsFloat(a, ins.Type) < numericAsFloat(b, ins.Type)))

	case bytecode.OpAnd:
		b, a := vm.pop(), vm.pop()
		vm.push(types.BoolVal(a.Bool() && b.Bool()))
	case bytecode.OpOr:
		b, a := vm.pop(), vm.pop()
		vm.push(types.BoolVal(a.Bool() || b.Bool()))
	case bytecode.OpNot:
		a := vm.pop()
		vm.push(types.BoolVal(!a.Bool()))

	case bytecode.OpCall:
		callFunction(vm, ins.Name)

	case bytecode.OpClassBegin, bytecode.OpClassName, bytecode.OpClassField, bytecode.OpClassEnd,
		bytecode.OpNew, bytecode.OpGetField, bytecode.OpSetField,
		bytecode.OpArrayNew, bytecode.OpArrayStore, bytecode.OpArrayLoad, bytecode.OpArrayLength:
		// Reserved: delegated to natives in this core (spec.md §4.2 "Heap
		// operations (native-only in this core)" explicitly lists Array*
		// alongside New/GetField/SetField/Class*). Array construction and
		// access go through internal/natives (heap.NewArray and friends),
		// never through these opcodes; reaching one here means a native
		// should have intercepted it instead — a bug upstream of the VM.
		abort(vm, "opcode %s is native-only and was not intercepted", ins.Op)

	default:
		abort(vm, "unhandled opcode %s", ins.Op)
	}
}

func incDecLocal(frame *Frame, ins bytecode.Instruction, delta int64) {
	v := frame.Locals[ins.Int]
	switch v.Kind() {
	case types.KindInt:
		frame.Locals[ins.Int] = types.IntVal(v.Int() + delta)
	case types.KindFloat:
		frame.Locals[ins.Int] = types.FloatVal(v.Float() + float64(delta))
	default:
		panic("unreachable: Inc/Dec on non-numeric local passed the checker")
	}
}

func binArith(vm *VM, t types.DataType, ff func(a, b float64) float64, fi func(a, b int64) int64) {
	b := vm.pop()
	a := vm.pop()
	if t.Kind == types.KindFloat {
		vm.push(types.FloatVal(ff(a.Float(), b.Float())))
		return
	}
	vm.push(types.IntVal(fi(a.Int(), b.Int())))
}

func numericAsFloat(v types.Value, t types.DataType) float64 {
	if t.Kind == types.KindFloat {
		return v.Float()
	}
	return float64(v.Int())
}

func valuesEqual(a, b types.Value, t types.DataType) bool {
	switch t.Kind {
	case types.KindInt:
		return a.Int() == b.Int()
	case types.KindFloat:
		return a.Float() == b.Float()
	case types.KindBool:
		return a.Bool() == b.Bool()
	case types.KindChar:
		return a.Char() == b.Char()
	default:
		if a.IsNull() || b.IsNull() {
			return a.IsNull() == b.IsNull()
		}
		ao, aok := a.Ref().(*heap.Object)
		bo, bok := b.Ref().(*heap.Object)
		if aok && bok && ao.Shape() == heap.ShapeString && bo.Shape() == heap.ShapeString {
			return ao.Equals(bo)
		}
		return a.Ref() == b.Ref()
	}
}

// callFunction implements the Call semantics of spec.md §4.2 step by
// step: resolve (via the cache if populated), pop argCount values
// right-to-left into left-to-right locals, allocate the callee's frame,
// then either invoke the native body or recursively Run the bytecode
// body over rec.Program from BodyStart (the instruction immediately
// after FunReturn) up to BodyEnd (its FunEnd).
func callFunction(vm *VM, signature string) {
	rec, ok := vm.opCodeCache[signature]
	if !ok {
		rec, ok = vm.Functions.Get(signature)
		if !ok {
			abort(vm, "call to unregistered function %q", signature)
		}
		vm.opCodeCache[signature] = rec
	}

	argCount := rec.VarTable.ArgCount
	args := make([]types.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}

	callee := &Frame{Name: rec.Name}
	callee.Locals = make([]types.Value, rec.VarTable.Len())
	copy(callee.Locals, args)
	for i := argCount; i < rec.VarTable.Len(); i++ {
		callee.Locals[i] = rec.VarTable.Types[i].Zero()
	}

	vm.pushCallStack(rec.Name, 0)
	defer vm.popCallStack()

	if rec.Native != nil {
		rec.Native(vm, callee)
		return
	}
	Run(rec.Program, rec.BodyStart, rec.BodyEnd, vm, callee)
}

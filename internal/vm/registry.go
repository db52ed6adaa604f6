package vm

import (
	"github.com/vipl-lang/vipl/internal/bytecode"
	"github.com/vipl-lang/vipl/internal/types"
)

// NativeBody is the native ABI: a native reads its arguments from
// frame's locals (the first ArgCount of them) and pushes its result, if
// any, onto vm's operand stack, per spec.md §9 "Native ABI".
type NativeBody func(vm *VM, frame *Frame)

// FunctionRecord is a registered function: either a bytecode body (a
// slice of the program delimited by FunBegin/FunEnd) or a native.
type FunctionRecord struct {
	Name       string
	VarTable   types.VarTable
	ReturnType *types.DataType

	// Program/BodyStart/BodyEnd describe a bytecode function's body as a
	// range within the full instruction stream it was scanned from:
	// [BodyStart, BodyEnd) starts immediately after FunReturn and ends at
	// (not including) the matching FunEnd. The range is kept against the
	// full Program, rather than re-sliced out of it, because Jmp targets
	// inside the body are absolute indices into that full stream (the
	// assembler's label resolution counts mnemonic lines globally) — a
	// re-sliced copy would make those targets point at the wrong
	// instruction.
	Program   bytecode.Program
	BodyStart int
	BodyEnd   int

	Native NativeBody
}

func (f *FunctionRecord) Signature() string {
	return types.Signature(f.Name, f.VarTable.Types[:f.VarTable.ArgCount])
}

// FunctionRegistry holds every function VIPL knows about, keyed by its
// canonical signature. It implements checker.FunctionLookup so the
// checker can resolve Call targets without internal/checker importing
// internal/vm.
type FunctionRegistry struct {
	byName map[string]*FunctionRecord
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{byName: make(map[string]*FunctionRecord)}
}

// Register adds a bytecode or native function record, keyed by its
// canonical signature.
func (r *FunctionRegistry) Register(rec *FunctionRecord) {
	r.byName[rec.Signature()] = rec
}

func (r *FunctionRegistry) Get(signature string) (*FunctionRecord, bool) {
	rec, ok := r.byName[signature]
	return rec, ok
}

// Lookup implements checker.FunctionLookup.
func (r *FunctionRegistry) Lookup(signature string) ([]types.DataType, *types.DataType, bool) {
	rec, ok := r.byName[signature]
	if !ok {
		return nil, nil, false
	}
	return rec.VarTable.Types[:rec.VarTable.ArgCount], rec.ReturnType, true
}

// ScanFunctions is the pre-pass spec.md §9 describes: it walks a full
// instruction stream, finds every FunBegin...FunEnd block, and registers
// a bytecode FunctionRecord for each — "the registry is populated by a
// pre-pass that scans for these blocks and records their start indices."
func ScanFunctions(program bytecode.Program, reg *FunctionRegistry) error {
	i := 0
	for i < len(program) {
		if program[i].Op != bytecode.OpFunBegin {
			i++
			continue
		}
		rec, next, err := parseFunctionBlock(program, i)
		if err != nil {
			return err
		}
		reg.Register(rec)
		i = next
	}
	return nil
}

func parseFunctionBlock(program bytecode.Program, begin int) (*FunctionRecord, int, error) {
	i := begin + 1
	if i >= len(program) || program[i].Op != bytecode.OpFunName {
		return nil, 0, errFramingf(begin, "FunBegin must be followed by FunName")
	}
	name := program[i].Name
	i++
	if i >= len(program) || program[i].Op != bytecode.OpLocalVarTable {
		return nil, 0, errFramingf(begin, "FunBegin for %s missing LocalVarTable", name)
	}
	vt := types.VarTable{Types: program[i].Types, ArgCount: program[i].ArgCount}
	i++
	if i >= len(program) || program[i].Op != bytecode.OpFunReturn {
		return nil, 0, errFramingf(begin, "FunBegin for %s missing FunReturn", name)
	}
	var ret *types.DataType
	if program[i].HasReturn {
		t := program[i].Type
		ret = &t
	}
	i++

	bodyStart := i
	depth := 1
	for i < len(program) && depth > 0 {
		switch program[i].Op {
		case bytecode.OpFunBegin:
			depth++
		case bytecode.OpFunEnd:
			depth--
		}
		if depth == 0 {
			break
		}
		i++
	}
	if depth != 0 {
		return nil, 0, errFramingf(begin, "unterminated function block for %s", name)
	}
	bodyEnd := i

	return &FunctionRecord{
		Name:       name,
		VarTable:   vt,
		ReturnType: ret,
		Program:    program,
		BodyStart:  bodyStart,
		BodyEnd:    bodyEnd,
	}, bodyEnd + 1, nil
}

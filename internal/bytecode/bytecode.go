// Package bytecode defines VIPL's instruction set: the contract between
// the checker (internal/checker) and the virtual machine (internal/vm).
//
// An instruction stream is a flat slice of Instruction values. Function
// bodies live inline, delimited by FunBegin/FunEnd meta-opcodes, rather
// than in a separate table — the dispatch loop skips these blocks at the
// top level and only enters them via Call (see internal/vm).
package bytecode

import (
	"fmt"

	"github.com/vipl-lang/vipl/internal/types"
)

// Op is a single opcode. Opcodes are organized below by category, matching
// the canonical list.
type Op byte

const (
	// === Stack ===

	// OpPushInt pushes an Int literal. Int holds the value.
	OpPushInt Op = iota
	// OpPushFloat pushes a Float literal. Float holds the value.
	OpPushFloat
	// OpPushBool pushes a Bool literal. Bool holds the value.
	OpPushBool
	// OpPushChar pushes a Char literal. Char holds the value.
	OpPushChar
	// OpPop discards the top of the operand stack.
	OpPop
	// OpDup duplicates the top of the operand stack.
	OpDup

	// === Conversions ===

	// OpF2I pops a Float, pushes its truncated Int.
	OpF2I
	// OpI2F pops an Int, pushes its widened Float.
	OpI2F

	// === Locals ===

	// OpPushLocal pushes the value of local Int (the slot index).
	OpPushLocal
	// OpSetLocal pops a value of type Type and stores it into local Int.
	OpSetLocal
	// OpInc increments local Int, which must have type Type.
	OpInc
	// OpDec decrements local Int, which must have type Type.
	OpDec

	// === Arithmetic, comparison, logic — all parameterized by Type ===

	// OpAdd pops two values of type Type, pushes their sum.
	OpAdd
	OpSub
	OpMul
	// OpDiv pops two values of type Type, pushes a Float — see the design
	// note on this opcode in internal/checker; the result is always Float
	// regardless of Type, a deliberate, documented surprise.
	OpDiv
	OpEquals
	OpGreater
	OpLess
	// OpAnd pops two Bools, pushes their conjunction.
	OpAnd
	OpOr
	// OpNot pops a Bool, pushes its negation.
	OpNot

	// === Control ===

	// OpJmp transfers control to Int (an absolute instruction index). Kind
	// selects unconditional vs. conditional (popping a Bool) dispatch.
	OpJmp
	// OpCall invokes the function named by Name (a canonical signature).
	OpCall
	// OpReturn ends the current function's execution.
	OpReturn

	// === Heap (native-only in this core; see internal/checker and
	// internal/vm for how these are treated — reserved framing, no
	// static type checking of shape) ===

	// OpArrayNew allocates an array of element type Type and length
	// popped as an Int.
	OpArrayNew
	// OpArrayStore pops index (Int), value (Type), array reference; stores.
	OpArrayStore
	// OpArrayLoad pops index (Int), array reference; pushes element (Type).
	OpArrayLoad
	// OpArrayLength pops an array reference; pushes its length as Int.
	OpArrayLength
	// OpNew allocates an instance of the class named Name.
	OpNew
	// OpGetField reads field Name of type Type from the object on top.
	OpGetField
	// OpSetField writes field Name of type Type on the object beneath the
	// value on top.
	OpSetField

	// === Meta / framing ===

	// OpFunBegin opens a function block; must be followed by FunName,
	// LocalVarTable, FunReturn before the body.
	OpFunBegin
	// OpFunName names the function being defined (Name).
	OpFunName
	// OpLocalVarTable declares the function's locals: Types (first
	// ArgCount of which are parameters).
	OpLocalVarTable
	// OpFunReturn declares the function's return type, if any (Type,
	// HasReturn false meaning no return type).
	OpFunReturn
	// OpFunEnd closes a function block opened by FunBegin.
	OpFunEnd
	// OpClassBegin/OpClassName/OpClassField/OpClassEnd frame a class
	// definition; reserved, see internal/checker.
	OpClassBegin
	OpClassName
	OpClassField
	OpClassEnd
)

var opNames = map[Op]string{
	OpPushInt:       "pushint",
	OpPushFloat:     "pushfloat",
	OpPushBool:      "pushbool",
	OpPushChar:      "pushchar",
	OpPop:           "pop",
	OpDup:           "dup",
	OpF2I:           "f2i",
	OpI2F:           "i2f",
	OpPushLocal:     "pushlocal",
	OpSetLocal:      "setlocal",
	OpInc:           "inc",
	OpDec:           "dec",
	OpAdd:           "add",
	OpSub:           "sub",
	OpMul:           "mul",
	OpDiv:           "div",
	OpEquals:        "equals",
	OpGreater:       "greater",
	OpLess:          "less",
	OpAnd:           "and",
	OpOr:            "or",
	OpNot:           "not",
	OpJmp:           "jmp",
	OpCall:          "call",
	OpReturn:        "return",
	OpArrayNew:      "arraynew",
	OpArrayStore:    "arraystore",
	OpArrayLoad:     "arrayload",
	OpArrayLength:   "arraylength",
	OpNew:           "new",
	OpGetField:      "getfield",
	OpSetField:      "setfield",
	OpFunBegin:      "funbegin",
	OpFunName:       "funname",
	OpLocalVarTable: "localvartable",
	OpFunReturn:     "funreturn",
	OpFunEnd:        "funend",
	OpClassBegin:    "classbegin",
	OpClassName:     "classname",
	OpClassField:    "classfield",
	OpClassEnd:      "classend",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "?unknown-op?"
}

// JumpKind selects Jmp's dispatch mode.
type JumpKind byte

const (
	Unconditional JumpKind = iota
	IfTrue
	IfFalse
)

func (k JumpKind) String() string {
	switch k {
	case Unconditional:
		return "always"
	case IfTrue:
		return "iftrue"
	case IfFalse:
		return "iffalse"
	default:
		return "?"
	}
}

// Instruction is one opcode plus whichever operand fields that opcode
// uses. Unlike the teacher's single-int operand, VIPL's opcode set mixes
// immediates of several shapes (int, float, bool, char, type, signature
// string), so the operand is spread across typed fields instead of
// packed into one int — only the fields relevant to Op are meaningful.
type Instruction struct {
	Op Op

	Int   int64  // PushInt, PushLocal/SetLocal/Inc/Dec slot index, Jmp target
	Float float64
	Bool  bool
	Char  rune
	Name  string // Call signature, FunName, New/GetField/SetField/ClassName/ClassField name

	Type  types.DataType // SetLocal/Inc/Dec/Add/Sub/Mul/Div/Equals/Greater/Less/ArrayNew/ArrayStore/ArrayLoad/GetField/SetField/FunReturn
	Types []types.DataType // LocalVarTable
	ArgCount int             // LocalVarTable

	HasReturn bool // FunReturn: whether Type is meaningful
	Kind      JumpKind
}

func (ins Instruction) String() string {
	switch ins.Op {
	case OpPushInt:
		return fmt.Sprintf("pushint %d", ins.Int)
	case OpPushFloat:
		return fmt.Sprintf("pushfloat %g", ins.Float)
	case OpPushBool:
		return fmt.Sprintf("pushbool %t", ins.Bool)
	case OpPushChar:
		return fmt.Sprintf("pushchar %q", ins.Char)
	case OpPushLocal:
		return fmt.Sprintf("pushlocal %d", ins.Int)
	case OpSetLocal:
		return fmt.Sprintf("setlocal %d, %s", ins.Int, ins.Type)
	case OpInc:
		return fmt.Sprintf("inc %s, %d", ins.Type, ins.Int)
	case OpDec:
		return fmt.Sprintf("dec %s, %d", ins.Type, ins.Int)
	case OpAdd, OpSub, OpMul, OpDiv, OpEquals, OpGreater, OpLess:
		return fmt.Sprintf("%s %s", ins.Op, ins.Type)
	case OpJmp:
		return fmt.Sprintf("jmp %s, %d", ins.Kind, ins.Int)
	case OpCall:
		return fmt.Sprintf("call %q", ins.Name)
	case OpArrayNew, OpArrayStore, OpArrayLoad:
		return fmt.Sprintf("%s %s", ins.Op, ins.Type)
	case OpNew:
		return fmt.Sprintf("new %s", ins.Name)
	case OpGetField, OpSetField:
		return fmt.Sprintf("%s %s, %s", ins.Op, ins.Name, ins.Type)
	case OpFunName, OpClassName:
		return fmt.Sprintf("%s %s", ins.Op, ins.Name)
	case OpClassField:
		return fmt.Sprintf("classfield %s, %s", ins.Name, ins.Type)
	case OpLocalVarTable:
		return fmt.Sprintf("localvartable %v, argcount=%d", ins.Types, ins.ArgCount)
	case OpFunReturn:
		if !ins.HasReturn {
			return "funreturn none"
		}
		return fmt.Sprintf("funreturn %s", ins.Type)
	default:
		return ins.Op.String()
	}
}

// Program is a checked or to-be-checked instruction stream.
type Program []Instruction

// TopLevelLocals inspects program for an optional leading LocalVarTable
// instruction — a "localvartable t1,t2,..." line written before any
// other top-level code — declaring the slot types of the top-level
// program's own locals. evaluate's topLevelLocals parameter (spec.md
// §4.2) comes from here for an assembled program; it returns the
// VarTable the directive declares and the index checking/execution
// should start from. Absence means no top-level locals: a zero
// VarTable and a start index of 0, exactly as if the directive had
// never existed.
//
// This is unambiguous: a function's own LocalVarTable only ever
// appears immediately after FunBegin, FunName, which would have to
// occupy program[0] and program[1] instead.
func TopLevelLocals(program Program) (types.VarTable, int) {
	if len(program) > 0 && program[0].Op == OpLocalVarTable {
		ins := program[0]
		return types.VarTable{Types: ins.Types, ArgCount: ins.ArgCount}, 1
	}
	return types.VarTable{}, 0
}

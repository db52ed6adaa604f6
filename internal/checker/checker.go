// Package checker implements VIPL's bytecode checker: an abstract
// interpreter that verifies an instruction stream is well-typed before
// the VM ever runs it unchecked.
//
// The public contract is the boolean Check, matching the distilled
// core's contract exactly. Internally the interpreter threads a typed
// *Violation so a caller that wants a diagnosis (cmd/vipl check) can ask
// for one without changing what Check itself returns — the VM-facing
// surface never depends on the richer type.
package checker

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/vipl-lang/vipl/internal/bytecode"
	"github.com/vipl-lang/vipl/internal/types"
)

// FunctionLookup is the slice of the VM's function registry the checker
// needs: resolving a call signature to its parameter types and optional
// return type. internal/vm's FunctionRegistry implements this; declaring
// the interface here (rather than importing internal/vm) keeps checker a
// leaf package with no dependency on the VM.
type FunctionLookup interface {
	Lookup(signature string) (params []types.DataType, returnType *types.DataType, ok bool)
}

// Violation is the internal, descriptive failure the abstract
// interpreter produces — grounded on the original implementation's
// per-opcode typed errors (see DESIGN.md). Check reduces this to false;
// cmd/vipl check prints it when present.
type Violation struct {
	Pos      int
	Op       bytecode.Op
	Message  string
	Expected types.DataType
	Actual   types.DataType
	hasTypes bool
}

func (v *Violation) Error() string {
	if v.hasTypes {
		return fmt.Sprintf("pos %d: %s: %s (expected %s, got %s)", v.Pos, v.Op, v.Message, v.Expected, v.Actual)
	}
	return fmt.Sprintf("pos %d: %s: %s", v.Pos, v.Op, v.Message)
}

func violation(pos int, op bytecode.Op, msg string, args ...interface{}) *Violation {
	return &Violation{Pos: pos, Op: op, Message: fmt.Sprintf(msg, args...)}
}

func typeViolation(pos int, op bytecode.Op, msg string, expected, actual types.DataType) *Violation {
	return &Violation{Pos: pos, Op: op, Message: msg, Expected: expected, Actual: actual, hasTypes: true}
}

// Check is the public contract: given a complete instruction stream and
// the function registry (for Call signature lookup), verify the stream
// is well-typed. It does not mutate the stream; the checked-signature set
// it records is local to this call (see checkCall for why recursion needs
// no lookup in it).
func Check(program bytecode.Program, funcs FunctionLookup) bool {
	_, err := CheckDiagnose(program, funcs)
	return err == nil
}

// CheckDiagnose runs the same abstract interpretation as Check but
// returns the Violation that failed it, if any, for diagnostic front
// ends. A nil error means the program is well-typed.
func CheckDiagnose(program bytecode.Program, funcs FunctionLookup) (bool, error) {
	topLevelLocals, start := bytecode.TopLevelLocals(program)
	c := &interp{
		program: program,
		funcs:   funcs,
		checked: map[string]bool{},
	}
	if err := c.checkBlock(start, len(program), topLevelLocals.Types, nil); err != nil {
		return false, err
	}
	return true, nil
}

// interp is the abstract interpreter's state: a cursor into the opcode
// stream, an abstract operand stack of DataType tags, an abstract locals
// array, and the checked-signature set (spec §4.1 "State").
type interp struct {
	program bytecode.Program
	funcs   FunctionLookup
	checked map[string]bool
}

// checkBlock abstractly interprets program[start:end] (top-level code,
// or a function body) against locals — empty at top level unless the
// program declares top-level locals via a leading LocalVarTable
// directive (see bytecode.TopLevelLocals). It returns the Violation at
// the first failure, reduced from whatever type mismatch or framing
// error it finds.
//
// No join-point merging is performed at Jmp targets: each straight-line
// run through the stream carries the abstract stack forward, but a
// forward jump is not revisited with a merged state. This is the
// documented approximation (see DESIGN.md "Checker approximation at
// joins").
func (c *interp) checkBlock(start, end int, locals []types.DataType, ret *types.DataType) error {
	stack := []types.DataType{}
	i := start
	for i < end {
		ins := c.program[i]
		switch ins.Op {
		case bytecode.OpFunBegin:
			skip, err := c.checkFunction(i)
			if err != nil {
				return err
			}
			i = skip
			continue
		case bytecode.OpReturn:
			if ret != nil {
				if len(stack) != 1 {
					return violation(i, ins.Op, "expected exactly one value on return, found %d", len(stack))
				}
				if !stack[0].Equal(*ret) {
					return typeViolation(i, ins.Op, "return type mismatch", *ret, stack[0])
				}
			} else if len(stack) != 0 {
				return violation(i, ins.Op, "expected empty stack on return with no declared type, found %d", len(stack))
			}
			return nil
		default:
			var err error
			stack, err = c.step(i, ins, stack, locals)
			if err != nil {
				return err
			}
		}
		i++
	}
	// End of stream reached without an explicit Return: treat exactly as
	// Return would (spec §4.1 "On reaching Return or end-of-stream").
	if ret != nil {
		if len(stack) != 1 || !stack[0].Equal(*ret) {
			return violation(end, bytecode.OpReturn, "function fell off the end without the declared return value on stack")
		}
	} else if len(stack) != 0 {
		return violation(end, bytecode.OpReturn, "program fell off the end with a non-empty stack")
	}
	return nil
}

// checkFunction handles one FunBegin...FunEnd block: reads the three
// mandatory meta-opcodes, records the signature in the checked set,
// seeds abstract locals, and recursively checks the body. It returns the
// index immediately after the matching FunEnd.
func (c *interp) checkFunction(begin int) (int, error) {
	i := begin + 1
	if i >= len(c.program) || c.program[i].Op != bytecode.OpFunName {
		return 0, violation(begin, bytecode.OpFunBegin, "FunBegin must be followed by FunName")
	}
	name := c.program[i].Name
	i++
	if i >= len(c.program) || c.program[i].Op != bytecode.OpLocalVarTable {
		return 0, violation(begin, bytecode.OpFunBegin, "FunBegin must be followed by FunName, LocalVarTable")
	}
	varTable := c.program[i]
	i++
	if i >= len(c.program) || c.program[i].Op != bytecode.OpFunReturn {
		return 0, violation(begin, bytecode.OpFunBegin, "FunBegin must be followed by FunName, LocalVarTable, FunReturn")
	}
	funReturn := c.program[i]
	i++

	sig := types.Signature(name, varTable.Types[:varTable.ArgCount])
	c.checked[sig] = true

	locals := append([]types.DataType(nil), varTable.Types...)
	var ret *types.DataType
	if funReturn.HasReturn {
		t := funReturn.Type
		ret = &t
	}

	bodyStart := i
	depth := 1
	for i < len(c.program) && depth > 0 {
		switch c.program[i].Op {
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
		return 0, violation(begin, bytecode.OpFunBegin, "unterminated function block for %s", name)
	}
	bodyEnd := i

	if err := c.checkBlock(bodyStart, bodyEnd, locals, ret); err != nil {
		return 0, err
	}
	return bodyEnd + 1, nil // skip past FunEnd
}

// step applies one non-framing opcode's rule to the abstract stack,
// returning the updated stack.
func (c *interp) step(pos int, ins bytecode.Instruction, stack []types.DataType, locals []types.DataType) ([]types.DataType, error) {
	pop := func() (types.DataType, []types.DataType, error) {
		if len(stack) == 0 {
			return types.DataType{}, nil, violation(pos, ins.Op, "operand stack underflow")
		}
		top := stack[len(stack)-1]
		return top, stack[:len(stack)-1], nil
	}
	popExpect := func(want types.DataType) ([]types.DataType, error) {
		top, rest, err := pop()
		if err != nil {
			return nil, err
		}
		if !top.Equal(want) {
			return nil, typeViolation(pos, ins.Op, "type mismatch", want, top)
		}
		return rest, nil
	}

	switch ins.Op {
	case bytecode.OpPushInt:
		return append(stack, types.Int), nil
	case bytecode.OpPushFloat:
		return append(stack, types.Float), nil
	case bytecode.OpPushBool:
		return append(stack, types.Bool), nil
	case bytecode.OpPushChar:
		return append(stack, types.Char), nil

	case bytecode.OpPop:
		_, rest, err := pop()
		return rest, err

	case bytecode.OpDup:
		top, _, err := pop()
		if err != nil {
			return nil, err
		}
		return append(stack, top, top), nil

	case bytecode.OpF2I:
		rest, err := popExpect(types.Float)
		if err != nil {
			return nil, err
		}
		return append(rest, types.Int), nil

	case bytecode.OpI2F:
		rest, err := popExpect(types.Int)
		if err != nil {
			return nil, err
		}
		return append(rest, types.Float), nil

	case bytecode.OpPushLocal:
		idx := int(ins.Int)
		if idx < 0 || idx >= len(locals) {
			return nil, violation(pos, ins.Op, "local index %d out of range (have %d locals)", idx, len(locals))
		}
		return append(stack, locals[idx]), nil

	case bytecode.OpSetLocal:
		idx := int(ins.Int)
		if idx < 0 || idx >= len(locals) {
			return nil, violation(pos, ins.Op, "local index %d out of range (have %d locals)", idx, len(locals))
		}
		if !locals[idx].Equal(ins.Type) {
			return nil, typeViolation(pos, ins.Op, "local has a different declared type", locals[idx], ins.Type)
		}
		return popExpect(ins.Type)

	case bytecode.OpInc, bytecode.OpDec:
		idx := int(ins.Int)
		if idx < 0 || idx >= len(locals) {
			return nil, violation(pos, ins.Op, "local index %d out of range (have %d locals)", idx, len(locals))
		}
		if !locals[idx].Equal(ins.Type) {
			return nil, typeViolation(pos, ins.Op, "local has a different declared type", locals[idx], ins.Type)
		}
		return stack, nil

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul:
		rest, err := popExpect(ins.Type)
		if err != nil {
			return nil, err
		}
		rest, err = popTypeFrom(rest, ins, pos)
		if err != nil {
			return nil, err
		}
		return append(rest, ins.Type), nil

	case bytecode.OpDiv:
		// Div(T) always yields Float — preserved deliberately, see DESIGN.md.
		rest, err := popExpect(ins.Type)
		if err != nil {
			return nil, err
		}
		rest, err = popTypeFrom(rest, ins, pos)
		if err != nil {
			return nil, err
		}
		return append(rest, types.Float), nil

	case bytecode.OpEquals, bytecode.OpGreater, bytecode.OpLess:
		rest, err := popExpect(ins.Type)
		if err != nil {
			return nil, err
		}
		rest, err = popTypeFrom(rest, ins, pos)
		if err != nil {
			return nil, err
		}
		return append(rest, types.Bool), nil

	case bytecode.OpAnd, bytecode.OpOr:
		rest, err := popExpect(types.Bool)
		if err != nil {
			return nil, err
		}
		rest, err = popExpectFrom(rest, types.Bool, ins, pos)
		if err != nil {
			return nil, err
		}
		return append(rest, types.Bool), nil

	case bytecode.OpNot:
		rest, err := popExpect(types.Bool)
		if err != nil {
			return nil, err
		}
		return append(rest, types.Bool), nil

	case bytecode.OpJmp:
		if ins.Kind != bytecode.Unconditional {
			return popExpect(types.Bool)
		}
		return stack, nil

	case bytecode.OpCall:
		return c.checkCall(pos, ins, stack)

	case bytecode.OpArrayNew, bytecode.OpArrayStore, bytecode.OpArrayLoad, bytecode.OpArrayLength,
		bytecode.OpNew, bytecode.OpGetField, bytecode.OpSetField,
		bytecode.OpClassBegin, bytecode.OpClassName, bytecode.OpClassField, bytecode.OpClassEnd:
		// Reserved: the source contains dead checker code for these opcodes
		// that panics unconditionally; intent is unclear (unfinished, or
		// meant to be emitted only via natives). Treated as reserved,
		// stack-neutral no-ops for the abstract interpretation — a sound
		// but permissive reading, deferring all type checking of heap
		// shape to the natives that actually implement array/object
		// construction. See DESIGN.md Open Question 1.
		return stack, nil

	default:
		return nil, violation(pos, ins.Op, "unhandled opcode in checker")
	}
}

func popTypeFrom(stack []types.DataType, ins bytecode.Instruction, pos int) ([]types.DataType, error) {
	return popExpectFrom(stack, ins.Type, ins, pos)
}

func popExpectFrom(stack []types.DataType, want types.DataType, ins bytecode.Instruction, pos int) ([]types.DataType, error) {
	if len(stack) == 0 {
		return nil, violation(pos, ins.Op, "operand stack underflow")
	}
	top := stack[len(stack)-1]
	if !top.Equal(want) {
		return nil, typeViolation(pos, ins.Op, "type mismatch", want, top)
	}
	return stack[:len(stack)-1], nil
}

// checkCall resolves ins.Name in the function registry, pops its
// parameters in reverse declared order, and pushes its return type if
// any.
//
// Unlike a design that lazily checks a callee's body the first time it
// is called, this checker only ever walks a body once, from the single
// top-to-bottom pass of checkBlock that reaches its FunBegin — never
// from here. checkCall's effect on the abstract stack (pop declared
// params, push the declared return) is therefore the same whether
// c.checked already holds ins.Name or not: the registry (populated by
// ScanFunctions before any checking starts) already carries every
// function's full signature, so trusting it never requires re-walking
// a body. c.checked still records the set spec §4.1 "State" calls for,
// but breaking recursion falls out of "bodies are walked exactly once,
// by position" rather than out of a check here.
func (c *interp) checkCall(pos int, ins bytecode.Instruction, stack []types.DataType) ([]types.DataType, error) {
	params, ret, ok := c.funcs.Lookup(ins.Name)
	if !ok {
		return nil, violation(pos, ins.Op, "call to unregistered function %q", ins.Name)
	}
	for i := len(params) - 1; i >= 0; i-- {
		rest, err := popExpectFrom(stack, params[i], ins, pos)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d of %s", i, ins.Name)
		}
		stack = rest
	}
	if ret != nil {
		stack = append(stack, *ret)
	}
	return stack, nil
}

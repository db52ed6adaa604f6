package assemble

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/vipl-lang/vipl/internal/bytecode"
	"github.com/vipl-lang/vipl/internal/types"
)

// Assemble turns line-oriented assembly source into a checked-ready
// instruction stream. One instruction per line; labels ("name:") mark
// jump targets; ';' starts a line comment. See SPEC_FULL.md §6 for the
// full mnemonic list and grammar.
func Assemble(source string) (bytecode.Program, error) {
	lines := strings.Split(source, "\n")

	labels, err := scanLabels(lines)
	if err != nil {
		return nil, err
	}

	var program bytecode.Program
	for lineNo, raw := range lines {
		label, mnemonic, args, err := lexLine(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo+1)
		}
		if label != "" || mnemonic == "" {
			continue
		}
		ins, err := buildInstruction(mnemonic, args, labels)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo+1)
		}
		program = append(program, ins)
	}
	return program, nil
}

// scanLabels performs the first pass: find every "name:" line and record
// the instruction index it precedes (instruction indices count only
// mnemonic lines, never label or blank/comment lines).
func scanLabels(lines []string) (map[string]int, error) {
	labels := map[string]int{}
	index := 0
	for lineNo, raw := range lines {
		label, mnemonic, _, err := lexLine(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo+1)
		}
		if label != "" {
			if _, dup := labels[label]; dup {
				return nil, errors.Errorf("line %d: duplicate label %q", lineNo+1, label)
			}
			labels[label] = index
			continue
		}
		if mnemonic != "" {
			index++
		}
	}
	return labels, nil
}

func buildInstruction(mnemonic string, args []token, labels map[string]int) (bytecode.Instruction, error) {
	switch mnemonic {
	case "pushint":
		v, err := argInt(args, 0)
		return bytecode.Instruction{Op: bytecode.OpPushInt, Int: v}, err
	case "pushfloat":
		v, err := argFloat(args, 0)
		return bytecode.Instruction{Op: bytecode.OpPushFloat, Float: v}, err
	case "pushbool":
		v, err := argBool(args, 0)
		return bytecode.Instruction{Op: bytecode.OpPushBool, Bool: v}, err
	case "pushchar":
		v, err := argChar(args, 0)
		return bytecode.Instruction{Op: bytecode.OpPushChar, Char: v}, err
	case "pop":
		return bytecode.Instruction{Op: bytecode.OpPop}, nil
	case "dup":
		return bytecode.Instruction{Op: bytecode.OpDup}, nil
	case "f2i":
		return bytecode.Instruction{Op: bytecode.OpF2I}, nil
	case "i2f":
		return bytecode.Instruction{Op: bytecode.OpI2F}, nil

	case "pushlocal":
		v, err := argInt(args, 0)
		return bytecode.Instruction{Op: bytecode.OpPushLocal, Int: v}, err
	case "setlocal":
		idx, err := argInt(args, 0)
		if err != nil {
			return bytecode.Instruction{}, err
		}
		t, err := argType(args, 1)
		return bytecode.Instruction{Op: bytecode.OpSetLocal, Int: idx, Type: t}, err
	case "inc", "dec":
		t, err := argType(args, 0)
		if err != nil {
			return bytecode.Instruction{}, err
		}
		idx, err := argInt(args, 1)
		op := bytecode.OpInc
		if mnemonic == "dec" {
			op = bytecode.OpDec
		}
		return bytecode.Instruction{Op: op, Type: t, Int: idx}, err

	case "add", "sub", "mul", "div", "equals", "greater", "less":
		t, err := argType(args, 0)
		return bytecode.Instruction{Op: arithOp(mnemonic), Type: t}, err
	case "and":
		return bytecode.Instruction{Op: bytecode.OpAnd}, nil
	case "or":
		return bytecode.Instruction{Op: bytecode.OpOr}, nil
	case "not":
		return bytecode.Instruction{Op: bytecode.OpNot}, nil

	case "jmp":
		kind, err := argJumpKind(args, 0)
		if err != nil {
			return bytecode.Instruction{}, err
		}
		target, err := argTarget(args, 1, labels)
		return bytecode.Instruction{Op: bytecode.OpJmp, Kind: kind, Int: target}, err
	case "call":
		name, err := argString(args, 0)
		return bytecode.Instruction{Op: bytecode.OpCall, Name: name}, err
	case "return":
		return bytecode.Instruction{Op: bytecode.OpReturn}, nil

	case "arraynew":
		t, err := argType(args, 0)
		return bytecode.Instruction{Op: bytecode.OpArrayNew, Type: t}, err
	case "arraystore":
		t, err := argType(args, 0)
		return bytecode.Instruction{Op: bytecode.OpArrayStore, Type: t}, err
	case "arrayload":
		t, err := argType(args, 0)
		return bytecode.Instruction{Op: bytecode.OpArrayLoad, Type: t}, err
	case "arraylength":
		return bytecode.Instruction{Op: bytecode.OpArrayLength}, nil

	case "new":
		name, err := argIdentOrString(args, 0)
		return bytecode.Instruction{Op: bytecode.OpNew, Name: name}, err
	case "getfield", "setfield":
		name, err := argIdentOrString(args, 0)
		if err != nil {
			return bytecode.Instruction{}, err
		}
		t, err := argType(args, 1)
		op := bytecode.OpGetField
		if mnemonic == "setfield" {
			op = bytecode.OpSetField
		}
		return bytecode.Instruction{Op: op, Name: name, Type: t}, err

	case "funbegin":
		return bytecode.Instruction{Op: bytecode.OpFunBegin}, nil
	case "funname":
		name, err := argIdentOrString(args, 0)
		return bytecode.Instruction{Op: bytecode.OpFunName, Name: name}, err
	case "localvartable":
		return buildLocalVarTable(args)
	case "funreturn":
		if len(args) == 1 && args[0].kind == tokIdent && args[0].text == "none" {
			return bytecode.Instruction{Op: bytecode.OpFunReturn, HasReturn: false}, nil
		}
		t, err := argType(args, 0)
		return bytecode.Instruction{Op: bytecode.OpFunReturn, HasReturn: true, Type: t}, err
	case "funend":
		return bytecode.Instruction{Op: bytecode.OpFunEnd}, nil

	case "classbegin":
		return bytecode.Instruction{Op: bytecode.OpClassBegin}, nil
	case "classname":
		name, err := argIdentOrString(args, 0)
		return bytecode.Instruction{Op: bytecode.OpClassName, Name: name}, err
	case "classfield":
		name, err := argIdentOrString(args, 0)
		if err != nil {
			return bytecode.Instruction{}, err
		}
		t, err := argType(args, 1)
		return bytecode.Instruction{Op: bytecode.OpClassField, Name: name, Type: t}, err
	case "classend":
		return bytecode.Instruction{Op: bytecode.OpClassEnd}, nil

	default:
		return bytecode.Instruction{}, errors.Errorf("unknown mnemonic %q", mnemonic)
	}
}

func arithOp(mnemonic string) bytecode.Op {
	switch mnemonic {
	case "add":
		return bytecode.OpAdd
	case "sub":
		return bytecode.OpSub
	case "mul":
		return bytecode.OpMul
	case "div":
		return bytecode.OpDiv
	case "equals":
		return bytecode.OpEquals
	case "greater":
		return bytecode.OpGreater
	default:
		return bytecode.OpLess
	}
}

// buildLocalVarTable parses "localvartable t1,t2,...,argcount=N" where
// the argcount token is the last comma-separated argument.
func buildLocalVarTable(args []token) (bytecode.Instruction, error) {
	if len(args) == 0 {
		return bytecode.Instruction{}, errors.New("localvartable requires at least an argcount")
	}
	last := args[len(args)-1]
	if last.kind != tokIdent || !strings.HasPrefix(last.text, "argcount=") {
		return bytecode.Instruction{}, errors.New("localvartable's last argument must be argcount=N")
	}
	n, err := strconv.Atoi(strings.TrimPrefix(last.text, "argcount="))
	if err != nil {
		return bytecode.Instruction{}, errors.Wrap(err, "invalid argcount")
	}

	var ts []types.DataType
	for _, a := range args[:len(args)-1] {
		t, err := parseTypeToken(a)
		if err != nil {
			return bytecode.Instruction{}, err
		}
		ts = append(ts, t)
	}
	if n < 0 || n > len(ts) {
		return bytecode.Instruction{}, errors.Errorf("argcount %d out of range for %d locals", n, len(ts))
	}
	return bytecode.Instruction{Op: bytecode.OpLocalVarTable, Types: ts, ArgCount: n}, nil
}

func argInt(args []token, i int) (int64, error) {
	tok, err := need(args, i)
	if err != nil {
		return 0, err
	}
	if tok.kind != tokInt {
		return 0, errors.Errorf("argument %d: expected an integer, got %q", i, tok.text)
	}
	v, err := strconv.ParseInt(tok.text, 10, 64)
	return v, errors.Wrap(err, "invalid integer")
}

func argFloat(args []token, i int) (float64, error) {
	tok, err := need(args, i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok.text, 64)
	return v, errors.Wrap(err, "invalid float")
}

func argBool(args []token, i int) (bool, error) {
	tok, err := need(args, i)
	if err != nil {
		return false, err
	}
	switch tok.text {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, errors.Errorf("argument %d: expected true or false, got %q", i, tok.text)
	}
}

func argChar(args []token, i int) (rune, error) {
	tok, err := need(args, i)
	if err != nil {
		return 0, err
	}
	if tok.kind != tokChar {
		return 0, errors.Errorf("argument %d: expected a char literal, got %q", i, tok.text)
	}
	return []rune(tok.text)[0], nil
}

func argString(args []token, i int) (string, error) {
	tok, err := need(args, i)
	if err != nil {
		return "", err
	}
	if tok.kind != tokString {
		return "", errors.Errorf("argument %d: expected a quoted string, got %q", i, tok.text)
	}
	return tok.text, nil
}

// argIdentOrString accepts either a bare identifier or a quoted string
// for names (class/field/function names), matching common assembly
// conventions where unquoted identifiers are the normal case.
func argIdentOrString(args []token, i int) (string, error) {
	tok, err := need(args, i)
	if err != nil {
		return "", err
	}
	return tok.text, nil
}

func argJumpKind(args []token, i int) (bytecode.JumpKind, error) {
	tok, err := need(args, i)
	if err != nil {
		return 0, err
	}
	switch tok.text {
	case "always":
		return bytecode.Unconditional, nil
	case "iftrue":
		return bytecode.IfTrue, nil
	case "iffalse":
		return bytecode.IfFalse, nil
	default:
		return 0, errors.Errorf("argument %d: unknown jump kind %q", i, tok.text)
	}
}

func argTarget(args []token, i int, labels map[string]int) (int64, error) {
	tok, err := need(args, i)
	if err != nil {
		return 0, err
	}
	if tok.kind == tokInt {
		v, err := strconv.ParseInt(tok.text, 10, 64)
		return v, errors.Wrap(err, "invalid jump target")
	}
	target, ok := labels[tok.text]
	if !ok {
		return 0, errors.Errorf("undefined label %q", tok.text)
	}
	return int64(target), nil
}

func argType(args []token, i int) (types.DataType, error) {
	tok, err := need(args, i)
	if err != nil {
		return types.DataType{}, err
	}
	return parseTypeToken(tok)
}

func parseTypeToken(tok token) (types.DataType, error) {
	s := tok.text
	switch s {
	case "int":
		return types.Int, nil
	case "float":
		return types.Float, nil
	case "bool":
		return types.Bool, nil
	case "char":
		return types.Char, nil
	case "any":
		return types.Any, nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner, err := parseTypeToken(token{kind: tokIdent, text: s[1 : len(s)-1]})
		if err != nil {
			return types.DataType{}, err
		}
		return types.ArrayOf(inner), nil
	}
	if s == "" {
		return types.DataType{}, errors.New("empty type")
	}
	return types.Object(s), nil
}

func need(args []token, i int) (token, error) {
	if i >= len(args) {
		return token{}, errors.Errorf("missing argument %d", i)
	}
	return args[i], nil
}

package assemble

import (
	"strings"
	"testing"

	"github.com/kr/pretty"

	"github.com/vipl-lang/vipl/internal/bytecode"
	"github.com/vipl-lang/vipl/internal/types"
)

func TestAssembleArithmetic(t *testing.T) {
	program, err := Assemble(`
pushint 2
pushint 3
add int
`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := bytecode.Program{
		{Op: bytecode.OpPushInt, Int: 2},
		{Op: bytecode.OpPushInt, Int: 3},
		{Op: bytecode.OpAdd, Type: types.Int},
	}
	if len(program) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(program), len(want))
	}
	for i := range want {
		if program[i].Op != want[i].Op || program[i].Int != want[i].Int || !program[i].Type.Equal(want[i].Type) {
			t.Errorf("instruction %d mismatch:\n%s", i, strings.Join(pretty.Diff(want[i], program[i]), "\n"))
		}
	}
}

func TestAssembleSkipsCommentsAndBlankLines(t *testing.T) {
	program, err := Assemble(`
; a leading comment
pushint 1   ; trailing comment

pop
`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(program) != 2 {
		t.Fatalf("got %d instructions, want 2", len(program))
	}
}

func TestAssembleResolvesForwardLabel(t *testing.T) {
	program, err := Assemble(`
pushbool true
jmp iftrue, target
pushint 1
pop
target:
pushint 2
pop
`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	jmp := program[1]
	if jmp.Op != bytecode.OpJmp {
		t.Fatalf("instruction 1 = %s, want jmp", jmp.Op)
	}
	// target: precedes "pushint 2", the 5th mnemonic line (index 4).
	if jmp.Int != 4 {
		t.Errorf("jmp target = %d, want 4", jmp.Int)
	}
}

func TestAssembleUndefinedLabel(t *testing.T) {
	_, err := Assemble(`
jmp always, nowhere
`)
	if err == nil {
		t.Fatal("expected an error for an undefined label")
	}
}

func TestAssembleStringAndCharLiterals(t *testing.T) {
	program, err := Assemble(`
pushchar 'x'
call "print(char)"
`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if program[0].Char != 'x' {
		t.Errorf("Char = %q, want 'x'", program[0].Char)
	}
	if program[1].Name != "print(char)" {
		t.Errorf("Name = %q, want %q", program[1].Name, "print(char)")
	}
}

func TestAssembleArrayType(t *testing.T) {
	program, err := Assemble(`arraynew any`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !program[0].Type.Equal(types.Any) {
		t.Errorf("Type = %v, want any (the element type)", program[0].Type)
	}
}

func TestAssembleLocalVarTable(t *testing.T) {
	program, err := Assemble(`localvartable int, float, argcount=1`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	ins := program[0]
	if ins.ArgCount != 1 {
		t.Errorf("ArgCount = %d, want 1", ins.ArgCount)
	}
	if len(ins.Types) != 2 || !ins.Types[0].Equal(types.Int) || !ins.Types[1].Equal(types.Float) {
		t.Errorf("Types = %v, want [int float]", ins.Types)
	}
}

func TestAssembleUnknownMnemonic(t *testing.T) {
	_, err := Assemble(`frobnicate`)
	if err == nil {
		t.Fatal("expected an error for an unknown mnemonic")
	}
}

func TestAssembleDuplicateLabel(t *testing.T) {
	_, err := Assemble(`
here:
pushint 1
here:
pop
`)
	if err == nil {
		t.Fatal("expected an error for a duplicate label")
	}
}

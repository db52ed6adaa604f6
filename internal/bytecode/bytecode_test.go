package bytecode

import (
	"testing"

	"github.com/vipl-lang/vipl/internal/types"
)

func TestInstructionDisassembly(t *testing.T) {
	tests := []struct {
		name string
		ins  Instruction
		want string
	}{
		{"pushint", Instruction{Op: OpPushInt, Int: 7}, "pushint 7"},
		{"pushbool", Instruction{Op: OpPushBool, Bool: true}, "pushbool true"},
		{"add", Instruction{Op: OpAdd, Type: types.Int}, "add int"},
		{"div", Instruction{Op: OpDiv, Type: types.Float}, "div float"},
		{"jmp", Instruction{Op: OpJmp, Kind: IfTrue, Int: 12}, "jmp iftrue, 12"},
		{"call", Instruction{Op: OpCall, Name: "print(int)"}, `call "print(int)"`},
		{"funreturn none", Instruction{Op: OpFunReturn, HasReturn: false}, "funreturn none"},
		{"funreturn typed", Instruction{Op: OpFunReturn, HasReturn: true, Type: types.Bool}, "funreturn bool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ins.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpStringUnknown(t *testing.T) {
	var unknown Op = 255
	if got := unknown.String(); got != "?unknown-op?" {
		t.Errorf("String() of an unknown op = %q", got)
	}
}

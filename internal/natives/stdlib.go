// Package natives registers the host-supplied functions spec.md calls
// an "external collaborator": print, assert, and the String/Array
// helpers a VIPL program needs to exercise the reference/downcast path
// of the value model before any user-defined function runs.
//
// stdlib.go carries exactly spec.md §4.2's required minimum; domain.go
// adds the original_source-derived extension set (see DESIGN.md).
package natives

import (
	"fmt"

	"github.com/vipl-lang/vipl/internal/heap"
	"github.com/vipl-lang/vipl/internal/types"
	"github.com/vipl-lang/vipl/internal/vm"
)

// RegisterStdlib installs spec.md §4.2's minimum native set: print for
// Int/Float/String, assert, and the String/Array helpers. machine must
// be registered before any user code runs.
func RegisterStdlib(machine *vm.VM) {
	machine.MakeNative("print", []types.DataType{types.Int}, func(m *vm.VM, f *vm.Frame) {
		fmt.Println(f.Locals[0].Int())
	}, nil)

	machine.MakeNative("print", []types.DataType{types.Float}, func(m *vm.VM, f *vm.Frame) {
		fmt.Println(f.Locals[0].Float())
	}, nil)

	machine.MakeNative("print", []types.DataType{types.Str}, func(m *vm.VM, f *vm.Frame) {
		fmt.Println(objectOf(f.Locals[0]))
	}, nil)

	machine.MakeNative("assert", []types.DataType{types.Int, types.Int}, func(m *vm.VM, f *vm.Frame) {
		left, right := f.Locals[0].Int(), f.Locals[1].Int()
		if left != right {
			vm.Abort(m, "assert %d != %d", left, right)
		}
	}, nil)

	strReturn := types.Str
	machine.MakeNative("makeString", nil, func(m *vm.VM, f *vm.Frame) {
		m.Push(types.RefVal(heap.NewString("")))
	}, &strReturn)

	machine.MakeNative("appendChar", []types.DataType{types.Str, types.Char}, func(m *vm.VM, f *vm.Frame) {
		objectOf(f.Locals[0]).AppendChar(f.Locals[1].Char())
	}, nil)

	intReturn := types.Int
	machine.MakeNative("strLen", []types.DataType{types.Str}, func(m *vm.VM, f *vm.Frame) {
		m.Push(types.IntVal(objectOf(f.Locals[0]).RuneLen()))
	}, &intReturn)

	charReturn := types.Char
	machine.MakeNative("getChar", []types.DataType{types.Str, types.Int}, func(m *vm.VM, f *vm.Frame) {
		m.Push(types.CharVal(objectOf(f.Locals[0]).GetChar(f.Locals[1].Int())))
	}, &charReturn)

	boolReturn := types.Bool
	machine.MakeNative("endsWith", []types.DataType{types.Str, types.Str}, func(m *vm.VM, f *vm.Frame) {
		m.Push(types.BoolVal(objectOf(f.Locals[0]).EndsWith(objectOf(f.Locals[1]))))
	}, &boolReturn)

	machine.MakeNative("arrayLen", []types.DataType{types.ArrayOf(types.Any)}, func(m *vm.VM, f *vm.Frame) {
		m.Push(types.IntVal(objectOf(f.Locals[0]).ArrayLen()))
	}, &intReturn)
}

// objectOf downcasts a Value's Reference to *heap.Object, panicking (not
// returning a Go error — natives honor the same unchecked-by-design
// contract the VM's dispatch loop does) if the value is null or not a
// heap object. The panic value is a plain string, not a *vm.Fault, and
// carries no call-stack trace.
func objectOf(v types.Value) *heap.Object {
	if v.IsNull() {
		panic("natives: null dereference")
	}
	obj, ok := v.Ref().(*heap.Object)
	if !ok {
		panic("natives: reference does not point to a heap object")
	}
	return obj
}

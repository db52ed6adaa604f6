// domain.go extends stdlib.go's required minimum with natives the
// distilled spec.md does not name but a complete String/Array value
// model invites, in the idiom std.rs already establishes (a native reads
// its arguments from frame.Locals, mutates or allocates a heap.Object,
// and pushes its result). None of these touch a Non-goal — they are
// generalizations of the same object shapes stdlib.go already exercises,
// not new subsystems.
package natives

import (
	"fmt"

	"github.com/vipl-lang/vipl/internal/heap"
	"github.com/vipl-lang/vipl/internal/types"
	"github.com/vipl-lang/vipl/internal/vm"
)

// RegisterDomain installs the supplemented native set: numeric-to-string
// conversion, string concatenation and equality, array push/pop, and an
// explicit abort native mirroring std.rs's assert-style fatal panic.
func RegisterDomain(machine *vm.VM) {
	strReturn := types.Str

	machine.MakeNative("toString", []types.DataType{types.Int}, func(m *vm.VM, f *vm.Frame) {
		m.Push(types.RefVal(heap.NewString(fmt.Sprintf("%d", f.Locals[0].Int()))))
	}, &strReturn)

	machine.MakeNative("toString", []types.DataType{types.Float}, func(m *vm.VM, f *vm.Frame) {
		m.Push(types.RefVal(heap.NewString(fmt.Sprintf("%g", f.Locals[0].Float()))))
	}, &strReturn)

	machine.MakeNative("concat", []types.DataType{types.Str, types.Str}, func(m *vm.VM, f *vm.Frame) {
		m.Push(types.RefVal(objectOf(f.Locals[0]).Concat(objectOf(f.Locals[1]))))
	}, &strReturn)

	boolReturn := types.Bool
	machine.MakeNative("strEquals", []types.DataType{types.Str, types.Str}, func(m *vm.VM, f *vm.Frame) {
		m.Push(types.BoolVal(objectOf(f.Locals[0]).Equals(objectOf(f.Locals[1]))))
	}, &boolReturn)

	arrayOfAny := types.ArrayOf(types.Any)

	// newArray is the only way a VIPL program constructs an Array object
	// in this core — ArrayNew is reserved/native-only (see DESIGN.md Open
	// Question 1), so without this native there would be no way to reach
	// spec.md §8's array-length scenario from assembled bytecode at all.
	// Elements start zero-valued (types.Any's Zero is NullRef).
	machine.MakeNative("newArray", []types.DataType{types.Int}, func(m *vm.VM, f *vm.Frame) {
		m.Push(types.RefVal(heap.NewArray(types.Any, f.Locals[0].Int())))
	}, &arrayOfAny)

	machine.MakeNative("arrayPush", []types.DataType{arrayOfAny, types.Any}, func(m *vm.VM, f *vm.Frame) {
		objectOf(f.Locals[0]).ArrayPush(f.Locals[1])
	}, nil)

	machine.MakeNative("arrayPop", []types.DataType{arrayOfAny}, func(m *vm.VM, f *vm.Frame) {
		m.Push(objectOf(f.Locals[0]).ArrayPop())
	}, &types.Any)

	// abort mirrors assert's fatal-on-mismatch behavior as an explicit,
	// unconditional native — a program can call it directly instead of
	// engineering a failing assert, the way std.rs's bootstrap leans on
	// panic! for host-detected failures.
	machine.MakeNative("abort", []types.DataType{types.Str}, func(m *vm.VM, f *vm.Frame) {
		vm.Abort(m, "%s", objectOf(f.Locals[0]))
	}, nil)
}

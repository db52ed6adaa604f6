package natives_test

import (
	"testing"

	"github.com/vipl-lang/vipl/internal/heap"
	"github.com/vipl-lang/vipl/internal/natives"
	"github.com/vipl-lang/vipl/internal/types"
	"github.com/vipl-lang/vipl/internal/vm"
)

func newMachine() *vm.VM {
	machine := vm.New()
	natives.RegisterStdlib(machine)
	natives.RegisterDomain(machine)
	return machine
}

func callNative(t *testing.T, machine *vm.VM, signature string, args ...types.Value) {
	t.Helper()
	for _, a := range args {
		machine.Push(a)
	}
	rec, ok := machine.Functions.Get(signature)
	if !ok {
		t.Fatalf("no native registered for %q", signature)
	}
	frame := vm.NewFrame(rec.Name, rec.VarTable, nil)
	argCount := rec.VarTable.ArgCount
	popped := make([]types.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		popped[i] = machine.Pop()
	}
	copy(frame.Locals, popped)
	rec.Native(machine, frame)
}

func TestStrLenAndGetChar(t *testing.T) {
	machine := newMachine()
	s := heap.NewString("abc")

	callNative(t, machine, "strLen(String)", types.RefVal(s))
	top, _ := machine.StackTop()
	if top.Int() != 3 {
		t.Fatalf("strLen = %d, want 3", top.Int())
	}
	machine.Pop()

	callNative(t, machine, "getChar(String,int)", types.RefVal(s), types.IntVal(1))
	top, _ = machine.StackTop()
	if top.Char() != 'b' {
		t.Fatalf("getChar(1) = %q, want 'b'", top.Char())
	}
}

func TestEndsWith(t *testing.T) {
	machine := newMachine()
	callNative(t, machine, "endsWith(String,String)", types.RefVal(heap.NewString("hello")), types.RefVal(heap.NewString("lo")))
	top, _ := machine.StackTop()
	if !top.Bool() {
		t.Fatal("expected endsWith(\"hello\",\"lo\") to be true")
	}
}

func TestToStringConversions(t *testing.T) {
	machine := newMachine()
	callNative(t, machine, "toString(int)", types.IntVal(42))
	top, _ := machine.StackTop()
	obj := top.Ref().(*heap.Object)
	if got := obj.String(); got != "42" {
		t.Errorf("toString(42) = %q, want %q", got, "42")
	}
}

func TestConcatAndStrEquals(t *testing.T) {
	machine := newMachine()
	callNative(t, machine, "concat(String,String)", types.RefVal(heap.NewString("foo")), types.RefVal(heap.NewString("bar")))
	top, _ := machine.StackTop()
	if got := top.Ref().(*heap.Object).String(); got != "foobar" {
		t.Fatalf("concat = %q, want %q", got, "foobar")
	}
	machine.Pop()

	callNative(t, machine, "strEquals(String,String)", types.RefVal(heap.NewString("x")), types.RefVal(heap.NewString("x")))
	top, _ = machine.StackTop()
	if !top.Bool() {
		t.Fatal("expected strEquals(\"x\",\"x\") to be true")
	}
}

func TestArrayPushPopAndLen(t *testing.T) {
	machine := newMachine()
	arr := heap.NewArray(types.Any, 0)

	callNative(t, machine, "arrayPush([any],any)", types.RefVal(arr), types.IntVal(9))
	if got := arr.ArrayLen(); got != 1 {
		t.Fatalf("ArrayLen after push = %d, want 1", got)
	}

	callNative(t, machine, "arrayPop([any])", types.RefVal(arr))
	top, _ := machine.StackTop()
	if top.Int() != 9 {
		t.Fatalf("arrayPop = %v, want 9", top)
	}
	if got := arr.ArrayLen(); got != 0 {
		t.Fatalf("ArrayLen after pop = %d, want 0", got)
	}
}

func TestNewArrayConstructsZeroFilled(t *testing.T) {
	machine := newMachine()
	callNative(t, machine, "newArray(int)", types.IntVal(4))
	top, _ := machine.StackTop()
	obj := top.Ref().(*heap.Object)
	if got := obj.ArrayLen(); got != 4 {
		t.Fatalf("ArrayLen = %d, want 4", got)
	}
	for i := int64(0); i < 4; i++ {
		if v := obj.ArrayLoad(i); !v.IsNull() {
			t.Errorf("element %d = %v, want a zero (null) value", i, v)
		}
	}
}

// TestAssertMismatchAborts confirms a failing assert raises the VM's own
// *vm.Fault panic rather than killing the process outright, so it is
// caught by the same recover() boundary any other runtime violation is.
func TestAssertMismatchAborts(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a Fault panic on assert mismatch")
		}
		if _, ok := r.(*vm.Fault); !ok {
			t.Fatalf("expected *vm.Fault, got %T: %v", r, r)
		}
	}()
	machine := newMachine()
	callNative(t, machine, "assert(int,int)", types.IntVal(1), types.IntVal(2))
}

// TestAbortNativeAborts confirms the explicit abort native also raises
// a *vm.Fault rather than calling os.Exit directly.
func TestAbortNativeAborts(t *testing.T) {
	defer func() {
		if _, ok := recover().(*vm.Fault); !ok {
			t.Fatal("expected a Fault panic from abort")
		}
	}()
	machine := newMachine()
	callNative(t, machine, "abort(String)", types.RefVal(heap.NewString("boom")))
}

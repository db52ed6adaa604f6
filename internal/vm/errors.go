// Runtime error handling: StackFrame and Fault.
//
// Grounded on the teacher's errors.go (StackFrame, RuntimeError): the
// same shape, retargeted from "a message plus a printable stack trace"
// to "a typed value that abort() panics with," because spec.md §7
// requires runtime failures to be fatal aborts rather than recoverable
// errors — the VM is unchecked by design; a runtime violation means the
// checker, codegen, or a native has a bug.
package vm

import (
	"fmt"
	"strings"
)

// StackFrame is a snapshot of one call-stack entry, kept for diagnostics
// after a Fault — not to be confused with Frame, the live frame a
// function executes against.
type StackFrame struct {
	Name string
	IP   int
}

// Fault is what the VM panics with on a runtime violation it detects
// itself: operand stack underflow, stack limit exceeded, unknown-function
// call, a reserved native-only opcode, or an unterminated function
// block — plus whatever a native raises through Abort (spec.md §4.2
// "Errors"). Type mismatches are not detected at run time, and a null
// dereference or out-of-bounds index inside internal/natives or
// internal/heap panics with a plain string value, not a Fault.
type Fault struct {
	Message string
	Trace   []StackFrame
}

func (f *Fault) Error() string {
	var b strings.Builder
	b.WriteString(f.Message)
	if len(f.Trace) > 0 {
		b.WriteString("\n\nStack trace:")
		for i := len(f.Trace) - 1; i >= 0; i-- {
			fr := f.Trace[i]
			b.WriteString(fmt.Sprintf("\n  at %s [IP:%d]", fr.Name, fr.IP))
		}
	}
	return b.String()
}

func abort(vm *VM, format string, args ...interface{}) {
	panic(&Fault{Message: fmt.Sprintf(format, args...), Trace: vm.traceSnapshot()})
}

// Abort raises the same *Fault panic the dispatch loop's own runtime
// violations do, carrying the current call-stack trace. Natives that
// detect a fatal, user-triggered condition (assert, abort) call this
// rather than os.Exit, so the failure is caught by the one recover()
// boundary spec.md §7 calls for instead of bypassing it.
func Abort(vm *VM, format string, args ...interface{}) {
	abort(vm, format, args...)
}

// errFramingf reports a pre-execution framing defect found while
// scanning function blocks (a malformed FunBegin...FunEnd sequence).
// Unlike Fault, this is a pre-execution tier error per spec.md §7 — it
// is returned, not panicked, because it is detected before any code runs.
func errFramingf(pos int, format string, args ...interface{}) error {
	return fmt.Errorf("framing error at instruction %d: %s", pos, fmt.Sprintf(format, args...))
}

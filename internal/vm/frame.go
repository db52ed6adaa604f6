package vm

import "github.com/vipl-lang/vipl/internal/types"

// Frame is a StackFrame in spec.md §3's sense: a locals array sized to
// the function's VarTable, the function's name for diagnostics, and a
// back-pointer to the caller. The caller's Frame outlives the callee's.
type Frame struct {
	Locals []types.Value
	Name   string
	Caller *Frame
}

// NewFrame allocates a frame with locals zero-initialized per vt's
// declared types (spec.md §3 "Variable metadata").
func NewFrame(name string, vt types.VarTable, caller *Frame) *Frame {
	locals := make([]types.Value, vt.Len())
	for i, t := range vt.Types {
		locals[i] = t.Zero()
	}
	return &Frame{Locals: locals, Name: name, Caller: caller}
}

// Package heap implements VIPL's reference-counted object model: String
// and Array, the two built-in object shapes.
//
// Each Object holds its payload behind a Cell so that a mutable view can
// be obtained through a shared Reference without racing for exclusive
// access — safe because the VM is single-threaded and non-reentrant
// (internal/vm never touches heap state from a second goroutine).
// Reference counts are therefore plain ints, not atomics.
package heap

import (
	"strings"

	"github.com/vipl-lang/vipl/internal/types"
)

// Cell wraps a payload for interior mutation through a shared reference.
// It carries no locking of its own — correctness rests on the VM's
// single-threaded invariant, not on Cell itself.
type Cell[T any] struct {
	v T
}

func NewCell[T any](v T) *Cell[T] { return &Cell[T]{v: v} }
func (c *Cell[T]) Get() T         { return c.v }
func (c *Cell[T]) Set(v T)        { c.v = v }

// Shape tags the two built-in object kinds.
type Shape byte

const (
	ShapeString Shape = iota
	ShapeArray
)

// Object is a heap-allocated, reference-counted record. It implements
// types.Ref so a types.Value can hold one without internal/types knowing
// anything about the heap.
type Object struct {
	shape    Shape
	refcount int

	str *Cell[[]rune]        // meaningful when shape == ShapeString
	arr *Cell[[]types.Value] // meaningful when shape == ShapeArray
	elem types.DataType      // Array's declared element type
}

// NewString allocates a String object with refcount 1, owned by the
// caller (matching the teacher's convention that construction hands back
// an owned reference, mirrored from its Instance/Array allocation sites).
func NewString(initial string) *Object {
	return &Object{shape: ShapeString, refcount: 1, str: NewCell([]rune(initial))}
}

// NewArray allocates an Array of the given element type and length,
// zero-filled, with refcount 1.
func NewArray(elem types.DataType, length int64) *Object {
	vals := make([]types.Value, length)
	zero := elem.Zero()
	for i := range vals {
		vals[i] = zero
	}
	return &Object{shape: ShapeArray, refcount: 1, arr: NewCell(vals), elem: elem}
}

func (o *Object) Shape() Shape { return o.shape }

// Retain/Release implement types.Ref.
func (o *Object) Retain() {
	if o == nil {
		return
	}
	o.refcount++
}

// Release decrements the refcount. It panics if the count would underflow
// — per spec, "reference counts never underflow" is an invariant, not a
// recoverable condition.
func (o *Object) Release() {
	if o == nil {
		return
	}
	if o.refcount <= 0 {
		panic("heap: refcount underflow")
	}
	o.refcount--
}

func (o *Object) Refcount() int { return o.refcount }

// --- String operations ---

func (o *Object) RuneLen() int64 {
	o.mustBeString()
	return int64(len(o.str.Get()))
}

func (o *Object) AppendChar(c rune) {
	o.mustBeString()
	o.str.Set(append(o.str.Get(), c))
}

func (o *Object) GetChar(i int64) rune {
	o.mustBeString()
	runes := o.str.Get()
	if i < 0 || i >= int64(len(runes)) {
		panic("heap: string index out of bounds")
	}
	return runes[i]
}

func (o *Object) String() string {
	if o == nil {
		return "null"
	}
	switch o.shape {
	case ShapeString:
		return string(o.str.Get())
	case ShapeArray:
		return "array"
	default:
		return "?object?"
	}
}

func (o *Object) EndsWith(suffix *Object) bool {
	o.mustBeString()
	suffix.mustBeString()
	return strings.HasSuffix(string(o.str.Get()), string(suffix.str.Get()))
}

func (o *Object) Equals(other *Object) bool {
	o.mustBeString()
	other.mustBeString()
	return string(o.str.Get()) == string(other.str.Get())
}

func (o *Object) Concat(other *Object) *Object {
	o.mustBeString()
	other.mustBeString()
	return NewString(string(o.str.Get()) + string(other.str.Get()))
}

// --- Array operations ---

func (o *Object) ArrayLen() int64 {
	o.mustBeArray()
	return int64(len(o.arr.Get()))
}

func (o *Object) ArrayLoad(i int64) types.Value {
	o.mustBeArray()
	vals := o.arr.Get()
	if i < 0 || i >= int64(len(vals)) {
		panic("heap: array index out of bounds")
	}
	return vals[i]
}

func (o *Object) ArrayStore(i int64, v types.Value) {
	o.mustBeArray()
	vals := o.arr.Get()
	if i < 0 || i >= int64(len(vals)) {
		panic("heap: array index out of bounds")
	}
	vals[i] = v
	o.arr.Set(vals)
}

func (o *Object) ArrayPush(v types.Value) {
	o.mustBeArray()
	o.arr.Set(append(o.arr.Get(), v))
}

func (o *Object) ArrayPop() types.Value {
	o.mustBeArray()
	vals := o.arr.Get()
	if len(vals) == 0 {
		panic("heap: pop of empty array")
	}
	last := vals[len(vals)-1]
	o.arr.Set(vals[:len(vals)-1])
	return last
}

func (o *Object) ElementType() types.DataType {
	o.mustBeArray()
	return o.elem
}

func (o *Object) mustBeString() {
	if o.shape != ShapeString {
		panic("heap: operation requires a String object")
	}
}

func (o *Object) mustBeArray() {
	if o.shape != ShapeArray {
		panic("heap: operation requires an Array object")
	}
}

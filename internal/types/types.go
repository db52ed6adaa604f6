// Package types defines the VIPL data model: the type tags that the
// checker reasons about and the tagged-union values the VM operates on.
//
// A value's tag always matches the declared type of the slot holding it;
// this invariant is established statically by the checker (package
// checker) and assumed without re-verification by the VM (package vm).
package types

import "fmt"

// Kind is the tag of a DataType. It is the alphabet the checker's abstract
// stack and abstract locals are built from.
type Kind byte

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindChar
	KindObject
	KindArray
	// KindAny only appears in type descriptions (e.g. a native's declared
	// parameter type) — no runtime Value ever carries it.
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindAny:
		return "any"
	default:
		return "?unknown-kind?"
	}
}

// ObjectMeta is the Object(meta) payload: a class-like name plus its
// generic parameters, e.g. Object{name:"List", generics:[int]}.
type ObjectMeta struct {
	Name     string
	Generics []DataType
}

// DataType is a full type description: a Kind plus the payload that Kind
// requires (ObjectMeta for KindObject, an element DataType for KindArray).
type DataType struct {
	Kind     Kind
	Object   ObjectMeta // valid when Kind == KindObject
	Elem     *DataType  // valid when Kind == KindArray
}

// Int, Float, Bool, Char, Any are the non-parametric base types.
var (
	Int   = DataType{Kind: KindInt}
	Float = DataType{Kind: KindFloat}
	Bool  = DataType{Kind: KindBool}
	Char  = DataType{Kind: KindChar}
	Any   = DataType{Kind: KindAny}
)

// Str is the sugared Object{name:"String"} pseudo-type.
var Str = Object("String")

// Object builds an Object(meta) type with no generic parameters.
func Object(name string) DataType {
	return DataType{Kind: KindObject, Object: ObjectMeta{Name: name}}
}

// ObjectOf builds an Object(meta) type with the given generic parameters.
func ObjectOf(name string, generics ...DataType) DataType {
	return DataType{Kind: KindObject, Object: ObjectMeta{Name: name, Generics: generics}}
}

// ArrayOf builds an Array(element) type.
func ArrayOf(elem DataType) DataType {
	e := elem
	return DataType{Kind: KindArray, Elem: &e}
}

// Equal reports whether two data types describe the same shape. Generics
// and array element types are compared structurally.
func (d DataType) Equal(o DataType) bool {
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case KindObject:
		if d.Object.Name != o.Object.Name || len(d.Object.Generics) != len(o.Object.Generics) {
			return false
		}
		for i := range d.Object.Generics {
			if !d.Object.Generics[i].Equal(o.Object.Generics[i]) {
				return false
			}
		}
		return true
	case KindArray:
		if d.Elem == nil || o.Elem == nil {
			return d.Elem == o.Elem
		}
		return d.Elem.Equal(*o.Elem)
	default:
		return true
	}
}

// Canonical renders the type the way function signatures do: int, float,
// bool, char, Name for objects, [T] for arrays (§6).
func (d DataType) Canonical() string {
	switch d.Kind {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindObject:
		return d.Object.Name
	case KindArray:
		if d.Elem == nil {
			return "[?]"
		}
		return "[" + d.Elem.Canonical() + "]"
	case KindAny:
		return "any"
	default:
		return "?"
	}
}

func (d DataType) String() string { return d.Canonical() }

// Zero returns the zero value for a data type: 0, 0.0, false, '\0', or a
// null Reference for objects and arrays (§3 "Variable metadata").
func (d DataType) Zero() Value {
	switch d.Kind {
	case KindInt:
		return Value{kind: KindInt}
	case KindFloat:
		return Value{kind: KindFloat}
	case KindBool:
		return Value{kind: KindBool}
	case KindChar:
		return Value{kind: KindChar}
	default:
		return Value{kind: KindObject} // Reference(None); Ref is nil
	}
}

// Value is the tagged union described by §3: Int | Float | Bool | Char |
// Reference(Option<SharedObject>). The kind field is the tag; exactly one
// of the scalar fields or ref is meaningful for a given kind.
//
// Object and Array values share the same representation (a Reference) —
// the distinction between "this is an Object" and "this is an Array" lives
// in the DataType, not in the Value, matching the fact that a Reference
// can be null regardless of the static element/object type.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	c    rune
	ref  Ref
}

// Ref is implemented by heap objects (package heap). It is declared here,
// not in package heap, so that types has no dependency on heap — heap
// depends on types instead, keeping the data model the leaf package.
type Ref interface {
	// Retain/Release adjust the reference count; heap.Object implements them.
	Retain()
	Release()
}

func IntVal(i int64) Value     { return Value{kind: KindInt, i: i} }
func FloatVal(f float64) Value { return Value{kind: KindFloat, f: f} }
func BoolVal(b bool) Value     { return Value{kind: KindBool, b: b} }
func CharVal(c rune) Value     { return Value{kind: KindChar, c: c} }
func RefVal(r Ref) Value       { return Value{kind: KindObject, ref: r} }
func NullRef() Value           { return Value{kind: KindObject} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Bool() bool     { return v.b }
func (v Value) Char() rune     { return v.c }
func (v Value) Ref() Ref       { return v.ref }
func (v Value) IsNull() bool   { return v.ref == nil && (v.kind == KindObject || v.kind == KindArray) }

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindChar:
		return fmt.Sprintf("%q", v.c)
	default:
		if v.ref == nil {
			return "null"
		}
		return fmt.Sprintf("%v", v.ref)
	}
}

// VarTable is the ordered list of {name, type} entries for all locals of a
// function — the first argCount entries are parameters (§3).
type VarTable struct {
	Names     []string
	Types     []DataType
	ArgCount  int
}

func (vt VarTable) Len() int { return len(vt.Types) }

// Signature renders the canonical "name(t1,t2,...)" encoding (§6) for a
// function with the given name and parameter types (the first ArgCount
// entries of Types).
func Signature(name string, params []DataType) string {
	s := name + "("
	for i, p := range params {
		if i > 0 {
			s += ","
		}
		s += p.Canonical()
	}
	return s + ")"
}

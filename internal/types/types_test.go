package types

import "testing"

func TestCanonicalRendering(t *testing.T) {
	tests := []struct {
		name string
		dt   DataType
		want string
	}{
		{"int", Int, "int"},
		{"float", Float, "float"},
		{"bool", Bool, "bool"},
		{"char", Char, "char"},
		{"object", Object("Point"), "Point"},
		{"string sugar", Str, "String"},
		{"array of int", ArrayOf(Int), "[int]"},
		{"array of array", ArrayOf(ArrayOf(Int)), "[[int]]"},
		{"any", Any, "any"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dt.Canonical(); got != tt.want {
				t.Errorf("Canonical() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSignatureEncoding(t *testing.T) {
	got := Signature("print", []DataType{Str})
	want := "print(String)"
	if got != want {
		t.Errorf("Signature() = %q, want %q", got, want)
	}

	got = Signature("arrayLen", []DataType{ArrayOf(Any)})
	want = "arrayLen([any])"
	if got != want {
		t.Errorf("Signature() = %q, want %q", got, want)
	}

	got = Signature("noop", nil)
	want = "noop()"
	if got != want {
		t.Errorf("Signature() = %q, want %q", got, want)
	}
}

func TestDataTypeEqual(t *testing.T) {
	if !ArrayOf(Int).Equal(ArrayOf(Int)) {
		t.Error("ArrayOf(Int) should equal itself structurally")
	}
	if ArrayOf(Int).Equal(ArrayOf(Float)) {
		t.Error("ArrayOf(Int) should not equal ArrayOf(Float)")
	}
	if !ObjectOf("List", Int).Equal(ObjectOf("List", Int)) {
		t.Error("ObjectOf(List, Int) should equal itself structurally")
	}
	if ObjectOf("List", Int).Equal(ObjectOf("List", Float)) {
		t.Error("ObjectOf(List, Int) should not equal ObjectOf(List, Float)")
	}
	if Object("A").Equal(Object("B")) {
		t.Error("differently-named objects should not be equal")
	}
}

func TestValueAccessors(t *testing.T) {
	if v := IntVal(42); v.Kind() != KindInt || v.Int() != 42 {
		t.Errorf("IntVal(42) = %+v", v)
	}
	if v := FloatVal(3.5); v.Kind() != KindFloat || v.Float() != 3.5 {
		t.Errorf("FloatVal(3.5) = %+v", v)
	}
	if v := BoolVal(true); v.Kind() != KindBool || !v.Bool() {
		t.Errorf("BoolVal(true) = %+v", v)
	}
	if v := CharVal('x'); v.Kind() != KindChar || v.Char() != 'x' {
		t.Errorf("CharVal('x') = %+v", v)
	}
	if v := NullRef(); !v.IsNull() {
		t.Error("NullRef() should be null")
	}
}

func TestZeroValues(t *testing.T) {
	if Int.Zero().Int() != 0 {
		t.Error("Zero() of Int should be 0")
	}
	if !Str.Zero().IsNull() {
		t.Error("Zero() of an object type should be a null reference")
	}
	if !ArrayOf(Int).Zero().IsNull() {
		t.Error("Zero() of an array type should be a null reference")
	}
}

package heap

import (
	"testing"

	"github.com/vipl-lang/vipl/internal/types"
)

func TestStringOperations(t *testing.T) {
	s := NewString("hi")
	if got := s.RuneLen(); got != 2 {
		t.Fatalf("RuneLen() = %d, want 2", got)
	}

	s.AppendChar('!')
	if got := s.String(); got != "hi!" {
		t.Fatalf("String() after AppendChar = %q, want %q", got, "hi!")
	}

	if c := s.GetChar(0); c != 'h' {
		t.Errorf("GetChar(0) = %q, want 'h'", c)
	}

	if !s.EndsWith(NewString("i!")) {
		t.Error("EndsWith(\"i!\") should be true")
	}
	if s.EndsWith(NewString("xyz")) {
		t.Error("EndsWith(\"xyz\") should be false")
	}

	cat := s.Concat(NewString(" there"))
	if got := cat.String(); got != "hi! there" {
		t.Errorf("Concat() = %q, want %q", got, "hi! there")
	}
	if !s.Equals(NewString("hi!")) {
		t.Error("Equals should compare by content")
	}
}

func TestStringIndexOutOfBounds(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("GetChar out of range should panic")
		}
	}()
	NewString("ab").GetChar(5)
}

func TestArrayOperations(t *testing.T) {
	arr := NewArray(types.Int, 3)
	if got := arr.ArrayLen(); got != 3 {
		t.Fatalf("ArrayLen() = %d, want 3", got)
	}

	for i := int64(0); i < 3; i++ {
		if v := arr.ArrayLoad(i); v.Int() != 0 {
			t.Errorf("ArrayLoad(%d) = %v, want zero-filled 0", i, v)
		}
	}

	arr.ArrayStore(1, types.IntVal(99))
	if got := arr.ArrayLoad(1).Int(); got != 99 {
		t.Errorf("ArrayLoad(1) after ArrayStore = %d, want 99", got)
	}

	arr.ArrayPush(types.IntVal(7))
	if got := arr.ArrayLen(); got != 4 {
		t.Fatalf("ArrayLen() after push = %d, want 4", got)
	}

	popped := arr.ArrayPop()
	if popped.Int() != 7 {
		t.Errorf("ArrayPop() = %v, want 7", popped)
	}
	if got := arr.ArrayLen(); got != 3 {
		t.Errorf("ArrayLen() after pop = %d, want 3", got)
	}

	if elem := arr.ElementType(); elem.Kind != types.KindInt {
		t.Errorf("ElementType() = %v, want Int", elem)
	}
}

func TestArrayIndexOutOfBounds(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("ArrayLoad out of range should panic")
		}
	}()
	NewArray(types.Int, 2).ArrayLoad(9)
}

func TestArrayPopEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("ArrayPop of empty array should panic")
		}
	}()
	NewArray(types.Int, 0).ArrayPop()
}

func TestShapeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("calling a String op on an Array should panic")
		}
	}()
	NewArray(types.Int, 1).RuneLen()
}

func TestRefcounting(t *testing.T) {
	s := NewString("x")
	if got := s.Refcount(); got != 1 {
		t.Fatalf("Refcount() on construction = %d, want 1", got)
	}
	s.Retain()
	if got := s.Refcount(); got != 2 {
		t.Fatalf("Refcount() after Retain = %d, want 2", got)
	}
	s.Release()
	s.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("Release past zero should panic on underflow")
		}
	}()
	s.Release()
}

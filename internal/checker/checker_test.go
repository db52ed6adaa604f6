package checker_test

import (
	"strings"
	"testing"

	"github.com/vipl-lang/vipl/internal/assemble"
	"github.com/vipl-lang/vipl/internal/checker"
	"github.com/vipl-lang/vipl/internal/natives"
	"github.com/vipl-lang/vipl/internal/types"
	"github.com/vipl-lang/vipl/internal/vm"
)

// mustCheck assembles source, scans its functions into a fresh registry,
// and runs the checker, returning its verdict and diagnosis.
func mustCheck(t *testing.T, source string) (bool, error) {
	t.Helper()
	program, err := assemble.Assemble(source)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	reg := vm.NewFunctionRegistry()
	if err := vm.ScanFunctions(program, reg); err != nil {
		t.Fatalf("ScanFunctions: %v", err)
	}
	ok, err := checker.CheckDiagnose(program, reg)
	return ok, err
}

func TestCheckAcceptsArithmetic(t *testing.T) {
	ok, err := mustCheck(t, `
pushint 2
pushint 3
add int
pop
`)
	if !ok {
		t.Fatalf("expected well-typed program, got %v", err)
	}
}

func TestCheckRejectsTypeMismatch(t *testing.T) {
	ok, err := mustCheck(t, `
pushint 2
pushfloat 3.0
add int
pop
`)
	if ok {
		t.Fatal("expected a type-mismatch violation, got none")
	}
	if err == nil || !strings.Contains(err.Error(), "type mismatch") {
		t.Errorf("expected a type mismatch diagnosis, got %v", err)
	}
}

func TestCheckRejectsStackUnderflow(t *testing.T) {
	ok, _ := mustCheck(t, `
pop
`)
	if ok {
		t.Fatal("expected an underflow violation, got none")
	}
}

func TestCheckDivAlwaysProducesFloat(t *testing.T) {
	// Div(int) must yield a Float on the abstract stack, so a subsequent
	// f2i is well-typed and a subsequent "add int" is not.
	ok, err := mustCheck(t, `
pushint 6
pushint 2
div int
f2i
pop
`)
	if !ok {
		t.Fatalf("expected Div(int) -> Float -> f2i to check, got %v", err)
	}

	ok, _ = mustCheck(t, `
pushint 6
pushint 2
div int
pushint 1
add int
pop
`)
	if ok {
		t.Fatal("expected Div(int) result to be Float, not summable with int")
	}
}

func TestCheckFunctionCallRoundTrip(t *testing.T) {
	ok, err := mustCheck(t, `
funbegin
funname "double"
localvartable int, argcount=1
funreturn int
pushlocal 0
pushlocal 0
add int
return
funend

pushint 21
call "double(int)"
pop
`)
	if !ok {
		t.Fatalf("expected well-typed call round trip, got %v", err)
	}
}

func TestCheckCallToUnregisteredFunction(t *testing.T) {
	ok, err := mustCheck(t, `
call "missing(int)"
`)
	if ok {
		t.Fatal("expected a violation for an unregistered call target")
	}
	if err == nil || !strings.Contains(err.Error(), "unregistered") {
		t.Errorf("expected an unregistered-call diagnosis, got %v", err)
	}
}

func TestCheckFunctionReturnTypeMismatch(t *testing.T) {
	ok, _ := mustCheck(t, `
funbegin
funname "bad"
localvartable argcount=0
funreturn int
pushbool true
return
funend
`)
	if ok {
		t.Fatal("expected a return-type violation")
	}
}

// TestCheckTopLevelLoopScenario runs spec §8 scenario 6 (a counting loop
// that sums 1..=10 and prints 55) through Check itself, not just the
// VM — a top-level localvartable directive declares the two locals the
// loop needs, so setlocal/pushlocal/jmp at top level are accepted
// instead of rejected against an empty locals array, and the final
// print(int) call consumes the result, leaving the stack empty at end
// of stream as the checker's top-level rule requires. It then evaluates
// the checked program through the VM to confirm the two agree.
func TestCheckTopLevelLoopScenario(t *testing.T) {
	source := `
localvartable int, int, argcount=0
pushint 0
setlocal 1, int
pushint 1
setlocal 0, int
loop:
pushlocal 1
pushlocal 0
add int
setlocal 1, int
pushlocal 0
pushint 1
add int
setlocal 0, int
pushlocal 0
pushint 11
less int
jmp iftrue, loop
pushlocal 1
call "print(int)"
`
	program, err := assemble.Assemble(source)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	machine := vm.New()
	natives.RegisterStdlib(machine)
	if err := vm.ScanFunctions(program, machine.Functions); err != nil {
		t.Fatalf("ScanFunctions: %v", err)
	}

	ok, err := checker.CheckDiagnose(program, machine.Functions)
	if !ok {
		t.Fatalf("expected top-level locals loop to check, got %v", err)
	}

	vm.Evaluate(program, types.VarTable{Types: []types.DataType{types.Int, types.Int}}, machine)
}

func TestCheckReservedHeapOpcodesAreStackNeutral(t *testing.T) {
	// ArrayNew/New/GetField/etc are reserved, native-only opcodes: the
	// checker must treat them as no-ops rather than refusing the program
	// outright (see DESIGN.md Open Question 1).
	ok, err := mustCheck(t, `
pushint 1
pop
new "Point"
`)
	if !ok {
		t.Fatalf("expected reserved heap opcodes to be stack-neutral, got %v", err)
	}
}

// Command vipl is VIPL's compiler front end / REPL binary, grounded on
// the teacher's cmd/smog/main.go subcommand switch.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/vipl-lang/vipl/internal/assemble"
	"github.com/vipl-lang/vipl/internal/bytecode"
	"github.com/vipl-lang/vipl/internal/checker"
	"github.com/vipl-lang/vipl/internal/natives"
	"github.com/vipl-lang/vipl/internal/vm"
	"github.com/vipl-lang/vipl/internal/vmlog"
)

const version = "0.1.0"

func main() {
	vmlog.Configure(vmlog.FromEnv())

	if len(os.Args) < 2 {
		runREPL()
		return
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("vipl version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runREPL()
	case "run":
		requireFile("run")
		runFile(os.Args[2])
	case "check":
		requireFile("check")
		checkFile(os.Args[2])
	case "disasm":
		requireFile("disasm")
		disasmFile(os.Args[2])
	default:
		runFile(os.Args[1])
	}
}

func requireFile(cmd string) {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "ERROR: no file specified for %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("vipl - a small dynamically-compiled bytecode language")
	fmt.Println("\nUsage:")
	fmt.Println("  vipl                  Start the interactive REPL")
	fmt.Println("  vipl <file.vasm>      Assemble, check, and run a file")
	fmt.Println("  vipl run <file.vasm>  Same as above")
	fmt.Println("  vipl check <file.vasm> Assemble and check only")
	fmt.Println("  vipl disasm <file.vasm> Print a disassembly listing")
	fmt.Println("  vipl repl             Start the interactive REPL")
	fmt.Println("  vipl version          Show version")
}

func readSource(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: reading file: %v\n", err)
		os.Exit(1)
	}
	return string(data)
}

func newMachine() *vm.VM {
	machine := vm.New(vm.ConfigFromEnv())
	natives.RegisterStdlib(machine)
	natives.RegisterDomain(machine)
	return machine
}

func runFile(path string) {
	program := mustAssemble(readSource(path))
	runProgram(program, newMachine())
}

func checkFile(path string) {
	program := mustAssemble(readSource(path))
	machine := newMachine()
	if err := vm.ScanFunctions(program, machine.Functions); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: check: %v\n", err)
		os.Exit(1)
	}
	ok, err := checker.CheckDiagnose(program, machine.Functions)
	if !ok {
		fmt.Fprintf(os.Stderr, "ERROR: check: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func disasmFile(path string) {
	program := mustAssemble(readSource(path))
	for i, ins := range program {
		fmt.Printf("%4d  %s\n", i, ins)
	}
}

func mustAssemble(source string) bytecode.Program {
	program, err := assemble.Assemble(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: assemble: %v\n", err)
		os.Exit(1)
	}
	return program
}

// runProgram scans, checks, and — on acceptance — evaluates a program,
// installing the one recover() boundary spec.md §7 calls for: a runtime
// Fault prints and exits non-zero instead of unwinding further.
func runProgram(program bytecode.Program, machine *vm.VM) {
	if err := vm.ScanFunctions(program, machine.Functions); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: check: %v\n", err)
		os.Exit(1)
	}
	if ok, err := checker.CheckDiagnose(program, machine.Functions); !ok {
		fmt.Fprintf(os.Stderr, "ERROR: check: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if r := recover(); r != nil {
			if fault, ok := r.(*vm.Fault); ok {
				fmt.Fprintf(os.Stderr, "%v\n", fault)
			} else {
				fmt.Fprintf(os.Stderr, "ERROR: %v\n", r)
			}
			os.Exit(1)
		}
	}()
	topLevelLocals, _ := bytecode.TopLevelLocals(program)
	vm.Evaluate(program, topLevelLocals, machine)
}

func runREPL() {
	fmt.Printf("vipl REPL v%s\n", version)
	fmt.Println("Type EXIT to quit.")

	machine := newMachine()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("vipl> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "EXIT" {
			return
		}
		if line == "" {
			continue
		}
		runREPLLine(line, machine)
	}
}

// runREPLLine assembles and runs one line against the REPL's shared VM
// and function registry. Each line is assembled, scanned, and checked as
// a complete program of its own, so a function block (which spans
// several lines) cannot be entered at the REPL; calls reach only what is
// already registered, such as the natives.
func runREPLLine(line string, machine *vm.VM) {
	defer func() {
		if r := recover(); r != nil {
			if fault, ok := r.(*vm.Fault); ok {
				fmt.Fprintf(os.Stderr, "%v\n", fault)
			} else {
				fmt.Fprintf(os.Stderr, "ERROR: %v\n", r)
			}
		}
	}()

	program, err := assemble.Assemble(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: assemble: %v\n", err)
		return
	}
	if err := vm.ScanFunctions(program, machine.Functions); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: check: %v\n", err)
		return
	}
	if ok, err := checker.CheckDiagnose(program, machine.Functions); !ok {
		fmt.Fprintf(os.Stderr, "ERROR: check: %v\n", err)
		return
	}
	topLevelLocals, _ := bytecode.TopLevelLocals(program)
	vm.Evaluate(program, topLevelLocals, machine)
}

package vm

import (
	"testing"

	"github.com/gamesmith-uk/retrolab-engine/asm"
)

// runScenario assembles src, loads the resulting binary at address 0, and
// steps the CPU until the opcode at the current PC is 0x00 (either an
// explicit nop or the zero-filled tail past the program), mirroring
// SPEC_FULL.md §8's "run until opcode at PC is 00" execution scenarios.
func runScenario(t *testing.T, src string) *CPU {
	t.Helper()
	out, err := asm.Assemble([]asm.SourceFile{{Filename: "main.s", Text: src}})
	if err != nil {
		t.Fatalf("Assemble returned internal error: %v", err)
	}
	if out.Err != nil {
		t.Fatalf("unexpected compile error: %v", out.Err)
	}

	mem := NewMemory()
	for i, b := range out.Binary {
		mem.Write8(uint16(i), b)
	}
	cpu := NewCPU(mem, NewInterruptController(), NewTimers())
	cpu.Reg[RegSP] = InitialSP

	for i := 0; i < 1000; i++ {
		if mem.Read8(cpu.Reg[RegPC]) == 0x00 {
			return cpu
		}
		if result := cpu.Step(); result.Status == StepError {
			t.Fatalf("unexpected CPU error: %v", result.Err)
		}
	}
	t.Fatalf("scenario did not reach a halting opcode within 1000 steps")
	return nil
}

func TestExecutionScenario1MovLiteral(t *testing.T) {
	cpu := runScenario(t, "mov A, 0x12")
	requireEqualU16(t, "A", cpu.Reg[RegA], 0x12)
	requireEqualU16(t, "PC", cpu.Reg[RegPC], 3)
}

func TestExecutionScenario2AddUnsignedOverflow(t *testing.T) {
	cpu := runScenario(t, "mov A, 40\nmov B, -30\nadd A, B")
	requireEqualU16(t, "A", cpu.Reg[RegA], 10)
	requireEqualU16(t, "OV", cpu.Reg[RegOV], 1)
}

func TestExecutionScenario3SignedDivision(t *testing.T) {
	cpu := runScenario(t, "mov B, 50\nmov A, -6\ndiv$ B, A")
	requireEqualU16(t, "B", cpu.Reg[RegB], uint16(0x10000-8))
}

func TestExecutionScenario4AddCarryOut(t *testing.T) {
	cpu := runScenario(t, "mov A, 0xFFFE\nmov B, 5\nadd A, B")
	requireEqualU16(t, "A", cpu.Reg[RegA], 3)
	requireEqualU16(t, "OV", cpu.Reg[RegOV], 1)
}

func TestExecutionScenario5InterruptDivertsControlFlow(t *testing.T) {
	cpu := runScenario(t, "ivec 0x18, L\nint 0x18, 0x1234\nmov B, 1\njmp D\nL: mov A, XT\nD:")
	requireEqualU16(t, "A", cpu.Reg[RegA], 0x1234)
	requireEqualU16(t, "B", cpu.Reg[RegB], 0)
}

func TestExecutionScenario6PushwPopwRoundTrip(t *testing.T) {
	cpu := runScenario(t, "mov SP, 0xFF\npushw 0x1234\npopw A")
	requireEqualU16(t, "SP", cpu.Reg[RegSP], 0xFF)
	requireEqualU16(t, "A", cpu.Reg[RegA], 0x1234)
}

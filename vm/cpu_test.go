package vm

import "testing"

type cpuTestRig struct {
	mem        *Memory
	interrupts *InterruptController
	timers     *Timers
	cpu        *CPU
}

func newCPUTestRig() *cpuTestRig {
	mem := NewMemory()
	interrupts := NewInterruptController()
	timers := NewTimers()
	cpu := NewCPU(mem, interrupts, timers)
	return &cpuTestRig{mem: mem, interrupts: interrupts, timers: timers, cpu: cpu}
}

func (r *cpuTestRig) load(pc uint16, code []byte) {
	for i, b := range code {
		r.mem.Write8(pc+uint16(i), b)
	}
	r.cpu.Reg[RegPC] = pc
	r.cpu.Reg[RegSP] = InitialSP
}

func requireEqualU16(t *testing.T, what string, got, want uint16) {
	t.Helper()
	if got != want {
		t.Errorf("%s = 0x%04X, want 0x%04X", what, got, want)
	}
}

func TestCPUMovLiteralToRegister(t *testing.T) {
	r := newCPUTestRig()
	// mov A, 0x2A (literal direct form, value 42 <= 0x3F)
	r.load(0, []byte{OpMOV, 0x90, 0x2A})
	r.cpu.Step()
	requireEqualU16(t, "A", r.cpu.Reg[RegA], 0x2A)
}

func TestCPUAddOverflowSetsOV(t *testing.T) {
	r := newCPUTestRig()
	r.cpu.Reg[RegA] = 0xFFFF
	// add A, 1 : par1 = REG(A) = 0x90, par2 literal 1
	r.load(0, []byte{OpADD, 0x90, 0x01})
	r.cpu.Step()
	requireEqualU16(t, "A", r.cpu.Reg[RegA], 0x0000)
	requireEqualU16(t, "OV", r.cpu.Reg[RegOV], 0x0001)
}

func TestCPUShrNoOverflowWriteback(t *testing.T) {
	r := newCPUTestRig()
	r.cpu.Reg[RegOV] = 0xBEEF
	r.cpu.Reg[RegA] = 0x0004
	r.load(0, []byte{OpSHR, 0x90, 0x01})
	r.cpu.Step()
	requireEqualU16(t, "A", r.cpu.Reg[RegA], 0x0002)
	requireEqualU16(t, "OV", r.cpu.Reg[RegOV], 0xBEEF)
}

func TestCPUIfeqSkipsNextInstruction(t *testing.T) {
	r := newCPUTestRig()
	r.cpu.Reg[RegA] = 5
	r.cpu.Reg[RegB] = 9
	// ifeq A, B (false) ; mov A, 0x01 (should be skipped) ; the step after lands past it
	r.load(0, []byte{
		OpIFEQ, 0x90, 0x91, // ifeq A, B
		OpMOV, 0x90, 0x01, // mov A, 1 (skipped)
	})
	r.cpu.Step() // ifeq: false, arms skip
	r.cpu.Step() // mov: consumed by skip, not executed
	requireEqualU16(t, "A", r.cpu.Reg[RegA], 5)
	requireEqualU16(t, "PC", r.cpu.Reg[RegPC], 6)
}

func TestCPUIfeqDoesNotSkipWhenTrue(t *testing.T) {
	r := newCPUTestRig()
	r.cpu.Reg[RegA] = 5
	r.cpu.Reg[RegB] = 5
	r.load(0, []byte{
		OpIFEQ, 0x90, 0x91,
		OpMOV, 0x90, 0x01,
	})
	r.cpu.Step()
	r.cpu.Step()
	requireEqualU16(t, "A", r.cpu.Reg[RegA], 1)
}

func TestCPUPushwPopwRoundTrip(t *testing.T) {
	r := newCPUTestRig()
	r.cpu.Reg[RegA] = 0xCAFE
	r.load(0, []byte{
		OpPUSHW, 0x90, // pushw A
		OpPOPW, 0x91, // popw B
	})
	r.cpu.Step()
	r.cpu.Step()
	requireEqualU16(t, "B", r.cpu.Reg[RegB], 0xCAFE)
}

func TestCPUSpecialJMPTakesTarget(t *testing.T) {
	r := newCPUTestRig()
	r.load(0, []byte{OpJMPSHORT, 0x00, 0x10}) // jmp 0x1000
	r.cpu.Step()
	requireEqualU16(t, "PC", r.cpu.Reg[RegPC], 0x1000)
}

func TestCPUDivByZeroRaisesInterruptNotFatal(t *testing.T) {
	r := newCPUTestRig()
	r.interrupts.SetVector(IntCPU, 0x2000)
	r.interrupts.SetActive(1)
	r.cpu.Reg[RegA] = 10
	r.cpu.Reg[RegB] = 0
	r.load(0, []byte{OpDIV, 0x90, 0x91})
	result := r.cpu.Step()
	if result.Status != StepOK {
		t.Fatalf("expected StepOK, got %v", result.Status)
	}
	if r.interrupts.Empty() {
		t.Fatalf("expected a pending INT_CPU/XT_CPU_DIVZERO interrupt")
	}
}

func TestCPUInvalidOpcodeFaultsWithoutPanic(t *testing.T) {
	r := newCPUTestRig()
	if _, ok := paramCounts[0xFF]; ok {
		t.Skip("0xFF unexpectedly has a paramCounts entry")
	}
	r.load(0, []byte{0xFF}) // 0xFF has no paramCounts entry
	result := r.cpu.Step()
	if result.Status != StepError {
		t.Fatalf("expected StepError for invalid opcode, got %v", result.Status)
	}
	var cpuErr *CPUError
	if err, ok := result.Err.(*CPUError); !ok {
		t.Fatalf("expected *CPUError, got %T", result.Err)
	} else {
		cpuErr = err
	}
	if cpuErr.Kind != ErrInvalidOpcode {
		t.Fatalf("expected ErrInvalidOpcode, got %v", cpuErr.Kind)
	}
}

func TestCPUDbgRequestsDebuggerStop(t *testing.T) {
	r := newCPUTestRig()
	r.load(0, []byte{OpDBG})
	result := r.cpu.Step()
	if result.Status != StepDebuggerRequested {
		t.Fatalf("expected StepDebuggerRequested, got %v", result.Status)
	}
}

func TestCPUWaitParksUntilInterruptEnqueued(t *testing.T) {
	r := newCPUTestRig()
	r.load(0, []byte{OpWAIT})
	r.cpu.Step()
	if !r.cpu.Waiting() {
		t.Fatalf("expected CPU to be waiting")
	}
	// A further step with no interrupt pending stays parked.
	pcBefore := r.cpu.Reg[RegPC]
	r.cpu.Step()
	requireEqualU16(t, "PC", r.cpu.Reg[RegPC], pcBefore)

	r.interrupts.SetVector(5, 0x3000)
	r.interrupts.SetActive(1)
	r.cpu.RaiseInterrupt(5, 0)
	if r.cpu.Waiting() {
		t.Fatalf("expected RaiseInterrupt to clear waiting")
	}
}

func TestCPUMemCopyDevice(t *testing.T) {
	r := newCPUTestRig()
	r.mem.Write8(0x100, 0xAA)
	r.mem.Write8(0x101, 0xBB)
	r.cpu.Reg[RegX] = 0x100 // source
	r.cpu.Reg[RegF] = 0x200 // destination
	r.cpu.Reg[RegY] = 2     // length
	r.load(0, []byte{OpDEV, 0x8A, DevMemMgr, 0x8A, MemCpy})
	r.cpu.Step()
	if got := r.mem.Read8(0x200); got != 0xAA {
		t.Fatalf("dest[0] = 0x%02X, want 0xAA", got)
	}
	if got := r.mem.Read8(0x201); got != 0xBB {
		t.Fatalf("dest[1] = 0x%02X, want 0xBB", got)
	}
}

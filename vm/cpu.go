// cpu.go - one-cycle step interpreter for the 16-bit virtual CPU

package vm

import "fmt"

// Register indices, duplicated here rather than imported from the asm
// package's registerIDs table: the assembler and the CPU core are
// independent consumers of the same numbering, and each keeps its own
// self-contained table rather than coupling the VM's opcode dispatch to the
// assembler package.
const (
	RegA = iota
	RegB
	RegC
	RegD
	RegE
	RegF
	RegI
	RegJ
	RegK
	RegX
	RegY
	RegXT
	RegSP
	RegFP
	RegPC
	RegOV
)

// Interrupt number and sub-code constants for CPU-raised faults, from
// original_source/constants/mmap.h.
const (
	IntCPU = 0

	XTCPUIRet    = 0
	XTCPUDivZero = 1
)

// CPUErrorKind identifies why the CPU halted.
type CPUErrorKind int

const (
	// ErrInvalidOpcode means the fetched opcode has no entry in the
	// parameter-count table: a fatal, non-recoverable condition.
	ErrInvalidOpcode CPUErrorKind = iota
	// ErrInvalidAddressingMode means a parameter's prefix byte falls in one
	// of the unassigned gaps (0x80-0x89) that fetch_par itself aborts on.
	ErrInvalidAddressingMode
)

// CPUError is a fatal CPU fault, implementing error.
type CPUError struct {
	Kind CPUErrorKind
	PC   uint16
	Op   byte
}

func (e *CPUError) Error() string {
	switch e.Kind {
	case ErrInvalidOpcode:
		return fmt.Sprintf("invalid opcode 0x%02X at PC=0x%04X", e.Op, e.PC)
	case ErrInvalidAddressingMode:
		return fmt.Sprintf("invalid addressing-mode byte 0x%02X at PC=0x%04X", e.Op, e.PC)
	default:
		return fmt.Sprintf("CPU error at PC=0x%04X", e.PC)
	}
}

// StepStatus is the outcome tag of a single Step call.
type StepStatus int

const (
	StepOK StepStatus = iota
	StepDebuggerRequested
	StepError
)

// StepResult is the sum type Step returns: exactly one of an ordinary
// continuation, a cooperative debugger-stop request (the DBG opcode), or a
// fatal error. Err is populated only when Status == StepError.
type StepResult struct {
	Status StepStatus
	Err    error
}

// paramKind is the decoded shape of one instruction parameter.
type paramKind int

const (
	paramLiteral      paramKind = iota // read-only; writes are silently ignored
	paramRegister                      // register-direct; Loc holds the register index
	paramIndirectByte                  // memory, byte width; Loc holds the address
	paramIndirectWord                  // memory, word width; Loc holds the address
)

// param is a decoded operand: enough information to both read its current
// value and, for addressable forms, write a new one back.
type param struct {
	Kind  paramKind
	Loc   uint16 // register index or memory address
	Value uint16 // value read at decode time
}

// CPU is the registers, decode/execute cycle, and attached peripherals of
// one virtual machine instance. It owns no back-pointers to its
// peripherals' owners: external devices are reached only through the
// Devices callback table, per SPEC_FULL.md §9's guidance on the cyclic
// CPU/memory/devices relationship.
type CPU struct {
	Reg [16]uint16
	Mem *Memory

	Interrupts *InterruptController
	Timers     *Timers

	// Devices is the 256-entry hardware-callback table DEV dispatches
	// through; Devices[n] may be nil, in which case DEV n is a no-op.
	Devices [256]func(cpu *CPU, value uint16)

	skip      bool
	waiting   bool
	breakNext bool

	rng uint32

	breakTmpPC    uint16
	breakTmpValid bool
}

// NewCPU returns a CPU with zeroed registers, attached to mem, an interrupt
// controller, and a set of timers. SP is not initialised here: callers set
// it (typically to InitialSP) as part of loading a program. CPU_VERSION is
// stamped into memory immediately, per SPEC_FULL.md §4.7.
func NewCPU(mem *Memory, interrupts *InterruptController, timers *Timers) *CPU {
	c := &CPU{
		Mem:        mem,
		Interrupts: interrupts,
		Timers:     timers,
		rng:        0xACE1, // nonzero seed; any fixed nonzero value works for an LFSR
	}
	mem.Write8(CPUVersionMajor, 1)
	mem.Write8(CPUVersionMinor, 1)
	installMemoryManager(c)
	installTimerMapping(c)
	return c
}

// nextRandom advances the CPU's internal PRNG by one step and returns the
// new two-byte value, mirroring the ancestor's per-step CPU_RANDOM refresh.
// A 16-bit Galois LFSR stands in for libc's rand(): this module has no
// observable dependency on any specific random sequence, only on the
// address being live every step.
func (c *CPU) nextRandom() uint16 {
	bit := c.rng & 1
	c.rng >>= 1
	if bit != 0 {
		c.rng ^= 0xB400
	}
	return uint16(c.rng)
}

// Step executes the one-cycle contract from SPEC_FULL.md §4.5: refresh
// CPU_RANDOM, drain one interrupt if due, fetch-decode-dispatch one
// instruction (or the special JMP peephole), honouring skip-chaining and a
// pending one-shot breakpoint request.
func (c *CPU) Step() StepResult {
	c.Mem.Write8(CPURandom, byte(c.nextRandom()))
	c.Mem.Write8(CPURandom+1, byte(c.rng>>8))

	if c.waiting {
		return StepResult{Status: StepOK}
	}

	// An armed skip flag holds dispatch off until the guarded instruction
	// has been consumed, so no interrupt lands between an IFxx and it.
	if !c.skip && c.Interrupts.Active() && !c.Interrupts.Happening() && !c.Interrupts.Empty() {
		vectorAddr, xt := c.Interrupts.Dequeue()
		c.Reg[RegXT] = xt
		c.Interrupts.BeginHandler(c.Reg[RegPC])
		c.Reg[RegPC] = vectorAddr
		return StepResult{Status: StepOK}
	}

	op := c.Mem.Read8(c.Reg[RegPC])
	c.Reg[RegPC]++

	if op == OpJMPSHORT {
		target := c.Mem.Read16(c.Reg[RegPC])
		c.Reg[RegPC] += 2
		if c.skip {
			c.skip = false
		} else {
			c.Reg[RegPC] = target
		}
		return StepResult{Status: StepOK}
	}

	count, ok := paramCounts[op]
	if !ok {
		return StepResult{Status: StepError, Err: &CPUError{Kind: ErrInvalidOpcode, PC: c.Reg[RegPC] - 1, Op: op}}
	}

	var par1, par2 param
	var pOK bool
	if count >= 1 {
		if par1, pOK = c.decodeParam(); !pOK {
			return StepResult{Status: StepError, Err: &CPUError{Kind: ErrInvalidAddressingMode, PC: c.Reg[RegPC] - 1, Op: c.Mem.Read8(c.Reg[RegPC] - 1)}}
		}
	}
	if count >= 2 {
		if par2, pOK = c.decodeParam(); !pOK {
			return StepResult{Status: StepError, Err: &CPUError{Kind: ErrInvalidAddressingMode, PC: c.Reg[RegPC] - 1, Op: c.Mem.Read8(c.Reg[RegPC] - 1)}}
		}
	}

	if c.breakNext {
		c.breakTmpPC = c.Reg[RegPC]
		c.breakTmpValid = true
		c.breakNext = false
	}

	if c.skip {
		c.skip = false
		return StepResult{Status: StepOK}
	}

	return c.execute(op, par1, par2)
}

// decodeParam reads one operand at the current PC, advancing it by the
// encoding's width, per the addressing-mode layout in SPEC_FULL.md §4.3.
// ok is false for the unassigned prefix gap (0x80-0x89), which fetch_par
// itself aborts on in the ancestor.
func (c *CPU) decodeParam() (p param, ok bool) {
	b := c.Mem.Read8(c.Reg[RegPC])
	c.Reg[RegPC]++

	switch {
	case b <= 0x3F:
		return param{Kind: paramLiteral, Value: uint16(b)}, true
	case b <= 0x7F:
		// low 6 bits, sign-extended: -64..-1
		v := int16(int8(b | 0xC0))
		return param{Kind: paramLiteral, Value: uint16(v)}, true
	case b == modeImmByte:
		return param{Kind: paramLiteral, Value: uint16(c.fetch8())}, true
	case b == modeImmWord:
		return param{Kind: paramLiteral, Value: c.fetch16()}, true
	case b == modeIndByteU8:
		addr := uint16(c.fetch8()) // zero-extended: an address has no sign
		return param{Kind: paramIndirectByte, Loc: addr, Value: uint16(c.Mem.Read8(addr))}, true
	case b == modeIndWordU8:
		addr := uint16(c.fetch8())
		return param{Kind: paramIndirectWord, Loc: addr, Value: c.Mem.Read16(addr)}, true
	case b == modeIndByteU16:
		addr := c.fetch16()
		return param{Kind: paramIndirectByte, Loc: addr, Value: uint16(c.Mem.Read8(addr))}, true
	case b == modeIndWordU16:
		addr := c.fetch16()
		return param{Kind: paramIndirectWord, Loc: addr, Value: c.Mem.Read16(addr)}, true
	case b >= 0x90 && b <= 0x9F:
		reg := uint16(b & 0x0F)
		return param{Kind: paramRegister, Loc: reg, Value: c.Reg[reg]}, true
	case b >= 0xA0 && b <= 0xAF:
		addr := c.Reg[b&0x0F]
		return param{Kind: paramIndirectByte, Loc: addr, Value: uint16(c.Mem.Read8(addr))}, true
	case b >= 0xB0 && b <= 0xBF:
		addr := c.Reg[b&0x0F]
		return param{Kind: paramIndirectWord, Loc: addr, Value: c.Mem.Read16(addr)}, true
	case b >= 0xC0 && b <= 0xCF:
		disp := int16(int8(c.fetch8()))
		addr := uint16(int32(c.Reg[b&0x0F]) + int32(disp))
		return param{Kind: paramIndirectByte, Loc: addr, Value: uint16(c.Mem.Read8(addr))}, true
	case b >= 0xD0 && b <= 0xDF:
		disp := int16(int8(c.fetch8()))
		addr := uint16(int32(c.Reg[b&0x0F]) + int32(disp))
		return param{Kind: paramIndirectWord, Loc: addr, Value: c.Mem.Read16(addr)}, true
	case b >= 0xE0 && b <= 0xEF:
		disp := int16(c.fetch16())
		addr := uint16(int32(c.Reg[b&0x0F]) + int32(disp))
		return param{Kind: paramIndirectByte, Loc: addr, Value: uint16(c.Mem.Read8(addr))}, true
	case b >= 0xF0:
		disp := int16(c.fetch16())
		addr := uint16(int32(c.Reg[b&0x0F]) + int32(disp))
		return param{Kind: paramIndirectWord, Loc: addr, Value: c.Mem.Read16(addr)}, true
	default: // 0x80-0x89: unassigned
		return param{}, false
	}
}

func (c *CPU) fetch8() byte {
	v := c.Mem.Read8(c.Reg[RegPC])
	c.Reg[RegPC]++
	return v
}

func (c *CPU) fetch16() uint16 {
	v := c.Mem.Read16(c.Reg[RegPC])
	c.Reg[RegPC] += 2
	return v
}

// setPar writes v back to dest according to its decoded form: a literal
// destination is silently ignored (it was never addressable), indirect
// forms write through memory, and a register destination writes the full
// 16 bits.
func (c *CPU) setPar(dest param, v uint16) {
	switch dest.Kind {
	case paramLiteral:
	case paramIndirectByte:
		c.Mem.Write8(dest.Loc, byte(v))
	case paramIndirectWord:
		c.Mem.Write16(dest.Loc, v)
	case paramRegister:
		c.Reg[dest.Loc] = v
	}
}

// setParOverflow writes the low 16 bits of a 32-bit result the same way
// setPar does, and unconditionally stores the high 16 bits into OV —
// invariant 4 of SPEC_FULL.md §8 requires this for every destination kind,
// not only register writes.
func (c *CPU) setParOverflow(dest param, v uint32) {
	c.setPar(dest, uint16(v))
	c.Reg[RegOV] = uint16(v >> 16)
}

func (c *CPU) pushByte(v byte) {
	c.Mem.WriteBypass8(c.Reg[RegSP], v)
	c.Reg[RegSP]--
}

func (c *CPU) popByte() byte {
	c.Reg[RegSP]++
	return c.Mem.Read8(c.Reg[RegSP])
}

func (c *CPU) pushWord(v uint16) {
	// High byte first, then low: mirrors PUSHW's own byte order.
	c.pushByte(byte(v >> 8))
	c.pushByte(byte(v))
}

func (c *CPU) popWord() uint16 {
	lo := c.popByte()
	hi := c.popByte()
	return uint16(lo) | uint16(hi)<<8
}

// execute dispatches op against its decoded parameters and returns the step
// outcome. Exhaustive pattern matching over function pointers, per
// SPEC_FULL.md §9, so an opcode with no case here is a compile-time
// omission rather than a silently-nil table entry.
func (c *CPU) execute(op byte, par1, par2 param) StepResult {
	switch op {
	case OpNOP:

	case OpDBG:
		return StepResult{Status: StepDebuggerRequested}

	case OpMOV:
		c.setPar(par1, par2.Value)

	case OpOR:
		c.setPar(par1, par1.Value|par2.Value)
	case OpAND:
		c.setPar(par1, par1.Value&par2.Value)
	case OpXOR:
		c.setPar(par1, par1.Value^par2.Value)
	case OpSHL:
		c.setParOverflow(par1, uint32(par1.Value)<<par2.Value)
	case OpSHR:
		c.setPar(par1, par1.Value>>par2.Value)
	case OpNOT:
		c.setPar(par1, ^par1.Value)

	case OpADD:
		c.setParOverflow(par1, uint32(par1.Value)+uint32(par2.Value))
	case OpSUB:
		c.setParOverflow(par1, uint32(par1.Value)-uint32(par2.Value))
	case OpMUL:
		c.setParOverflow(par1, uint32(par1.Value)*uint32(par2.Value))
	case OpDIV:
		if par2.Value == 0 {
			c.RaiseInterrupt(IntCPU, XTCPUDivZero)
		} else {
			c.setPar(par1, par1.Value/par2.Value)
		}
	case OpDIVS:
		if par2.Value == 0 {
			c.RaiseInterrupt(IntCPU, XTCPUDivZero)
		} else {
			c.setPar(par1, uint16(int16(par1.Value)/int16(par2.Value)))
		}
	case OpMOD:
		if par2.Value == 0 {
			c.RaiseInterrupt(IntCPU, XTCPUDivZero)
		} else {
			c.setPar(par1, par1.Value%par2.Value)
		}
	case OpINC:
		c.setParOverflow(par1, uint32(par1.Value)+1)
	case OpDEC:
		c.setParOverflow(par1, uint32(par1.Value)-1)

	case OpIFNE:
		c.setSkipUnless(par1.Value != par2.Value)
	case OpIFEQ:
		c.setSkipUnless(par1.Value == par2.Value)
	case OpIFGT:
		c.setSkipUnless(par1.Value > par2.Value)
	case OpIFGTS:
		c.setSkipUnless(int16(par1.Value) > int16(par2.Value))
	case OpIFLT:
		c.setSkipUnless(par1.Value < par2.Value)
	case OpIFLTS:
		c.setSkipUnless(int16(par1.Value) < int16(par2.Value))
	case OpIFGE:
		c.setSkipUnless(par1.Value >= par2.Value)
	case OpIFGES:
		c.setSkipUnless(int16(par1.Value) >= int16(par2.Value))
	case OpIFLE:
		c.setSkipUnless(par1.Value <= par2.Value)
	case OpIFLES:
		c.setSkipUnless(int16(par1.Value) <= int16(par2.Value))

	case OpPUSHB:
		c.pushByte(byte(par1.Value))
	case OpPUSHW:
		c.pushWord(par1.Value)
	case OpPOPB:
		c.setPar(par1, uint16(c.popByte()))
	case OpPOPW:
		c.setPar(par1, c.popWord())
	case OpPUSHA:
		for _, r := range []int{RegA, RegB, RegC, RegD, RegE, RegF, RegI, RegJ, RegK, RegX, RegY, RegFP, RegOV} {
			c.pushWord(c.Reg[r])
		}
	case OpPOPA:
		for _, r := range []int{RegOV, RegFP, RegY, RegX, RegK, RegJ, RegI, RegF, RegE, RegD, RegC, RegB, RegA} {
			c.Reg[r] = c.popWord()
		}
	case OpPOPN:
		c.Reg[RegSP] += par1.Value

	case OpJMP:
		c.Reg[RegPC] = par1.Value
	case OpJSR:
		c.pushWord(c.Reg[RegPC])
		c.Reg[RegPC] = par1.Value
	case OpRET:
		c.Reg[RegPC] = c.popWord()

	case OpDEV:
		if fn := c.Devices[par1.Value&0xFF]; fn != nil {
			fn(c, par2.Value&0xFFFF)
		}
	case OpIVEC:
		c.Interrupts.SetVector(uint8(par1.Value&0xFF), par2.Value)
	case OpINT:
		c.RaiseInterrupt(uint8(par1.Value&0xFF), par2.Value)
	case OpIRET:
		if pc, ok := c.Interrupts.Return(); ok {
			c.Reg[RegPC] = pc
		} else {
			c.RaiseInterrupt(IntCPU, XTCPUIRet)
		}
	case OpWAIT:
		c.waiting = true
	case OpIENAB:
		c.Interrupts.SetActive(par1.Value)
	}

	return StepResult{Status: StepOK}
}

// RaiseInterrupt enqueues (number, xt) and, on success, wakes the CPU from
// WAIT — mirroring the ancestor's cpu_interrupt, which clears ints.waiting
// only when the enqueue actually happened. Exported so the emulator's
// per-frame timer tick can raise INT_TIMER the same way opcode dispatch
// raises INT_CPU.
func (c *CPU) RaiseInterrupt(number uint8, xt uint16) {
	if c.Interrupts.Enqueue(number, xt) {
		c.waiting = false
	}
}

// setSkipUnless sets the skip flag when cond is false, implementing every
// IFxx instruction's "skip the next instruction unless the named condition
// holds" semantics.
func (c *CPU) setSkipUnless(cond bool) {
	if !cond {
		c.skip = true
	}
}

// RequestBreakNext arms the one-shot "break at next decoded PC" flag,
// consulted once at the end of the following Step's parameter decode.
func (c *CPU) RequestBreakNext() {
	c.breakNext = true
}

// TempBreak reports and consumes the PC armed by a RequestBreakNext that
// has since been serviced by a Step, for the breakpoint tracker (C13) to
// fold into its own one-shot slot.
func (c *CPU) TempBreak() (pc uint16, ok bool) {
	if !c.breakTmpValid {
		return 0, false
	}
	c.breakTmpValid = false
	return c.breakTmpPC, true
}

// Waiting reports whether the CPU is parked in WAIT, polling for an
// interrupt to be enqueued.
func (c *CPU) Waiting() bool { return c.waiting }

// devices.go - built-in DEV handlers wired into every CPU

package vm

// DevMemMgr is DEV_MEM_MGR, the one built-in device from
// original_source/constants/mmap.h, repurposed per SPEC_FULL.md §4.7 to
// carry a command code in its value operand rather than a bare size.
const DevMemMgr = 0x2

// Memory-manager command codes carried in DEV 2,cmd's value operand. Not
// named in the ancestor (its DEV_MEM_MGR only ever copied); SPEC_FULL.md
// §4.7 adds MEM_SET alongside the original MEM_CPY, so this module assigns
// the two codes.
const (
	MemCpy = 0x0
	MemSet = 0x1
)

// installMemoryManager wires DEV_MEM_MGR against the CPU's own memory,
// reading X/F/Y as source/destination/length per SPEC_FULL.md §4.7.
func installMemoryManager(c *CPU) {
	c.Devices[DevMemMgr] = func(cpu *CPU, value uint16) {
		switch value {
		case MemCpy:
			cpu.Mem.MemCopy(cpu.Reg[RegX], cpu.Reg[RegF], cpu.Reg[RegY])
		case MemSet:
			cpu.Mem.MemSet(cpu.Reg[RegX], cpu.Reg[RegY], byte(cpu.Reg[RegF]))
		}
	}
}

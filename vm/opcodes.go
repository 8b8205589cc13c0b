// opcodes.go - opcode values, addressing-mode prefixes, and the parameter-count table

package vm

// Opcode values, from SPEC_FULL.md §4.5's opcode summary. Kept as an
// independent copy of the assembler's table (asm/opcodes.go) rather than a
// shared import: see that file's comment for why.
const (
	OpNOP = 0x00
	OpDBG = 0x01
	OpMOV = 0x02

	OpOR  = 0x10
	OpAND = 0x11
	OpXOR = 0x12
	OpSHL = 0x13
	OpSHR = 0x14
	OpNOT = 0x15

	OpADD  = 0x20
	OpSUB  = 0x22
	OpMUL  = 0x24
	OpDIV  = 0x26
	OpDIVS = 0x27
	OpMOD  = 0x29
	OpINC  = 0x2A
	OpDEC  = 0x2B

	OpIFNE  = 0x30
	OpIFEQ  = 0x31
	OpIFGT  = 0x32
	OpIFGTS = 0x33
	OpIFLT  = 0x35
	OpIFLTS = 0x36
	OpIFGE  = 0x38
	OpIFGES = 0x39
	OpIFLE  = 0x3C
	OpIFLES = 0x3D

	OpPUSHB = 0x50
	OpPUSHW = 0x51
	OpPOPB  = 0x52
	OpPOPW  = 0x53
	OpPUSHA = 0x54
	OpPOPA  = 0x55
	OpPOPN  = 0x56

	OpJMP      = 0x60
	OpJSR      = 0x61
	OpRET      = 0x62
	OpJMPSHORT = 0x63

	OpDEV   = 0x70
	OpIVEC  = 0x71
	OpINT   = 0x72
	OpIRET  = 0x73
	OpWAIT  = 0x74
	OpIENAB = 0x75
)

// Addressing-mode prefix bytes consulted by decodeParam. Values 0x00-0x7F
// are direct literals handled inline (no named constant needed); these are
// the wider multi-byte forms, matching the ancestor's fetch_par ranges
// exactly, including the zero-extend-for-absolute-address vs
// sign-extend-for-displacement asymmetry visible in decodeParam.
const (
	modeImmByte    = 0x8A // literal byte follows
	modeImmWord    = 0x8B // literal word follows
	modeIndByteU8  = 0x8C // indirect byte, zero-extended 8-bit address follows
	modeIndWordU8  = 0x8D // indirect word, zero-extended 8-bit address follows
	modeIndByteU16 = 0x8E // indirect byte, 16-bit address follows
	modeIndWordU16 = 0x8F // indirect word, 16-bit address follows
)

// paramCounts is the fixed 256-entry parameter-count table the decoder
// consults immediately after an opcode fetch. Opcodes with no entry are
// invalid and fault per SPEC_FULL.md §7.
var paramCounts = map[byte]int{
	OpNOP: 0,
	OpDBG: 0,
	OpMOV: 2,

	OpOR:  2,
	OpAND: 2,
	OpXOR: 2,
	OpSHL: 2,
	OpSHR: 2,
	OpNOT: 1,

	OpADD:  2,
	OpSUB:  2,
	OpMUL:  2,
	OpDIV:  2,
	OpDIVS: 2,
	OpMOD:  2,
	OpINC:  1,
	OpDEC:  1,

	OpIFNE:  2,
	OpIFEQ:  2,
	OpIFGT:  2,
	OpIFGTS: 2,
	OpIFLT:  2,
	OpIFLTS: 2,
	OpIFGE:  2,
	OpIFGES: 2,
	OpIFLE:  2,
	OpIFLES: 2,

	OpPUSHB: 1,
	OpPUSHW: 1,
	OpPOPB:  1,
	OpPOPW:  1,
	OpPUSHA: 0,
	OpPOPA:  0,
	OpPOPN:  1,

	OpJMP: 1,
	OpJSR: 1,
	OpRET: 0,

	OpDEV:   2,
	OpIVEC:  2,
	OpINT:   2,
	OpIRET:  0,
	OpWAIT:  0,
	OpIENAB: 1,
}

// opcodes.go

package asm

// Opcode values, from SPEC_FULL.md §4.5's opcode summary.
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

	OpJMP     = 0x60
	OpJSR     = 0x61
	OpRET     = 0x62
	OpJMPSHORT = 0x63

	OpDEV   = 0x70
	OpIVEC  = 0x71
	OpINT   = 0x72
	OpIRET  = 0x73
	OpWAIT  = 0x74
	OpIENAB = 0x75
)

// mnemonics maps each lower-case mnemonic to its opcode and operand count,
// consulted by the encoder. The CPU core's decoder does not use it: it keeps
// its own opcode-indexed parameter-count table (paramCounts in vm/opcodes.go),
// so the two packages share no state.
var mnemonics = map[string]struct {
	code     byte
	operands int
}{
	"nop": {OpNOP, 0},
	"dbg": {OpDBG, 0},
	"mov": {OpMOV, 2},

	"or":  {OpOR, 2},
	"and": {OpAND, 2},
	"xor": {OpXOR, 2},
	"shl": {OpSHL, 2},
	"shr": {OpSHR, 2},
	"not": {OpNOT, 1},

	"add":  {OpADD, 2},
	"sub":  {OpSUB, 2},
	"mul":  {OpMUL, 2},
	"div":  {OpDIV, 2},
	"div$": {OpDIVS, 2},
	"mod":  {OpMOD, 2},
	"inc":  {OpINC, 1},
	"dec":  {OpDEC, 1},

	"ifne":  {OpIFNE, 2},
	"ifeq":  {OpIFEQ, 2},
	"ifgt":  {OpIFGT, 2},
	"ifgt$": {OpIFGTS, 2},
	"iflt":  {OpIFLT, 2},
	"iflt$": {OpIFLTS, 2},
	"ifge":  {OpIFGE, 2},
	"ifge$": {OpIFGES, 2},
	"ifle":  {OpIFLE, 2},
	"ifle$": {OpIFLES, 2},

	"pushb": {OpPUSHB, 1},
	"pushw": {OpPUSHW, 1},
	"popb":  {OpPOPB, 1},
	"popw":  {OpPOPW, 1},
	"pusha": {OpPUSHA, 0},
	"popa":  {OpPOPA, 0},
	"popn":  {OpPOPN, 1},

	"jmp": {OpJMP, 1},
	"jsr": {OpJSR, 1},
	"ret": {OpRET, 0},

	"dev":   {OpDEV, 2},
	"ivec":  {OpIVEC, 2},
	"int":   {OpINT, 2},
	"iret":  {OpIRET, 0},
	"wait":  {OpWAIT, 0},
	"ienab": {OpIENAB, 1},
}

// registerIDs maps the sixteen symbolic register names to their 0x0..0xF
// index, per SPEC_FULL.md §3 (order A,B,C,D,E,F,I,J,K,X,Y,XT,SP,FP,PC,OV).
var registerIDs = map[string]byte{
	"A": 0x0, "B": 0x1, "C": 0x2, "D": 0x3, "E": 0x4, "F": 0x5,
	"I": 0x6, "J": 0x7, "K": 0x8, "X": 0x9, "Y": 0xA, "XT": 0xB,
	"SP": 0xC, "FP": 0xD, "PC": 0xE, "OV": 0xF,
}

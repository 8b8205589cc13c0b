// context.go

package asm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CompileError is the structured error type every compilation failure in
// this package surfaces as. The first error encountered wins; emission for
// that statement stops but parsing continues so later statements can still
// be checked (SPEC_FULL.md §4.4's error model).
type CompileError struct {
	Message  string
	Filename string
	Line     int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s in %s:%d", e.Message, e.Filename, e.Line)
}

// Output is what a completed (or failed) assembly produces: the emitted
// binary and its debug table on success, or a populated Err on failure (in
// which case Binary is empty). move_to_output in the ancestor design becomes,
// in Go, simply returning this value — there is no separate ownership
// transfer to model.
type Output struct {
	Binary []byte
	Debug  *DebugTable
	Err    *CompileError
}

// Context drives the two-pass assembly described in SPEC_FULL.md §4.4.
type Context struct {
	pass    int
	pc      int32
	stmtPC  int32  // PC at the start of the current statement, the value of `$`
	savedPC *int32 // org's one-slot save register; nil means empty

	symtbl      *SymbolTable
	finalSymtbl *SymbolTable // pass 1's completed table, consulted by pass 2 for forward references
	pending     []int32      // sorted PCs forced to 16-bit width by a pass-1 forward reference

	debug  *DebugTable
	binary []byte

	curFile string
	curLine int

	firstErr *CompileError
}

// NewContext returns a context ready to run pass 1.
func NewContext() *Context {
	return &Context{
		symtbl: NewSymbolTable(),
		debug:  NewDebugTable(),
	}
}

// Assemble preprocesses files and drives both passes, returning the
// resulting Output. A non-nil error is only ever an internal error (I/O,
// programmer mistake); compilation failures are reported through
// Output.Err, matching SPEC_FULL.md §7's propagation model.
func Assemble(files []SourceFile) (*Output, error) {
	source := Preprocess(files)
	lines := strings.Split(source, "\n")

	ctx := NewContext()

	ctx.pass = 1
	ctx.pc = 0
	ctx.savedPC = nil
	for _, line := range lines {
		ctx.processMarkedLine(line)
	}
	if ctx.firstErr != nil {
		return &Output{Err: ctx.firstErr}, nil
	}

	sort.Slice(ctx.pending, func(i, j int) bool { return ctx.pending[i] < ctx.pending[j] })

	ctx.pass = 2
	ctx.pc = 0
	ctx.savedPC = nil
	// Pass 2 rebuilds the table from scratch, in the same declaration order,
	// so that local-label qualification sees the same global-prefix history
	// as pass 1. But a forward reference is read before its pass-2
	// registration happens, so pass 1's completed table — whose label
	// addresses are guaranteed identical, since widths never vary between
	// passes — is kept as a fallback for any lookup pass 2's own
	// in-progress table hasn't reached yet.
	ctx.finalSymtbl = ctx.symtbl
	ctx.symtbl = NewSymbolTable()
	ctx.binary = nil
	for _, line := range lines {
		ctx.processMarkedLine(line)
	}
	if ctx.firstErr != nil {
		return &Output{Err: ctx.firstErr}, nil
	}

	return &Output{Binary: ctx.binary, Debug: ctx.debug}, nil
}

func (c *Context) setError(msg string) {
	if c.firstErr != nil {
		return
	}
	c.firstErr = &CompileError{Message: msg, Filename: c.curFile, Line: c.curLine}
}

// isPending reports whether pc was recorded as a forced-16-bit site during
// pass 1, via binary search over the sorted pending set.
func (c *Context) isPending(pc int32) bool {
	i := sort.Search(len(c.pending), func(i int) bool { return c.pending[i] >= pc })
	return i < len(c.pending) && c.pending[i] == pc
}

// markPending records pc into the pending set. Only called during pass 1.
func (c *Context) markPending(pc int32) {
	c.pending = append(c.pending, pc)
}

// ensureSize grows the binary buffer so addr is writable, zero-filling any
// gap — the mechanism behind invariant 1 (org-induced forward jumps leave
// zero-filled gaps rather than an out-of-bounds write).
func (c *Context) ensureSize(addr int) {
	if addr <= len(c.binary) {
		return
	}
	grown := make([]byte, addr)
	copy(grown, c.binary)
	c.binary = grown
}

func (c *Context) emit(data []byte) {
	if c.pass != 2 {
		return
	}
	addr := int(c.pc)
	c.ensureSize(addr + len(data))
	copy(c.binary[addr:], data)
}

// exprCtx adapts Context to the ExprContext interface expected by EvalExpr.
type exprCtx struct{ c *Context }

func (e exprCtx) CurrentPC() int32 { return e.c.stmtPC }
func (e exprCtx) LastLabelPC() int32 {
	v, _ := e.c.symtbl.Lookup(e.c.symtbl.GlobalPrefix())
	return v
}
func (e exprCtx) Symbol(name string) (int32, bool) {
	if v, ok := e.c.symtbl.Lookup(name); ok {
		return v, ok
	}
	if e.c.pass == 2 && e.c.finalSymtbl != nil {
		return e.c.finalSymtbl.Lookup(name)
	}
	return 0, false
}

// eval evaluates expr against the context's current PC/symbol state.
func (c *Context) eval(expr string) (int32, error) {
	return EvalExpr(strings.TrimSpace(expr), exprCtx{c})
}

// processMarkedLine strips the preprocessor's "[$file$:line] " marker and
// dispatches the remaining statement text.
func (c *Context) processMarkedLine(line string) {
	file, lineNum, content, ok := stripMarker(line)
	if !ok {
		return // blank line produced by the final split, or malformed input
	}
	c.curFile = file
	c.curLine = lineNum
	c.processStatement(content)
}

func stripMarker(line string) (file string, lineNum int, content string, ok bool) {
	if !strings.HasPrefix(line, "[$") {
		return "", 0, "", false
	}
	rest := line[2:]
	sep := strings.Index(rest, "$:")
	if sep < 0 {
		return "", 0, "", false
	}
	file = rest[:sep]
	rest = rest[sep+2:]
	end := strings.Index(rest, "] ")
	if end < 0 {
		// allow a marker with empty trailing content (no space after ']')
		end2 := strings.Index(rest, "]")
		if end2 < 0 {
			return "", 0, "", false
		}
		n, err := strconv.Atoi(rest[:end2])
		if err != nil {
			return "", 0, "", false
		}
		return file, n, "", true
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return "", 0, "", false
	}
	return file, n, rest[end+2:], true
}

// processStatement parses and executes a single unmarked statement line.
func (c *Context) processStatement(raw string) {
	c.stmtPC = c.pc
	line := stripComment(raw)
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if strings.HasSuffix(line, ":") {
		c.processLabel(strings.TrimSuffix(line, ":"))
		return
	}

	// A label may share its line with a statement: `L: mov A, XT`.
	if fields := strings.SplitN(line, " ", 2); len(fields) == 2 && strings.HasSuffix(fields[0], ":") {
		c.processLabel(strings.TrimSuffix(fields[0], ":"))
		c.processStatement(fields[1])
		return
	}

	if name, expr, ok := splitDefine(line); ok {
		c.processDefine(name, expr)
		return
	}

	fields := strings.SplitN(line, " ", 2)
	keyword := strings.ToLower(fields[0])
	var rest string
	if len(fields) > 1 {
		rest = fields[1]
	}

	switch keyword {
	case "org":
		c.processOrg(strings.TrimSpace(rest))
	case "db":
		c.processData(rest, 1)
	case "dw":
		c.processData(rest, 2)
	case "bss":
		c.processBSS(rest)
	default:
		c.processInstruction(fields[0], rest)
	}
}

// stripComment removes a ';'-to-end-of-line comment, ignoring ';' inside a
// double-quoted string literal.
func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			if i == 0 || line[i-1] != '\\' {
				inQuote = !inQuote
			}
		case ';':
			if !inQuote {
				return line[:i]
			}
		}
	}
	return line
}

// splitDefine recognises `NAME = expr`: the text before the first '=' must be
// non-empty and free of whitespace, '[', ']' and '^'. A NAME starting with
// '.' is accepted here; processDefine rejects it per SPEC_FULL.md §6
// ("Defines may not start with '.'").
func splitDefine(line string) (name, expr string, ok bool) {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return "", "", false
	}
	candidate := strings.TrimSpace(line[:eq])
	if candidate == "" || strings.ContainsAny(candidate, " \t[]^") {
		return "", "", false
	}
	return candidate, line[eq+1:], true
}

// processLabel registers name at the current PC. The symbol table is reset
// and rebuilt from scratch at the start of each pass (pass 2's binary
// layout can differ from pass 1's sizing estimate only at pending sites,
// never at a label's own PC — see the pending-set invariant), so both
// passes run the identical registration, not just pass 1.
func (c *Context) processLabel(name string) {
	if err := c.symtbl.Register(name, c.pc, false); err != nil {
		c.setError(err.Error())
	}
}

func (c *Context) processDefine(name, exprText string) {
	if strings.HasPrefix(name, ".") {
		c.setError(fmt.Sprintf("define '%s' may not start with '.'", name))
		return
	}
	v, err := c.eval(exprText)
	if err != nil {
		if _, pending := UndefinedSymbolName(err); c.pass == 1 && pending {
			// A define whose value depends on a not-yet-seen label is legal
			// as long as it resolves before use; defer registration error
			// until it's actually referenced.
			return
		}
		c.setError(err.Error())
		return
	}
	// The symbol table is rebuilt from scratch each pass (see processLabel),
	// so both passes register the define, not just pass 1.
	if err := c.symtbl.Register(name, v, true); err != nil {
		c.setError(err.Error())
	}
}

func (c *Context) processOrg(arg string) {
	if arg == "restore" {
		if c.savedPC == nil {
			c.setError("org restore without a matching org")
			return
		}
		c.pc = *c.savedPC
		c.savedPC = nil
		return
	}
	v, err := c.eval(arg)
	if err != nil {
		c.setError(err.Error())
		return
	}
	if c.savedPC == nil {
		saved := c.pc
		c.savedPC = &saved
	}
	c.pc = v
}

func (c *Context) processBSS(arg string) {
	n, err := c.eval(arg)
	if err != nil {
		c.setError(err.Error())
		return
	}
	if c.pass == 2 {
		c.ensureSize(int(c.pc) + int(n))
	}
	c.pc += n
}

// processData handles `db`/`dw`, including `db "string"` items.
func (c *Context) processData(arg string, itemWidth int32) {
	items := splitTopLevel(arg)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if strings.HasPrefix(item, "\"") {
			bytes, err := parseStringLiteral(item)
			if err != nil {
				c.setError(err.Error())
				return
			}
			c.emit(bytes)
			c.pc += int32(len(bytes))
			continue
		}
		v, err := c.eval(item)
		if err != nil {
			// A data item's width never depends on its value, so a forward
			// reference on pass 1 only needs the PC advanced; pass 2 emits it.
			if _, undef := UndefinedSymbolName(err); !undef || c.pass != 1 {
				c.setError(err.Error())
				return
			}
		}
		if itemWidth == 1 {
			c.emit([]byte{byte(v)})
		} else {
			c.emit([]byte{byte(v), byte(v >> 8)})
		}
		c.pc += itemWidth
	}
}

// parseStringLiteral decodes a `"..."` literal with `\"` escapes into bytes.
func parseStringLiteral(s string) ([]byte, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return nil, fmt.Errorf("invalid string literal %q", s)
	}
	inner := s[1 : len(s)-1]
	var out []byte
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) && (inner[i+1] == '"' || inner[i+1] == '\\') {
			out = append(out, inner[i+1])
			i++
			continue
		}
		out = append(out, inner[i])
	}
	return out, nil
}

// splitTopLevel splits s on commas that are not inside [...] or "...".
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			if i == 0 || s[i-1] != '\\' {
				inQuote = !inQuote
			}
		case '[':
			if !inQuote {
				depth++
			}
		case ']':
			if !inQuote && depth > 0 {
				depth--
			}
		case ',':
			if !inQuote && depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

func (c *Context) processInstruction(mnemonicRaw, rest string) {
	mnemonic := strings.ToLower(mnemonicRaw)
	info, ok := mnemonics[mnemonic]
	if !ok {
		c.setError(fmt.Sprintf("unknown instruction '%s'", mnemonicRaw))
		return
	}

	operandTexts := splitTopLevel(rest)
	if len(operandTexts) == 1 && strings.TrimSpace(operandTexts[0]) == "" {
		operandTexts = nil
	}
	if len(operandTexts) != info.operands {
		c.setError(fmt.Sprintf("'%s' expects %d operand(s), got %d", mnemonicRaw, info.operands, len(operandTexts)))
		return
	}

	startPC := c.pc

	// Special JMP rewrite: an unconditional JMP whose target is a plain
	// expression (not a register or indirect form) is encoded directly as
	// the dedicated one-byte opcode 0x63 plus a fixed-width 16-bit target,
	// detected here at emit time rather than produced by emitting the
	// generic JMP form and patching it afterwards (SPEC_FULL.md §4.4, §9).
	// `jmp [X]` / `jmp X` still take the generic opcode below, since their
	// target isn't a 16-bit immediate.
	if mnemonic == "jmp" {
		opText := strings.TrimSpace(operandTexts[0])
		op, _, err := c.resolveOperand(opText)
		if err != nil {
			c.setError(err.Error())
			return
		}
		if op.Form == FormLiteral {
			c.emitSpecialJMP(startPC, op.Value)
			return
		}
		c.emitInstruction(startPC, info.code, []string{opText})
		return
	}

	c.emitInstruction(startPC, info.code, operandTexts)
}

// emitInstruction emits opcode followed by each operand's encoding, forcing
// the 16-bit form at any site recorded in the pending-symbol set.
func (c *Context) emitInstruction(startPC int32, opcode byte, operandTexts []string) {
	c.emit([]byte{opcode})
	c.pc++

	for _, text := range operandTexts {
		opStart := c.pc
		op, pendingNow, err := c.resolveOperand(strings.TrimSpace(text))
		if err != nil {
			c.setError(err.Error())
			return
		}
		if c.pass == 1 {
			if pendingNow {
				c.markPending(opStart)
				c.pc += 3 // worst case: 1 mode byte + 2-byte word
				continue
			}
		} else {
			op.Pending = c.isPending(opStart)
		}
		encoded, err := EncodeOperand(op)
		if err != nil {
			c.setError(err.Error())
			return
		}
		c.emit(encoded.Bytes())
		c.pc += int32(encoded.Len())
	}

	if c.pass == 2 {
		c.debug.Add(uint16(startPC), c.curFile, uint32(c.curLine))
	}
}

// emitSpecialJMP handles `jmp <expr>` as opcode 0x63 plus a fixed 2-byte
// little-endian target, the sole peephole form in this machine. Unlike a
// normal immediate operand its width never varies, so pass 1 and pass 2
// agree on 3 bytes regardless of whether the target was pending in pass 1.
func (c *Context) emitSpecialJMP(startPC int32, target int32) {
	if c.pass == 1 {
		c.pc += 3
		return
	}
	c.emit([]byte{OpJMPSHORT, byte(target), byte(target >> 8)})
	c.pc += 3
	c.debug.Add(uint16(startPC), c.curFile, uint32(c.curLine))
}

// resolveOperand parses operand syntax into an Operand and evaluates its
// governing expression. pending reports whether the expression depends on a
// symbol not yet defined (pass 1 only — pass 2 treats that as a hard error).
func (c *Context) resolveOperand(text string) (op Operand, pending bool, err error) {
	word := false
	if strings.HasPrefix(text, "^") {
		word = true
		text = text[1:]
	}

	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		inner := strings.TrimSpace(text[1 : len(text)-1])
		if reg, ok := registerIDs[inner]; ok {
			return Operand{Form: FormRegInd, Word: word, Reg: reg}, false, nil
		}
		if reg, disp, ok := splitRegDisp(inner); ok {
			v, perr := c.eval(disp)
			if perr != nil {
				if _, isUndef := UndefinedSymbolName(perr); isUndef && c.pass == 1 {
					return Operand{Form: FormRegDisp, Word: word, Reg: reg}, true, nil
				}
				return Operand{}, false, perr
			}
			return Operand{Form: FormRegDisp, Word: word, Reg: reg, Value: v}, false, nil
		}
		v, perr := c.eval(inner)
		if perr != nil {
			if _, isUndef := UndefinedSymbolName(perr); isUndef && c.pass == 1 {
				return Operand{Form: FormIndAbs, Word: word}, true, nil
			}
			return Operand{}, false, perr
		}
		return Operand{Form: FormIndAbs, Word: word, Value: v}, false, nil
	}

	if !word {
		if reg, ok := registerIDs[text]; ok {
			return Operand{Form: FormReg, Reg: reg}, false, nil
		}
	}

	v, perr := c.eval(text)
	if perr != nil {
		if _, isUndef := UndefinedSymbolName(perr); isUndef && c.pass == 1 {
			return Operand{Form: FormLiteral}, true, nil
		}
		return Operand{}, false, perr
	}
	return Operand{Form: FormLiteral, Value: v}, false, nil
}

// splitRegDisp recognises "reg+expr" or "reg-expr" inside a [...] operand.
func splitRegDisp(inner string) (reg byte, dispExpr string, ok bool) {
	for _, sep := range []string{"+", "-"} {
		idx := strings.Index(inner, sep)
		if idx <= 0 {
			continue
		}
		name := strings.TrimSpace(inner[:idx])
		r, isReg := registerIDs[name]
		if !isReg {
			continue
		}
		disp := inner[idx:] // keep a '-' sign so the expression evaluates correctly
		if sep == "+" {
			disp = inner[idx+1:] // the evaluator has no unary '+'
		}
		return r, disp, true
	}
	return 0, "", false
}

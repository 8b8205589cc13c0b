// breakpoints.go - source-line breakpoints and the one-shot temp breakpoint

package vm

import "github.com/gamesmith-uk/retrolab-engine/asm"

// breakpoint is one (filename, line) pair resolved to an address.
type breakpoint struct {
	file string
	line uint32
	pc   uint16
}

// Breakpoints tracks the ordered set of user-set (file,line) breakpoints
// plus the single one-shot temp-PC the debug console arms for "run to next
// instruction after this one" stepping.
type Breakpoints struct {
	debug *asm.DebugTable
	set   []breakpoint

	tempPC    uint16
	tempValid bool
}

// NewBreakpoints returns an empty breakpoint set resolving locations
// against debug.
func NewBreakpoints(debug *asm.DebugTable) *Breakpoints {
	return &Breakpoints{debug: debug}
}

// Swap toggles a breakpoint at file:line: if one is already set there it is
// removed, otherwise the line is resolved via the debug table and added.
// Reports whether the location resolved to a known PC at all.
func (b *Breakpoints) Swap(file string, line uint32) bool {
	for i, bp := range b.set {
		if bp.file == file && bp.line == line {
			b.set = append(b.set[:i], b.set[i+1:]...)
			return true
		}
	}
	pc, ok := b.debug.FindPC(file, line)
	if !ok {
		return false
	}
	b.set = append(b.set, breakpoint{file: file, line: line, pc: pc})
	return true
}

// SetTemp arms the one-shot temp breakpoint at pc, overwriting any
// previously armed one.
func (b *Breakpoints) SetTemp(pc uint16) {
	b.tempPC = pc
	b.tempValid = true
}

// IsAddr reports whether pc matches a standing breakpoint or the armed
// one-shot temp breakpoint. A matching temp breakpoint is consumed: the
// next call no longer reports it unless re-armed.
func (b *Breakpoints) IsAddr(pc uint16) bool {
	if b.tempValid && b.tempPC == pc {
		b.tempValid = false
		return true
	}
	for _, bp := range b.set {
		if bp.pc == pc {
			return true
		}
	}
	return false
}

// List returns the current standing breakpoints, in the order they were
// set, for display by the debug console.
func (b *Breakpoints) List() []struct {
	File string
	Line uint32
	PC   uint16
} {
	out := make([]struct {
		File string
		Line uint32
		PC   uint16
	}, len(b.set))
	for i, bp := range b.set {
		out[i] = struct {
			File string
			Line uint32
			PC   uint16
		}{bp.file, bp.line, bp.pc}
	}
	return out
}

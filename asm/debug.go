// debug.go

package asm

// DebugRecord ties one emitted instruction's start PC to its source location.
type DebugRecord struct {
	PC        uint16
	FileIndex uint16
	Line      uint32
}

// DebugTable is a bidirectional (PC <-> file,line) index built during pass 2.
// Files are deduplicated by name so repeated locations in the same file don't
// grow the file list.
type DebugTable struct {
	files   []string
	records []DebugRecord
}

// NewDebugTable returns an empty table.
func NewDebugTable() *DebugTable {
	return &DebugTable{}
}

// fileIndex returns the index of filename, adding it if not already present.
func (d *DebugTable) fileIndex(filename string) uint16 {
	for i, f := range d.files {
		if f == filename {
			return uint16(i)
		}
	}
	d.files = append(d.files, filename)
	return uint16(len(d.files) - 1)
}

// Add records that the instruction starting at pc originates from
// filename:line. Called once per statement on pass 2.
func (d *DebugTable) Add(pc uint16, filename string, line uint32) {
	d.records = append(d.records, DebugRecord{
		PC:        pc,
		FileIndex: d.fileIndex(filename),
		Line:      line,
	})
}

// FindPC returns the PC recorded for filename:line, and whether one exists.
// The matched file index is the file actually compared against, not a
// constant placeholder — see DESIGN.md's Open Questions entry on this point.
func (d *DebugTable) FindPC(filename string, line uint32) (uint16, bool) {
	for i, f := range d.files {
		if f != filename {
			continue
		}
		fi := uint16(i)
		for _, r := range d.records {
			if r.FileIndex == fi && r.Line == line {
				return r.PC, true
			}
		}
		return 0, false
	}
	return 0, false
}

// FindLocation returns the filename and line recorded for pc, and whether a
// record exists at that exact PC.
func (d *DebugTable) FindLocation(pc uint16) (filename string, line uint32, ok bool) {
	for _, r := range d.records {
		if r.PC == pc {
			return d.files[r.FileIndex], r.Line, true
		}
	}
	return "", 0, false
}

// Copy returns a deep copy, used by the CPU to own a private debug table
// independent of the compilation context's (which may be discarded after
// assembly completes).
func (d *DebugTable) Copy() *DebugTable {
	cp := &DebugTable{
		files:   append([]string(nil), d.files...),
		records: append([]DebugRecord(nil), d.records...),
	}
	return cp
}

package asm

import "testing"

func TestDebugTableAddAndFindPC(t *testing.T) {
	d := NewDebugTable()
	d.Add(0x10, "main.s", 3)
	d.Add(0x20, "other.s", 1)

	pc, ok := d.FindPC("main.s", 3)
	if !ok || pc != 0x10 {
		t.Fatalf("FindPC(main.s,3) = (0x%X,%v), want (0x10,true)", pc, ok)
	}
	if _, ok := d.FindPC("main.s", 99); ok {
		t.Fatalf("expected no match for an unrecorded line")
	}
}

func TestDebugTableFindLocation(t *testing.T) {
	d := NewDebugTable()
	d.Add(0x10, "main.s", 3)

	file, line, ok := d.FindLocation(0x10)
	if !ok || file != "main.s" || line != 3 {
		t.Fatalf("FindLocation(0x10) = (%q,%d,%v), want (main.s,3,true)", file, line, ok)
	}
	if _, _, ok := d.FindLocation(0x99); ok {
		t.Fatalf("expected no match for an unrecorded PC")
	}
}

func TestDebugTableDeduplicatesFiles(t *testing.T) {
	d := NewDebugTable()
	d.Add(0x10, "main.s", 1)
	d.Add(0x12, "main.s", 2)
	if len(d.files) != 1 {
		t.Fatalf("expected a single deduplicated file entry, got %d", len(d.files))
	}
}

func TestDebugTableCopyIsIndependent(t *testing.T) {
	d := NewDebugTable()
	d.Add(0x10, "main.s", 1)
	cp := d.Copy()

	d.Add(0x20, "main.s", 2)
	if _, ok := cp.FindPC("main.s", 2); ok {
		t.Fatalf("Copy should not observe records added to the original afterward")
	}
	if _, ok := cp.FindPC("main.s", 1); !ok {
		t.Fatalf("Copy should retain records that existed at copy time")
	}
}

package vm

import "testing"

func TestMemoryReadWrite16LittleEndian(t *testing.T) {
	m := NewMemory()
	m.Write16(0x10, 0xBEEF)
	if got := m.Read8(0x10); got != 0xEF {
		t.Fatalf("low byte = 0x%02X, want 0xEF", got)
	}
	if got := m.Read8(0x11); got != 0xBE {
		t.Fatalf("high byte = 0x%02X, want 0xBE", got)
	}
	if got := m.Read16(0x10); got != 0xBEEF {
		t.Fatalf("Read16 = 0x%04X, want 0xBEEF", got)
	}
}

func TestMemoryMapIOInterceptsReadAndWrite(t *testing.T) {
	m := NewMemory()
	var written byte
	m.MapIO(0xFF00, 0xFF00,
		func(addr uint16) byte { return 0x42 },
		func(addr uint16, v byte) { written = v })

	if got := m.Read8(0xFF00); got != 0x42 {
		t.Fatalf("mapped read = 0x%02X, want 0x42", got)
	}
	m.Write8(0xFF00, 0x7A)
	if written != 0x7A {
		t.Fatalf("OnWrite saw 0x%02X, want 0x7A", written)
	}
}

func TestMemoryWriteBypassSkipsIORegion(t *testing.T) {
	m := NewMemory()
	hit := false
	m.MapIO(0x100, 0x1FF, nil, func(addr uint16, v byte) { hit = true })
	m.WriteBypass8(0x150, 0x01)
	if hit {
		t.Fatalf("WriteBypass8 must not invoke the mapped OnWrite callback")
	}
	if got := m.Read8(0x150); got != 0x01 {
		t.Fatalf("underlying byte = 0x%02X, want 0x01", got)
	}
}

func TestMemoryMemCopyOverlapSafe(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 4; i++ {
		m.Write8(uint16(0x10+i), byte(i+1))
	}
	// overlapping copy: dst starts one byte into the source range
	m.MemCopy(0x10, 0x11, 4)
	want := []byte{1, 1, 2, 3, 4}
	for i, w := range want {
		if got := m.Read8(uint16(0x10 + i)); got != w {
			t.Fatalf("byte %d = %d, want %d", i, got, w)
		}
	}
}

func TestMemoryMemSetFillsRange(t *testing.T) {
	m := NewMemory()
	m.MemSet(0x200, 4, 0x5A)
	for i := 0; i < 4; i++ {
		if got := m.Read8(uint16(0x200 + i)); got != 0x5A {
			t.Fatalf("byte %d = 0x%02X, want 0x5A", i, got)
		}
	}
	if got := m.Read8(0x204); got == 0x5A {
		t.Fatalf("fill overran into byte 4")
	}
}

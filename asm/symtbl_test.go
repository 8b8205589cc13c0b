package asm

import "testing"

func TestSymbolTableRegisterAndLookup(t *testing.T) {
	st := NewSymbolTable()
	if err := st.Register("start", 0x100, false); err != nil {
		t.Fatalf("Register returned %v", err)
	}
	v, ok := st.Lookup("start")
	if !ok || v != 0x100 {
		t.Fatalf("Lookup = (0x%X,%v), want (0x100,true)", v, ok)
	}
}

func TestSymbolTableDuplicateRegisterErrors(t *testing.T) {
	st := NewSymbolTable()
	if err := st.Register("xx", 3, true); err != nil {
		t.Fatalf("first Register returned %v", err)
	}
	if err := st.Register("xx", 4, true); err == nil {
		t.Fatalf("expected an error redefining 'xx'")
	}
}

func TestSymbolTableLocalLabelQualification(t *testing.T) {
	st := NewSymbolTable()
	if err := st.Register("loop", 0x10, false); err != nil {
		t.Fatalf("Register(loop) returned %v", err)
	}
	if err := st.Register(".again", 0x12, false); err != nil {
		t.Fatalf("Register(.again) returned %v", err)
	}
	if _, ok := st.Lookup(".again"); !ok {
		t.Fatalf("expected .again to resolve while 'loop' is the global prefix")
	}

	if err := st.Register("other", 0x20, false); err != nil {
		t.Fatalf("Register(other) returned %v", err)
	}
	if err := st.Register(".again", 0x22, false); err != nil {
		t.Fatalf("expected '.again' to be registerable again under a new global prefix: %v", err)
	}
	v, _ := st.Lookup(".again")
	if v != 0x22 {
		t.Fatalf(".again under 'other' = 0x%X, want 0x22", v)
	}
}

func TestSymbolTableDefineDoesNotUpdateGlobalPrefix(t *testing.T) {
	st := NewSymbolTable()
	if err := st.Register("loop", 0x10, false); err != nil {
		t.Fatalf("Register(loop) returned %v", err)
	}
	if err := st.Register("limit", 5, true); err != nil {
		t.Fatalf("Register(limit) returned %v", err)
	}
	if err := st.Register(".again", 0x12, false); err != nil {
		t.Fatalf("expected '.again' to still qualify against 'loop', not 'limit': %v", err)
	}
	if got := st.GlobalPrefix(); got != "loop" {
		t.Fatalf("GlobalPrefix() = %q, want %q (a define must not move it)", got, "loop")
	}
}

func TestSymbolTableResetClearsEverything(t *testing.T) {
	st := NewSymbolTable()
	st.Register("foo", 1, false)
	st.Reset()
	if _, ok := st.Lookup("foo"); ok {
		t.Fatalf("expected 'foo' to be gone after Reset")
	}
	if st.GlobalPrefix() != "" {
		t.Fatalf("expected an empty global prefix after Reset, got %q", st.GlobalPrefix())
	}
}

// symtbl.go

package asm

import (
	"fmt"
	"strings"
)

// Symbol is either a label (value = emission address at declaration) or a
// define (value = expression result at declaration).
type Symbol struct {
	Name  string
	Value int32
	IsDef bool
}

// SymbolTable maps qualified names to symbols and tracks the "global prefix":
// the most recently declared non-local label, against which any `.local`
// reference is qualified. See DESIGN.md's Open Questions entry on why a
// single declaration-time update serves both passes' phrasing of this rule.
type SymbolTable struct {
	global  string
	symbols map[string]*Symbol
}

// NewSymbolTable returns an empty table with no global prefix set.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]*Symbol)}
}

// Reset clears the table and the global prefix. (Assemble starts pass 2 with
// a fresh table from NewSymbolTable rather than calling Reset.)
func (t *SymbolTable) Reset() {
	t.global = ""
	t.symbols = make(map[string]*Symbol)
}

// qualify prefixes a local name (leading '.') with the current global prefix.
// Non-local names pass through unchanged.
func (t *SymbolTable) qualify(name string) string {
	if strings.HasPrefix(name, ".") {
		return t.global + name
	}
	return name
}

// Register adds name=value to the table. isDef marks a `NAME = expr` define
// rather than a label declaration. Only a non-local *label* declaration
// updates the global prefix so that later `.local` references qualify
// against this name; a define sitting between two labels must leave the
// prefix untouched (`compiler/symtbl.c`'s `cc_register_define` registers with
// update_global=false for exactly this reason). Redefinition of an
// already-present qualified name is an error.
func (t *SymbolTable) Register(name string, value int32, isDef bool) error {
	qualified := t.qualify(name)
	if existing, ok := t.symbols[qualified]; ok {
		_ = existing
		return fmt.Errorf("symbol '%s' already defined", qualified)
	}
	t.symbols[qualified] = &Symbol{Name: qualified, Value: value, IsDef: isDef}
	if !isDef && !strings.HasPrefix(name, ".") {
		t.global = name
	}
	return nil
}

// Lookup qualifies name and returns its value and whether it was found.
func (t *SymbolTable) Lookup(name string) (int32, bool) {
	qualified := t.qualify(name)
	sym, ok := t.symbols[qualified]
	if !ok {
		return 0, false
	}
	return sym.Value, true
}

// GlobalPrefix returns the current non-local label context, for callers
// implementing the `$$` expression atom (PC of the most recent non-local
// label).
func (t *SymbolTable) GlobalPrefix() string {
	return t.global
}

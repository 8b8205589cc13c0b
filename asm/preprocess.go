// preprocess.go

package asm

import (
	"fmt"
	"sort"
	"strings"
)

// SourceFile is one named chunk of source text, in whatever order a loader
// happened to read it in — Preprocess imposes the deterministic order.
type SourceFile struct {
	Filename string
	Text     string
}

// fileRank orders files for concatenation: all `.def` files first, then the
// file literally named "main.s", then remaining `.s` files alphabetically.
// Files with any other extension are skipped entirely.
func fileRank(name string) (rank int, keep bool) {
	switch {
	case strings.HasSuffix(name, ".def"):
		return 0, true
	case name == "main.s":
		return 1, true
	case strings.HasSuffix(name, ".s"):
		return 2, true
	default:
		return 0, false
	}
}

// Preprocess concatenates the kept files in deterministic order, prepending
// every line with an `[$filename$:line] ` origin marker. Line numbers are
// 1-based per file. The markers are the only channel by which later stages
// recover true source locations from the single concatenated stream.
func Preprocess(files []SourceFile) string {
	kept := make([]SourceFile, 0, len(files))
	for _, f := range files {
		if _, ok := fileRank(f.Filename); ok {
			kept = append(kept, f)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		ri, _ := fileRank(kept[i].Filename)
		rj, _ := fileRank(kept[j].Filename)
		if ri != rj {
			return ri < rj
		}
		return kept[i].Filename < kept[j].Filename
	})

	var out strings.Builder
	for _, f := range kept {
		lines := strings.Split(f.Text, "\n")
		// A trailing newline produces one empty trailing element; drop it so
		// files ending in "\n" don't emit a spurious final marker.
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for i, line := range lines {
			fmt.Fprintf(&out, "[$%s$:%d] %s\n", f.Filename, i+1, line)
		}
	}
	return out.String()
}

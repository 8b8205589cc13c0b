// loader.go - concurrent directory read, feeding Preprocess's deterministic ordering

package asm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// LoadDir reads every regular file directly inside dir concurrently
// (bounded by GOMAXPROCS) and returns the resulting (filename, text) pairs
// in whatever order the reads completed — Preprocess, not this function, is
// responsible for imposing the deterministic `.def`/`main.s`/alphabetical
// ordering described in SPEC_FULL.md §4.1. A read error from any one file
// aborts the whole load. This is the only place in the module where
// concurrency crosses a trust boundary with the filesystem; the assembler
// and VM proper remain single-threaded, per SPEC_FULL.md §4.11 and §5.
func LoadDir(ctx context.Context, dir string) ([]SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}

	files := make([]SourceFile, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			files[i] = SourceFile{Filename: name, Text: string(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

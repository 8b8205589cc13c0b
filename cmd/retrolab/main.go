// main.go - thin subcommand-based CLI driving the assembler and VM

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gamesmith-uk/retrolab-engine/asm"
	"github.com/gamesmith-uk/retrolab-engine/internal/debugconsole"
	"github.com/gamesmith-uk/retrolab-engine/vm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "retrolab",
		Short: "Two-pass assembler and VM for the retrolab 16-bit machine",
	}

	var asmOutput string
	var debugJSONPath string
	asmCmd := &cobra.Command{
		Use:   "asm <dir|file>",
		Short: "Assemble a source directory or single file into a flat binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsm(args[0], asmOutput, debugJSONPath)
		},
	}
	asmCmd.Flags().StringVarP(&asmOutput, "output", "o", "out.bin", "output binary path")
	asmCmd.Flags().StringVar(&debugJSONPath, "debug-json", "", "optional debug table JSON output path")

	var interactive bool
	runCmd := &cobra.Command{
		Use:   "run <binary>",
		Short: "Load a flat binary and run it to completion or error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBinary(args[0], interactive)
		},
	}
	runCmd.Flags().BoolVar(&interactive, "interactive", false, "attach the interactive debug console")

	rootCmd.AddCommand(asmCmd, runCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runAsm loads source from a directory (concurrently, via C15) or a single
// file, compiles it, and writes the resulting binary (and, if requested, the
// placeholder debug JSON file from writeDebugJSON) to disk.
func runAsm(path string, outPath string, debugJSONPath string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	var files []asm.SourceFile
	if info.IsDir() {
		files, err = asm.LoadDir(context.Background(), path)
		if err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = []asm.SourceFile{{Filename: filenameOf(path), Text: string(data)}}
	}

	out, err := asm.Assemble(files)
	if err != nil {
		return err
	}
	if out.Err != nil {
		return out.Err
	}

	if err := os.WriteFile(outPath, out.Binary, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", len(out.Binary), outPath)

	if debugJSONPath != "" {
		if err := writeDebugJSON(out.Debug, debugJSONPath); err != nil {
			return err
		}
	}
	return nil
}

// runBinary loads a flat binary directly into the CPU (C8) and drives the
// emulator loop (C12) to completion or error, optionally attaching the
// interactive debug console (C14).
func runBinary(path string, interactive bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	mem := vm.NewMemory()
	mem.LoadBinary(data)

	interrupts := vm.NewInterruptController()
	timers := vm.NewTimers()
	cpu := vm.NewCPU(mem, interrupts, timers)
	cpu.Reg[vm.RegSP] = vm.InitialSP
	cpu.Reg[vm.RegPC] = 0

	bp := vm.NewBreakpoints(asm.NewDebugTable())
	em := vm.NewEmulator(cpu, bp)

	if interactive {
		console := debugconsole.New(em, asm.NewDebugTable())
		if err := console.Start(); err != nil {
			return err
		}
		defer console.Stop()
		result := console.Run()
		return resultToErr(result)
	}

	for {
		result := em.Step()
		switch result.Status {
		case vm.StepDebuggerRequested:
			// DBG is a cooperative stop signal (SPEC_FULL.md §7): a headless
			// run treats it as the program's natural end.
			return nil
		case vm.StepError:
			return result.Err
		}
	}
}

func resultToErr(r vm.StepResult) error {
	if r.Status == vm.StepError {
		return r.Err
	}
	return nil
}

func filenameOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// writeDebugJSON writes an empty JSON object ("{}") to path; the debug table
// itself is not rendered, and the module has no snapshot type for the debug
// JSON shape described in SPEC_FULL.md §6.
func writeDebugJSON(debug *asm.DebugTable, path string) error {
	_ = debug
	return os.WriteFile(path, []byte("{}"), 0o644)
}

// console.go - single-keystroke interactive front-end over the emulator loop

package debugconsole

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/gamesmith-uk/retrolab-engine/asm"
	"github.com/gamesmith-uk/retrolab-engine/vm"
)

// Console is a local-development-only interactive debugger: it puts stdin
// into raw mode, reads one keystroke at a time on a background goroutine,
// and maps keys to emulator actions on the goroutine that owns the CPU.
// Never constructed in tests or headless CLI invocations, per
// SPEC_FULL.md §4.10.
type Console struct {
	em    *vm.Emulator
	debug *asm.DebugTable

	keys    chan byte
	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once

	fd           int
	oldTermState *term.State
}

// New returns a console driving em, resolving source locations against
// debug.
func New(em *vm.Emulator, debug *asm.DebugTable) *Console {
	return &Console{
		em:     em,
		debug:  debug,
		keys:   make(chan byte, 16),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts the controlling terminal into raw mode and begins reading
// keystrokes on a background goroutine. The goroutine only ever forwards
// raw bytes into a channel — it never touches CPU state, honouring §5's
// single-threaded cooperative model.
func (c *Console) Start() error {
	c.fd = int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(c.fd)
	if err != nil {
		close(c.done)
		return fmt.Errorf("debugconsole: failed to set raw mode: %w", err)
	}
	c.oldTermState = oldState

	go func() {
		defer close(c.done)
		buf := make([]byte, 1)
		for {
			select {
			case <-c.stopCh:
				return
			default:
			}
			n, err := syscall.Read(c.fd, buf)
			if n > 0 {
				select {
				case c.keys <- buf[0]:
				case <-c.stopCh:
					return
				}
			}
			if err != nil {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
	return nil
}

// Stop terminates the reading goroutine and restores the terminal.
func (c *Console) Stop() {
	c.stopped.Do(func() {
		close(c.stopCh)
	})
	<-c.done
	if c.oldTermState != nil {
		_ = term.Restore(c.fd, c.oldTermState)
		c.oldTermState = nil
	}
}

// Run processes keystrokes until 'q' or the CPU halts with an error. Keys:
// 's' single-step, 'c' continue to the next breakpoint or frame boundary,
// 'b' toggle a breakpoint at the current source location, 'q' quit.
func (c *Console) Run() vm.StepResult {
	for {
		select {
		case key := <-c.keys:
			switch key {
			case 's':
				if r := c.em.Step(); r.Status != vm.StepOK {
					return r
				}
				c.printLocation()
			case 'c':
				hit := false
				c.em.OnBreak = func(*vm.CPU, bool) { hit = true }
				for {
					if r := c.em.Step(); r.Status != vm.StepOK {
						c.em.OnBreak = nil
						return r
					}
					if hit || c.em.EndOfFrame() {
						break
					}
				}
				c.em.OnBreak = nil
				c.printLocation()
			case 'b':
				c.toggleBreakpoint()
			case 'q':
				return vm.StepResult{Status: vm.StepOK}
			}
		case <-c.stopCh:
			return vm.StepResult{Status: vm.StepOK}
		}
	}
}

func (c *Console) toggleBreakpoint() {
	pc := c.em.CPU.Reg[vm.RegPC]
	file, line, ok := c.debug.FindLocation(pc)
	if !ok {
		fmt.Fprintf(os.Stderr, "\r\nno source location for PC=0x%04X\r\n", pc)
		return
	}
	c.em.Breakpoints.Swap(file, line)
}

func (c *Console) printLocation() {
	pc := c.em.CPU.Reg[vm.RegPC]
	if file, line, ok := c.debug.FindLocation(pc); ok {
		fmt.Printf("\r\n%s:%d (PC=0x%04X)\r\n", file, line, pc)
	} else {
		fmt.Printf("\r\nPC=0x%04X\r\n", pc)
	}
}

// emulator.go - per-frame driver wrapping the CPU's one-cycle Step

package vm

// framePeriod is the number of CPU steps per video frame (64800 steps,
// matching the ancestor's fixed frame counter; see SPEC_FULL.md §4.8).
const framePeriod = 64800

// BreakHook is invoked when execution stops at a breakpoint, either a
// per-step PC match or the deferred end-of-frame break. atFrameEnd
// distinguishes the two so a debug console can render "stopped at EOF" vs
// "stopped at breakpoint" differently.
type BreakHook func(cpu *CPU, atFrameEnd bool)

// Emulator drives a CPU through its step/frame cycle, ticking timers at
// frame boundaries and invoking a breakpoint hook when armed.
type Emulator struct {
	CPU         *CPU
	Breakpoints *Breakpoints

	frameCounter int
	endOfFrame   bool
	breakAtEOF   bool

	OnBreak BreakHook
}

// NewEmulator returns an emulator wrapping cpu, with its frame counter
// freshly initialised.
func NewEmulator(cpu *CPU, bp *Breakpoints) *Emulator {
	return &Emulator{CPU: cpu, Breakpoints: bp, frameCounter: framePeriod}
}

// BreakAtNextFrame arms the deferred end-of-frame break: the next time the
// frame counter reaches zero, Step invokes the hook and returns early
// instead of also consulting the per-step PC-match check for that step.
func (e *Emulator) BreakAtNextFrame() {
	e.breakAtEOF = true
}

// Step runs exactly one CPU cycle, per SPEC_FULL.md §4.8's ordering: the CPU
// steps first, and a non-OK result is returned at once. Otherwise the frame
// counter is decremented; on reaching zero, timers tick (firing INT_TIMER
// for any that reach zero), the counter resets, end_of_frame is set, and —
// if the deferred EOF-break flag was armed — the flag is cleared, the hook
// (if registered) fires, and Step returns immediately without also running
// the per-step breakpoint check below. Otherwise a standing or temp
// breakpoint matching the new PC invokes the hook.
func (e *Emulator) Step() StepResult {
	e.endOfFrame = false

	result := e.CPU.Step()
	if result.Status != StepOK {
		return result
	}

	if pc, ok := e.CPU.TempBreak(); ok {
		e.Breakpoints.SetTemp(pc)
	}

	e.frameCounter--
	if e.frameCounter <= 0 {
		for _, idx := range e.CPU.Timers.Tick() {
			e.CPU.RaiseInterrupt(intTimer, uint16(idx))
		}
		e.frameCounter = framePeriod
		e.endOfFrame = true

		if e.breakAtEOF {
			e.breakAtEOF = false
			if e.OnBreak != nil {
				e.OnBreak(e.CPU, true)
			}
			return result
		}
	}

	if e.Breakpoints.IsAddr(e.CPU.Reg[RegPC]) && e.OnBreak != nil {
		e.OnBreak(e.CPU, false)
	}

	return result
}

// Frame runs Step repeatedly until end_of_frame is set or the CPU returns a
// non-OK status.
func (e *Emulator) Frame() StepResult {
	for {
		result := e.Step()
		if result.Status != StepOK || e.endOfFrame {
			return result
		}
	}
}

// EndOfFrame reports whether the most recent Step crossed a frame boundary.
func (e *Emulator) EndOfFrame() bool { return e.endOfFrame }

// SetJoystickState writes JOYSTICK_STATE and raises INT_JOYSTICK, for the
// external collaborator mentioned in SPEC_FULL.md §4.7 — the module itself
// has no joystick hardware, only the memory-mapped register and the
// interrupt contract around it.
func (e *Emulator) SetJoystickState(state byte) {
	e.CPU.Mem.Write8(JoystickState, state)
	e.CPU.RaiseInterrupt(intJoystick, uint16(state))
}

// intTimer is INT_TIMER's interrupt number, from original_source's
// constants/mmap.h; sub-code is the firing timer's index (0-3, XT_TIMER_0..3).
const intTimer = 4

// intJoystick is INT_JOYSTICK's interrupt number.
const intJoystick = 7

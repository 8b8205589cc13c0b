// interrupt.go - prioritised interrupt queue and vector table

package vm

const (
	vectorCount   = 256
	unboundVector = 0xFF
	queueCapacity = 255
)

// pendingInterrupt is one queued (number, xt) pair awaiting dispatch.
type pendingInterrupt struct {
	number uint8
	xt     uint16
}

// InterruptController is the CPU's interrupt queue and vector table. The
// queue is a fixed-capacity ring buffer (head/tail indices) rather than the
// ancestor's shift-on-pop array: SPEC_FULL.md §9 calls this out explicitly
// as a pure efficiency win with no observable behaviour change, since FIFO
// order is the only property anything depends on.
type InterruptController struct {
	vector [vectorCount]uint16

	queue      [queueCapacity]pendingInterrupt
	head, tail int
	count      int

	active     bool
	happening  bool
	returnAddr uint16
}

// NewInterruptController returns a controller with every vector unbound and
// interrupts active, matching cpu_init's ints.active = true: firmware may
// rely on interrupts being live before its first IENAB.
func NewInterruptController() *InterruptController {
	c := &InterruptController{active: true}
	for i := range c.vector {
		c.vector[i] = unboundVector
	}
	return c
}

// SetVector implements IVEC n,a: vector[n] <- a.
func (c *InterruptController) SetVector(n uint8, addr uint16) {
	c.vector[n] = addr
}

// SetActive implements IENAB v: active <- v&1.
func (c *InterruptController) SetActive(v uint16) {
	c.active = v&1 != 0
}

// Active reports whether interrupts are currently enabled.
func (c *InterruptController) Active() bool { return c.active }

// Happening reports whether a handler is currently running (non-reentrant).
func (c *InterruptController) Happening() bool { return c.happening }

// Enqueue implements INT n,xt. Silently dropped when disabled, the vector
// is unbound, or the queue is full; the contract is that firmware sets up
// its vectors before enabling interrupts. Returns whether it enqueued,
// which the caller uses to clear the CPU's waiting flag.
func (c *InterruptController) Enqueue(number uint8, xt uint16) bool {
	if !c.active || c.vector[number] == unboundVector || c.count == queueCapacity {
		return false
	}
	c.queue[c.tail] = pendingInterrupt{number: number, xt: xt}
	c.tail = (c.tail + 1) % queueCapacity
	c.count++
	return true
}

// Empty reports whether the queue has no pending interrupts.
func (c *InterruptController) Empty() bool { return c.count == 0 }

// Dequeue pops the oldest pending interrupt, marks the controller as
// handling it (happening=true), and returns its vector target and xt
// value. Callers must check !Happening() && !Empty() before calling.
func (c *InterruptController) Dequeue() (vectorAddr uint16, xt uint16) {
	p := c.queue[c.head]
	c.head = (c.head + 1) % queueCapacity
	c.count--
	c.happening = true
	return c.vector[p.number], p.xt
}

// BeginHandler records returnPC as the single return-address slot. A single
// slot suffices because handlers are non-reentrant: happening blocks
// further dispatch until IRET.
func (c *InterruptController) BeginHandler(returnPC uint16) {
	c.returnAddr = returnPC
}

// Return implements IRET: if a handler is running, restores the saved PC
// and clears happening, reporting ok=true. Otherwise ok is false and the
// caller raises INT_CPU/XT_CPU_IRET.
func (c *InterruptController) Return() (pc uint16, ok bool) {
	if !c.happening {
		return 0, false
	}
	c.happening = false
	return c.returnAddr, true
}

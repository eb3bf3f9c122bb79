// Package sched implements the round-robin preemptive thread and process
// scheduler: a fixed-size thread table, cooperative yield, blocking and
// wakeup on event channels, join/exit, and the trampoline back to user
// space.
package sched

import (
	"armcore/kernel/config"
	"armcore/kernel/mem/vmm"
	"armcore/kernel/trap"
	"unsafe"
)

// State is a thread's lifecycle stage.
type State int

const (
	StateUnused State = iota
	StateRunnable
	StateBlocked
	StateExited
)

// Flag controls thread_start behavior.
type Flag uint32

const (
	// FlagJoinable keeps an exited thread's slot reserved (state EXITED,
	// not UNUSED) until a joiner reaps it.
	FlagJoinable Flag = 1 << iota

	// FlagProcess marks the thread as backing a user process.
	FlagProcess
)

// Entry is a thread's top-level function.
type Entry func(arg uintptr)

// Process is the per-process extension point: today it owns nothing beyond
// its root page table and a back-reference to its single thread.
type Process struct {
	Root   *vmm.RootPageTable
	Thread *Thread
}

// Thread is one slot in the scheduler's static table. sp MUST remain the
// first field — the assembly switch routine writes the outgoing stack
// pointer to offset zero, asserted in init() below.
type Thread struct {
	sp uintptr

	stack [config.ThreadStackSize]byte

	tid       int
	state     State
	retval    int64
	entry     Entry
	arg       uintptr
	flags     Flag
	blockedOn uint64
	epoch     uint64
	trapFrame *trap.Frame
	process   *Process
}

func init() {
	if unsafe.Offsetof(Thread{}.sp) != 0 {
		panic("sched: Thread.sp must sit at offset zero for the switch routine's ABI")
	}
}

// TID returns the thread's table index, stable for its lifetime.
func (t *Thread) TID() int { return t.tid }

// State returns the thread's current lifecycle stage.
func (t *Thread) State() State { return t.state }

// Process returns the process this thread backs, or nil for a plain
// kernel thread never passed through ProcessExec.
func (t *Thread) Process() *Process { return t.process }

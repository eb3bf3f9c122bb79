package sched

import (
	"armcore/kernel"
	"armcore/kernel/clock"
	"armcore/kernel/config"
	"armcore/kernel/load"
	"armcore/kernel/sync"
	"armcore/kernel/trap"
	"unsafe"
)

// Event channels. ChannelTimer is clock.TimerChannel's value restated here
// so callers needn't import clock just to suspend on a tick.
const (
	ChannelTimer         = clock.TimerChannel
	ChannelUARTReadable  = 1 << 1
	ChannelUARTWritable  = 1 << 2
	ChannelThreadTerm    = 1 << 3
)

var (
	mutex         sync.Spinlock
	threads       [config.MaxThreads]Thread
	currentIdx    int
	idleTid       = -1
	fairID        int
	pendingEvents uint64
	nextEpoch     uint64
)

var (
	errTableFull = &kernel.Error{Module: "sched", Message: "thread table full"}
	errInvalid   = &kernel.Error{Module: "sched", Message: "invalid or non-joinable join target"}
)

// archRestoreUserAndERET restores frame's registers and executes ERET. The
// body lives in an assembly file this core does not own.
var archRestoreUserAndERET = func(frame *trap.Frame) {}

// Current returns the thread occupying the current slot.
func Current() *Thread {
	return &threads[currentIdx]
}

// ThreadStart installs entry(arg) into the first UNUSED slot, bakes a
// synthetic switch frame so the thread's first scheduling lands in
// trampoline, and marks it RUNNABLE.
func ThreadStart(entry Entry, arg uintptr, flags Flag) (int, *kernel.Error) {
	mutex.Acquire()
	defer mutex.Release()

	for i := range threads {
		if threads[i].state != StateUnused {
			continue
		}
		t := &threads[i]
		t.tid = i
		t.entry = entry
		t.arg = arg
		t.flags = flags
		t.blockedOn = 0
		t.trapFrame = nil
		t.process = nil
		nextEpoch++
		t.epoch = nextEpoch

		stackTop := uintptr(unsafe.Pointer(&t.stack[len(t.stack)-1])) &^ 15
		t.sp = archBuildSwitchFrame(stackTop, i)
		t.state = StateRunnable
		return i, nil
	}
	return 0, errTableFull
}

// trampoline is where a thread's first switch-in resumes: it calls the
// thread's entry with its argument and, if entry returns, exits with status
// zero — mirroring __sched_switch's documented first-run behavior.
func trampoline(tid int) {
	t := &threads[tid]
	t.entry(t.arg)
	Exit(0)
}

// Yield implements thread_yield: disable interrupts, pick the next
// runnable thread under the scheduler lock, release the lock, switch.
// Interrupts are re-enabled once the switch returns.
func Yield() {
	archDisableIRQ()
	mutex.Acquire()
	next := selectRunnable()
	prev := currentIdx
	currentIdx = next
	mutex.Release()

	if prev != next {
		archSwitch(&threads[prev].sp, threads[next].sp)
	}
	archEnableIRQ()
}

// selectRunnable must be called with mutex held. It implements the
// documented round-robin algorithm: swap out pending events, walk from
// fairID waking any blocked thread whose mask overlaps, return the first
// runnable non-idle thread or idle if none exists.
func selectRunnable() int {
	events := pendingEvents
	pendingEvents = 0

	n := len(threads)
	for step := 1; step <= n; step++ {
		idx := (fairID + step) % n
		if idx == idleTid {
			continue
		}
		t := &threads[idx]
		if t.state == StateBlocked && t.blockedOn&events != 0 {
			t.state = StateRunnable
			t.blockedOn = 0
		}
		if t.state == StateRunnable {
			fairID = idx
			return idx
		}
	}
	return idleTid
}

// Exit implements thread_exit: record retval, transition to EXITED (and
// publish the termination channel) if JOINABLE, otherwise straight to
// UNUSED, then yield. On real hardware this never returns — the outgoing
// stack is never resumed once its thread leaves RUNNABLE; it only returns
// here because archSwitch is a no-op mock under test.
func Exit(retval int64) {
	mutex.Acquire()
	t := &threads[currentIdx]
	t.retval = retval
	if t.flags&FlagJoinable != 0 {
		t.state = StateExited
	} else {
		t.state = StateUnused
	}
	mutex.Release()

	if t.flags&FlagJoinable != 0 {
		ResumeAll(ChannelThreadTerm)
	}
	Yield()
}

// Join implements thread_join: reject invalid ids or non-joinable/self
// targets with EINVAL; otherwise wait for the target to exit, transfer its
// return value, and reap its slot. If the target's epoch changes while
// waiting (it was reaped and the slot reused), report EINVAL instead of
// handing back an unrelated thread's result.
func Join(tid int) (int64, *kernel.Error) {
	if tid < 0 || tid >= len(threads) || tid == currentIdx {
		return 0, errInvalid
	}
	target := &threads[tid]
	if target.flags&FlagJoinable == 0 {
		return 0, errInvalid
	}
	epoch := target.epoch

	for {
		mutex.Acquire()
		if target.state == StateExited {
			retval := target.retval
			target.state = StateUnused
			mutex.Release()
			return retval, nil
		}
		mutex.Release()

		Suspend(ChannelThreadTerm)

		if target.epoch != epoch {
			return 0, errInvalid
		}
	}
}

// Suspend implements thread_suspend: mark current BLOCKED on channels, then
// yield.
func Suspend(channels uint64) {
	mutex.Acquire()
	t := &threads[currentIdx]
	t.state = StateBlocked
	t.blockedOn = channels
	mutex.Release()

	Yield()
}

// ResumeAll implements thread_resume_all: OR channels into the pending
// events bitset under the lock. The actual wake happens at the next
// selectRunnable call.
func ResumeAll(channels uint64) {
	mutex.Acquire()
	pendingEvents |= channels
	mutex.Release()
}

// SleepJiffies implements thread_sleep_jiffies: suspend on the timer
// channel, recheck jiffies, repeat on spurious wake.
func SleepJiffies(n uint64) {
	target := clock.Jiffies() + n
	for clock.Jiffies() < target {
		Suspend(ChannelTimer)
	}
}

// SleepNanos, SleepMillis and SleepSeconds convert to jiffies using the
// configured tick rate.
func SleepNanos(n uint64)   { SleepJiffies((n + config.NanosPerTick - 1) / config.NanosPerTick) }
func SleepMillis(n uint64)  { SleepJiffies((n + config.MillisPerTick - 1) / config.MillisPerTick) }
func SleepSeconds(n uint64) { SleepMillis(n * 1000) }

// MaybeYield implements thread_maybe_yield: the cooperative synchronization
// point kernel code sprinkles in to bound its own worst-case latency.
func MaybeYield() {
	if clock.ShouldReschedule() {
		Yield()
	}
}

// idleEntry is the idle thread's body: yield, then wait for an interrupt,
// forever.
func idleEntry(arg uintptr) {
	for {
		Yield()
		archWaitForInterrupt()
	}
}

// Run creates the idle thread, makes it current, and performs the initial
// switch into it. Called exactly once at boot, before interrupts are
// enabled.
func Run() {
	tid, err := ThreadStart(idleEntry, 0, 0)
	if err != nil {
		panic(err)
	}
	idleTid = tid
	currentIdx = tid

	var throwaway uintptr
	archSwitch(&throwaway, threads[tid].sp)
}

// ProcessExec implements process_exec: mark current as backing a user
// process and synthesize a trap frame that, once restored via ReturnToUser,
// resumes execution at program.Entry with SP_EL0 = program.StackTop and
// TTBR0 = program.RootPT. Must not return.
func ProcessExec(program *load.Program) {
	t := &threads[currentIdx]
	t.flags |= FlagProcess
	if t.process == nil {
		t.process = &Process{}
	}
	t.process.Root = program.RootPT
	t.process.Thread = t

	frame := &trap.Frame{
		ELR:   uint64(program.Entry),
		SPEL0: uint64(program.StackTop),
		TTBR0: program.RootPT.Physical().Address(),
	}
	ReturnToUser(frame)
}

// ReturnToUser implements sched_return_to_user: store frame as current's
// trap frame, yield if a reschedule is due (which may land on a different
// thread whose own frame is restored instead), then restore and ERET
// through whichever frame ends up current.
func ReturnToUser(frame *trap.Frame) {
	threads[currentIdx].trapFrame = frame

	if clock.ShouldReschedule() {
		Yield()
	}

	archRestoreUserAndERET(threads[currentIdx].trapFrame)
}

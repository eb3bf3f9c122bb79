// Package clock drives the per-CPU timer: programming it to fire at HZ,
// bumping the tick counter on each interrupt, and publishing the timer
// wakeup event for kernel/sched.
package clock

import "sync/atomic"

// TimerIRQID is the GICv2 PPI id this core's timer interrupt arrives on.
const TimerIRQID = 30

// TimerChannel is the event-channel bit threads suspend on to wait for a
// tick; it lives here rather than in kernel/sched to avoid a clock<->sched
// import cycle, the same way pmm.YieldFn avoids a pmm<->sched cycle.
const TimerChannel = 1 << 0

var jiffies uint64
var needsReschedule uint32

// ResumeAllFn wakes every thread blocked on a channel set; kernel/kmain sets
// it to sched.ResumeAll at boot wiring time.
var ResumeAllFn func(channels uint64)

// archArmTimer programs the per-CPU timer to fire again after one tick and
// unmasks its interrupt. The body lives in an assembly/register-access file
// this core does not own.
var archArmTimer = func() {}

// InitIRQ programs the timer for the first time and registers ISR with
// the trap dispatcher. registerIRQ is kernel/trap.RegisterIRQHandler,
// passed in rather than imported directly so this package stays independent
// of kernel/trap's existence during unit testing.
func InitIRQ(registerIRQ func(id uint32, handler func())) {
	registerIRQ(TimerIRQID, ISR)
	archArmTimer()
}

// ISR implements clock_isr: bump jiffies, wake anything waiting on the
// timer channel, re-arm the timer, and flag that a reschedule is due.
func ISR() {
	atomic.AddUint64(&jiffies, 1)
	if ResumeAllFn != nil {
		ResumeAllFn(TimerChannel)
	}
	archArmTimer()
	atomic.StoreUint32(&needsReschedule, 1)
}

// ShouldReschedule atomically tests and clears the reschedule flag.
func ShouldReschedule() bool {
	return atomic.SwapUint32(&needsReschedule, 0) != 0
}

// Jiffies returns the current tick count.
func Jiffies() uint64 {
	return atomic.LoadUint64(&jiffies)
}

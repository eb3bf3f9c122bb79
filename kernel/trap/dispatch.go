package trap

import (
	"armcore/kernel/errno"
	"armcore/kernel/hal"
	"armcore/kernel/kfmt"
)

// spuriousID marks "nothing pending" on a GICv2-style acknowledge read.
const spuriousID = 1023

// maxSyscall bounds the syscall dispatch table; this core implements only
// read (0) and write (1), but the table is sized generously so a future
// syscall does not need a resize.
const maxSyscall = 16

// SyscallHandler decodes arguments out of frame.X[0:6] and returns the
// value to be written back into x0 (a negative errno.Errno on failure).
type SyscallHandler func(frame *Frame) int64

var (
	gic            hal.GIC
	irqHandlers    = map[uint32]func(){}
	syscallTable   [maxSyscall]SyscallHandler
)

// Init records the GIC implementation IRQ dispatch acknowledges and
// completes interrupts through. Called once during boot wiring.
func Init(g hal.GIC) {
	gic = g
}

// RegisterIRQHandler wires handler to fire whenever id is acknowledged.
// kernel/clock and the UART driver each call this once during boot wiring
// for their own interrupt id, matching gopheros's irq.HandleException
// registration pattern.
func RegisterIRQHandler(id uint32, handler func()) {
	irqHandlers[id] = handler
}

// RegisterSyscall installs handler at syscall number num.
func RegisterSyscall(num int64, handler SyscallHandler) {
	syscallTable[num] = handler
}

// DispatchIRQ implements __trap_isr: acknowledge the pending interrupt,
// ignore spurious reads, route to the registered handler for its id (or
// mask and log an unknown line), then signal end-of-interrupt.
func DispatchIRQ(frame *Frame) {
	id, valid := gic.Ack()
	if !valid || id >= 1020 {
		return
	}

	if handler, ok := irqHandlers[id]; ok {
		handler()
	} else {
		gic.Mask(id)
		kfmt.Printf("[trap] masking unknown interrupt id %d\n", id)
	}

	gic.EndOfInterrupt(id)
}

// DispatchSyscall implements __trap_ssr: the syscall number is in x8,
// arguments in x0..x5; the return value is written back to x0. An unknown
// syscall number yields errno.ENOSYS.
func DispatchSyscall(frame *Frame) {
	num := frame.X[8]

	if num >= maxSyscall || syscallTable[num] == nil {
		enosys := int64(errno.ENOSYS)
		frame.X[0] = uint64(enosys)
		return
	}

	frame.X[0] = uint64(syscallTable[num](frame))
}

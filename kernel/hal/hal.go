// Package hal declares the hardware collaborators this core treats as
// out-of-scope-but-consumed: the PL011 UART and GICv2 interrupt controller.
// The core only ever talks to these through the interfaces below; a real
// board brings its own implementation, and the stub implementations in this
// package let the rest of the core — and its tests — run without one.
package hal

import (
	"armcore/kernel"
	"armcore/kernel/mem/vmm"
)

// UART is the serial console driver contract: early (pre-MMU) output, the
// deferred MMIO mapping once the VMM is up, interrupt wiring, and the
// blocking recv/send pair kernel/syscall's read/write implementations sit
// on top of.
type UART interface {
	// EarlyInit prepares the UART for polled output before paging or
	// interrupts exist, using its physical MMIO address directly.
	EarlyInit()

	// MapInit installs the UART's MMIO window into root once the VMM is
	// available, after which all access goes through the mapped address.
	MapInit(root *vmm.RootPageTable) *kernel.Error

	// IRQInit unmasks and registers the UART's RX interrupt.
	IRQInit()

	// ISR drains the UART's RX FIFO into its receive ring and wakes any
	// thread blocked in Recv.
	ISR()

	// Recv copies up to len(buf) received bytes, blocking per flags.
	Recv(buf []byte, flags int) (int, *kernel.Error)

	// Send writes buf to the UART, blocking per flags.
	Send(buf []byte, flags int) (int, *kernel.Error)
}

// GIC is the interrupt controller contract the trap dispatcher drives: ack
// the highest-priority pending interrupt, signal completion, and mask a
// source.
type GIC interface {
	// Init brings up the distributor and this CPU's interface.
	Init()

	// MapInit installs the distributor and CPU-interface MMIO windows.
	MapInit(root *vmm.RootPageTable) *kernel.Error

	// Ack returns the id of the highest-priority pending interrupt. valid
	// is false when the spurious-interrupt id is read (nothing pending).
	Ack() (id uint32, valid bool)

	// EndOfInterrupt signals completion of servicing id.
	EndOfInterrupt(id uint32)

	// Mask disables delivery of id.
	Mask(id uint32)
}

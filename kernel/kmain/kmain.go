// Package kmain wires every subsystem together in dependency order and
// owns the top-level recover that turns a propagated Go panic into
// kernel.Panic's unrecoverable halt. Nothing else in this core calls
// recover; every package-level kernel.Assert failure is expected to
// surface here.
package kmain

import (
	"armcore/kernel"
	"armcore/kernel/clock"
	"armcore/kernel/config"
	"armcore/kernel/hal"
	"armcore/kernel/kfmt"
	"armcore/kernel/load"
	"armcore/kernel/mem/pmm"
	"armcore/kernel/mem/vmm"
	"armcore/kernel/sched"
	"armcore/kernel/syscall"
	"armcore/kernel/trap"
)

// Config collects everything a real boot stub would otherwise derive from
// linker symbols and a device tree: the RAM window the page allocator
// manages, the kernel image's text range, the UART/GIC MMIO windows, and
// the concrete driver implementations to wire in.
type Config struct {
	RAM           config.RAMWindow
	TextBase      uintptr
	TextEnd       uintptr
	UARTMMIOBase  uintptr
	UARTMMIOSize  uintptr
	GICMMIOBase   uintptr
	GICMMIOSize   uintptr
	BackingBitmap []uint64
	UART          hal.UART
	GIC           hal.GIC
	InitEntry     uintptr
	InitStackTop  uintptr
}

var allocator pmm.BitmapAllocator

// alloc adapts allocator.Alloc to vmm.FrameAllocator's signature.
func alloc(flags pmm.AllocFlag) (pmm.Frame, *kernel.Error) {
	return allocator.Alloc(flags)
}

// Bootstrap brings the core up in this order: page allocator, then virtual
// memory manager, then trap dispatch and the timer, then syscall
// registration, then the optional init process, and finally the scheduler.
// It never returns on real hardware — the final step hands off into
// sched.Run, which switches into the idle thread.
// Bootstrap is the sole recover() site in this core; any propagated
// kernel.Assert failure (or unexpected Go panic) escalates to
// kernel.Panic instead of unwinding further.
func Bootstrap(cfg Config) {
	defer func() {
		if r := recover(); r != nil {
			kernel.Panic(r)
		}
	}()

	cfg.UART.EarlyInit()
	kfmt.Printf("[kmain] early console up\n")

	if err := allocator.Init(cfg.RAM, cfg.BackingBitmap); err != nil {
		kernel.Panic(err)
	}
	pmm.YieldFn = sched.Yield
	kfmt.Printf("[kmain] page allocator managing %d bytes from 0x%x\n", cfg.RAM.Size(), cfg.RAM.Base)

	root, err := vmm.NewRootPageTable(alloc)
	if err != nil {
		kernel.Panic(err)
	}
	if err := vmm.MapKernelMemory(root, cfg.RAM, cfg.TextBase, cfg.TextEnd, alloc); err != nil {
		kernel.Panic(err)
	}
	if err := vmm.MapDevices(root, cfg.UARTMMIOBase, cfg.UARTMMIOSize, alloc); err != nil {
		kernel.Panic(err)
	}
	if err := vmm.MapDevices(root, cfg.GICMMIOBase, cfg.GICMMIOSize, alloc); err != nil {
		kernel.Panic(err)
	}
	vmm.Switch(root)
	kfmt.Printf("[kmain] kernel address space active\n")

	if err := cfg.UART.MapInit(root); err != nil {
		kernel.Panic(err)
	}
	if err := cfg.GIC.MapInit(root); err != nil {
		kernel.Panic(err)
	}
	cfg.GIC.Init()

	trap.Init(cfg.GIC)
	trap.InstallVectors()
	cfg.UART.IRQInit()
	clock.InitIRQ(trap.RegisterIRQHandler)
	clock.ResumeAllFn = sched.ResumeAll
	kfmt.Printf("[kmain] traps and timer armed\n")

	syscall.Init(cfg.UART)
	syscall.Register(trap.RegisterSyscall, currentProcessRoot)

	if cfg.InitEntry != 0 {
		startInitProcess(cfg, root)
	}

	kfmt.Printf("[kmain] entering scheduler\n")
	sched.Run()
}

// currentProcessRoot resolves the root page table backing the thread the
// scheduler is about to return to, for kernel/syscall's copy_to/from_user
// helpers. Registered with kernel/syscall at boot wiring time rather than
// imported directly, since kernel/syscall must not import kernel/sched.
func currentProcessRoot() *vmm.RootPageTable {
	t := sched.Current()
	if t.Process() == nil {
		return nil
	}
	return t.Process().Root
}

// startInitProcess starts the first user thread, entering cfg.InitEntry
// with the kernel's own root page table as its address space, so a trap
// taken in user mode can still address kernel code and data. No separate
// per-process root is created.
func startInitProcess(cfg Config, kernelRoot *vmm.RootPageTable) {
	program := &load.Program{
		Entry:    cfg.InitEntry,
		RootPT:   kernelRoot,
		StackTop: cfg.InitStackTop,
	}
	_, err := sched.ThreadStart(func(uintptr) {
		sched.ProcessExec(program)
	}, 0, 0)
	if err != nil {
		kernel.Panic(err)
	}
}

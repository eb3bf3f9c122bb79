// Package config collects the build-time constants that stand in for the
// board/linker configuration of a real kernel image: the RAM window the
// page allocator manages, the scheduler's static limits, and the clock
// rate. A real boot stub would derive KernelBase/End and FreeRAMBase/End
// from linker symbols (__kernel_base, __free_ram, ...); in this port the
// equivalent values (the RAM window, the text range) are fields of
// kmain.Config, which `kmain.Bootstrap` receives from its caller, since Go
// toolchains do not expose the same linker-symbol ABI cc/ld do.
package config

const (
	// PageSize is the MMU granule size used throughout this core.
	PageSize = 4096

	// PageShift is log2(PageSize).
	PageShift = 12

	// MaxThreads is the number of slots in the static thread table.
	MaxThreads = 32

	// ThreadStackSize is the size, in bytes, of a thread's kernel stack.
	ThreadStackSize = 8192

	// HZ is the timer tick rate in Hz.
	HZ = 100

	// NanosPerTick, MillisPerTick derive from HZ for the sleep helpers in
	// kernel/sched.
	NanosPerTick  = 1000000000 / HZ
	MillisPerTick = 1000 / HZ
)

// RAMWindow describes the contiguous physical RAM range the page allocator
// is allowed to hand out frames from.
type RAMWindow struct {
	Base uintptr
	End  uintptr
}

// Size returns End - Base.
func (w RAMWindow) Size() uintptr {
	return w.End - w.Base
}

package vmm

import (
	"armcore/kernel"
	"armcore/kernel/mem/pmm"
	"unsafe"
)

// FrameAllocator is the subset of pmm.BitmapAllocator the vmm package needs
// to install intermediate page tables. A function value rather than a
// concrete type to keep this package independent from how the allocator is
// constructed (mirrors gopheros/kernel/mem/vmm.FrameAllocatorFn).
type FrameAllocator func(flags pmm.AllocFlag) (pmm.Frame, *kernel.Error)

// RootPageTable wraps the physical address of an L0 table. The kernel has
// one global root; a user process records the root its program was mapped
// into (load.Program.RootPT). This package has no operation that copies the
// kernel's mappings into a separate per-process root.
type RootPageTable struct {
	l0 pmm.Frame
}

// NewRootPageTable allocates and zeroes a fresh L0 table.
func NewRootPageTable(alloc FrameAllocator) (*RootPageTable, *kernel.Error) {
	frame, err := alloc(pmm.FlagWait)
	if err != nil {
		return nil, err
	}
	zeroFrame(frame)
	return &RootPageTable{l0: frame}, nil
}

// Physical returns the physical address of the L0 table, the value loaded
// into TTBRn_EL1 on a context switch.
func (r *RootPageTable) Physical() pmm.Frame {
	return r.l0
}

// directMap returns a pointer to the physical address phys that is valid to
// dereference from kernel code. A direct map must commit to one invertible
// mapping; this core commits to identity (virtual == physical) for its own
// lifetime, since MapKernelMemory always installs the free-RAM window and
// kernel image with identity mappings before Switch is called, and nothing
// in this core ever runs with a non-identity kernel VA layout.
func directMap(phys uintptr) unsafe.Pointer {
	return unsafe.Pointer(phys)
}

// PhysBytes returns a byte slice over n bytes starting at the physical
// address phys, for copy_from_user/copy_to_user's page-by-page memcpy.
func PhysBytes(phys uintptr, n int) []byte {
	return unsafe.Slice((*byte)(directMap(phys)), n)
}

func tableAt(frame pmm.Frame) *[512]pte {
	return (*[512]pte)(directMap(frame.Address()))
}

func zeroFrame(frame pmm.Frame) {
	table := tableAt(frame)
	for i := range table {
		table[i] = 0
	}
}

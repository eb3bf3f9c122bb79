package vmm

import (
	"armcore/kernel"
	"armcore/kernel/config"
	"armcore/kernel/mem/pmm"
)

// archTableBarrier issues the architectural store-barrier that publishes a
// page table mutation to the MMU's table walker. The body lives in an
// assembly file this core does not own; on ARM64 it is a `dsb ishst`.
var archTableBarrier = func() {}

// MapExplicit installs a single virt -> phys leaf mapping in root, allocating
// any missing intermediate tables from alloc. All three addresses must be
// page-aligned and the target leaf must currently be invalid — remapping
// over a live entry is a kernel bug here, so both are asserted rather than
// returned as errors; a caller that legitimately needs to change
// permissions must Unmap first. Only intermediate-table allocation failure
// is a recoverable error.
func MapExplicit(root *RootPageTable, virt, phys uintptr, flags MapFlag, alloc FrameAllocator) *kernel.Error {
	kernel.Assert(virt%config.PageSize == 0 && phys%config.PageSize == 0, "vmm", "map_explicit: address is not page-aligned")

	entry, err := leaf(root, virt, alloc)
	if err != nil {
		return err
	}
	kernel.Assert(!entry.valid(), "vmm", "map_explicit: remap over a live leaf mapping")

	*entry = leafDescriptor(pmm.FrameFromAddress(phys), flags)
	archTableBarrier()
	return nil
}

// MapRangeIdentity maps [base, base+size) virt == phys, one leaf per page.
// Used to install the free-RAM window and the kernel image with the
// identity layout directMap commits to. The end of the range is computed
// before rounding, so a misaligned base still gets its full original
// extent covered rather than having the range shrink to compensate.
func MapRangeIdentity(root *RootPageTable, base, size uintptr, flags MapFlag, alloc FrameAllocator) *kernel.Error {
	end := base + size
	base = base &^ (config.PageSize - 1)
	end = (end + config.PageSize - 1) &^ (config.PageSize - 1)
	size = end - base
	for off := uintptr(0); off < size; off += config.PageSize {
		if err := MapExplicit(root, base+off, base+off, flags, alloc); err != nil {
			return err
		}
	}
	return nil
}

// MapKernelMemory installs the kernel's own identity mappings into root:
// read-write-no-exec for the RAM window, and read-exec-no-write for the
// image text range [textBase, textEnd) (enforcing W^X on the kernel itself).
// These are the only two ranges it maps; it installs no separate rodata,
// data, bss or stack ranges.
func MapKernelMemory(root *RootPageTable, ram config.RAMWindow, textBase, textEnd uintptr, alloc FrameAllocator) *kernel.Error {
	if err := MapRangeIdentity(root, ram.Base, ram.Size(), FlagWrite, alloc); err != nil {
		return err
	}
	textSize := textEnd - textBase
	return MapRangeIdentity(root, textBase, textSize, FlagExec, alloc)
}

// MapDevices installs a single device-memory (nGnRE, execute-never) mapping
// for the MMIO range [base, base+size), e.g. the PL011 UART or GICv2
// distributor/CPU interface windows.
func MapDevices(root *RootPageTable, base, size uintptr, alloc FrameAllocator) *kernel.Error {
	return MapRangeIdentity(root, base, size, FlagDevice, alloc)
}

// Unmap clears the leaf mapping for virt, if any. Unmapping an address that
// was never mapped is a no-op, matching gopheros's vmm.Unmap semantics.
func Unmap(root *RootPageTable, virt uintptr) {
	entry, ok := lookupLeaf(root, virt)
	if !ok || !entry.valid() {
		return
	}
	*entry = 0
}

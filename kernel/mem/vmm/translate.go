package vmm

import (
	"armcore/kernel"
)

// UserVirtToPhys resolves a user-space virtual address to the physical
// address of the byte it names, for use by kernel/syscall's copy-to/from-user
// helpers. The returned address always carries the same page offset as
// virt, never just the frame base — a caller copying a multi-byte value
// starting at a non-zero page offset still gets the right byte. A missing
// level or a leaf that is not user-accessible both fail the same way: the
// kernel's own mappings must never be reachable through this path.
func UserVirtToPhys(root *RootPageTable, virt uintptr) (uintptr, *kernel.Error) {
	entry, ok := lookupLeaf(root, virt)
	if !ok || !entry.valid() || !entry.userAccessible() {
		return 0, errInvalidMapping
	}
	return entry.frame().Address() + alignedPageOffset(virt), nil
}

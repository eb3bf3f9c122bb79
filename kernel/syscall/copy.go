package syscall

import (
	"armcore/kernel/config"
	"armcore/kernel/errno"
	"armcore/kernel/mem/vmm"
)

// pageRemaining returns how many bytes remain in the page containing virt.
func pageRemaining(virt uintptr) int {
	return int(config.PageSize - virt%config.PageSize)
}

// CopyFromUser copies count bytes starting at the user virtual address
// userVirt into dst, walking root page by page via vmm.UserVirtToPhys.
// Returns bytes actually transferred and 0, or a partial count and the
// negative errno hit partway through.
func CopyFromUser(root *vmm.RootPageTable, dst []byte, userVirt uintptr) (int, errno.Errno) {
	count := len(dst)
	copied := 0

	for copied < count {
		phys, err := vmm.UserVirtToPhys(root, userVirt+uintptr(copied))
		if err != nil {
			return copied, errno.EINVAL
		}

		span := pageRemaining(userVirt + uintptr(copied))
		if remaining := count - copied; span > remaining {
			span = remaining
		}

		copy(dst[copied:copied+span], vmm.PhysBytes(phys, span))
		copied += span
	}
	return copied, 0
}

// CopyToUser copies src into the user virtual address userVirt, walking
// root page by page via vmm.UserVirtToPhys.
func CopyToUser(root *vmm.RootPageTable, userVirt uintptr, src []byte) (int, errno.Errno) {
	count := len(src)
	copied := 0

	for copied < count {
		phys, err := vmm.UserVirtToPhys(root, userVirt+uintptr(copied))
		if err != nil {
			return copied, errno.EINVAL
		}

		span := pageRemaining(userVirt + uintptr(copied))
		if remaining := count - copied; span > remaining {
			span = remaining
		}

		copy(vmm.PhysBytes(phys, span), src[copied:copied+span])
		copied += span
	}
	return copied, 0
}

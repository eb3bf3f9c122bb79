// Package vmm implements a four-level (L0..L3), 4 KiB-granule, 48-bit-VA
// page table walker: installing kernel, device and user mappings and
// performing the one-shot physical->virtual MMU switch.
package vmm

import (
	"armcore/kernel"
	"armcore/kernel/config"
	"armcore/kernel/kfmt"
	"armcore/kernel/mem/pmm"
)

// MapFlag is the kernel-facing leaf mapping bitset.
type MapFlag uintptr

const (
	// FlagWrite marks the mapping writable.
	FlagWrite MapFlag = 1 << iota
	// FlagExec marks the mapping executable.
	FlagExec
	// FlagUser marks the mapping accessible from EL0.
	FlagUser
	// FlagDevice marks the mapping as device memory (nGnRE, non-cacheable).
	FlagDevice
	// FlagDebug traces the mapping through kfmt.
	FlagDebug
)

// pageLevels is the number of page table levels walked for every address:
// L0, L1, L2, L3.
const pageLevels = 4

// pageLevelShifts holds the VA bit offset for the index at each level.
var pageLevelShifts = [pageLevels]uint{39, 30, 21, 12}

// levelIndexBits is the number of VA bits consumed at each level (512
// entries per table).
const levelIndexBits = 9

// Hardware descriptor bit positions (ARMv8-A, 4 KiB granule).
const (
	descValid uintptr = 1 << 0
	descTable uintptr = 1 << 1 // "table" at L0-L2, "page" at L3 — both are bit1=1

	descAF = 1 << 10 // access flag
	descNG = 1 << 11 // non-global

	descAP1 = 1 << 6 // AP[1]: 1 = accessible from EL0
	descAP2 = 1 << 7 // AP[2]: 1 = read-only

	descSHShift  = 8
	descSHInner  = uintptr(0b11) << descSHShift
	descAttrIdxShift = 2

	descPXN = 1 << 53 // privileged execute-never
	descUXN = 1 << 54 // unprivileged execute-never
)

// Memory attribute indirection register indices programmed by Switch.
const (
	mairNormalIdx = 0 // normal, write-back write-allocate
	mairDeviceIdx = 1 // device-nGnRE
)

const physAddrMask uintptr = 0x0000fffffffff000

// pte is a single page table entry (either an intermediate table descriptor
// or a leaf descriptor).
type pte uintptr

func (p pte) valid() bool {
	return uintptr(p)&descValid != 0
}

// userAccessible reports whether the leaf's AP[1] bit marks it reachable
// from EL0. A table descriptor (an L0-L2 entry) has no such meaning; only
// ask this of a resolved L3 leaf.
func (p pte) userAccessible() bool {
	return uintptr(p)&descAP1 != 0
}

func (p pte) frame() pmm.Frame {
	return pmm.Frame(uintptr(p) & physAddrMask)
}

func tableDescriptor(next pmm.Frame) pte {
	return pte(uintptr(next.Address()) | descValid | descTable)
}

// leafDescriptor computes the hardware PTE bits for a leaf mapping from the
// kernel-facing MapFlag bitset. Every leaf carries the access-flag bit (so
// the MMU never traps on first touch).
func leafDescriptor(frame pmm.Frame, flags MapFlag) pte {
	v := uintptr(frame.Address()) | descValid | descTable | descAF | descSHInner

	if flags&FlagUser != 0 {
		v |= descAP1
		v |= descNG
	}
	if flags&FlagWrite == 0 {
		v |= descAP2
	}

	switch {
	case flags&FlagDevice != 0:
		v |= mairDeviceIdx << descAttrIdxShift
		v |= descPXN | descUXN
	default:
		v |= mairNormalIdx << descAttrIdxShift

		// PXN is clear only for kernel-executable text (EXEC, not USER);
		// UXN is clear only for user-executable text (EXEC and USER).
		// USER therefore never implies kernel-executable.
		execByKernel := flags&FlagExec != 0 && flags&FlagUser == 0
		execByUser := flags&FlagExec != 0 && flags&FlagUser != 0
		if !execByKernel {
			v |= descPXN
		}
		if !execByUser {
			v |= descUXN
		}
	}

	if flags&FlagWrite != 0 && flags&FlagExec != 0 {
		kfmt.Printf("[vmm] warning: W^X violation requested for frame 0x%x\n", uint64(frame))
	}

	if flags&FlagDebug != 0 {
		kfmt.Printf("[vmm] leaf frame=0x%x flags=0x%x pte=0x%x\n", uint64(frame), uintptr(flags), uintptr(v))
	}

	return pte(v)
}

var errInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

// pageIndex returns the table index for virt at the given level.
func pageIndex(virt uintptr, level int) uintptr {
	return (virt >> pageLevelShifts[level]) & ((1 << levelIndexBits) - 1)
}

func alignedPageOffset(virt uintptr) uintptr {
	return virt & (config.PageSize - 1)
}

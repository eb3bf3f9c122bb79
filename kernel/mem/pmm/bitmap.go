package pmm

import (
	"armcore/kernel"
	"armcore/kernel/config"
	"armcore/kernel/kfmt"
	"armcore/kernel/sync"
	"math"
)

// AllocFlag controls the behavior of Alloc.
type AllocFlag uint32

const (
	// FlagWait retries the allocation on lock contention or exhaustion
	// instead of failing immediately.
	FlagWait AllocFlag = 1 << iota

	// FlagYield, combined with FlagWait, yields the CPU between retries
	// instead of busy-looping. YieldFn must be set (kernel/kmain sets it
	// to sched.Yield) for this to have an effect.
	FlagYield

	// FlagDebug traces allocations/frees through kfmt.
	FlagDebug
)

// YieldFn is invoked by a waiting, yielding Alloc between retries. It is
// set to sched.Yield by kernel/kmain at boot to avoid a pmm -> sched import
// cycle;
// left nil (a no-op) it degenerates to a pure busy-wait.
var YieldFn func()

var (
	errAgain     = &kernel.Error{Module: "pmm", Message: "lock contended"}
	errNoMem     = &kernel.Error{Module: "pmm", Message: "out of memory"}
	errBadWindow = &kernel.Error{Module: "pmm", Message: "ram window is not page- and slot-aligned"}
)

// BitmapAllocator is a physical frame allocator that tracks frame
// reservations for a single contiguous RAM window using a flat bitmap: bit
// value 1 means allocated, 0 means free. slotCount*64 == frameCount always
// holds.
type BitmapAllocator struct {
	mutex sync.Spinlock

	base       Frame
	frameCount uint64
	bitmap     []uint64
}

// Init prepares alloc to serve frames from window. window.Size() must be an
// exact multiple of config.PageSize and of 64 pages (the bitmap slot
// width); storage for the bitmap is supplied by the caller (backingBitmap)
// since the allocator itself has nowhere else to get memory from before it
// exists.
func (a *BitmapAllocator) Init(window config.RAMWindow, backingBitmap []uint64) *kernel.Error {
	size := window.Size()
	if window.Base%config.PageSize != 0 || size%config.PageSize != 0 {
		return errBadWindow
	}

	frameCount := uint64(size) >> config.PageShift
	if frameCount%64 != 0 {
		return errBadWindow
	}
	if uint64(len(backingBitmap)) != frameCount/64 {
		return errBadWindow
	}

	a.base = Frame(window.Base)
	a.frameCount = frameCount
	a.bitmap = backingBitmap
	for i := range a.bitmap {
		a.bitmap[i] = 0
	}
	return nil
}

// Alloc scans the bitmap for a free frame, first-fit low-to-high, and marks
// it allocated. Without FlagWait it fails fast with EAGAIN (lock contended)
// or ENOMEM (no free frame); with FlagWait it retries, optionally yielding
// the CPU (FlagYield) between attempts.
func (a *BitmapAllocator) Alloc(flags AllocFlag) (Frame, *kernel.Error) {
	for {
		if !a.mutex.TryToAcquire() {
			if flags&FlagWait == 0 {
				return InvalidFrame, errAgain
			}
			a.maybeYield(flags)
			continue
		}

		frame, found := a.scanAndMark()
		a.mutex.Release()

		if found {
			if flags&FlagDebug != 0 {
				kfmt.Printf("[pmm] alloc 0x%x\n", uint64(frame))
			}
			return frame, nil
		}

		if flags&FlagWait == 0 {
			return InvalidFrame, errNoMem
		}
		a.maybeYield(flags)
	}
}

// MustAlloc wraps Alloc and panics on failure. It exists for early-boot
// call sites (e.g. populating the page tables before traps/scheduler exist)
// where there is no reasonable way to handle an allocation failure.
func (a *BitmapAllocator) MustAlloc(flags AllocFlag) Frame {
	frame, err := a.Alloc(flags)
	if err != nil {
		panic(err)
	}
	return frame
}

func (a *BitmapAllocator) maybeYield(flags AllocFlag) {
	if flags&FlagYield != 0 && YieldFn != nil {
		YieldFn()
	}
}

// scanAndMark performs one first-fit low-to-high scan under the lock. It
// skips fully-allocated slots by comparing against all-ones before
// scanning individual bits.
func (a *BitmapAllocator) scanAndMark() (Frame, bool) {
	const full = uint64(math.MaxUint64)

	for slot, word := range a.bitmap {
		if word == full {
			continue
		}
		for bit := 0; bit < 64; bit++ {
			mask := uint64(1) << uint(bit)
			if word&mask != 0 {
				continue
			}
			a.bitmap[slot] = word | mask
			frameIndex := uint64(slot)*64 + uint64(bit)
			return a.base + Frame(frameIndex<<config.PageShift), true
		}
	}
	return InvalidFrame, false
}

// Free releases addr back to the pool. addr must be page-aligned, inside
// the managed window, and currently marked allocated; any violation is a
// kernel bug and panics (a caller passing a bad or already-free address has
// no sane recovery path).
func (a *BitmapAllocator) Free(addr Frame, flags AllocFlag) {
	kernel.Assert(uintptr(addr)%config.PageSize == 0, "pmm", "free: address is not page-aligned")

	frameIndex, ok := a.frameIndex(addr)
	kernel.Assert(ok, "pmm", "free: address is outside the managed ram window")

	a.mutex.Acquire()
	slot, bit := frameIndex/64, frameIndex%64
	mask := uint64(1) << bit
	wasSet := a.bitmap[slot]&mask != 0
	a.bitmap[slot] &^= mask
	a.mutex.Release()

	kernel.Assert(wasSet, "pmm", "double free")

	if flags&FlagDebug != 0 {
		kfmt.Printf("[pmm] free 0x%x\n", uint64(addr))
	}
}

func (a *BitmapAllocator) frameIndex(addr Frame) (uint64, bool) {
	if addr < a.base {
		return 0, false
	}
	idx := (uint64(addr) - uint64(a.base)) >> config.PageShift
	if idx >= a.frameCount {
		return 0, false
	}
	return idx, true
}

// DebugPrint dumps the bitmap slots to the console.
func (a *BitmapAllocator) DebugPrint() {
	kfmt.Printf("[pmm] bitmap: %d frames, base 0x%x\n", a.frameCount, uint64(a.base))
	for slot, word := range a.bitmap {
		kfmt.Printf("  slot %d: 0x%x\n", slot, word)
	}
}

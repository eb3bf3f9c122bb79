package vmm

import (
	"armcore/kernel"
	"armcore/kernel/kfmt"
	"armcore/kernel/mem/pmm"
)

// tableWalker is invoked once per level while resolving a virtual address,
// from L0 down to L3, mirroring gopheros's pageTableWalker callback used by
// its page-table dumper. Returning false aborts the walk early.
type tableWalker func(level int, entry pte) bool

// walkTable descends root's hierarchy for virt purely for inspection: it
// never installs a missing intermediate table, so an unmapped branch simply
// stops the walk (fn is still called once with the invalid entry at that
// level, then no deeper level is visited).
func walkTable(root *RootPageTable, virt uintptr, fn tableWalker) {
	frame := root.l0

	for level := 0; level < pageLevels; level++ {
		table := tableAt(frame)
		entry := table[pageIndex(virt, level)]

		if !fn(level, entry) {
			return
		}
		if !entry.valid() {
			return
		}
		if level == pageLevels-1 {
			return
		}
		frame = entry.frame()
	}
}

// DebugPrintMapping walks root's hierarchy for virt and prints each level's
// entry, stopping at the first invalid (unmapped) one. Mirrors
// pmm.BitmapAllocator.DebugPrint's plain kfmt dump.
func DebugPrintMapping(root *RootPageTable, virt uintptr) {
	kfmt.Printf("[vmm] translating 0x%x\n", virt)
	walkTable(root, virt, func(level int, entry pte) bool {
		if !entry.valid() {
			kfmt.Printf("  L%d: not present\n", level)
			return false
		}
		kfmt.Printf("  L%d: pte=0x%x frame=0x%x\n", level, uintptr(entry), uint64(entry.frame()))
		return true
	})
}

// leaf returns a pointer to the L3 entry that would map virt, installing
// any missing L0-L2 tables along the way via alloc. The returned entry may
// itself still be invalid (unmapped) — callers write a leaf descriptor into
// it to complete the mapping.
func leaf(root *RootPageTable, virt uintptr, alloc FrameAllocator) (*pte, *kernel.Error) {
	frame := root.l0

	for level := 0; level < pageLevels-1; level++ {
		table := tableAt(frame)
		entry := &table[pageIndex(virt, level)]

		if !entry.valid() {
			next, err := alloc(pmm.FlagWait)
			if err != nil {
				return nil, err
			}
			zeroFrame(next)
			*entry = tableDescriptor(next)
		}

		frame = entry.frame()
	}

	table := tableAt(frame)
	return &table[pageIndex(virt, pageLevels-1)], nil
}

// lookupLeaf returns a pointer to the L3 entry mapping virt without
// installing anything; ok is false if any intermediate table along the way
// is missing.
func lookupLeaf(root *RootPageTable, virt uintptr) (entry *pte, ok bool) {
	frame := root.l0

	for level := 0; level < pageLevels-1; level++ {
		table := tableAt(frame)
		e := &table[pageIndex(virt, level)]
		if !e.valid() {
			return nil, false
		}
		frame = e.frame()
	}

	table := tableAt(frame)
	return &table[pageIndex(virt, pageLevels-1)], true
}

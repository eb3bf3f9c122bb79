package hal

import (
	"armcore/kernel"
	"armcore/kernel/mem/vmm"
	"armcore/kernel/sync"
)

const gicStubPending = 32

// spuriousID is the id GICv2 returns from an acknowledge read when nothing
// is pending.
const spuriousID = 1023

// StubGIC is a minimal in-memory GICv2 stand-in: a small pending-interrupt
// queue a test (or a future real ISR) feeds with Raise, masking tracked per
// interrupt id below 1020. It never touches real distributor/CPU-interface
// MMIO.
type StubGIC struct {
	mutex   sync.Spinlock
	pending [gicStubPending]uint32
	count   int
	masked  [1020]bool
}

func (g *StubGIC) Init() {}

func (g *StubGIC) MapInit(root *vmm.RootPageTable) *kernel.Error { return nil }

// Raise enqueues id as pending, as a real distributor would on an asserted
// line. Masked ids are dropped.
func (g *StubGIC) Raise(id uint32) {
	g.mutex.Acquire()
	defer g.mutex.Release()

	if int(id) < len(g.masked) && g.masked[id] {
		return
	}
	if g.count == gicStubPending {
		return
	}
	g.pending[g.count] = id
	g.count++
}

// Ack returns and dequeues the oldest pending id, in the order Raise was
// called (first-in first-out, rather than GICv2's real priority ordering,
// since the stub has no priority registers to sort by).
func (g *StubGIC) Ack() (uint32, bool) {
	g.mutex.Acquire()
	defer g.mutex.Release()

	if g.count == 0 {
		return spuriousID, false
	}
	id := g.pending[0]
	copy(g.pending[:g.count-1], g.pending[1:g.count])
	g.count--
	return id, true
}

// EndOfInterrupt is a no-op for the stub; a real GIC would write id to
// GICC_EOIR.
func (g *StubGIC) EndOfInterrupt(id uint32) {}

// Mask prevents id from being queued by future Raise calls.
func (g *StubGIC) Mask(id uint32) {
	g.mutex.Acquire()
	defer g.mutex.Release()

	if int(id) < len(g.masked) {
		g.masked[id] = true
	}
}

package hal

import (
	"armcore/kernel"
	"armcore/kernel/mem/vmm"
	"armcore/kernel/sync"
)

// NonBlock, passed to Recv/Send, returns EAGAIN instead of waiting when the
// ring is empty/full.
const NonBlock = 1 << 0

var errWouldBlock = &kernel.Error{Module: "hal", Message: "would block"}

const stubRingSize = 256

// StubUART is a minimal in-memory PL011 stand-in: an SPSC receive byte ring,
// guarded by the same acquire/release spinlock pairing a real ring buffer
// driver would use, and an unbounded, unlocked transcript of everything
// sent. It never touches real MMIO, so
// EarlyInit/MapInit/IRQInit are no-ops and ISR is driven by tests (or a
// future real driver's interrupt handler) calling Push directly.
type StubUART struct {
	mutex        sync.Spinlock
	rx           [stubRingSize]byte
	rHead, rTail int
	rCount       int
	sent         []byte
}

func (u *StubUART) EarlyInit()                                      {}
func (u *StubUART) MapInit(root *vmm.RootPageTable) *kernel.Error    { return nil }
func (u *StubUART) IRQInit()                                        {}

// ISR is a no-op for the stub; a real PL011 ISR would drain hardware FIFO
// bytes via Push. Present so StubUART satisfies the UART interface.
func (u *StubUART) ISR() {}

// Push enqueues a received byte, as a real UART's ISR would. Returns false
// if the receive ring is full (the byte is dropped, matching a real FIFO
// overrun).
func (u *StubUART) Push(b byte) bool {
	u.mutex.Acquire()
	defer u.mutex.Release()

	if u.rCount == stubRingSize {
		return false
	}
	u.rx[u.rTail] = b
	u.rTail = (u.rTail + 1) % stubRingSize
	u.rCount++
	return true
}

// Recv copies up to len(buf) received bytes. With NonBlock set, an empty
// ring returns (0, EAGAIN) rather than spinning.
//
// Without NonBlock a real driver would park the caller on an event channel
// until Push makes bytes available; the stub has no scheduler dependency to
// park against, so both paths return here immediately and a blocking-mode
// test drives Push concurrently before calling Recv.
func (u *StubUART) Recv(buf []byte, flags int) (int, *kernel.Error) {
	u.mutex.Acquire()
	n := 0
	for n < len(buf) && u.rCount > 0 {
		buf[n] = u.rx[u.rHead]
		u.rHead = (u.rHead + 1) % stubRingSize
		u.rCount--
		n++
	}
	u.mutex.Release()

	if n == 0 {
		return 0, errWouldBlock
	}
	return n, nil
}

// Send appends buf to an internal transcript the stub keeps for tests and
// always succeeds; a real PL011 would poll the TX FIFO-full bit instead.
func (u *StubUART) Send(buf []byte, flags int) (int, *kernel.Error) {
	u.sent = append(u.sent, buf...)
	return len(buf), nil
}

// Sent returns everything written via Send so far, for test assertions.
func (u *StubUART) Sent() []byte {
	return u.sent
}

package sync

import "testing"

func TestSpinlockAcquireRelease(t *testing.T) {
	var l Spinlock

	if !l.TryToAcquire() {
		t.Fatal("expected first TryToAcquire to succeed")
	}
	if l.TryToAcquire() {
		t.Fatal("expected second TryToAcquire to fail while held")
	}

	l.Release()

	if !l.TryToAcquire() {
		t.Fatal("expected TryToAcquire to succeed after Release")
	}
	l.Release()
}

func TestSpinlockAcquireBlocksUntilReleased(t *testing.T) {
	var l Spinlock
	l.Acquire()

	released := false
	archSpin = func() {
		if !released {
			l.Release()
			released = true
		}
	}
	defer func() { archSpin = func() {} }()

	l.Acquire()
	if !released {
		t.Fatal("expected Acquire to observe the release")
	}
	l.Release()
}

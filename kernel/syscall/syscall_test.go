package syscall

import (
	"armcore/kernel"
	"armcore/kernel/config"
	"armcore/kernel/errno"
	"armcore/kernel/hal"
	"armcore/kernel/mem/pmm"
	"armcore/kernel/mem/vmm"
	"testing"
	"unsafe"
)

// newTestFrameSource mirrors kernel/mem/vmm's own test helper: real,
// page-aligned, addressable memory so the direct map behind
// vmm.PhysBytes is safe to dereference inside a hosted test binary.
func newTestFrameSource(t *testing.T, pages int) vmm.FrameAllocator {
	t.Helper()
	raw := make([]byte, (pages+1)*config.PageSize)
	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (base + config.PageSize - 1) &^ (config.PageSize - 1)

	var next int
	errExhausted := &kernel.Error{Module: "synctest", Message: "frame source exhausted"}

	return func(flags pmm.AllocFlag) (pmm.Frame, *kernel.Error) {
		if next >= pages {
			return pmm.InvalidFrame, errExhausted
		}
		addr := aligned + uintptr(next*config.PageSize)
		next++
		return pmm.Frame(addr), nil
	}
}

func newMappedRoot(t *testing.T, alloc vmm.FrameAllocator, virt uintptr, pages int) *vmm.RootPageTable {
	t.Helper()
	root, err := vmm.NewRootPageTable(alloc)
	if err != nil {
		t.Fatalf("NewRootPageTable: %s", err)
	}
	for i := 0; i < pages; i++ {
		phys, _ := alloc(0)
		va := virt + uintptr(i*config.PageSize)
		if err := vmm.MapExplicit(root, va, phys.Address(), vmm.FlagWrite|vmm.FlagUser, alloc); err != nil {
			t.Fatalf("MapExplicit: %s", err)
		}
	}
	return root
}

func TestIsTTYFdAcceptsOnlyStandardStreams(t *testing.T) {
	for _, fd := range []int64{0, 1, 2} {
		if !isTTYFd(fd) {
			t.Fatalf("expected fd %d to be a tty fd", fd)
		}
	}
	if isTTYFd(3) {
		t.Fatal("expected fd 3 to not be a tty fd")
	}
	if isTTYFd(-1) {
		t.Fatal("expected fd -1 to not be a tty fd")
	}
}

func TestCopyFromUserRoundTripsAcrossPageBoundary(t *testing.T) {
	alloc := newTestFrameSource(t, 8)
	const virt = uintptr(0x1000)
	root := newMappedRoot(t, alloc, virt, 2)

	want := make([]byte, config.PageSize+16)
	for i := range want {
		want[i] = byte(i)
	}
	if n, cerr := CopyToUser(root, virt, want); cerr != 0 || n != len(want) {
		t.Fatalf("CopyToUser: n=%d cerr=%v", n, cerr)
	}

	got := make([]byte, len(want))
	if n, cerr := CopyFromUser(root, got, virt); cerr != 0 || n != len(got) {
		t.Fatalf("CopyFromUser: n=%d cerr=%v", n, cerr)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: want %d got %d", i, want[i], got[i])
		}
	}
}

func TestCopyFromUserOnUnmappedAddressReturnsEINVAL(t *testing.T) {
	alloc := newTestFrameSource(t, 4)
	root, err := vmm.NewRootPageTable(alloc)
	if err != nil {
		t.Fatalf("NewRootPageTable: %s", err)
	}

	buf := make([]byte, 8)
	n, cerr := CopyFromUser(root, buf, 0xdead_0000)
	if n != 0 {
		t.Fatalf("expected zero bytes copied; got %d", n)
	}
	if cerr != errno.EINVAL {
		t.Fatalf("expected EINVAL copying from an unmapped address; got %v", cerr)
	}
}

func TestReadRejectsNonTTYFd(t *testing.T) {
	alloc := newTestFrameSource(t, 8)
	root := newMappedRoot(t, alloc, 0x4000, 1)
	Init(&hal.StubUART{})

	if got := Read(root, 3, 0x4000, 8); got >= 0 {
		t.Fatalf("expected negative errno for non-tty fd; got %d", got)
	}
}

func TestReadCopiesReceivedBytesIntoUserBuffer(t *testing.T) {
	alloc := newTestFrameSource(t, 8)
	const virt = uintptr(0x5000)
	root := newMappedRoot(t, alloc, virt, 1)

	u := &hal.StubUART{}
	for _, b := range []byte("hi") {
		u.Push(b)
	}
	Init(u)

	n := Read(root, 0, virt, 2)
	if n != 2 {
		t.Fatalf("expected 2 bytes read; got %d", n)
	}
	got := make([]byte, 2)
	if _, cerr := CopyFromUser(root, got, virt); cerr != 0 {
		t.Fatalf("CopyFromUser: %v", cerr)
	}
	if string(got) != "hi" {
		t.Fatalf("expected \"hi\"; got %q", got)
	}
}

func TestWriteSendsUserBufferContents(t *testing.T) {
	alloc := newTestFrameSource(t, 8)
	const virt = uintptr(0x6000)
	root := newMappedRoot(t, alloc, virt, 1)

	if _, cerr := CopyToUser(root, virt, []byte("bye")); cerr != 0 {
		t.Fatalf("CopyToUser: %v", cerr)
	}

	u := &hal.StubUART{}
	Init(u)

	n := Write(root, 1, virt, 3)
	if n != 3 {
		t.Fatalf("expected 3 bytes written; got %d", n)
	}
	if string(u.Sent()) != "bye" {
		t.Fatalf("expected transcript \"bye\"; got %q", u.Sent())
	}
}

func TestWriteRejectsNonTTYFd(t *testing.T) {
	alloc := newTestFrameSource(t, 8)
	root := newMappedRoot(t, alloc, 0x7000, 1)
	Init(&hal.StubUART{})

	if got := Write(root, 7, 0x7000, 1); got >= 0 {
		t.Fatalf("expected negative errno for non-tty fd; got %d", got)
	}
}

func TestReadClampsNegativeCountToZero(t *testing.T) {
	alloc := newTestFrameSource(t, 8)
	root := newMappedRoot(t, alloc, 0x8000, 1)
	Init(&hal.StubUART{})

	if got := Read(root, 0, 0x8000, -1); got != 0 {
		t.Fatalf("expected zero bytes for negative count; got %d", got)
	}
}

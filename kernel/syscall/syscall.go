// Package syscall implements the user-facing read/write calls and the
// copy_from_user/copy_to_user primitives they sit on, translating between a
// process's virtual address space and kernel-resident bounce buffers.
package syscall

import (
	"armcore/kernel/errno"
	"armcore/kernel/hal"
	"armcore/kernel/mem/vmm"
	"armcore/kernel/trap"
)

// Number is a syscall number carried in x8.
const (
	NumberRead  int64 = 0
	NumberWrite int64 = 1
)

// ssizeMax clamps count, mirroring a 64-bit SSIZE_MAX.
const ssizeMax = 1<<63 - 1

// bounceBufferSize bounds a single read/write's kernel-resident scratch
// space; larger requests are served in multiple passes.
const bounceBufferSize = 512

var uart hal.UART

// Init records the UART implementation read/write route through. Called
// once during boot wiring.
func Init(u hal.UART) {
	uart = u
}

// isTTYFd reports whether fd names one of the three standard streams, the
// only file descriptors this core recognizes.
func isTTYFd(fd int64) bool {
	return fd == 0 || fd == 1 || fd == 2
}

// Read implements the read syscall: only fds 0/1/2 route to the UART
// receive path; anything else is -EBADF.
func Read(root *vmm.RootPageTable, fd int64, userBuf uintptr, count int64) int64 {
	if !isTTYFd(fd) {
		return int64(errno.EBADF)
	}
	if count < 0 {
		count = 0
	}
	if count > ssizeMax {
		count = ssizeMax
	}

	var bounce [bounceBufferSize]byte
	total := int64(0)
	for total < count {
		want := count - total
		if want > bounceBufferSize {
			want = bounceBufferSize
		}
		n, err := uart.Recv(bounce[:want], 0)
		if err != nil {
			if total > 0 {
				return total
			}
			return int64(errno.EIO)
		}
		if n == 0 {
			break
		}
		copied, cerr := CopyToUser(root, userBuf+uintptr(total), bounce[:n])
		total += int64(copied)
		if cerr != 0 {
			if total > 0 {
				return total
			}
			return int64(cerr)
		}
		if copied < n {
			break
		}
	}
	return total
}

// Write implements the write syscall: only fds 0/1/2 route to the UART send
// path; anything else is -EBADF.
func Write(root *vmm.RootPageTable, fd int64, userBuf uintptr, count int64) int64 {
	if !isTTYFd(fd) {
		return int64(errno.EBADF)
	}
	if count < 0 {
		count = 0
	}
	if count > ssizeMax {
		count = ssizeMax
	}

	var bounce [bounceBufferSize]byte
	total := int64(0)
	for total < count {
		want := count - total
		if want > bounceBufferSize {
			want = bounceBufferSize
		}
		n, cerr := CopyFromUser(root, bounce[:want], userBuf+uintptr(total))
		if cerr != 0 {
			if total > 0 {
				return total
			}
			return int64(cerr)
		}
		sent, err := uart.Send(bounce[:n], 0)
		total += int64(sent)
		if err != nil {
			if total > 0 {
				return total
			}
			return int64(errno.EIO)
		}
	}
	return total
}

// currentRoot resolves the calling process's root page table for the
// handlers Register installs; Register sets it from its rootFn argument
// (the scheduler's current process in a real boot). Those handlers decode
// the (fd, buf, count) argument triple out of frame.X[0:3].
var currentRoot func() *vmm.RootPageTable

// Register installs Read/Write at syscall numbers 0/1 through registerFn,
// kernel/trap.RegisterSyscall passed in to avoid importing kernel/trap's
// registration machinery directly from boot wiring twice.
func Register(registerFn func(num int64, handler trap.SyscallHandler), rootFn func() *vmm.RootPageTable) {
	currentRoot = rootFn
	registerFn(NumberRead, func(f *trap.Frame) int64 {
		return Read(currentRoot(), int64(f.X[0]), uintptr(f.X[1]), int64(f.X[2]))
	})
	registerFn(NumberWrite, func(f *trap.Frame) int64 {
		return Write(currentRoot(), int64(f.X[0]), uintptr(f.X[1]), int64(f.X[2]))
	})
}

package trap

import (
	"armcore/kernel/errno"
	"armcore/kernel/hal"
	"testing"
)

func resetDispatchTables() {
	irqHandlers = map[uint32]func(){}
	syscallTable = [maxSyscall]SyscallHandler{}
}

func TestDispatchIRQRoutesToRegisteredHandler(t *testing.T) {
	resetDispatchTables()
	var g hal.StubGIC
	Init(&g)

	var fired bool
	RegisterIRQHandler(7, func() { fired = true })
	g.Raise(7)

	DispatchIRQ(&Frame{})

	if !fired {
		t.Fatal("expected registered handler to run")
	}
}

func TestDispatchIRQOnSpuriousDoesNothing(t *testing.T) {
	resetDispatchTables()
	var g hal.StubGIC
	Init(&g)

	var fired bool
	RegisterIRQHandler(7, func() { fired = true })

	DispatchIRQ(&Frame{}) // nothing raised: Ack returns spurious

	if fired {
		t.Fatal("expected no handler to run on a spurious read")
	}
}

func TestDispatchIRQMasksUnknownID(t *testing.T) {
	resetDispatchTables()
	var g hal.StubGIC
	Init(&g)
	g.Raise(99)

	DispatchIRQ(&Frame{})

	g.Raise(99)
	if _, ok := g.Ack(); ok {
		t.Fatal("expected unknown interrupt id to be masked after dispatch")
	}
}

func TestDispatchSyscallRoutesByX8(t *testing.T) {
	resetDispatchTables()
	RegisterSyscall(1, func(f *Frame) int64 { return int64(f.X[2]) })

	frame := &Frame{}
	frame.X[8] = 1
	frame.X[2] = 42

	DispatchSyscall(frame)

	if frame.X[0] != 42 {
		t.Fatalf("expected x0 == 42; got %d", frame.X[0])
	}
}

func TestDispatchSyscallUnknownNumberReturnsENOSYS(t *testing.T) {
	resetDispatchTables()

	frame := &Frame{}
	frame.X[8] = 5

	DispatchSyscall(frame)

	if int64(frame.X[0]) != int64(errno.ENOSYS) {
		t.Fatalf("expected ENOSYS; got %d", int64(frame.X[0]))
	}
}

func TestFrameOffsetsAreFrozen(t *testing.T) {
	if offsetX != 0 {
		t.Fatalf("expected Frame.X at offset 0; got %d", offsetX)
	}
	if offsetSPEL0 != 31*8 {
		t.Fatalf("unexpected SPEL0 offset: %d", offsetSPEL0)
	}
	if offsetTTBR0 != offsetFPSR+4 {
		t.Fatalf("unexpected TTBR0 offset: %d", offsetTTBR0)
	}
}

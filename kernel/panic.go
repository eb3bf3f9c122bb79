package kernel

import "armcore/kernel/kfmt"

// haltFn is mocked by tests; otherwise it is archHalt.
var haltFn = archHalt

// archHalt stops instruction execution on the current CPU. The body lives
// in an assembly file this core does not own (see the boot-stub/driver
// out-of-scope note); on ARM64 it is a `wfi` loop.
var archHalt = func() {}

var errRuntimePanic = &Error{Module: "rt", Message: "unknown cause"}

// Panic prints the supplied error (if any) to the kernel console and halts
// the CPU. Panic never returns. Fatal kernel bugs — a double free, a
// scheduler invariant violated, a remap over a live leaf — all funnel here.
func Panic(e interface{}) {
	var err *Error

	switch t := e.(type) {
	case *Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	default:
		err = errRuntimePanic
	}

	kfmt.Printf("\n-----------------------------------\n")
	if err != nil {
		kfmt.Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	kfmt.Printf("*** kernel panic: system halted ***\n")
	kfmt.Printf("-----------------------------------\n")

	haltFn()
}

// Assert raises a Go panic carrying a module-tagged *Error if cond is
// false. It is the spelling used at every runtime-checked invariant in this
// core (double free, remap-over-live-leaf, exit-after-exit, run-twice).
// Assert uses the builtin panic rather than calling Panic directly so that
// package-level tests can recover() around the offending call; the
// top-level boot wiring in kernel/kmain is the only place that recovers
// and escalates to Panic (the unrecoverable halt).
func Assert(cond bool, module, message string) {
	if !cond {
		panic(&Error{Module: module, Message: message})
	}
}

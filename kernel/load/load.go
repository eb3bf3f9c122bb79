// Package load defines the descriptor handed to process_exec once a binary
// has been validated and its segments mapped; ELF64 parsing itself is out
// of scope for this core and lives entirely outside this package.
package load

import "armcore/kernel/mem/vmm"

// Program describes a validated, already-mapped user binary ready to run:
// the entry point to jump to, the root page table its segments were mapped
// into, and the top of its initial user stack.
type Program struct {
	Entry    uintptr
	RootPT   *vmm.RootPageTable
	StackTop uintptr
}

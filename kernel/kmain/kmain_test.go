package kmain

import (
	"armcore/kernel/config"
	"armcore/kernel/hal"
	"testing"
	"unsafe"
)

// testConfig builds a small but fully wired Config. The page table frames
// MapKernelMemory allocates get dereferenced directly through the identity
// direct map, so the RAM window must name real addressable memory rather
// than an arbitrary physical-looking constant — the same constraint
// kernel/mem/vmm's own tests work around with a real backing buffer.
func testConfig(t *testing.T) Config {
	t.Helper()
	const frames = 128
	raw := make([]byte, (frames+1)*config.PageSize)
	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (base + config.PageSize - 1) &^ (config.PageSize - 1)

	ram := config.RAMWindow{Base: aligned, End: aligned + frames*config.PageSize}

	return Config{
		RAM:           ram,
		TextBase:      ram.End,
		TextEnd:       ram.End + config.PageSize,
		UARTMMIOBase:  0x0900_0000,
		UARTMMIOSize:  config.PageSize,
		GICMMIOBase:   0x0800_0000,
		GICMMIOSize:   config.PageSize,
		BackingBitmap: make([]uint64, frames/64),
		UART:          &hal.StubUART{},
		GIC:           &hal.StubGIC{},
	}
}

func TestBootstrapCompletesWithoutPanicking(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Bootstrap panicked: %v", r)
		}
	}()
	Bootstrap(testConfig(t))
}

func TestBootstrapWithoutInitEntrySkipsProcessStart(t *testing.T) {
	cfg := testConfig(t)
	cfg.InitEntry = 0
	Bootstrap(cfg)
}

// Package kfmt provides an allocation-free Printf-subset formatter that can
// be safely used before the UART driver (and therefore any real console)
// has been brought up. Output is buffered in an internal ring buffer until
// a sink is attached via SetOutputSink.
package kfmt

import (
	"io"
	"unsafe"
)

// maxBufSize defines the buffer size used when formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	singleByte = []byte(" ")

	earlyPrintBuffer ringBuffer

	// outputSink is where Printf sends its output. When nil, output is
	// redirected to earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the target for Printf to w and flushes any output
// accumulated in the early ring buffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the currently active output sink, or nil if Printf
// output is still going to the early ring buffer.
func GetOutputSink() io.Writer {
	return outputSink
}

// Printf implements a minimal Printf that performs no heap allocations.
// Supported verbs: %s (string/[]byte), %d (base 10), %o (base 8),
// %x (base 16, lower-case), %t (bool), %c (byte).
func Printf(format string, args ...interface{}) (int, error) {
	return Fprintf(sinkOrBuffer(), format, args...)
}

func sinkOrBuffer() io.Writer {
	if outputSink != nil {
		return outputSink
	}
	return &earlyPrintBuffer
}

// Fprintf behaves like Printf but writes to the supplied writer.
func Fprintf(w io.Writer, format string, args ...interface{}) (int, error) {
	var (
		argIndex int
		written  int
	)

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			n, _ := doWrite(w, stringToBytes(format[i:i+1]))
			written += n
			continue
		}

		i++
		if i >= len(format) {
			n, _ := doWrite(w, errNoVerb)
			written += n
			break
		}

		if argIndex >= len(args) {
			n, _ := doWrite(w, errMissingArg)
			written += n
			continue
		}

		n, ok := formatArg(w, format[i], args[argIndex])
		written += n
		if !ok {
			written += mustWrite(w, errWrongArgType)
		}
		argIndex++
	}

	if argIndex < len(args) {
		written += mustWrite(w, errExtraArg)
	}

	return written, nil
}

func mustWrite(w io.Writer, p []byte) int {
	n, _ := doWrite(w, p)
	return n
}

func doWrite(w io.Writer, p []byte) (int, error) {
	return w.Write(p)
}

func formatArg(w io.Writer, verb byte, arg interface{}) (int, bool) {
	switch verb {
	case 's':
		switch v := arg.(type) {
		case string:
			n, _ := doWrite(w, stringToBytes(v))
			return n, true
		case []byte:
			n, _ := doWrite(w, v)
			return n, true
		default:
			return 0, false
		}
	case 'c':
		switch v := arg.(type) {
		case byte:
			singleByte[0] = v
			n, _ := doWrite(w, singleByte)
			return n, true
		case rune:
			singleByte[0] = byte(v)
			n, _ := doWrite(w, singleByte)
			return n, true
		default:
			return 0, false
		}
	case 't':
		b, ok := arg.(bool)
		if !ok {
			return 0, false
		}
		if b {
			n, _ := doWrite(w, trueValue)
			return n, true
		}
		n, _ := doWrite(w, falseValue)
		return n, true
	case 'd':
		return formatInt(w, arg, 10, false)
	case 'o':
		return formatInt(w, arg, 8, false)
	case 'x':
		return formatInt(w, arg, 16, false)
	default:
		return 0, false
	}
}

func formatInt(w io.Writer, arg interface{}, base uint64, _ bool) (int, bool) {
	u, neg, ok := toUint64(arg)
	if !ok {
		return 0, false
	}

	var buf [maxBufSize]byte
	pos := len(buf)
	if u == 0 {
		pos--
		buf[pos] = '0'
	}
	for u > 0 {
		d := u % base
		u /= base
		pos--
		if d < 10 {
			buf[pos] = '0' + byte(d)
		} else {
			buf[pos] = 'a' + byte(d-10)
		}
	}
	if neg {
		pos--
		buf[pos] = '-'
	}

	n, _ := doWrite(w, buf[pos:])
	return n, true
}

func toUint64(arg interface{}) (val uint64, neg bool, ok bool) {
	switch v := arg.(type) {
	case int:
		return signedToU(int64(v))
	case int8:
		return signedToU(int64(v))
	case int16:
		return signedToU(int64(v))
	case int32:
		return signedToU(int64(v))
	case int64:
		return signedToU(v)
	case uint:
		return uint64(v), false, true
	case uint8:
		return uint64(v), false, true
	case uint16:
		return uint64(v), false, true
	case uint32:
		return uint64(v), false, true
	case uint64:
		return v, false, true
	case uintptr:
		return uint64(v), false, true
	default:
		return 0, false, false
	}
}

func signedToU(v int64) (uint64, bool, bool) {
	if v < 0 {
		return uint64(-v), true, true
	}
	return uint64(v), false, true
}

// stringToBytes performs a zero-copy conversion of s to a byte slice. It is
// safe here because the returned slice is only ever read, never retained
// past the call to Write.
func stringToBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

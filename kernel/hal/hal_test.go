package hal

import "testing"

func TestStubUARTRecvReturnsPushedBytes(t *testing.T) {
	var u StubUART
	for _, b := range []byte("hi") {
		if !u.Push(b) {
			t.Fatal("expected Push to succeed on an empty ring")
		}
	}

	buf := make([]byte, 4)
	n, err := u.Recv(buf, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if string(buf[:n]) != "hi" {
		t.Fatalf("expected %q; got %q", "hi", buf[:n])
	}
}

func TestStubUARTRecvOnEmptyRingReturnsWouldBlock(t *testing.T) {
	var u StubUART
	buf := make([]byte, 4)
	if _, err := u.Recv(buf, NonBlock); err != errWouldBlock {
		t.Fatalf("expected errWouldBlock; got %v", err)
	}
}

func TestStubUARTPushFailsWhenRingFull(t *testing.T) {
	var u StubUART
	for i := 0; i < stubRingSize; i++ {
		if !u.Push(byte(i)) {
			t.Fatalf("push %d: expected success", i)
		}
	}
	if u.Push(0xff) {
		t.Fatal("expected push to fail once the ring is full")
	}
}

func TestStubUARTSendRecordsTranscript(t *testing.T) {
	var u StubUART
	n, err := u.Send([]byte("out"), 0)
	if err != nil || n != 3 {
		t.Fatalf("unexpected Send result: %d, %v", n, err)
	}
	if string(u.Sent()) != "out" {
		t.Fatalf("expected transcript %q; got %q", "out", u.Sent())
	}
}

func TestStubGICAckReturnsInFIFOOrder(t *testing.T) {
	var g StubGIC
	g.Raise(5)
	g.Raise(9)

	id, ok := g.Ack()
	if !ok || id != 5 {
		t.Fatalf("expected first ack to return id 5; got %d, %v", id, ok)
	}
	id, ok = g.Ack()
	if !ok || id != 9 {
		t.Fatalf("expected second ack to return id 9; got %d, %v", id, ok)
	}
}

func TestStubGICAckOnEmptyQueueReturnsSpurious(t *testing.T) {
	var g StubGIC
	id, ok := g.Ack()
	if ok {
		t.Fatal("expected no interrupt pending")
	}
	if id != spuriousID {
		t.Fatalf("expected spurious id %d; got %d", spuriousID, id)
	}
}

func TestStubGICMaskDropsFutureRaises(t *testing.T) {
	var g StubGIC
	g.Mask(3)
	g.Raise(3)

	if _, ok := g.Ack(); ok {
		t.Fatal("expected masked interrupt to be dropped")
	}
}

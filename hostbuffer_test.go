package vkc

import (
	"errors"
	"testing"
)

// newTestBuffer builds a HostBuffer backed by plain host memory, enough for
// exercising the in-flight gating without a device.
func newTestBuffer(size int) *HostBuffer {
	return &HostBuffer{
		Buffer: Buffer{Size: uint64(size)},
		mapped: make([]byte, size),
	}
}

func TestHostBufferWriteRead(t *testing.T) {
	b := newTestBuffer(8)

	if err := b.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	view, err := b.Acquire()
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if got := view.Bytes(); got[0] != 1 || got[3] != 4 {
		t.Errorf("unexpected view contents %v", got[:4])
	}
	view.Release()

	if view.Bytes() != nil {
		t.Error("released view should expose no bytes")
	}
}

func TestHostBufferWriteTooLarge(t *testing.T) {
	b := newTestBuffer(4)
	if err := b.Write(make([]byte, 8)); err == nil {
		t.Error("oversized write should fail")
	}
}

func TestHostBufferInFlightGating(t *testing.T) {
	b := newTestBuffer(8)

	writer := &Completion{resources: []*HostBuffer{b}}
	b.setLastWriter(writer)

	if _, err := b.Acquire(); !errors.Is(err, ErrBufferInFlight) {
		t.Errorf("acquire while in flight: got %v, want ErrBufferInFlight", err)
	}
	if err := b.Write([]byte{1}); !errors.Is(err, ErrBufferInFlight) {
		t.Errorf("write while in flight: got %v, want ErrBufferInFlight", err)
	}

	writer.markSignaled()

	if !writer.Signaled() {
		t.Fatal("completion should report signaled")
	}
	if _, err := b.Acquire(); err != nil {
		t.Errorf("acquire after signal: %v", err)
	}
}

func TestHostBufferWriteBlockedByView(t *testing.T) {
	b := newTestBuffer(8)

	view, err := b.Acquire()
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	if err := b.Write([]byte{1}); !errors.Is(err, ErrBufferInFlight) {
		t.Errorf("write with outstanding view: got %v, want ErrBufferInFlight", err)
	}

	view.Release()
	view.Release() // double release is a no-op

	if err := b.Write([]byte{1}); err != nil {
		t.Errorf("write after release: %v", err)
	}
}

func TestCompletionSignalClearsLastWriter(t *testing.T) {
	b := newTestBuffer(4)

	writer := &Completion{resources: []*HostBuffer{b}}
	b.setLastWriter(writer)

	if !b.pending() {
		t.Fatal("buffer should be pending before signal")
	}

	writer.markSignaled()

	if b.pending() {
		t.Error("buffer should not be pending after signal")
	}
	if b.lastWriter != nil {
		t.Error("last writer should be cleared on signal")
	}
}

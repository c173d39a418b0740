package vkc

import (
	"errors"
	"testing"
)

// Validation failures are detected at record time and surface from Finish
// before any device work happens, so these tests need no device.

func testRecorder() *Recorder {
	return (&Context{}).Record()
}

func TestRecorderCopySizeMismatch(t *testing.T) {
	src := newTestBuffer(64)
	dst := newTestBuffer(32)

	_, err := testRecorder().CopyBuffer(src, dst).Finish()
	if err == nil {
		t.Fatal("mismatched copy sizes should fail")
	}
}

func TestRecorderDrawOutsidePass(t *testing.T) {
	_, err := testRecorder().
		Draw(&GraphicsPipeline{}, newTestBuffer(24), 3).
		Finish()
	if err == nil {
		t.Fatal("draw outside a render pass should fail")
	}
}

func TestRecorderEndWithoutBegin(t *testing.T) {
	_, err := testRecorder().EndRenderPass().Finish()
	if err == nil {
		t.Fatal("end without begin should fail")
	}
}

func TestRecorderDoubleBegin(t *testing.T) {
	target := &RenderTarget{Image: &DeviceImage{}}

	_, err := testRecorder().
		BeginRenderPass(target, [4]float32{}).
		BeginRenderPass(target, [4]float32{}).
		Finish()
	if err == nil {
		t.Fatal("nested render passes should fail")
	}
}

func TestRecorderUnbalancedPassAtFinish(t *testing.T) {
	target := &RenderTarget{Image: &DeviceImage{}}

	_, err := testRecorder().
		BeginRenderPass(target, [4]float32{}).
		Finish()
	if err == nil {
		t.Fatal("unclosed render pass at finish should fail")
	}
}

func TestRecorderCopyInsidePass(t *testing.T) {
	target := &RenderTarget{Image: &DeviceImage{Width: 4, Height: 4}}
	dst := newTestBuffer(64)

	_, err := testRecorder().
		BeginRenderPass(target, [4]float32{}).
		CopyTargetToBuffer(target, dst).
		Finish()
	if err == nil {
		t.Fatal("image copy inside an open render pass should fail")
	}
}

func TestRecorderImageCopyDestTooSmall(t *testing.T) {
	img := &DeviceImage{Width: 8, Height: 8}
	dst := newTestBuffer(16)

	_, err := testRecorder().CopyImageToBuffer(img, dst).Finish()
	if err == nil {
		t.Fatal("undersized readback buffer should fail")
	}
}

func TestRecorderFirstErrorSticks(t *testing.T) {
	src := newTestBuffer(64)
	dst := newTestBuffer(32)

	r := testRecorder().
		CopyBuffer(src, dst). // size mismatch, first error
		EndRenderPass()       // would be a different error

	_, err := r.Finish()
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrRecorderFinished) {
		t.Error("first error should not be masked")
	}
}

func TestRecorderDoubleFinish(t *testing.T) {
	r := testRecorder().EndRenderPass()

	if _, err := r.Finish(); err == nil {
		t.Fatal("expected validation error from first finish")
	}
	if _, err := r.Finish(); !errors.Is(err, ErrRecorderFinished) {
		t.Errorf("second finish: got %v, want ErrRecorderFinished", err)
	}
}

func TestRecorderFailedFinishKeepsBuffersUnstamped(t *testing.T) {
	src := newTestBuffer(64)
	dst := newTestBuffer(32)

	_, err := testRecorder().CopyBuffer(src, dst).Finish()
	if err == nil {
		t.Fatal("expected an error")
	}
	if dst.pending() {
		t.Error("failed recording must not mark buffers in flight")
	}
}

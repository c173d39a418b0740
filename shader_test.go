package vkc

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestShaderStageNames(t *testing.T) {
	cases := []struct {
		stage ShaderStage
		name  string
		vks   vk.ShaderStageFlagBits
	}{
		{StageCompute, "compute", vk.ShaderStageComputeBit},
		{StageVertex, "vertex", vk.ShaderStageVertexBit},
		{StageFragment, "fragment", vk.ShaderStageFragmentBit},
	}

	for _, c := range cases {
		if c.stage.String() != c.name {
			t.Errorf("stage %d: got %q, want %q", c.stage, c.stage.String(), c.name)
		}
		if c.stage.VKShaderStage() != c.vks {
			t.Errorf("stage %s: wrong Vulkan stage bit", c.name)
		}
	}
}

func TestCompileShaderMissingFile(t *testing.T) {
	_, err := CompileShader(filepath.Join(t.TempDir(), "nope.comp"), StageCompute)
	if !errors.Is(err, ErrShaderCompile) {
		t.Errorf("got %v, want ErrShaderCompile", err)
	}
}

func TestCompileShaderSpvPassThrough(t *testing.T) {
	// arbitrary bytes; .spv files load without invoking a compiler
	code := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

	path := filepath.Join(t.TempDir(), "prebuilt.spv")
	if err := os.WriteFile(path, code, 0o644); err != nil {
		t.Fatal(err)
	}

	prog, err := CompileShader(path, StageCompute)
	if err != nil {
		t.Fatalf("loading .spv: %v", err)
	}
	if prog.Stage != StageCompute {
		t.Errorf("got stage %v, want compute", prog.Stage)
	}
	if !bytes.Equal(prog.Code, code) {
		t.Error("loaded code differs from file contents")
	}
}

func TestCompileShaderMissingSpv(t *testing.T) {
	_, err := CompileShader(filepath.Join(t.TempDir(), "nope.spv"), StageCompute)
	if !errors.Is(err, ErrShaderCompile) {
		t.Errorf("got %v, want ErrShaderCompile", err)
	}
}

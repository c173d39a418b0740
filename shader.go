package vkc

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// ShaderStage declares what kind of shader a source file contains.
type ShaderStage int

const (
	StageCompute ShaderStage = iota
	StageVertex
	StageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case StageCompute:
		return "compute"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return "unknown"
}

func (s ShaderStage) VKShaderStage() vk.ShaderStageFlagBits {
	switch s {
	case StageVertex:
		return vk.ShaderStageVertexBit
	case StageFragment:
		return vk.ShaderStageFragmentBit
	default:
		return vk.ShaderStageComputeBit
	}
}

// glslangStage is the -S argument glslangValidator expects.
func (s ShaderStage) glslangStage() string {
	switch s {
	case StageVertex:
		return "vert"
	case StageFragment:
		return "frag"
	default:
		return "comp"
	}
}

// ShaderProgram is a compiled, device-loadable SPIR-V program.
type ShaderProgram struct {
	Stage ShaderStage
	Code  []byte
}

// CompileShader produces a ShaderProgram from a shader file. Files ending in
// .spv are loaded as precompiled SPIR-V; anything else is handed to an
// external compiler (glslc, or glslangValidator as a fallback) found on PATH.
// Failures wrap ErrShaderCompile.
func CompileShader(path string, stage ShaderStage) (*ShaderProgram, error) {
	if filepath.Ext(path) == ".spv" {
		code, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrShaderCompile, err)
		}
		return &ShaderProgram{Stage: stage, Code: code}, nil
	}

	out, err := os.CreateTemp("", "vkc-*.spv")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShaderCompile, err)
	}
	out.Close()
	defer os.Remove(out.Name())

	var cmd *exec.Cmd
	switch {
	case haveBinary("glslc"):
		cmd = exec.Command("glslc", "-fshader-stage="+stage.String(), "-o", out.Name(), path)
	case haveBinary("glslangValidator"):
		cmd = exec.Command("glslangValidator", "-V", "-S", stage.glslangStage(), "-o", out.Name(), path)
	default:
		return nil, fmt.Errorf("%w: no shader compiler found on PATH (need glslc or glslangValidator)", ErrShaderCompile)
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrShaderCompile, err, strings.TrimSpace(string(output)))
	}

	code, err := os.ReadFile(out.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShaderCompile, err)
	}
	return &ShaderProgram{Stage: stage, Code: code}, nil
}

func haveBinary(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// ShaderModule is a shader program loaded into a device.
type ShaderModule struct {
	Device         *Device
	Stage          ShaderStage
	VKShaderModule vk.ShaderModule
}

// LoadShaderModule loads compiled SPIR-V into the device.
func (d *Device) LoadShaderModule(prog *ShaderProgram) (*ShaderModule, error) {
	var module vk.ShaderModule
	err := vk.Error(vk.CreateShaderModule(d.VKDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(prog.Code)),
		PCode:    sliceUint32(prog.Code),
	}, nil, &module))
	if err != nil {
		return nil, err
	}

	return &ShaderModule{Device: d, Stage: prog.Stage, VKShaderModule: module}, nil
}

// LoadShaderModuleFromFile compiles (if needed) and loads a shader file.
func (d *Device) LoadShaderModuleFromFile(file string, stage ShaderStage) (*ShaderModule, error) {
	prog, err := CompileShader(file, stage)
	if err != nil {
		return nil, err
	}
	return d.LoadShaderModule(prog)
}

func (s *ShaderModule) VKPipelineShaderStageCreateInfo(entryPoint string) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  s.Stage.VKShaderStage(),
		Module: s.VKShaderModule,
		PName:  safeString(entryPoint),
	}
}

func (s *ShaderModule) Destroy() {
	vk.DestroyShaderModule(s.Device.VKDevice, s.VKShaderModule, nil)
}

func sliceUint32(data []byte) []uint32 {
	const m = 0x7fffffff
	return (*[m / 4]uint32)(unsafe.Pointer((*sliceHeader)(unsafe.Pointer(&data)).Data))[:len(data)/4]
}

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

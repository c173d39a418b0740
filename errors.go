package vkc

import "errors"

// Sentinel errors for every phase boundary. Callers match them with errors.Is;
// wrapped chains carry the underlying Vulkan result or collaborator output.
var (
	// ErrNoDeviceAvailable indicates the loader could not be initialized or
	// no physical device was enumerated.
	ErrNoDeviceAvailable = errors.New("no device available")

	// ErrNoSuitableQueueFamily indicates the selected device exposes no queue
	// family with the requested capability class.
	ErrNoSuitableQueueFamily = errors.New("no suitable queue family")

	// ErrAllocationFailed indicates a buffer, image or memory allocation
	// failed, including pool exhaustion.
	ErrAllocationFailed = errors.New("allocation failed")

	// ErrShaderCompile indicates the external shader compiler rejected a
	// source file or could not be found.
	ErrShaderCompile = errors.New("shader compilation failed")

	// ErrPipelineBuild indicates pipeline or pipeline-layout construction
	// failed.
	ErrPipelineBuild = errors.New("pipeline build failed")

	// ErrSubmissionFailed indicates queue submission failed, or a command
	// buffer was submitted twice.
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrWaitTimeout indicates Completion.Wait expired before the device
	// signaled.
	ErrWaitTimeout = errors.New("wait timed out")

	// ErrBufferInFlight indicates a host read or write was attempted on a
	// buffer whose last device writer has not signaled, or a write while a
	// read view is still acquired.
	ErrBufferInFlight = errors.New("buffer has pending device work")

	// ErrRecorderFinished indicates an operation was recorded into an already
	// finished recorder.
	ErrRecorderFinished = errors.New("recorder already finished")

	// ErrEncode indicates image encoding failed.
	ErrEncode = errors.New("image encode failed")
)

// Package device selects the compute device for GPU-accelerated work. The
// capability probe runs once at startup; selection is then a pure function
// of the probed capabilities and an optional override.
package device

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/fclairamb/expkit/internal/apperrors"
)

// Device is a compute device identifier.
type Device string

const (
	// CPU is plain CPU execution.
	CPU Device = "cpu"
	// CUDA is an NVIDIA GPU.
	CUDA Device = "cuda"
	// MPS is Apple Metal Performance Shaders.
	MPS Device = "mps"
)

// nvidiaProcPath exists on Linux hosts with the NVIDIA driver loaded.
const nvidiaProcPath = "/proc/driver/nvidia/version"

// Parse validates a device name.
func Parse(s string) (Device, error) {
	switch Device(s) {
	case CPU, CUDA, MPS:
		return Device(s), nil
	default:
		return "", fmt.Errorf("%w: %q (expected cpu, cuda or mps)", apperrors.ErrInvalidDevice, s)
	}
}

// Capabilities describes which accelerators the host offers.
type Capabilities struct {
	CUDA bool
	MPS  bool
}

// Probe inspects the host once and reports its accelerator capabilities.
// CUDA is detected through the NVIDIA driver proc entry or an nvidia-smi
// binary on PATH; MPS through an Apple Silicon build target.
func Probe() Capabilities {
	caps := Capabilities{
		MPS: runtime.GOOS == "darwin" && runtime.GOARCH == "arm64",
	}

	if _, err := os.Stat(nvidiaProcPath); err == nil {
		caps.CUDA = true
	} else if _, err := exec.LookPath("nvidia-smi"); err == nil {
		caps.CUDA = true
	}

	return caps
}

// Select returns the device to use. A non-empty override wins after
// validation; otherwise the best available device is picked, preferring
// MPS, then CUDA, then CPU.
func (c Capabilities) Select(override string) (Device, error) {
	if override != "" {
		return Parse(override)
	}

	switch {
	case c.MPS:
		return MPS, nil
	case c.CUDA:
		return CUDA, nil
	default:
		return CPU, nil
	}
}

// Best probes the host and returns the best available device.
func Best() Device {
	d, _ := Probe().Select("")
	return d
}

// pkg/platform/detect.go
package platform

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Platform represents the detected system platform
type Platform struct {
	OS            string // linux, freebsd, darwin
	Arch          string // Go architecture name
	Machine       string // Kernel machine name, e.g. x86_64
	LibDir        string // /lib or /lib64
	Python        string // Interpreter used for the module search path
	PythonVersion string // X.Y, "" when the interpreter is missing
}

// Detect detects the current platform. python names the interpreter to
// query; a missing interpreter is not an error here, Resolve decides
// whether it matters.
func Detect(ctx context.Context, python string, runner Runner) (*Platform, error) {
	p := &Platform{
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Machine: machine(),
		Python:  python,
	}

	switch p.OS {
	case "windows", "plan9", "js", "wasip1":
		return nil, fmt.Errorf("unsupported operating system: %s", p.OS)
	}

	p.LibDir = LibDirFor(p.Machine)

	if python != "" && runner != nil {
		version, err := PythonVersion(ctx, runner, python)
		if err == nil {
			p.PythonVersion = version
		}
	}

	return p, nil
}

// machine reports the kernel machine name, falling back to the Go
// architecture when uname is unavailable.
func machine() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return runtime.GOARCH
	}
	if m := unix.ByteSliceToString(u.Machine[:]); m != "" {
		return m
	}
	return runtime.GOARCH
}

// String returns a string representation of the platform
func (p *Platform) String() string {
	python := p.PythonVersion
	if python == "" {
		python = "not found"
	}
	return fmt.Sprintf("%s/%s (machine: %s, libdir: %s, %s: %s)",
		p.OS, p.Arch, p.Machine, p.LibDir, p.Python, python)
}

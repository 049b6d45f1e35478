// pkg/platform/python.go
package platform

import (
	"context"
	"fmt"
	"os/exec"
	"path"
	"regexp"
	"strings"
)

// Runner runs a command and returns its standard output
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Output implements Runner
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, err
	}
	return exec.CommandContext(ctx, bin, args...).Output()
}

const versionScript = `import sys; print("%d.%d" % sys.version_info[:2])`

var versionRe = regexp.MustCompile(`^\d+\.\d+$`)

// PythonVersion asks python for its X.Y version
func PythonVersion(ctx context.Context, runner Runner, python string) (string, error) {
	out, err := runner.Output(ctx, python, "-c", versionScript)
	if err != nil {
		return "", fmt.Errorf("running %s: %w", python, err)
	}
	version := strings.TrimSpace(string(out))
	if !versionRe.MatchString(version) {
		return "", fmt.Errorf("unexpected version output from %s: %q", python, version)
	}
	return version, nil
}

// SitePackages is the installed module search directory for a Python X.Y
// under prefix and libdir, e.g. /usr/lib64/python3.11/site-packages
func SitePackages(prefix, libDir, version string) string {
	return path.Join(prefix, libDir, "python"+version, "site-packages")
}

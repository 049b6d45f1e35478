// pkg/platform/libdir.go
package platform

import (
	"slices"
	"strings"

	"github.com/arc-language/layinstall/pkg/core"
)

// 64-bit machines install libraries under lib64, the Fedora/openSUSE
// convention.
var machines64 = []string{
	"x86_64", "amd64",
	"aarch64", "arm64",
	"ppc64", "ppc64le",
	"s390x",
	"riscv64",
	"mips64", "mips64le",
	"loong64", "loongarch64",
	"sparc64",
}

// LibDirFor maps a machine name (uname or GOARCH) to the library directory
func LibDirFor(machine string) string {
	if slices.Contains(machines64, strings.ToLower(machine)) {
		return core.LibDir64
	}
	return core.LibDir32
}

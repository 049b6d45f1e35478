// pkg/core/constants.go
package core

const (
	// DefaultProduct names the installed share/lib subdirectories
	DefaultProduct = "panda3d"

	// DefaultPrefix is the installation prefix
	DefaultPrefix = "/usr"

	// DefaultOutputDir is where the build leaves its output tree
	DefaultOutputDir = "built"

	// DefaultPython is the interpreter asked for its version
	DefaultPython = "python3"

	// LibDir32 and LibDir64 are the only accepted library directory names
	LibDir32 = "/lib"
	LibDir64 = "/lib64"
)

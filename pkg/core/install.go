// pkg/core/install.go
package core

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// InstallConfig is the fully resolved input of one install run. Library dir
// and module search path are resolved once by the caller.
type InstallConfig struct {
	Product      string // Share/lib subdirectory name
	DestRoot     string // Staging root, "" means /
	Prefix       string // Always starts with /
	OutputDir    string // Build output tree
	SourceDir    string // Source tree holding direct/src, doc/, samples/
	LibDir       string // LibDir32 or LibDir64
	SitePackages string // Installed module search directory (absolute, unstaged)
	Cleanup      CleanupConfig
}

// NormalizePrefix prepends "/" when missing. Already absolute prefixes are
// returned unchanged.
func NormalizePrefix(prefix string) string {
	if !strings.HasPrefix(prefix, "/") {
		return "/" + prefix
	}
	return prefix
}

// NormalizeDestRoot strips trailing separators. A root of "/" collapses to "".
func NormalizeDestRoot(destRoot string) string {
	return strings.TrimRight(destRoot, "/")
}

// Normalize applies the prefix and destination root invariants and checks
// the injected platform values.
func (c *InstallConfig) Normalize() error {
	if c.Product == "" {
		c.Product = DefaultProduct
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.SourceDir == "" {
		c.SourceDir = "."
	}
	c.Prefix = NormalizePrefix(c.Prefix)
	c.DestRoot = NormalizeDestRoot(c.DestRoot)

	if c.LibDir != LibDir32 && c.LibDir != LibDir64 {
		return PreconditionError("validate", "lib_dir", fmt.Errorf("unsupported library directory %q", c.LibDir))
	}
	if c.SitePackages == "" {
		return PreconditionError("validate", "site_packages", errors.New("module search path not resolved"))
	}
	if !path.IsAbs(c.SitePackages) {
		return PreconditionError("validate", "site_packages", fmt.Errorf("%q is not absolute", c.SitePackages))
	}
	if strings.ContainsRune(c.Product, '/') {
		return PreconditionError("validate", "product", fmt.Errorf("%q contains a separator", c.Product))
	}
	return nil
}

// Staged maps an installed absolute path to where it is written, by plain
// string prefixing with the destination root.
func (c *InstallConfig) Staged(installed string) string {
	return c.DestRoot + path.Clean(installed)
}

// ShareDir is the installed share directory, e.g. /usr/share/panda3d
func (c *InstallConfig) ShareDir() string {
	return path.Join(c.Prefix, "share", c.Product)
}

// LibraryDir is the installed library directory, e.g. /usr/lib64/panda3d
func (c *InstallConfig) LibraryDir() string {
	return path.Join(c.Prefix+c.LibDir, c.Product)
}

// IncludeDir is the installed header directory, e.g. /usr/include/panda3d
func (c *InstallConfig) IncludeDir() string {
	return path.Join(c.Prefix, "include", c.Product)
}

// OutputPath joins rel onto the build output tree
func (c *InstallConfig) OutputPath(rel ...string) string {
	return filepath.Join(append([]string{c.OutputDir}, rel...)...)
}

// SourcePath joins rel onto the source tree
func (c *InstallConfig) SourcePath(rel ...string) string {
	return filepath.Join(append([]string{c.SourceDir}, rel...)...)
}

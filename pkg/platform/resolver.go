// pkg/platform/resolver.go
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/arc-language/layinstall/pkg/core"
)

// Resolve turns a file config and the detected platform into a complete
// InstallConfig. When config names a different interpreter than the one
// platform was detected with, runner is asked for its version.
func Resolve(ctx context.Context, config *core.Config, platform *Platform, runner Runner) (*core.InstallConfig, error) {
	// Priority:
	// 1. Value set in config (file or flags)
	// 2. Detected platform value
	libDir := config.LibDir
	if libDir == "" {
		libDir = platform.LibDir
	}

	prefix := core.NormalizePrefix(config.Prefix)

	site := config.SitePackages
	if site == "" {
		version := platform.PythonVersion
		// The detected version belongs to platform.Python only
		if config.Python != "" && config.Python != platform.Python {
			if runner == nil {
				return nil, core.PreconditionError("resolve", "site_packages",
					fmt.Errorf("platform was detected for %q, not %q", platform.Python, config.Python))
			}
			v, err := PythonVersion(ctx, runner, config.Python)
			if err != nil {
				return nil, core.PreconditionError("resolve", "site_packages", err)
			}
			version = v
		}
		if version == "" {
			return nil, core.PreconditionError("resolve", "site_packages",
				errors.New("no python interpreter found; set site_packages"))
		}
		site = SitePackages(prefix, libDir, version)
	}

	ic := &core.InstallConfig{
		Product:      config.Product,
		DestRoot:     config.DestRoot,
		Prefix:       prefix,
		OutputDir:    config.OutputDir,
		SourceDir:    config.SourceDir,
		LibDir:       libDir,
		SitePackages: site,
		Cleanup:      config.Cleanup,
	}
	if err := ic.Normalize(); err != nil {
		return nil, err
	}
	return ic, nil
}

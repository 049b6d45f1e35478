// layinstall.go
package layinstall

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/arc-language/layinstall/pkg/core"
	"github.com/arc-language/layinstall/pkg/layout"
	"github.com/arc-language/layinstall/pkg/platform"
	"github.com/arc-language/layinstall/pkg/source"
)

// Re-export core types for convenience
type (
	Config        = core.InstallConfig
	FileConfig    = core.Config
	CleanupConfig = core.CleanupConfig
	Plan          = layout.Plan
	Report        = layout.Report
	PathRule      = layout.PathRule
	ConfigRewrite = layout.ConfigRewrite
	CleanupRule   = layout.CleanupRule
)

// Re-export library directory names
const (
	LibDir32 = core.LibDir32
	LibDir64 = core.LibDir64
)

// DefaultCleanup returns the stock cleanup lists
func DefaultCleanup() CleanupConfig {
	return core.DefaultCleanup()
}

// Option configures Install
type Option func(*options)

type options struct {
	fs        afero.Fs
	logger    *log.Logger
	tempDir   string
	sourceRef string
}

// WithFs installs onto fsys instead of the OS filesystem
func WithFs(fsys afero.Fs) Option {
	return func(o *options) { o.fs = fsys }
}

// WithLogger sets the logger for progress output
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTempDir sets where packed build outputs are unpacked
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// WithSourceRef sets the branch or tag cloned when cfg.SourceDir is a git URL
func WithSourceRef(ref string) Option {
	return func(o *options) { o.sourceRef = ref }
}

// NewPlan builds the install plan for cfg without touching any filesystem
func NewPlan(cfg *Config) (*Plan, error) {
	return layout.NewPlan(cfg)
}

// Resolve fills in the library directory and module search path of a file
// config from the running system.
func Resolve(ctx context.Context, cfg *FileConfig) (*Config, error) {
	runner := platform.ExecRunner{}
	plat, err := platform.Detect(ctx, cfg.Python, runner)
	if err != nil {
		return nil, err
	}
	return platform.Resolve(ctx, cfg, plat, runner)
}

// Install installs the build output named by cfg.OutputDir, which may be a
// directory or a packed tree. A git URL in cfg.SourceDir is cloned first;
// clones live on the OS filesystem, so they need the default fs. On failure
// the partial report is returned with the error; nothing is rolled back.
func Install(ctx context.Context, cfg *Config, opts ...Option) (*Report, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}

	resolved := *cfg
	if err := resolved.Normalize(); err != nil {
		return nil, err
	}
	if err := platform.CheckDestRoot(o.fs, resolved.DestRoot); err != nil {
		return nil, err
	}

	src, err := source.Open(ctx, o.fs, resolved.OutputDir, &source.Config{TempDir: o.tempDir, Logger: o.logger})
	if err != nil {
		return nil, err
	}
	defer src.Close()
	resolved.OutputDir = src.Dir

	if source.IsRemote(resolved.SourceDir) {
		if _, ok := o.fs.(*afero.OsFs); !ok {
			return nil, core.PreconditionError("clone", resolved.SourceDir, errors.New("remote source trees need the OS filesystem"))
		}
		tree, err := source.Checkout(ctx, resolved.SourceDir, o.sourceRef, &source.Config{TempDir: o.tempDir, Logger: o.logger})
		if err != nil {
			return nil, err
		}
		defer tree.Close()
		resolved.SourceDir = tree.Dir
	}

	o.logger.Info("installing", "product", resolved.Product, "prefix", resolved.Prefix, "destdir", resolved.DestRoot, "libdir", resolved.LibDir)
	return layout.NewInstaller(o.fs, &resolved, o.logger).Install(ctx)
}

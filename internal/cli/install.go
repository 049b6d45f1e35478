// internal/cli/install.go
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arc-language/layinstall"
	"github.com/arc-language/layinstall/pkg/core"
	"github.com/arc-language/layinstall/pkg/layout"
	"github.com/arc-language/layinstall/pkg/platform"
)

// installFlags override config file values when set
type installFlags struct {
	product      string
	prefix       string
	destDir      string
	outputDir    string
	sourceDir    string
	libDir       string
	sitePackages string
	python       string
	sourceRef    string
	tempDir      string
	dryRun       bool
}

func (f *installFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.product, "product", "", "product name used for share/ and lib/ subdirectories")
	fs.StringVar(&f.prefix, "prefix", "", "installation prefix (default /usr)")
	fs.StringVar(&f.destDir, "destdir", "", "staging root prepended to every path (default $DESTDIR)")
	fs.StringVar(&f.outputDir, "output-dir", "", "build output tree, directory or archive (default built)")
	fs.StringVar(&f.sourceDir, "source-dir", "", "source tree holding direct/src, doc and samples (default .)")
	fs.StringVar(&f.libDir, "libdir", "", "library directory name, /lib or /lib64 (default detected)")
	fs.StringVar(&f.sitePackages, "site-packages", "", "installed Python module search directory (default asked from --python)")
	fs.StringVar(&f.python, "python", "", "Python interpreter to query (default python3)")
}

// apply copies set flags over cfg. DESTDIR is used when --destdir is not
// given.
func (f *installFlags) apply(flags *pflag.FlagSet, cfg *core.Config) {
	set := func(name string, dst *string, val string) {
		if flags.Changed(name) {
			*dst = val
		}
	}
	set("product", &cfg.Product, f.product)
	set("prefix", &cfg.Prefix, f.prefix)
	set("output-dir", &cfg.OutputDir, f.outputDir)
	set("source-dir", &cfg.SourceDir, f.sourceDir)
	set("libdir", &cfg.LibDir, f.libDir)
	set("site-packages", &cfg.SitePackages, f.sitePackages)
	set("python", &cfg.Python, f.python)

	if flags.Changed("destdir") {
		cfg.DestRoot = f.destDir
	} else if env, ok := os.LookupEnv("DESTDIR"); ok {
		cfg.DestRoot = env
	}
}

func newInstallCmd(opts *globalOpts) *cobra.Command {
	flags := &installFlags{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the build output tree",
		Long: `Install the build output tree into the prefix.

Examples:
  layinstall install
  layinstall install --prefix /usr/local --output-dir ../built
  DESTDIR=/tmp/stage layinstall install
  layinstall install --output-dir panda3d-built.tar.zst --dry-run
  layinstall install --source-dir https://github.com/panda3d/panda3d.git --source-ref v1.10.4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd.Flags(), opts.config)
			return runInstall(cmd, opts.config, flags)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&flags.sourceRef, "source-ref", "", "branch or tag to clone when --source-dir is a git URL")
	cmd.Flags().StringVar(&flags.tempDir, "temp-dir", "", "where packed build outputs are unpacked (default system temp dir)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the plan instead of installing; packed outputs and remote sources are not fetched")

	return cmd
}

func runInstall(cmd *cobra.Command, cfg *core.Config, flags *installFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	ic, err := resolveInstall(ctx, cfg)
	if err != nil {
		return err
	}

	// Packed outputs and remote sources are shown as given, not fetched
	if flags.dryRun {
		plan, err := layout.NewPlan(ic)
		if err != nil {
			return err
		}
		return plan.Describe(cmd.OutOrStdout())
	}

	prog := newProgress(logger)
	report, err := layinstall.Install(ctx, ic,
		layinstall.WithLogger(logger),
		layinstall.WithTempDir(flags.tempDir),
		layinstall.WithSourceRef(flags.sourceRef),
	)
	if err != nil {
		if report != nil {
			return fmt.Errorf("install failed after %d files: %w", report.Files, err)
		}
		return err
	}
	prog.done("installed", "files", report.Files, "bytes", report.Bytes, "removed", len(report.Removed))

	for _, skipped := range report.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "skipped %s (not present)\n", skipped)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Installed %s into %s%s\n", ic.Product, ic.DestRoot, ic.Prefix)
	return nil
}

// resolveInstall detects the platform and resolves cfg against it
func resolveInstall(ctx context.Context, cfg *core.Config) (*core.InstallConfig, error) {
	runner := newRunner()
	plat, err := platform.Detect(ctx, cfg.Python, runner)
	if err != nil {
		return nil, fmt.Errorf("detecting platform: %w", err)
	}
	loggerFromContext(ctx).Debug("platform", "platform", plat.String())

	return platform.Resolve(ctx, cfg, plat, runner)
}

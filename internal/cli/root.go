// internal/cli/root.go
package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/arc-language/layinstall/pkg/core"
	"github.com/arc-language/layinstall/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
)

// newRunner builds the process runner used to query the Python interpreter
var newRunner = func() platform.Runner { return platform.ExecRunner{} }

// SetVersion sets the version shown by --version and the version command,
// normally from ldflags.
func SetVersion(v, c string) {
	version = v
	commit = c
}

// Execute executes the root command
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

// globalOpts are the persistent flags and the config they load
type globalOpts struct {
	cfgFile string
	verbose bool
	config  *core.Config
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:   "layinstall",
		Short: "Install a built Panda3D tree into a prefix",
		Long: `layinstall - layout installer for built Panda3D trees

Copies a build output tree (a directory or a packed tarball/NAR) into the
installation prefix: headers, libraries, tools, the Python package and its
module search path entry, the dynamic linker entry and the runtime config.
Set DESTDIR or --destdir to stage the install under another root.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := core.LoadConfig(opts.cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			opts.config = cfg

			level := log.InfoLevel
			if opts.verbose || cfg.Debug {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level)))
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("layinstall %s (commit %s)\n", version, commit))
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.config/layinstall/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newInstallCmd(opts))
	root.AddCommand(newPlanCmd(opts))
	root.AddCommand(newInfoCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

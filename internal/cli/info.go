// internal/cli/info.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arc-language/layinstall/pkg/platform"
)

func newInfoCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show detected platform values",
		Long:  `Display the detected machine, library directory and Python module search path.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := opts.config

			plat, err := platform.Detect(ctx, cfg.Python, newRunner())
			if err != nil {
				return fmt.Errorf("detecting platform: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Platform: %s/%s\n", plat.OS, plat.Arch)
			fmt.Fprintf(out, "Machine:  %s\n", plat.Machine)
			fmt.Fprintf(out, "Libdir:   %s\n", plat.LibDir)
			if plat.PythonVersion == "" {
				fmt.Fprintf(out, "Python:   %s (not found)\n", plat.Python)
			} else {
				fmt.Fprintf(out, "Python:   %s %s\n", plat.Python, plat.PythonVersion)
			}

			ic, err := platform.Resolve(ctx, cfg, plat, nil)
			if err != nil {
				fmt.Fprintf(out, "Site:     unresolved (%v)\n", err)
				return nil
			}
			fmt.Fprintf(out, "Site:     %s\n", ic.SitePackages)
			fmt.Fprintf(out, "Share:    %s\n", ic.ShareDir())
			fmt.Fprintf(out, "Library:  %s\n", ic.LibraryDir())
			return nil
		},
	}
}

// internal/cli/plan.go
package cli

import (
	"github.com/spf13/cobra"

	"github.com/arc-language/layinstall/pkg/layout"
)

func newPlanCmd(opts *globalOpts) *cobra.Command {
	flags := &installFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what install would do",
		Long: `Print every directory, copy, rewrite, system file and cleanup step that
install would perform, without touching the filesystem. Packed build outputs
are not unpacked; paths are shown as given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd.Flags(), opts.config)

			ic, err := resolveInstall(cmd.Context(), opts.config)
			if err != nil {
				return err
			}
			plan, err := layout.NewPlan(ic)
			if err != nil {
				return err
			}
			return plan.Describe(cmd.OutOrStdout())
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

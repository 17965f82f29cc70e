package cli

import (
	"github.com/spf13/cobra"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached themes",
		Long: `Drop the cached themes of the configured site. With --all every site's
snapshots are removed and the cache directory is deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts, nil)
			if err != nil {
				return err
			}

			a.svc.Invalidate()
			if all {
				a.store.InvalidateAll()
			}
			if err := a.Close(); err != nil {
				return err
			}
			if all {
				if err := a.cfg.ClearCache(); err != nil {
					return err
				}
			}

			newRenderer(cmd.OutOrStdout()).success("cache cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove every site's cache")

	return cmd
}

package cli

import (
	"github.com/spf13/cobra"
)

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>...",
		Short: "Delete themes at the source and drop them from the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			before := a.svc.Manager().Len()
			err = a.svc.Delete(cmd.Context(), args...)
			removed := before - a.svc.Manager().Len()

			out := newRenderer(cmd.OutOrStdout())
			if rootOpts.Format == "json" {
				if werr := writeJSON(out.w, map[string]int{"removed": removed}); werr != nil {
					return werr
				}
			} else {
				out.success("removed %d cached theme(s)", removed)
			}
			return err
		},
	}

	return cmd
}

package cli

import (
	"maps"
	"slices"
	"strings"

	"github.com/mmcdole/querycache/internal/domain"
	"github.com/mmcdole/querycache/internal/theme"
	"github.com/spf13/cobra"
)

// NewSuggestCommand creates the suggest command.
func NewSuggestCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest <text>",
		Short: "Suggest cached themes whose names resemble text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			state := a.svc.Manager().State()
			themes := make([]domain.Item, 0, len(state.Items))
			for _, key := range slices.Sorted(maps.Keys(state.Items)) {
				themes = append(themes, state.Items[key])
			}

			suggestions := theme.Suggest(themes, strings.Join(args, " "), limit)

			out := newRenderer(cmd.OutOrStdout())
			if rootOpts.Format == "json" {
				names := make([]string, len(suggestions))
				for i, s := range suggestions {
					names[i] = s.Name
				}
				return writeJSON(out.w, names)
			}

			if len(suggestions) == 0 {
				out.note("no cached theme resembles %q", strings.Join(args, " "))
				return nil
			}
			for _, s := range suggestions {
				out.suggestion(s)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum number of suggestions (0 for all)")

	return cmd
}

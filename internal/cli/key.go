package cli

import (
	"fmt"

	"github.com/mmcdole/querycache/internal/config"
	"github.com/spf13/cobra"
)

// NewKeyCommand creates the key command.
func NewKeyCommand(rootOpts *RootOptions) *cobra.Command {
	var qf queryFlags

	cmd := &cobra.Command{
		Use:   "key",
		Short: "Print the cache key a query is stored under",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(rootOpts.ConfigPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			m := (&app{cfg: cfg}).newManager()
			key := m.QueryKey(qf.query(cfg.Query.PerPage))

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"key": key})
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	qf.register(cmd)

	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vnkhanh/vocasync/config"
)

// NewMigrateCommand creates the records table (SQL drivers) or the pebble
// directory, then exits.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Prepare the configured store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			st, err := config.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("ping store: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "store %s ready\n", cfg.StoreDriver)
			return nil
		},
	}
}

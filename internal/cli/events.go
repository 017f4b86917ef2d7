package cli

import (
	"github.com/spf13/cobra"
)

func newEventsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Show today's calendar events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}

			st, err := a.loadEvents(ctx)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), st.Events)
			}
			printEvents(cmd.OutOrStdout(), st.Events)
			return nil
		},
	}
}

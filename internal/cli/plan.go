package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"dayplan/internal/model"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var approve, save bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate today's plan",
		Long: `Load today's events, place open tasks into the free time by priority and
print the resulting agenda. --save approves the plan and writes it as a
Markdown daily note.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}

			// A calendar failure only warns; the plan is built from the tasks alone.
			if _, err := a.loadEvents(ctx); err != nil {
				printWarning(cmd.ErrOrStderr(), err.Error())
				a.store.ClearError(ctx)
			}

			st := a.store.GeneratePlan(ctx)
			if st.Err != "" || st.Plan == nil {
				return errors.New(st.Err)
			}
			current := *st.Plan

			if approve || save {
				current, err = a.store.ApprovePlan(ctx)
				if err != nil {
					return err
				}
			}

			var saved string
			if save {
				if saved, err = a.store.SavePlan(ctx); err != nil {
					return err
				}
			}

			if opts.jsonOutput {
				return outputJSON(out, planOutput{Plan: current, Markdown: saved})
			}
			printAgenda(out, current)
			switch {
			case save && a.markdownPath == "":
				printWarning(out, "Ephemeral run, plan not written to disk")
			case save:
				printSuccess(out, "Saved to "+a.markdownPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&approve, "approve", false, "Approve the generated plan")
	cmd.Flags().BoolVar(&save, "save", false, "Approve and save the plan as Markdown")
	return cmd
}

type planOutput struct {
	Plan     model.DailyPlan `json:"plan"`
	Markdown string          `json:"markdown,omitempty"`
}

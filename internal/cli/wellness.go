package cli

import (
	"context"
	"fmt"
	"time"

	"fuelcoach-go/internal/endpoints"
	"github.com/spf13/cobra"
)

type wellnessFlags struct {
	from string
	to   string
}

// NewWellnessCommand creates the wellness command.
func NewWellnessCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &wellnessFlags{}
	cmd := &cobra.Command{
		Use:           "wellness",
		Short:         "Show daily wellness metrics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			r, err := parseRange(flags.from, flags.to)
			if err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "parse date range", err))
			}
			return withRuntime(cmd, rootOpts, f, func(ctx context.Context, rt *Runtime) error {
				days, err := rt.API.Wellness(ctx, r)
				if err != nil {
					return err
				}
				if days == nil {
					days = []endpoints.WellnessDay{}
				}
				return f.Success(days)
			})
		},
	}
	cmd.Flags().StringVar(&flags.from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.to, "to", "", "last day, YYYY-MM-DD")
	return cmd
}

func parseRange(from, to string) (endpoints.DateRange, error) {
	var r endpoints.DateRange
	var err error
	if from != "" {
		if r.From, err = time.Parse(time.DateOnly, from); err != nil {
			return r, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if r.To, err = time.Parse(time.DateOnly, to); err != nil {
			return r, fmt.Errorf("--to: %w", err)
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return r, nil
}

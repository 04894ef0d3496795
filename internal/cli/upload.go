package cli

import (
	"context"
	"fmt"

	"fuelcoach-go/internal/endpoints"
	"fuelcoach-go/internal/upload"
	"github.com/spf13/cobra"
)

// NewUploadFITCommand creates the upload-fit command.
func NewUploadFITCommand(rootOpts *RootOptions) *cobra.Command {
	var preview bool
	cmd := &cobra.Command{
		Use:   "upload-fit <file>",
		Short: "Import a FIT activity file",
		Long: `Upload a FIT file as a workout. A file that was already imported is
reported as a conflict. Uploads are never queued while offline.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			ref := upload.Reference{URI: args[0]}
			return withRuntime(cmd, rootOpts, f, func(ctx context.Context, rt *Runtime) error {
				call := rt.API.UploadFIT
				if preview {
					call = rt.API.PreviewFIT
				}
				out, err := call(ctx, ref)
				if err != nil {
					return err
				}
				return f.Success(out)
			})
		},
	}
	cmd.Flags().BoolVar(&preview, "preview", false, "parse the file without saving a workout")
	return cmd
}

type photoFlags struct {
	mealType string
	dryRun   bool
}

var mealTypes = []string{"", "breakfast", "lunch", "dinner", "snack"}

// NewAnalyzePhotoCommand creates the analyze-photo command.
func NewAnalyzePhotoCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &photoFlags{}
	cmd := &cobra.Command{
		Use:   "analyze-photo <reference>",
		Short: "Classify a meal photo or sleep screenshot",
		Long: `Send a photo for analysis. The reference may be a local path, a file://
URI or an http(s) URL; remote images are downloaded first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			if !validMealType(flags.mealType) {
				return f.Fail(NewExitError(ExitCommandError, fmt.Sprintf("invalid meal type %q: must be one of %v", flags.mealType, mealTypes[1:])))
			}
			ref := upload.Reference{URI: args[0]}
			return withRuntime(cmd, rootOpts, f, func(ctx context.Context, rt *Runtime) error {
				out, err := rt.API.AnalyzePhoto(ctx, ref, endpoints.PhotoOptions{
					MealType: flags.mealType,
					DryRun:   flags.dryRun,
				})
				if err != nil {
					return err
				}
				return f.Success(out)
			})
		},
	}
	cmd.Flags().StringVar(&flags.mealType, "meal-type", "", "meal type (breakfast|lunch|dinner|snack)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "analyze without saving")
	return cmd
}

func validMealType(s string) bool {
	for _, m := range mealTypes {
		if m == s {
			return true
		}
	}
	return false
}

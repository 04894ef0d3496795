package cli

import (
	"fuelcoach-go/internal/constants"
	"github.com/spf13/cobra"
)

type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

func (v VersionInfo) String() string {
	return "fuelctl " + v.Version + " (" + v.GitCommit + ", built " + v.BuildTime + ")"
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			commit, built := constants.Revision()
			return newFormatter(rootOpts, cmd).Success(VersionInfo{
				Version:   constants.GetVersion(),
				BuildTime: built,
				GitCommit: commit,
			})
		},
	}
}

package cmd

import (
	"fmt"

	"github.com/autolog/triage/internal/config"
	"github.com/autolog/triage/internal/render"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit, and build time of triagectl.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(output)
		if err != nil {
			return err
		}
		if format == render.FormatTable {
			fmt.Fprintln(cmd.OutOrStdout(), config.VersionString())
			return nil
		}
		return render.New(cmd.OutOrStdout(), format).Value(config.GetBuildInfo())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

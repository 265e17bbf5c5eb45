package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crm-portal/portal-agent/internal/daemon"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().Bool("dev", false, "Enable dev mode")

	_ = viper.BindPFlag("dev", startCmd.Flags().Lookup("dev"))

	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the agent and its local bridge",
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err //nolint:wrapcheck
		}

		return d.Start(cmd.Context()) //nolint:wrapcheck
	},
}

package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crm-portal/portal-agent/internal/config"
)

func init() { //nolint: gochecknoinits
	dumpCmd.Flags().Bool("json", false, "dump as json instead of toml")

	configCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(configCmd)
}

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Print the configuration after env overrides and defaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dump := config.DumpConfig
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				dump = config.DumpConfigJSON
			}

			masked := cfg
			masked.API.Token = mask(masked.API.Token)
			masked.API.Secret = mask(masked.API.Secret)
			masked.Bridge.Token = mask(masked.Bridge.Token)

			out, err := dump(&masked)
			if err != nil {
				return err //nolint:wrapcheck
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)

			return nil
		},
	}
)

func mask(secret string) string {
	if secret == "" {
		return ""
	}

	return "********"
}

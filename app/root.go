// Package app implements the main application commands.
package app

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crm-portal/portal-agent/internal/config"
	"github.com/crm-portal/portal-agent/internal/logger"
)

const envPrefix = "PORTAL_AGENT"

var (
	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "portal-agent",
		Short: "portal-agent keeps a CRM portal session's permissions and calls in sync",
		Long: `portal-agent logs a portal profile in, evaluates its role based permissions
and drives the realtime call session. The UI talks to it through a local JSON bridge.`,
		Args:              cobra.OnlyValidArgs,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringP("config", "c", "", "directory holding main.toml (default ./etc/)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// configDir returns the config directory with a trailing slash.
func configDir(dir string) string {
	if dir == "" || strings.HasSuffix(dir, "/") {
		return dir
	}

	return dir + "/"
}

func loadConfig(_ *cobra.Command, _ []string) error {
	var err error

	if cfg, err = config.ReadConfig(configDir(viper.GetString("config"))); err != nil {
		return err //nolint:wrapcheck
	}

	if viper.GetBool("dev") {
		cfg.DevMode = true
	}

	return logger.Init(cfg.Log) //nolint:wrapcheck
}

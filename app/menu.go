package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crm-portal/portal-agent/internal/api"
	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/daemon"
	"github.com/crm-portal/portal-agent/internal/web/navigation"
)

func init() { //nolint: gochecknoinits
	menuCmd.Flags().Bool("json", false, "print the menu as json")

	rootCmd.AddCommand(menuCmd)
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Print the navigation menu visible to the configured profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := api.New(cfg.API)

		actor, err := daemon.ResolveActor(cmd.Context(), cfg.Profile, client)
		if err != nil {
			return err //nolint:wrapcheck
		}

		engine := auth.NewEngine(client)
		if err = engine.SetActor(cmd.Context(), actor); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "permissions not loaded: %v\n", err)
		}

		menu := navigation.VisibleMenuFor(engine.Snapshot(), navigation.DefaultTree(actor.ProfileType))

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(menu) //nolint:wrapcheck
		}

		printMenu(cmd.OutOrStdout(), menu, 0)

		return nil
	},
}

func printMenu(w io.Writer, items []navigation.MenuItem, depth int) {
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "%s%s", strings.Repeat("  ", depth), item.Label)

		if item.Path != "" {
			_, _ = fmt.Fprintf(w, " (%s)", item.Path)
		}

		_, _ = fmt.Fprintln(w)

		printMenu(w, item.Children, depth+1)
	}
}

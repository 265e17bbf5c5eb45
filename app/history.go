package app

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/crm-portal/portal-agent/internal/db"
	"github.com/crm-portal/portal-agent/internal/db/controller/history"
	"github.com/crm-portal/portal-agent/internal/db/models"
)

func init() { //nolint: gochecknoinits
	historyCmd.Flags().Int("limit", 20, "number of calls to show")
	historyCmd.Flags().Int64("peer", 0, "only calls with this user id")

	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the locally recorded call history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := db.Open(&cfg)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if sqlDB, dbErr := store.DB(); dbErr == nil {
			defer sqlDB.Close()
		}

		limit, _ := cmd.Flags().GetInt("limit")
		peer, _ := cmd.Flags().GetInt64("peer")

		var records []models.CallRecord

		if peer > 0 {
			records, err = history.ListWithPeer(store, peer, limit)
		} else {
			records, err = history.List(store, limit)
		}

		if err != nil {
			return err //nolint:wrapcheck
		}

		printHistory(cmd.OutOrStdout(), records)

		return nil
	},
}

func printHistory(w io.Writer, records []models.CallRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "CALL\tTYPE\tDIRECTION\tPEER\tSTATUS\tDURATION\tFINISHED")

	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.CallID, r.CallType, r.Direction, r.PeerID, r.Status,
			time.Duration(r.DurationSeconds)*time.Second,
			r.FinishedAt.Local().Format(time.DateTime))
	}

	_ = tw.Flush()
}

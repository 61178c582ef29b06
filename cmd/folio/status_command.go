package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"folio/internal/checkpoint"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show checkpoint state and pipeline health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := checkpoint.Open(cfg)
			if err != nil {
				return fmt.Errorf("open checkpoint store: %w", err)
			}
			defer store.Close()

			counts, err := store.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("checkpoint health: %w", err)
			}
			snapshot, err := store.Snapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("snapshot checkpoint: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintf(out, "Pages: %d total, %d pending, %d processing, %d done, %d failed\n\n",
				counts.Total, counts.Pending, counts.Processing, counts.Done, counts.Failed)

			records := make([]checkpoint.Record, 0, len(snapshot))
			for _, record := range snapshot {
				if !showAll && record.Status == checkpoint.StatusDone {
					continue
				}
				records = append(records, record)
			}
			sort.Slice(records, func(i, j int) bool { return records[i].Page < records[j].Page })

			if len(records) == 0 {
				if counts.Total > 0 {
					fmt.Fprintln(out, "All pages done. Use --all to list them.")
				} else {
					fmt.Fprintln(out, "No pages recorded yet. Start with `folio run <book-dir>`.")
				}
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					strconv.Itoa(record.Page),
					colorizeStatus(string(record.Status), colorize),
					strconv.Itoa(record.Attempts),
					record.ErrorKind,
					record.ErrorMessage,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Page", "Status", "Attempts", "Error", "Detail"},
				rows, 0, 2))

			renderHealth(out, cfg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "Include pages already done")
	return cmd
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"folio/internal/checkpoint"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [page...]",
		Short: "Mark failed pages for reprocessing",
		Long: "Moves failed pages back to pending so the next resume picks them up.\n" +
			"Without arguments every failed page is retried.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			pages := make([]int, 0, len(args))
			for _, arg := range args {
				page, err := strconv.Atoi(arg)
				if err != nil || page < 1 {
					return fmt.Errorf("invalid page number %q", arg)
				}
				pages = append(pages, page)
			}

			store, err := checkpoint.Open(cfg)
			if err != nil {
				return fmt.Errorf("open checkpoint store: %w", err)
			}
			defer store.Close()

			updated, err := store.RetryFailed(cmd.Context(), pages...)
			if err != nil {
				return fmt.Errorf("retry failed pages: %w", err)
			}

			out := cmd.OutOrStdout()
			switch updated {
			case 0:
				fmt.Fprintln(out, "No failed pages to retry")
			case 1:
				fmt.Fprintln(out, "1 page marked for retry")
			default:
				fmt.Fprintf(out, "%d pages marked for retry\n", updated)
			}
			if updated > 0 {
				fmt.Fprintln(out, "Run `folio resume <book-dir>` to reprocess them.")
			}
			return nil
		},
	}
}

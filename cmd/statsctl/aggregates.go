package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pagetrail/pagetrail-server/internal/domain"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute every book's rating aggregate and fix drift",
	Long: `Recompute review_count and average_rating for every book from its
reviews. Books whose stored values differ are rewritten.

added_to_list_count is left alone: it is a running total and has no
source rows to be recomputed from.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := s.aggregates.ReconcileAll(cmd.Context())
		if err != nil {
			return err
		}

		if result.Corrected > 0 {
			warn(cmd, "%d of %d books had drifted aggregates", result.Corrected, result.Checked)
		}
		ok(cmd, "Checked %d books, corrected %d", result.Checked, result.Corrected)
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <book-id>...",
	Short: "Recompute the rating aggregate of specific books",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		failed := 0
		for _, id := range args {
			book, err := s.aggregates.Refresh(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", color.RedString("✗"), id, err)
				failed++
				continue
			}
			ok(cmd, "%s  %s  reviews=%d  average=%s", color.CyanString(book.ID), book.Title, book.ReviewCount, formatRating(book))
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d books failed to refresh", failed, len(args))
		}
		return nil
	},
}

func formatRating(book *domain.Book) string {
	if book.AverageRating == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *book.AverageRating)
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(refreshCmd)
}

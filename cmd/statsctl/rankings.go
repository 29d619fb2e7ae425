package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	flagLimit int
	flagJSON  bool
)

var topReviewersCmd = &cobra.Command{
	Use:   "top-reviewers",
	Short: "Print the users with the most reviews",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		ranks, err := s.rankings.TopReviewers(cmd.Context(), flagLimit)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), ranks)
		}
		if len(ranks) == 0 {
			warn(cmd, "No reviews yet")
			return nil
		}

		rows := make([][]string, 0, len(ranks))
		for _, r := range ranks {
			rows = append(rows, []string{strconv.Itoa(r.Rank), r.UserID, r.Username, strconv.Itoa(r.ReviewCount)})
		}
		return printTable(cmd.OutOrStdout(), []string{"RANK", "USER", "USERNAME", "REVIEWS"}, rows)
	},
}

var fastestReadersCmd = &cobra.Command{
	Use:   "fastest-readers",
	Short: "Print users ranked by their average time to finish a book",
	Long: `Print users ranked by mean finish_date - start_date over their
completed reading-list entries.

Completed entries without a start date, or finishing before they started,
are left out of the ranking and listed separately.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		ranking, err := s.rankings.FastestReaders(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, ranking)
		}

		if len(ranking.Readers) == 0 {
			warn(cmd, "No completed readings with valid dates")
		} else {
			rows := make([][]string, 0, len(ranking.Readers))
			for _, r := range ranking.Readers {
				rows = append(rows, []string{
					strconv.Itoa(r.Rank), r.UserID, r.Username,
					strconv.Itoa(r.CompletedBooks), r.AverageDuration,
				})
			}
			if err := printTable(out, []string{"RANK", "USER", "USERNAME", "BOOKS", "AVERAGE"}, rows); err != nil {
				return err
			}
		}

		if len(ranking.Excluded) > 0 {
			fmt.Fprintln(out)
			warn(cmd, "%d completed entries excluded:", len(ranking.Excluded))
			for _, e := range ranking.Excluded {
				fmt.Fprintf(out, "  %s user=%s book=%s\n", color.YellowString(string(e.Reason)), e.UserID, e.BookID)
			}
		}
		return nil
	},
}

// printTable aligns plain text first and styles the header afterwards, so
// color escapes never count towards column widths.
func printTable(w io.Writer, header []string, rows [][]string) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	head, body, _ := strings.Cut(buf.String(), "\n")
	if _, err := fmt.Fprintln(w, color.New(color.Bold).Sprint(head)); err != nil {
		return err
	}
	_, err := io.WriteString(w, body)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	topReviewersCmd.Flags().IntVar(&flagLimit, "limit", 0, "Number of reviewers to show (default 10)")
	for _, c := range []*cobra.Command{topReviewersCmd, fastestReadersCmd} {
		c.Flags().BoolVar(&flagJSON, "json", false, "Output as JSON")
		rootCmd.AddCommand(c)
	}
}

/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/chunker"
	"github.com/valpere/kalimax-triage/internal/coordinator"
)

var (
	queuePriority string
	queueDomain   string
	queueJSON     bool
	queueSummary  bool
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List draft entries in review order",
	Long: `Score every draft entry of the queue tables and list them most urgent
first. Entries of equal priority are listed lowest confidence first.

Priority levels: CRITICAL (1), HIGH (2), MEDIUM (3), LOW (4).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if queueSummary {
			sum, err := a.scorer.Summary(ctx)
			if err != nil {
				return fmt.Errorf("failed to summarize queue: %w", err)
			}
			if queueJSON {
				return writeJSON(out, sum.Named())
			}
			fmt.Fprintf(out, "Total: %d\n", sum.Total)
			for _, l := range internal.PriorityLevels {
				fmt.Fprintf(out, "%-9s %d\n", l.String()+":", sum.Count(l))
			}
			return nil
		}

		tasks, err := a.coord.PriorityQueue(ctx, coordinator.QueueFilter{
			Limit:    cfg.Queue.Limit,
			Priority: queuePriority,
			Domain:   queueDomain,
		})
		if err != nil {
			return fmt.Errorf("failed to build queue: %w", err)
		}

		if queueJSON {
			return writeJSON(out, tasks)
		}
		if len(tasks) == 0 {
			fmt.Fprintln(out, "Review queue is empty.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PRIORITY\tTABLE\tID\tCONF\tDOMAIN\tMIN\tTAGS\tTEXT")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%s\t%d\t%s\t%s\n",
				t.Priority, t.Entry.Table, t.Entry.ID, t.Entry.Confidence, t.Entry.Domain,
				t.EstimatedMinutes, strings.Join(t.Tags, ","),
				chunker.Snippet(t.Entry.SourceText, chunker.DefaultSnippetChars))
		}
		return w.Flush()
	},
}

var completeNotes string

var completeCmd = &cobra.Command{
	Use:   "complete <table> <id>",
	Short: "Mark a queue task as reviewed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := internal.ParseTable(args[0])
		if err != nil {
			return err
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.scorer.MarkTaskCompleted(ctx, table, id, completeNotes); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %s/%d as reviewed.\n", table, id)
		return nil
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", internal.ErrInvalidArgument, s)
	}
	return id, nil
}

func init() {
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(completeCmd)

	queueCmd.Flags().IntP("limit", "n", 50, "Maximum tasks to list; 0 lists all")
	queueCmd.Flags().StringVarP(&queuePriority, "priority", "p", "", "Only this priority level (name or 1-4)")
	queueCmd.Flags().StringVarP(&queueDomain, "domain", "d", "", "Only entries of this domain")
	queueCmd.Flags().Bool("include-expressions", false, "Also queue expression entries")
	queueCmd.Flags().BoolVar(&queueSummary, "summary", false, "Print task counts per priority level")
	queueCmd.Flags().BoolVar(&queueJSON, "json", false, "Print JSON")

	bindFlag("queue.limit", queueCmd.Flags().Lookup("limit"))
	bindFlag("queue.include_expressions", queueCmd.Flags().Lookup("include-expressions"))

	completeCmd.Flags().StringVar(&completeNotes, "notes", "", "Curator notes")
}

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
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/kalimax-triage/internal"
)

var (
	sweepTable string
	sweepJSON  bool
)

var sweepCmd = &cobra.Command{
	Use:   "flag",
	Short: "Classify draft entries and store their risk flags",
	Long: `Scan every draft row of one table, or of all tables, for medically risky
vocabulary and dosage instructions. Stored flags, priority level and the
immediate-review marker are replaced on every run, so repeated runs give
the same result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var sum internal.SweepSummary
		if strings.EqualFold(sweepTable, "all") {
			sum, err = a.risk.FlagAll(ctx)
		} else {
			table, perr := internal.ParseTable(sweepTable)
			if perr != nil {
				return perr
			}
			sum, err = a.risk.FlagEntries(ctx, table)
		}
		if err != nil {
			return fmt.Errorf("failed to flag entries: %w", err)
		}

		out := cmd.OutOrStdout()
		if sweepJSON {
			return writeJSON(out, sum)
		}
		printWarnings(cmd.ErrOrStderr(), sum.Warnings)
		fmt.Fprintf(out, "Run:      %s\n", sum.RunID)
		fmt.Fprintf(out, "Checked:  %d\n", sum.Checked)
		fmt.Fprintf(out, "Flagged:  %d\n", sum.Flagged)
		fmt.Fprintf(out, "Critical: %d\n", sum.Critical)
		fmt.Fprintf(out, "High:     %d\n", sum.High)
		fmt.Fprintf(out, "Skipped:  %d\n", sum.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVarP(&sweepTable, "table", "t", "all", "Table to scan: corpus, glossary, expressions or all")
	sweepCmd.Flags().Int("write-batch", 500, "Rows written per transaction")
	sweepCmd.Flags().BoolVar(&sweepJSON, "json", false, "Print the summary as JSON")

	bindFlag("sweep.write_batch", sweepCmd.Flags().Lookup("write-batch"))
}

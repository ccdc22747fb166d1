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
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the aggregate curation report as JSON",
	Long: `Gather the overview, the review queue, the flagged entries and the
cultural batches, and write them to one JSON report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.coord.ExportCurationReport(ctx, cfg.Report.Path)
		if err != nil {
			if rep.ReportID != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Report %s was built but not written.\n", rep.ReportID)
			}
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Report:   %s\n", rep.ReportID)
		fmt.Fprintf(out, "Path:     %s\n", cfg.Report.Path)
		fmt.Fprintf(out, "Queue:    %d (%d critical, %d high)\n", rep.Queue.TotalItems, rep.Queue.CriticalItems, rep.Queue.HighItems)
		fmt.Fprintf(out, "Flagged:  %d (%d critical, %d high)\n", rep.Risk.TotalFlagged, rep.Risk.CriticalRisk, rep.Risk.HighRisk)
		fmt.Fprintf(out, "Batches:  %d covering %d expressions\n", rep.Batches.TotalBatches, rep.Batches.Expressions)
		if len(rep.Batches.RegionsCovered) > 0 {
			fmt.Fprintf(out, "Regions:  %s\n", strings.Join(rep.Batches.RegionsCovered, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("out", "o", "./reports/curation_report.json", "Report path")
	bindFlag("report.path", reportCmd.Flags().Lookup("out"))
}

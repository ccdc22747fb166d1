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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/kalimax-triage/internal/chunker"
)

var (
	riskLevel string
	riskLimit int
	riskJSON  bool
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "List entries with stored medical risk flags",
	Long: `List entries flagged by the last "flag" run, most urgent first.
Use --level to keep only entries carrying a flag of that level
(critical, high, moderate, low).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		items, warnings, err := a.coord.MedicalRiskItems(ctx, riskLevel, riskLimit)
		if err != nil {
			return fmt.Errorf("failed to list risk items: %w", err)
		}
		printWarnings(cmd.ErrOrStderr(), warnings)

		out := cmd.OutOrStdout()
		if riskJSON {
			return writeJSON(out, items)
		}
		if len(items) == 0 {
			fmt.Fprintln(out, "No flagged entries.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PRIORITY\tTABLE\tID\tSTATUS\tREVIEW\tTERMS\tTEXT")
		for _, e := range items {
			terms := make([]string, 0, len(e.Flags))
			for _, f := range e.Flags {
				terms = append(terms, fmt.Sprintf("%s(%s)", f.Term, f.RiskLevel))
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%v\t%s\t%s\n",
				e.Priority, e.Table, e.ID, e.Status, e.NeedsReview,
				strings.Join(terms, ", "), chunker.Snippet(e.SourceText, 40))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(riskCmd)

	riskCmd.Flags().StringVarP(&riskLevel, "level", "l", "", "Only entries with a flag of this level")
	riskCmd.Flags().IntVarP(&riskLimit, "limit", "n", 0, "Maximum entries to list; 0 lists all")
	riskCmd.Flags().BoolVar(&riskJSON, "json", false, "Print JSON")
}

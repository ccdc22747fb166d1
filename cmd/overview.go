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
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/valpere/kalimax-triage/internal"
)

var overviewJSON bool

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show curation progress across the corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		ov, err := a.coord.Overview(ctx)
		if err != nil {
			return fmt.Errorf("failed to build overview: %w", err)
		}
		printWarnings(cmd.ErrOrStderr(), ov.Warnings)

		out := cmd.OutOrStdout()
		if overviewJSON {
			return writeJSON(out, ov)
		}

		fmt.Fprintln(out, "Status by table:")
		for _, t := range internal.Tables {
			fmt.Fprintf(out, "  %s:\n", t)
			printCounts(out, "    ", ov.Status[t])
		}

		fmt.Fprintln(out, "Priority:")
		for _, l := range internal.PriorityLevels {
			fmt.Fprintf(out, "  %-9s %d\n", l.String()+":", ov.Priority[l.String()])
		}

		fmt.Fprintln(out, "Risk (worst flag per entry):")
		for _, l := range internal.RiskLevels {
			fmt.Fprintf(out, "  %-9s %d\n", string(l)+":", ov.RiskLevels[l])
		}

		fmt.Fprintln(out, "Expression regions:")
		printCounts(out, "  ", ov.Regions)

		fmt.Fprintln(out, "Recent activity:")
		printCounts(out, "  ", ov.RecentActivity)
		return nil
	},
}

func printCounts(w io.Writer, indent string, counts map[string]int) {
	if len(counts) == 0 {
		fmt.Fprintf(w, "%s(none)\n", indent)
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s%s: %d\n", indent, k, counts[k])
	}
}

func init() {
	rootCmd.AddCommand(overviewCmd)

	overviewCmd.Flags().BoolVar(&overviewJSON, "json", false, "Print JSON")
}

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
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/priority"
)

var (
	analyzeFile       string
	analyzeConfidence float64
	analyzeDomain     string
	analyzeTable      string
	analyzeJSON       bool
)

type analysis struct {
	Text             string                 `json:"text"`
	Flags            []internal.RiskFlag    `json:"risk_flags"`
	Priority         internal.PriorityLevel `json:"priority_level"`
	PriorityName     string                 `json:"priority"`
	Tags             []string               `json:"tags"`
	EstimatedMinutes int                    `json:"estimated_time_minutes"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Show the risk flags and priority of a single text",
	Long: `Analyze a text without touching the corpus. The text is taken from the
arguments or from --file. Confidence, domain and table feed the priority
calculation the same way stored entries do.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if analyzeFile != "" {
			data, err := os.ReadFile(analyzeFile)
			if err != nil {
				return fmt.Errorf("failed to read input file: %w", err)
			}
			text = string(data)
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: no text to analyze", internal.ErrInvalidArgument)
		}
		table, err := internal.ParseTable(analyzeTable)
		if err != nil {
			return err
		}
		if analyzeConfidence < 0 || analyzeConfidence > 1 {
			return fmt.Errorf("%w: confidence must be within [0, 1]", internal.ErrInvalidArgument)
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		level, tags := a.scorer.CalculatePriority(analyzeConfidence, analyzeDomain, text, table)
		res := analysis{
			Text:             text,
			Flags:            a.risk.Analyze(text),
			Priority:         level,
			PriorityName:     level.String(),
			Tags:             tags,
			EstimatedMinutes: priority.EstimateCurationTime(text, tags),
		}

		out := cmd.OutOrStdout()
		if analyzeJSON {
			return writeJSON(out, res)
		}

		fmt.Fprintf(out, "Priority: %s (%s)\n", res.PriorityName, strings.Join(res.Tags, ", "))
		fmt.Fprintf(out, "Estimate: %d min\n", res.EstimatedMinutes)
		if len(res.Flags) == 0 {
			fmt.Fprintln(out, "No risk flags.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TERM\tLEVEL\tCATEGORY\tMATCHED\tREVIEW")
		for _, f := range res.Flags {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
				f.Term, f.RiskLevel, f.Category, f.MatchedPattern, f.RequiresImmediateReview)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "Read the text from a file")
	analyzeCmd.Flags().Float64Var(&analyzeConfidence, "confidence", 0.5, "Translation confidence in [0, 1]")
	analyzeCmd.Flags().StringVar(&analyzeDomain, "domain", "general", "Entry domain")
	analyzeCmd.Flags().StringVar(&analyzeTable, "table", "corpus", "Table the text would belong to")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the analysis as JSON")
}

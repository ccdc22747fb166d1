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

	"github.com/valpere/kalimax-triage/internal/coordinator"
)

var (
	batchRegion string
	batchType   string
	batchExport bool
	batchJSON   bool
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Group draft expressions into regional review batches",
	Long: `Classify every draft expression by Haitian region and expression type,
group them, and split each group into batches routed to a domain expert.
Batches are listed by priority score, highest first.

With --export each batch is written to {dir}/{batch_id}.csv together with a
{batch_id}_metadata.json sidecar.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		batches, err := a.coord.CulturalBatches(ctx, coordinator.BatchFilter{
			Size:   cfg.Batch.Size,
			Region: batchRegion,
			Type:   batchType,
		})
		if err != nil {
			return fmt.Errorf("failed to create batches: %w", err)
		}

		out := cmd.OutOrStdout()
		if batchExport {
			paths, err := a.batcher.ExportBatches(ctx, batches, cfg.Batch.ExportDir)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
			fmt.Fprintf(out, "Exported %d batches to %s\n", len(paths), cfg.Batch.ExportDir)
			return nil
		}
		if batchJSON {
			return writeJSON(out, batches)
		}
		if len(batches) == 0 {
			fmt.Fprintln(out, "No draft expressions to batch.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BATCH\tEXPRESSIONS\tSCORE\tMIN\tEXPERT\tNOTES")
		for _, b := range batches {
			fmt.Fprintf(w, "%s\t%d\t%.2f\t%d\t%s\t%s\n",
				b.ID, len(b.Entries), b.PriorityScore, b.EstimatedMinutes, b.ExpertDomain,
				strings.Join(b.CulturalNotes, "; "))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(batchesCmd)

	batchesCmd.Flags().IntP("size", "s", 20, "Expressions per batch")
	batchesCmd.Flags().StringVarP(&batchRegion, "region", "r", "", "Only this region")
	batchesCmd.Flags().StringVarP(&batchType, "type", "t", "", "Only this expression type")
	batchesCmd.Flags().BoolVar(&batchExport, "export", false, "Write batch CSV and metadata files")
	batchesCmd.Flags().String("dir", "./batches", "Export directory")
	batchesCmd.Flags().BoolVar(&batchJSON, "json", false, "Print JSON")

	bindFlag("batch.size", batchesCmd.Flags().Lookup("size"))
	bindFlag("batch.export_dir", batchesCmd.Flags().Lookup("dir"))
}

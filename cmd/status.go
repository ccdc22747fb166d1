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

	"github.com/spf13/cobra"
)

var statusNotes string

var statusCmd = &cobra.Command{
	Use:   "status <table> <id> <status>",
	Short: "Record a curation decision",
	Long: `Set the curation status of one entry. Allowed statuses are draft, reviewed,
approved, rejected and needs_revision; tables are corpus, glossary and
expressions.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		if err := a.coord.UpdateCurationStatus(ctx, id, args[0], args[2], statusNotes); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s/%d to %s.\n", args[0], id, args[2])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusNotes, "notes", "", "Curator notes")
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/infumap/storage-core/internal/migrate"
)

var migrateTargetVersion int64

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Inspect and run log migrations",
}

var migrateRunCmd = &cobra.Command{
	Use:   "run <log-file>",
	Short: "Upgrade a kv-log file to the target descriptor version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := migrate.Run(args[0], migrateTargetVersion)
		if err != nil {
			return err
		}
		printResult(map[string]int64{"from": from, "to": to}, fmt.Sprintf("migrated %s from version %d to %d", args[0], from, to))
		return nil
	},
}

type migrationSummary struct {
	FromVersion int64  `json:"from_version"`
	ToVersion   int64  `json:"to_version"`
	Name        string `json:"name"`
}

var migrateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		list := migrate.ListMigrations()
		summaries := make([]migrationSummary, 0, len(list))
		plain := ""
		for _, m := range list {
			summaries = append(summaries, migrationSummary{FromVersion: m.FromVersion, ToVersion: m.FromVersion + 1, Name: m.Name})
			plain += fmt.Sprintf("%d -> %d: %s\n", m.FromVersion, m.FromVersion+1, m.Name)
		}
		printResult(summaries, plain)
		return nil
	},
}

func init() {
	migrateRunCmd.Flags().Int64Var(&migrateTargetVersion, "to", 0, "target descriptor version")
	migrateRunCmd.MarkFlagRequired("to")
	migrateCmd.AddCommand(migrateRunCmd, migrateListCmd)
	rootCmd.AddCommand(migrateCmd)
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	webservices "github.com/ellavondegurechaff/materialpool/backend/services"
	"github.com/ellavondegurechaff/materialpool/materialpool/logger"
	"github.com/ellavondegurechaff/materialpool/materialpool/migration"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx|file.csv>",
	Short: "Import a spreadsheet of materials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		st, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		archiver, err := newArchiver(ctx, cfg)
		if err != nil {
			return err
		}

		imports := webservices.NewImportService(st.services().materials, archiver, 1, 0)
		result, err := imports.Import(ctx, migration.SystemActor, filepath.Base(args[0]), data)
		if result != nil && result.Summary != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %s\n", result.BatchID, result.Summary.Message())
		}

		logger.LogCommand("import", time.Since(start), err)
		return err
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

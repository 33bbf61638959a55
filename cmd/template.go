package cmd

import (
	"fmt"
	"os"

	"github.com/ellavondegurechaff/materialpool/internal/importer"
	"github.com/spf13/cobra"
)

var templateOutput string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write the xlsx import template",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Create(templateOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", templateOutput, err)
		}
		if err := importer.WriteTemplate(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "template written to %s\n", templateOutput)
		return nil
	},
}

func init() {
	templateCmd.Flags().StringVarP(&templateOutput, "output", "o", "materials_template.xlsx", "output file")
	rootCmd.AddCommand(templateCmd)
}

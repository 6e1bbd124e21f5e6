package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
)

func newDefaultCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "default",
		Short: "Print the fallback factory, or write it to --out (.yaml or .json)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := domain.DefaultFactory()
			if outPath == "" {
				return writeJSON(cmd.OutOrStdout(), f)
			}
			return writeFactory(outPath, f)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func writeFactory(outPath string, f domain.Factory) error {
	if strings.HasSuffix(outPath, ".yaml") || strings.HasSuffix(outPath, ".yml") {
		b, err := yaml.Marshal(f)
		if err != nil {
			return err
		}
		return os.WriteFile(outPath, b, 0o644)
	}
	file, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeJSON(file, f)
}

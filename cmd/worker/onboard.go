package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/factory-onboarding/config"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/llm"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/service"
)

// newExtractor is swapped in tests.
var newExtractor = func(cfg *config.Config) llm.Extractor {
	return llm.NewHTTPExtractor(llm.Options{
		BaseURL:    cfg.LLM.BaseURL,
		ResultPath: cfg.LLM.ResultPath,
		Timeout:    cfg.Onboarding.ExtractTimeout,
		RatePerSec: cfg.LLM.RatePerSec,
		Burst:      cfg.LLM.Burst,
	})
}

func newOnboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard <file|->",
		Short: "Onboard a factory description and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			settings, err := settingsFromConfig(cfg)
			if err != nil {
				return err
			}
			svc, err := service.NewOnboardingService(settings, newExtractor(cfg), nil, logger, nil)
			if err != nil {
				return err
			}

			res := svc.Onboard(cmd.Context(), string(text))
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func settingsFromConfig(cfg *config.Config) (service.Settings, error) {
	grammar, err := domain.NewIDGrammar(cfg.Onboarding.MachineIDPattern, cfg.Onboarding.JobIDPattern)
	if err != nil {
		return service.Settings{}, err
	}
	settings := service.Settings{
		Grammar:            grammar,
		CoverageThreshold:  cfg.Onboarding.CoverageThreshold,
		DefaultDueTimeHour: cfg.Onboarding.DefaultDueTimeHour,
		ExtractTimeout:     cfg.Onboarding.ExtractTimeout,
	}
	if timeout > 0 {
		settings.ExtractTimeout = timeout
	}
	return settings, nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/normalize"
)

// newNormalizeCmd reads a candidate document, repairs it, and prints the
// factory and repair notes as JSON.
func newNormalizeCmd() *cobra.Command {
	var machinePattern, jobPattern string
	var defaultDue float64

	cmd := &cobra.Command{
		Use:   "normalize <candidate.json|->",
		Short: "Repair a candidate document without calling the upstream service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			grammar, err := domain.NewIDGrammar(machinePattern, jobPattern)
			if err != nil {
				return err
			}
			cand, err := normalize.ParseCandidate(b)
			if err != nil {
				return err
			}

			f, notes, normErr := normalize.New(normalize.Options{
				Grammar:            grammar,
				DefaultDueTimeHour: defaultDue,
			}).Normalize(cand)
			if notes == nil {
				notes = []string{}
			}

			out := struct {
				Factory domain.Factory `json:"factory"`
				Notes   []string       `json:"notes"`
			}{
				Factory: f,
				Notes:   notes,
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if normErr != nil {
				return fmt.Errorf("normalized factory is invalid: %w", normErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&machinePattern, "machine-pattern", domain.DefaultMachineIDPattern, "machine id pattern")
	cmd.Flags().StringVar(&jobPattern, "job-pattern", domain.DefaultJobIDPattern, "job id pattern")
	cmd.Flags().Float64Var(&defaultDue, "default-due", normalize.DefaultDueTimeHour, "due time for jobs that omit one")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/djlord-it/quizrelay/internal/config"
	"github.com/djlord-it/quizrelay/internal/probe"
)

type probeReport struct {
	Endpoint     string              `json:"endpoint"`
	Result       probe.Result        `json:"result"`
	Restrictions []probe.Restriction `json:"restrictions"`
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check once whether the endpoint is reachable and report environment restrictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.EndpointURL == "" {
				return withCode(exitInvalidConfig, fmt.Errorf("QUIZ_ENDPOINT_URL is required"))
			}

			p := probe.New(nil, cfg.EndpointURL)
			report := probeReport{
				Endpoint:     cfg.MaskedEndpoint(),
				Restrictions: p.Diagnose(cmd.Context()),
				Result:       p.Check(cmd.Context()),
			}
			if report.Restrictions == nil {
				report.Restrictions = []probe.Restriction{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			if !report.Result.Reachable {
				return withCode(exitUndelivered, fmt.Errorf("endpoint unreachable: %s", report.Result.Error))
			}
			return nil
		},
	}
}

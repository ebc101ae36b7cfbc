package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/djlord-it/quizrelay/internal/config"
	"github.com/djlord-it/quizrelay/internal/questionnaire"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and the questionnaire (no connections made)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			q, err := questionnaire.Load(cfg.QuestionnaireFile)
			if err != nil {
				return withCode(exitInvalidConfig, fmt.Errorf("questionnaire: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration valid (%d questions)\n", q.Len())
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print effective configuration as JSON (secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Load().MaskedJSON()
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quizrelay version %s (commit: %s)\n", version, commit)
		},
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/djlord-it/quizrelay/internal/api"
	"github.com/djlord-it/quizrelay/internal/domain"
	"github.com/djlord-it/quizrelay/internal/feedback"
	"github.com/djlord-it/quizrelay/internal/questionnaire"
)

func newSubmitCmd() *cobra.Command {
	var (
		answersPath string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Deliver the answers in a YAML file without prompting",
		Long: `Reads answers from a YAML file, checks them against the questionnaire and
delivers them through the waterfall. Exits 3 when every transport failed and
4 when answers are missing or invalid.

Example answers file:
  answers:
    q1: A
    q22: Somchai
    q23: somchai@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			answers, err := questionnaire.LoadAnswers(answersPath)
			if err != nil {
				return err
			}

			r, err := openRelay(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer r.Close()

			_, err = deliver(cmd.Context(), r, answers, cmd.OutOrStdout(), asJSON)
			return err
		},
	}

	cmd.Flags().StringVarP(&answersPath, "answers", "a", "", "YAML file with the answers (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outcome as JSON")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

// deliver validates answers, runs the waterfall once on a freshly collected
// record and writes the resulting report to out.
func deliver(ctx context.Context, r *relay, answers map[string]string, out io.Writer, asJSON bool) (domain.Outcome, error) {
	if err := r.questionnaire.Validate(answers); err != nil {
		var fields questionnaire.FieldErrors
		if errors.As(err, &fields) {
			return domain.Outcome{}, withCode(exitIncomplete, fields)
		}
		return domain.Outcome{}, withCode(exitIncomplete, err)
	}

	record := r.questionnaire.Collect(answers, time.Now(), r.cfg.Location())

	outcome := r.waterfall.Submit(ctx, record)
	report := feedback.For(outcome, r.delays())

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(api.NewSubmissionResponse(outcome, report)); err != nil {
			return outcome, fmt.Errorf("encode outcome: %w", err)
		}
	} else {
		fmt.Fprintln(out, report.Render())
	}

	if !outcome.Succeeded() {
		return outcome, withCode(exitUndelivered, fmt.Errorf("submission %s not delivered: %w", outcome.SubmissionID, outcome.Err))
	}
	return outcome, nil
}

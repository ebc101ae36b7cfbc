package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/djlord-it/quizrelay/internal/feedback"
	"github.com/djlord-it/quizrelay/internal/questionnaire"
)

var errNotTerminal = errors.New("take needs an interactive terminal; use `quizrelay submit --answers <file>` instead")

func newTakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "take",
		Short: "Answer the questionnaire interactively and send it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
				return errNotTerminal
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			r, err := openRelay(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer r.Close()

			err = take(cmd.Context(), r)
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled, nothing was sent.")
				return nil
			}
			return err
		},
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// take runs questionnaire rounds until the person declines to go again.
func take(ctx context.Context, r *relay) error {
	for {
		answers, err := askAll(r.questionnaire)
		if err != nil {
			return err
		}

		again, err := sendUntilSettled(ctx, r, answers)
		if err != nil || !again {
			return err
		}
	}
}

// sendUntilSettled delivers answers, offering a retry after each failure.
// It reports whether the person asked to start over after a success.
func sendUntilSettled(ctx context.Context, r *relay, answers map[string]string) (bool, error) {
	out := os.Stdout
	for {
		outcome, err := deliver(ctx, r, answers, out, false)
		// A failed delivery is answered with a retry offer, not an error.
		if err != nil && !undelivered(err) {
			return false, err
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		report := feedback.For(outcome, r.delays())
		if err := pause(ctx, report.OfferAfter); err != nil {
			return false, err
		}

		yes, err := confirm(report.Offer)
		if err != nil {
			return false, err
		}
		if outcome.Succeeded() {
			return yes, nil
		}
		if !yes {
			return false, withCode(exitUndelivered, fmt.Errorf("submission %s not delivered: %w", outcome.SubmissionID, outcome.Err))
		}
	}
}

// undelivered reports whether err only says the waterfall ran out of
// transports.
func undelivered(err error) bool {
	var ee *exitError
	return errors.As(err, &ee) && ee.code == exitUndelivered
}

// askAll shows one card per question. Every card is checked before the
// form moves on, so a completed form is always a complete set of answers.
func askAll(q *questionnaire.Questionnaire) (map[string]string, error) {
	values := make([]string, q.Len())
	groups := make([]*huh.Group, 0, q.Len())

	for i, question := range q.Questions {
		groups = append(groups, huh.NewGroup(questionField(q, question, i, &values[i])))
	}

	form := huh.NewForm(groups...).WithTheme(huh.ThemeCharm())
	if err := form.Run(); err != nil {
		return nil, err
	}

	answers := make(map[string]string, q.Len())
	for i, question := range q.Questions {
		answers[question.Name] = values[i]
	}
	if !q.IsComplete(answers) {
		return nil, withCode(exitIncomplete, q.Validate(answers))
	}
	return answers, nil
}

func questionField(q *questionnaire.Questionnaire, question questionnaire.Question, index int, value *string) huh.Field {
	validate := func(s string) error {
		return q.ValidateQuestion(question.Name, s)
	}
	title := fmt.Sprintf("%d. %s", index+1, question.Prompt)
	description := progressLine(q, index)

	if question.Type == questionnaire.TypeRadio {
		options := make([]huh.Option[string], 0, len(question.Options))
		for _, o := range question.Options {
			options = append(options, huh.NewOption(o.Label, o.Value))
		}
		return huh.NewSelect[string]().
			Title(title).
			Description(description).
			Options(options...).
			Value(value).
			Validate(validate)
	}

	input := huh.NewInput().
		Title(title).
		Description(description).
		Value(value).
		Validate(validate)
	if question.Type == questionnaire.TypeEmail {
		input = input.Placeholder("name@example.com")
	}
	return input
}

var bandColors = map[questionnaire.Band]lipgloss.Color{
	questionnaire.BandPurple: lipgloss.Color("#8E44AD"),
	questionnaire.BandBlue:   lipgloss.Color("#3498DB"),
	questionnaire.BandOrange: lipgloss.Color("#E67E22"),
	questionnaire.BandGreen:  lipgloss.Color("#27AE60"),
}

func progressLine(q *questionnaire.Questionnaire, index int) string {
	percent, band := q.Progress(index)
	style := lipgloss.NewStyle().Foreground(bandColors[band]).Bold(true)
	return style.Render(fmt.Sprintf("%d%%", percent)) + fmt.Sprintf(" · question %d of %d", index+1, q.Len())
}

func confirm(title string) (bool, error) {
	yes := true
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Affirmative("Yes").
			Negative("No").
			Value(&yes),
	)).Run()
	return yes, err
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

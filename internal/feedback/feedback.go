// Package feedback turns a submission outcome into what the person who
// answered the questionnaire is told.
package feedback

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// Kind is the overall tone of a report.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

// Report is the user-facing account of one submission.
type Report struct {
	Kind      Kind     `json:"kind"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Method    string   `json:"method,omitempty"`
	Causes    []string `json:"causes,omitempty"`
	Remedies  []string `json:"remedies,omitempty"`
	Emergency string   `json:"emergency,omitempty"`
	// Offer is the follow-up question: restart after a success, retry
	// after a failure.
	Offer string `json:"offer"`
	// OfferAfter is how long to wait before putting Offer.
	OfferAfter time.Duration `json:"-"`
}

// Delays configures when follow-up offers are made.
type Delays struct {
	SuccessDismiss time.Duration
	RetryPrompt    time.Duration
}

func DefaultDelays() Delays {
	return Delays{SuccessDismiss: 5 * time.Second, RetryPrompt: 3 * time.Second}
}

var (
	likelyCauses = []string{
		"your network or organisation blocks the form service",
		"a security setting of your browser or client",
		"a firewall or proxy in the way",
	}
	remedies = []string{
		"try another network, such as a mobile hotspot",
		"try another browser or client",
		"temporarily disable antivirus software",
		"contact your network administrator",
	}
)

const emergencyNote = "in an emergency, take a screenshot of your answers and send it to the administrator"

// For builds the report for outcome.
func For(outcome domain.Outcome, d Delays) Report {
	if outcome.Succeeded() {
		return Report{
			Kind:       KindSuccess,
			Title:      "Answers sent",
			Message:    "Thank you, your answers have been recorded.",
			Method:     outcome.Method,
			Offer:      "Take the questionnaire again?",
			OfferAfter: d.SuccessDismiss,
		}
	}
	return Report{
		Kind:       KindFailure,
		Title:      "Could not send your answers",
		Message:    "Every delivery method was tried and none got through.",
		Causes:     likelyCauses,
		Remedies:   remedies,
		Emergency:  emergencyNote,
		Offer:      "Try sending again?",
		OfferAfter: d.RetryPrompt,
	}
}

var (
	colorSuccess = lipgloss.Color("#4CAF50")
	colorError   = lipgloss.Color("#E74C3C")
	colorWarning = lipgloss.Color("#F4D03F")
	colorMuted   = lipgloss.Color("#7F8C8D")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Render formats the report for a terminal.
func (r Report) Render() string {
	accent := colorSuccess
	icon := "✓"
	if r.Kind == KindFailure {
		accent = colorError
		icon = "✗"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Foreground(accent).Render(icon + " " + r.Title))
	b.WriteString("\n")
	b.WriteString(r.Message)
	if r.Method != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("delivered via " + r.Method))
	}
	if len(r.Causes) > 0 {
		b.WriteString("\n\n")
		b.WriteString(headingStyle.Render("Possible causes"))
		writeBullets(&b, r.Causes)
	}
	if len(r.Remedies) > 0 {
		b.WriteString("\n\n")
		b.WriteString(headingStyle.Render("What you can do"))
		writeBullets(&b, r.Remedies)
	}
	if r.Emergency != "" {
		b.WriteString("\n\n")
		b.WriteString(mutedStyle.Render("Note: " + r.Emergency))
	}
	return boxStyle.BorderForeground(accent).Render(b.String())
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("\n  • ")
		b.WriteString(item)
	}
}

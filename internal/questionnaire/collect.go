package questionnaire

import (
	"time"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// Collect builds the submission record from answers in question order and
// appends the timestamp. An unanswered radio question is left out, as an
// unchecked radio group is; other questions are sent even when empty.
func (q *Questionnaire) Collect(answers map[string]string, now time.Time, loc *time.Location) domain.Record {
	fields := make([]domain.Field, 0, len(q.Questions))
	for _, question := range q.Questions {
		value, ok := answers[question.Name]
		if question.Type == TypeRadio && (!ok || value == "") {
			continue
		}
		fields = append(fields, domain.Field{Name: question.Name, Value: value})
	}
	return domain.NewRecord(fields, now, loc)
}

// Band is the colour stage of the progress indicator.
type Band string

const (
	BandPurple Band = "purple"
	BandBlue   Band = "blue"
	BandOrange Band = "orange"
	BandGreen  Band = "green"
)

// Progress returns how far through the questionnaire the 1-based index is,
// as a percentage capped at 100, and its band.
func (q *Questionnaire) Progress(index int) (int, Band) {
	if len(q.Questions) == 0 || index < 0 {
		return 0, BandPurple
	}
	pct := index * 100 / len(q.Questions)
	if pct > 100 {
		pct = 100
	}
	switch {
	case pct >= 100:
		return pct, BandGreen
	case pct >= 75:
		return pct, BandOrange
	case pct >= 50:
		return pct, BandBlue
	default:
		return pct, BandPurple
	}
}

package questionnaire

import (
	"fmt"
	"regexp"
	"strings"
)

// emailPattern is deliberately loose: something@something.something with
// no whitespace. RE2's \s is ASCII only, so vertical tab, the Unicode space
// separators and the byte order mark are listed explicitly.
var emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

const (
	MessageRequired = "please answer this question before moving on"
	MessageEmail    = "please enter a valid email address"
	MessageOption   = "please choose one of the listed options"
)

// FieldError describes why one answer is not acceptable.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors is every rejected answer, in question order.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d unanswered or invalid questions:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidateQuestion checks a single answer, the way a card is checked before
// advancing to the next one.
func (q *Questionnaire) ValidateQuestion(name, value string) error {
	question, ok := q.Question(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, name)
	}
	if fe := checkAnswer(question, value); fe != nil {
		return *fe
	}
	return nil
}

// Validate checks every question against answers and returns FieldErrors
// when any fails. Answers to names outside the definition are ignored.
func (q *Questionnaire) Validate(answers map[string]string) error {
	var errs FieldErrors
	for _, question := range q.Questions {
		if fe := checkAnswer(question, answers[question.Name]); fe != nil {
			errs = append(errs, *fe)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// IsComplete reports whether answers may be submitted.
func (q *Questionnaire) IsComplete(answers map[string]string) bool {
	return q.Validate(answers) == nil
}

func checkAnswer(question Question, value string) *FieldError {
	blank := strings.TrimSpace(value) == ""

	switch question.Type {
	case TypeRadio:
		if blank {
			if question.Required {
				return &FieldError{Field: question.Name, Message: MessageRequired}
			}
			return nil
		}
		if !question.HasOption(value) {
			return &FieldError{Field: question.Name, Message: MessageOption}
		}
	case TypeEmail:
		if blank {
			if question.Required {
				return &FieldError{Field: question.Name, Message: MessageEmail}
			}
			return nil
		}
		// The untrimmed value is matched, so surrounding spaces are rejected.
		if !IsEmail(value) {
			return &FieldError{Field: question.Name, Message: MessageEmail}
		}
	default:
		if blank && question.Required {
			return &FieldError{Field: question.Name, Message: MessageRequired}
		}
	}
	return nil
}

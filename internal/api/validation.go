package api

import (
	"fmt"
	"sort"

	"github.com/djlord-it/quizrelay/internal/questionnaire"
)

// maxAnswers bounds how many keys a request may carry, known or not.
const maxAnswers = 256

func validateSubmitRequest(q *questionnaire.Questionnaire, req SubmitRequest) error {
	if req.Answers == nil {
		return fmt.Errorf("answers is required")
	}
	if len(req.Answers) > maxAnswers {
		return fmt.Errorf("answers exceeds maximum of %d entries", maxAnswers)
	}

	var unknown []string
	for name := range req.Answers {
		if _, ok := q.Question(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", questionnaire.ErrUnknownQuestion, unknown[0])
	}
	return nil
}

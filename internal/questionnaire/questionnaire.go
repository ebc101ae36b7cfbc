// Package questionnaire holds the question definitions, answer validation
// and the collector that turns answers into a submission record.
package questionnaire

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// QuestionType selects the input a question is answered with.
type QuestionType string

const (
	TypeRadio QuestionType = "radio"
	TypeText  QuestionType = "text"
	TypeEmail QuestionType = "email"
)

type Option struct {
	Value string `yaml:"value" json:"value" validate:"required"`
	Label string `yaml:"label" json:"label" validate:"required"`
}

type Question struct {
	Name     string       `yaml:"name" json:"name" validate:"required,max=64"`
	Prompt   string       `yaml:"prompt" json:"prompt" validate:"required"`
	Type     QuestionType `yaml:"type" json:"type" validate:"required,oneof=radio text email"`
	Required bool         `yaml:"required" json:"required"`
	Options  []Option     `yaml:"options,omitempty" json:"options,omitempty" validate:"required_if=Type radio,dive"`
}

// HasOption reports whether value is one of the question's option values.
func (q Question) HasOption(value string) bool {
	for _, o := range q.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Questionnaire is an ordered list of questions. Question order is the
// order fields are sent in.
type Questionnaire struct {
	Title     string     `yaml:"title" json:"title" validate:"required"`
	Questions []Question `yaml:"questions" json:"questions" validate:"required,min=1,dive"`
}

var (
	ErrDuplicateQuestion = errors.New("duplicate question name")
	ErrDuplicateOption   = errors.New("duplicate option value")
	ErrUnknownQuestion   = errors.New("unknown question")
)

//go:embed questions.yaml
var defaultDefinition []byte

var definitionValidate = validator.New()

// Default returns the built-in 23-question definition.
func Default() *Questionnaire {
	q, err := Parse(defaultDefinition)
	if err != nil {
		panic("questionnaire: embedded definition is invalid: " + err.Error())
	}
	return q
}

// Load reads a definition from path. An empty path yields Default.
func Load(path string) (*Questionnaire, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questionnaire: %w", err)
	}
	q, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("questionnaire %s: %w", path, err)
	}
	return q, nil
}

// Parse decodes and checks a YAML definition.
func Parse(data []byte) (*Questionnaire, error) {
	var q Questionnaire
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := q.Check(); err != nil {
		return nil, err
	}
	return &q, nil
}

// Check validates the definition itself, not any answers.
func (q *Questionnaire) Check() error {
	if err := definitionValidate.Struct(q); err != nil {
		return fmt.Errorf("invalid definition: %w", err)
	}
	seen := make(map[string]bool, len(q.Questions))
	for _, question := range q.Questions {
		if seen[question.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateQuestion, question.Name)
		}
		seen[question.Name] = true

		values := make(map[string]bool, len(question.Options))
		for _, o := range question.Options {
			if values[o.Value] {
				return fmt.Errorf("%w: %s in %s", ErrDuplicateOption, o.Value, question.Name)
			}
			values[o.Value] = true
		}
	}
	return nil
}

func (q *Questionnaire) Len() int { return len(q.Questions) }

// Question returns the question called name.
func (q *Questionnaire) Question(name string) (Question, bool) {
	for _, question := range q.Questions {
		if question.Name == name {
			return question, true
		}
	}
	return Question{}, false
}

package questionnaire

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type answersFile struct {
	Answers map[string]string `yaml:"answers"`
}

// LoadAnswers reads an answers file. Both a bare name: value mapping and
// one nested under an "answers" key are accepted; JSON works as well since
// it is valid YAML.
func LoadAnswers(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	return ParseAnswers(data)
}

func ParseAnswers(data []byte) (map[string]string, error) {
	var nested answersFile
	if err := yaml.Unmarshal(data, &nested); err == nil && len(nested.Answers) > 0 {
		return nested.Answers, nil
	}
	var flat map[string]string
	if err := yaml.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if flat == nil {
		flat = map[string]string{}
	}
	return flat, nil
}

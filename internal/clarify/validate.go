package clarify

import (
	"fmt"
	"regexp"

	"github.com/tripdeck/tui-go/internal/model"
)

// ValidationError names the first question whose answer failed validation.
// It is user-facing and non-fatal; entered answers are never discarded.
type ValidationError struct {
	QuestionID string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %s: %s", e.QuestionID, e.Reason)
}

// Validate checks every answer against its question. Required questions must
// have a non-empty answer (multi-select: non-empty slice); free-text answers
// must satisfy their length and pattern constraints. The first failure is
// returned; nil means submission may proceed.
func Validate(questions []model.Question, answers model.Answers) error {
	for _, q := range questions {
		answer, present := answers[q.ID]
		if !present || isEmpty(answer) {
			if q.Required {
				return &ValidationError{QuestionID: q.ID, Reason: "an answer is required"}
			}
			continue
		}
		if q.Type == model.QuestionText {
			if err := validateText(q, answer); err != nil {
				return err
			}
		}
	}
	return nil
}

// AllCriticalAnswered reports whether every critical question has a
// non-empty answer.
func AllCriticalAnswered(questions []model.Question, answers model.Answers) bool {
	for _, q := range questions {
		if !q.Critical {
			continue
		}
		answer, present := answers[q.ID]
		if !present || isEmpty(answer) {
			return false
		}
	}
	return true
}

func validateText(q model.Question, answer any) error {
	text, ok := answer.(string)
	if !ok {
		return &ValidationError{QuestionID: q.ID, Reason: "expected a text answer"}
	}
	v := q.Validation
	if v == nil {
		return nil
	}
	if v.MinLength > 0 && len([]rune(text)) < v.MinLength {
		return &ValidationError{QuestionID: q.ID, Reason: fmt.Sprintf("answer must be at least %d characters", v.MinLength)}
	}
	if v.MaxLength > 0 && len([]rune(text)) > v.MaxLength {
		return &ValidationError{QuestionID: q.ID, Reason: fmt.Sprintf("answer must be at most %d characters", v.MaxLength)}
	}
	if v.Pattern != "" {
		re, err := regexp.Compile(v.Pattern)
		if err != nil {
			return &ValidationError{QuestionID: q.ID, Reason: "answer format rule is invalid"}
		}
		if !re.MatchString(text) {
			return &ValidationError{QuestionID: q.ID, Reason: "answer does not match the expected format"}
		}
	}
	return nil
}

func isEmpty(answer any) bool {
	switch v := answer.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	}
	return false
}

package clarify

import (
	"errors"
	"testing"

	"github.com/tripdeck/tui-go/internal/model"
)

func TestValidate(t *testing.T) {
	textQ := model.Question{ID: "dates", Type: model.QuestionText, Required: true}
	optionalQ := model.Question{ID: "notes", Type: model.QuestionText, Required: false}
	multiQ := model.Question{ID: "party", Type: model.QuestionMultiple, Required: true, Options: []string{"a", "b"}}
	boundedQ := model.Question{
		ID: "code", Type: model.QuestionText, Required: true,
		Validation: &model.TextValidation{MinLength: 2, MaxLength: 4, Pattern: `^[A-Z]+$`},
	}

	tests := []struct {
		name      string
		questions []model.Question
		answers   model.Answers
		wantFail  string // failing question ID, empty means pass
	}{
		{"all answered", []model.Question{textQ, multiQ}, model.Answers{"dates": "next week", "party": []string{"a"}}, ""},
		{"required missing", []model.Question{textQ}, model.Answers{}, "dates"},
		{"required empty string", []model.Question{textQ}, model.Answers{"dates": ""}, "dates"},
		{"optional missing passes", []model.Question{optionalQ}, model.Answers{}, ""},
		{"multi empty slice fails", []model.Question{multiQ}, model.Answers{"party": []string{}}, "party"},
		{"multi nil fails", []model.Question{multiQ}, model.Answers{"party": nil}, "party"},
		{"too short", []model.Question{boundedQ}, model.Answers{"code": "A"}, "code"},
		{"too long", []model.Question{boundedQ}, model.Answers{"code": "ABCDE"}, "code"},
		{"pattern mismatch", []model.Question{boundedQ}, model.Answers{"code": "ab"}, "code"},
		{"bounds satisfied", []model.Question{boundedQ}, model.Answers{"code": "ABC"}, ""},
		{"non-string text answer", []model.Question{textQ}, model.Answers{"dates": 42}, "dates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.questions, tt.answers)
			if tt.wantFail == "" {
				if err != nil {
					t.Fatalf("Validate: %v, want pass", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if vErr.QuestionID != tt.wantFail {
				t.Errorf("failing question = %q, want %q", vErr.QuestionID, tt.wantFail)
			}
		})
	}
}

func TestValidate_RuneLengths(t *testing.T) {
	q := model.Question{
		ID: "city", Type: model.QuestionText, Required: true,
		Validation: &model.TextValidation{MinLength: 2, MaxLength: 3},
	}
	// Multibyte characters count as one.
	if err := Validate([]model.Question{q}, model.Answers{"city": "东京"}); err != nil {
		t.Errorf("two-rune answer rejected: %v", err)
	}
	if err := Validate([]model.Question{q}, model.Answers{"city": "路"}); err == nil {
		t.Error("one-rune answer accepted against minLength 2")
	}
}

func TestAllCriticalAnswered(t *testing.T) {
	questions := []model.Question{
		{ID: "a", Critical: true},
		{ID: "b", Critical: false},
	}
	if AllCriticalAnswered(questions, model.Answers{"b": "x"}) {
		t.Error("critical question unanswered, want false")
	}
	if !AllCriticalAnswered(questions, model.Answers{"a": "x"}) {
		t.Error("critical question answered, want true")
	}
}

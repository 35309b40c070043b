package model

// QuestionType represents the input style of a clarification question
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionText     QuestionType = "text"
)

// QuestionLabel holds the bilingual label of a question. The wire format may
// send a plain string (stored in EN) or a {zh,en} object.
type QuestionLabel struct {
	ZH string
	EN string
}

// Get returns the label for lang ("zh" or "en"), falling back to whichever
// translation is present.
func (l QuestionLabel) Get(lang string) string {
	if lang == "zh" && l.ZH != "" {
		return l.ZH
	}
	if l.EN != "" {
		return l.EN
	}
	return l.ZH
}

// TextValidation constrains a free-text answer
type TextValidation struct {
	MinLength int
	MaxLength int
	Pattern   string
}

// Question is the canonical clarification question record. Both wire
// encodings (structured objects and legacy strings) normalize to this shape
// before any validation runs.
type Question struct {
	ID          string
	Label       QuestionLabel
	Type        QuestionType
	Required    bool
	Options     []string
	Validation  *TextValidation
	Placeholder string
	Hint        string
	Critical    bool
}

// Answers maps question ID to the entered value: string for single/text,
// []string for multiple.
type Answers map[string]any

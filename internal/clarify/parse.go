// Package clarify normalizes ask-user question sets and validates answers
// before they are submitted. Two wire encodings exist: structured objects
// and legacy "id: text (opt1|opt2) [flags]" strings. Both resolve to
// model.Question here, once, so nothing downstream re-inspects raw shapes.
package clarify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/tripdeck/tui-go/internal/model"
)

// legacyPattern matches "id: text (opt1|opt2|...) [flag1|flag2]" where the
// options group and the flags group are both optional.
var legacyPattern = regexp.MustCompile(`^\s*([^:\s][^:]*?)\s*:\s*(.*?)\s*(?:\(([^)]*)\))?\s*(?:\[([^\]]*)\])?\s*$`)

// ParseQuestions resolves a raw question payload into canonical records.
// Structured input is detected by the presence of id and text (or question)
// keys on the first element; otherwise every entry is treated as a legacy
// string. Questions with blank text are dropped.
func ParseQuestions(raw []json.RawMessage) []model.Question {
	if len(raw) == 0 {
		return nil
	}
	if isStructured(raw[0]) {
		questions := make([]model.Question, 0, len(raw))
		for _, r := range raw {
			var obj map[string]any
			if err := json.Unmarshal(r, &obj); err != nil {
				continue
			}
			questions = append(questions, normalizeStructured(obj))
		}
		return lo.Filter(questions, func(q model.Question, _ int) bool {
			return strings.TrimSpace(q.Label.Get("en")) != ""
		})
	}

	questions := make([]model.Question, 0, len(raw))
	for i, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err != nil || strings.TrimSpace(s) == "" {
			continue
		}
		questions = append(questions, parseLegacyString(s, i+1))
	}
	return questions
}

func isStructured(first json.RawMessage) bool {
	var obj map[string]any
	if err := json.Unmarshal(first, &obj); err != nil {
		return false
	}
	_, hasID := obj["id"]
	_, hasText := obj["text"]
	_, hasQuestion := obj["question"]
	return hasID && (hasText || hasQuestion)
}

// normalizeStructured maps a structured question object to the canonical
// record, tolerating legacy field names (question/text, type/inputType,
// multi_choice for multiple_choice). required defaults to true.
func normalizeStructured(obj map[string]any) model.Question {
	q := model.Question{
		ID:       stringField(obj, "id"),
		Label:    parseLabel(firstPresent(obj, "text", "question")),
		Required: true,
	}
	if v, ok := obj["required"].(bool); ok {
		q.Required = v
	}
	typeName := stringField(obj, "type")
	if typeName == "" {
		typeName = stringField(obj, "inputType")
	}
	q.Type = normalizeType(typeName, obj["options"] != nil)
	if opts, ok := obj["options"].([]any); ok {
		q.Options = lo.FilterMap(opts, func(o any, _ int) (string, bool) {
			s, ok := o.(string)
			return s, ok
		})
	}
	q.Placeholder = stringField(obj, "placeholder")
	q.Hint = stringField(obj, "hint")
	if meta, ok := obj["metadata"].(map[string]any); ok {
		if crit, ok := meta["isCritical"].(bool); ok {
			q.Critical = crit
		}
	}
	if v, ok := obj["validation"].(map[string]any); ok {
		q.Validation = &model.TextValidation{
			MinLength: intField(v, "minLength"),
			MaxLength: intField(v, "maxLength"),
			Pattern:   stringField(v, "pattern"),
		}
	}
	return q
}

// parseLegacyString parses one legacy question string. Strings that do not
// match the grammar fall back to a free-text question using the whole string
// as its label.
func parseLegacyString(s string, ordinal int) model.Question {
	m := legacyPattern.FindStringSubmatch(s)
	if m == nil || strings.TrimSpace(m[2]) == "" {
		return model.Question{
			ID:       fmt.Sprintf("q%d", ordinal),
			Label:    model.QuestionLabel{EN: strings.TrimSpace(s)},
			Type:     model.QuestionText,
			Required: true,
		}
	}

	q := model.Question{
		ID:       strings.TrimSpace(m[1]),
		Label:    model.QuestionLabel{EN: strings.TrimSpace(m[2])},
		Required: true,
	}
	if m[3] != "" {
		q.Options = lo.FilterMap(strings.Split(m[3], "|"), func(o string, _ int) (string, bool) {
			o = strings.TrimSpace(o)
			return o, o != ""
		})
	}

	multiple := false
	single := false
	if m[4] != "" {
		for _, flag := range strings.Split(m[4], "|") {
			switch strings.TrimSpace(flag) {
			case "optional":
				q.Required = false
			case "multiple":
				multiple = true
			case "single":
				single = true
			}
		}
	}
	switch {
	case multiple:
		q.Type = model.QuestionMultiple
	case single, len(q.Options) > 0:
		q.Type = model.QuestionSingle
	default:
		q.Type = model.QuestionText
	}
	return q
}

func normalizeType(name string, hasOptions bool) model.QuestionType {
	switch name {
	case "multiple_choice", "multi_choice", "multiple":
		return model.QuestionMultiple
	case "single_choice", "single":
		return model.QuestionSingle
	case "text":
		return model.QuestionText
	}
	if hasOptions {
		return model.QuestionSingle
	}
	return model.QuestionText
}

func parseLabel(v any) model.QuestionLabel {
	switch t := v.(type) {
	case string:
		return model.QuestionLabel{EN: t}
	case map[string]any:
		return model.QuestionLabel{
			ZH: stringField(t, "zh"),
			EN: stringField(t, "en"),
		}
	}
	return model.QuestionLabel{}
}

// ToStructured renders a canonical question back to the structured wire
// shape. ParseQuestions over the result round-trips to the same records.
func ToStructured(q model.Question) map[string]any {
	obj := map[string]any{
		"id":       q.ID,
		"text":     q.Label.EN,
		"type":     wireType(q.Type),
		"required": q.Required,
	}
	if q.Label.ZH != "" {
		obj["text"] = map[string]any{"zh": q.Label.ZH, "en": q.Label.EN}
	}
	if len(q.Options) > 0 {
		obj["options"] = lo.Map(q.Options, func(o string, _ int) any { return o })
	}
	if q.Placeholder != "" {
		obj["placeholder"] = q.Placeholder
	}
	if q.Hint != "" {
		obj["hint"] = q.Hint
	}
	if q.Critical {
		obj["metadata"] = map[string]any{"isCritical": true}
	}
	if q.Validation != nil {
		v := map[string]any{}
		if q.Validation.MinLength > 0 {
			v["minLength"] = q.Validation.MinLength
		}
		if q.Validation.MaxLength > 0 {
			v["maxLength"] = q.Validation.MaxLength
		}
		if q.Validation.Pattern != "" {
			v["pattern"] = q.Validation.Pattern
		}
		obj["validation"] = v
	}
	return obj
}

func wireType(t model.QuestionType) string {
	switch t {
	case model.QuestionMultiple:
		return "multiple_choice"
	case model.QuestionSingle:
		return "single_choice"
	}
	return "text"
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func intField(obj map[string]any, key string) int {
	if f, ok := obj[key].(float64); ok {
		return int(f)
	}
	return 0
}

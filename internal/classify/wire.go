// Package classify turns raw routing-service responses into conversation
// outcomes. Decoding happens once at this boundary; nothing downstream
// re-inspects raw shapes.
package classify

import "encoding/json"

// Result statuses on the wire.
const (
	StatusOK               = "OK"
	StatusRedirectRequired = "REDIRECT_REQUIRED"
	StatusNeedMoreInfo     = "NEED_MORE_INFO"
	StatusNeedConsent      = "NEED_CONSENT"
	StatusNeedConfirmation = "NEED_CONFIRMATION"
	StatusFailed           = "FAILED"
	StatusTimeout          = "TIMEOUT"
)

// Response is the routing-service reply consumed by Classify.
type Response struct {
	Result  Result     `json:"result"`
	Route   *RouteInfo `json:"route,omitempty"`
	Explain *Explain   `json:"explain,omitempty"`
}

// Result carries the answer or the reason no answer was produced.
type Result struct {
	Status     string   `json:"status"`
	AnswerText string   `json:"answer_text,omitempty"`
	Payload    *Payload `json:"payload,omitempty"`
}

// Payload holds status-specific data. Which fields are set depends on the
// result status.
type Payload struct {
	RedirectInfo         *RedirectInfo      `json:"redirectInfo,omitempty"`
	ClarificationMessage string             `json:"clarificationMessage,omitempty"`
	ClarificationInfo    *ClarificationInfo `json:"clarificationInfo,omitempty"`
	SuspensionInfo       *SuspensionInfo    `json:"suspensionInfo,omitempty"`
	ConsentPrompt        string             `json:"consentPrompt,omitempty"`
	Blocks               []BlockWire        `json:"blocks,omitempty"`
	HasPlan              bool               `json:"hasPlan,omitempty"`
}

// RedirectInfo names where the user should be sent instead of answering.
type RedirectInfo struct {
	Reason string `json:"reason,omitempty"`
	Target string `json:"target"`
}

// ClarificationInfo is the legacy structured clarification shape. The newer
// pre-rendered clarificationMessage takes precedence when both are present.
type ClarificationInfo struct {
	FindingID       string            `json:"findingId,omitempty"`
	MissingServices []string          `json:"missing_services,omitempty"`
	Impact          string            `json:"impact,omitempty"`
	Solutions       []string          `json:"solutions,omitempty"`
	Questions       []json.RawMessage `json:"questions,omitempty"`
}

// SuspensionInfo marks a response paused on a human approval decision.
type SuspensionInfo struct {
	ApprovalID string `json:"approvalId"`
}

// RouteInfo reports which route handled the request.
type RouteInfo struct {
	Route  string  `json:"route"`
	UIHint *UIHint `json:"ui_hint,omitempty"`
}

// UIHint is the backend's display suggestion for the route.
type UIHint struct {
	Status string `json:"status,omitempty"`
}

// Explain carries the router's decision trail.
type Explain struct {
	DecisionLog []DecisionLogItem `json:"decision_log,omitempty"`
}

// DecisionLogItem is one step of the router's reasoning.
type DecisionLogItem struct {
	Step         int     `json:"step"`
	ChosenAction string  `json:"chosen_action"`
	ReasonCode   string  `json:"reason_code"`
	Confidence   float64 `json:"confidence"`
}

// BlockWire is a content block as sent by the backend.
type BlockWire struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Text          string          `json:"text,omitempty"`
	Level         int             `json:"level,omitempty"`
	Items         []string        `json:"items,omitempty"`
	Title         string          `json:"title,omitempty"`
	Fields        []CardFieldWire `json:"fields,omitempty"`
	HighlightType string          `json:"highlightType,omitempty"`
	QuestionID    string          `json:"questionId,omitempty"`
}

// CardFieldWire is one labeled value on a card block.
type CardFieldWire struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

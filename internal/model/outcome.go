package model

// OutcomeKind tags the result of classifying one agent response
type OutcomeKind string

const (
	OutcomeRedirect            OutcomeKind = "redirect"
	OutcomeApprovalRequired    OutcomeKind = "approval_required"
	OutcomeClarificationNeeded OutcomeKind = "clarification_needed"
	OutcomeCompleted           OutcomeKind = "completed"
	OutcomeConsentRequired     OutcomeKind = "consent_required"
	OutcomeFailed              OutcomeKind = "failed"
)

// ResponseOutcome is the tagged variant produced by classification. It is
// the input to the next conversation state transition and is never persisted.
type ResponseOutcome struct {
	Kind OutcomeKind

	// Redirect
	RedirectReason string
	RedirectTarget string
	ExternalTarget bool // target carries a URL scheme

	// ApprovalRequired
	ApprovalID string

	// ClarificationNeeded
	ClarificationContent string // rendered Markdown
	Questions            []Question
	FindingID            string // submission target for structured questions

	// Completed
	AnswerText       string
	Blocks           []ContentBlock
	RouteType        RouteType
	DecisionLogCount int
	HasPlan          bool

	// ConsentRequired
	ConsentPrompt string

	// Failed
	FailureReason string
}

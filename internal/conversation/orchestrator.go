// Package conversation owns the top-level turn state machine and the
// append-only transcript. It is the single writer of conversation history;
// the view layer and the progressive renderer only read it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripdeck/tui-go/internal/agent"
	"github.com/tripdeck/tui-go/internal/approval"
	"github.com/tripdeck/tui-go/internal/classify"
	"github.com/tripdeck/tui-go/internal/model"
)

// State is the orchestrator's position in the turn lifecycle
type State string

const (
	StateIdle             State = "idle"
	StateSending          State = "sending"
	StateRedirecting      State = "redirecting"
	StateAwaitingApproval State = "awaiting_approval"
	StateAwaitingConsent  State = "awaiting_consent"
)

// Scheduling constants. The settle delay is a heuristic to let backend state
// propagate before refreshing derived panels, not a correctness guarantee.
const (
	RedirectDelay = 1500 * time.Millisecond
	SettleDelay   = 500 * time.Millisecond
)

// ErrBusy is returned when a send arrives while a request is in flight. The
// new send is a no-op, not queued.
var ErrBusy = errors.New("a request is already in flight")

// Narration strings appended on approval decisions.
const (
	approvedNarration = "Approved. The assistant will continue with the action."
	rejectedNarration = "Rejected. Tell me what you would like to change."
	consentDeclined   = "Okay, I won't browse the web for this one."
)

// TurnResult carries one network round-trip's outcome back into the state
// machine.
type TurnResult struct {
	RequestID string
	Outcome   model.ResponseOutcome
	Err       error
}

// Effect tells the caller what to schedule after a state transition. The
// orchestrator never owns timers; the event loop does.
type Effect struct {
	NavigateTarget   string
	NavigateExternal bool
	NavigateAfter    time.Duration

	RefreshAfter time.Duration // deep-reasoning settle refresh

	RenderMessageID string
	RenderBlocks    []model.ContentBlock

	ConsentPrompt string
	ApprovalID    string
	Questions     []model.Question
	FindingID     string
}

// Orchestrator drives one conversation. All mutating methods must be called
// from the event loop; Execute is the only method safe to run off it.
type Orchestrator struct {
	client  *agent.Client
	gate    *approval.Gate
	journal *agent.Journal
	logger  *zap.Logger

	tripID  *string
	history []model.Message
	state   State

	lastSent      string
	placeholderID string
	blockSeq      int
}

// New creates an idle orchestrator. journal may be nil; a nil logger
// disables logging.
func New(client *agent.Client, gate *approval.Gate, journal *agent.Journal, tripID *string, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		client:  client,
		gate:    gate,
		journal: journal,
		logger:  logger,
		tripID:  tripID,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// Messages returns the transcript. Callers must treat it as read-only.
func (o *Orchestrator) Messages() []model.Message { return o.history }

// BeginSend appends the user message and the thinking placeholder, moves to
// Sending, and returns the wire request for Execute. ErrBusy when a turn is
// already in flight or awaiting a decision.
func (o *Orchestrator) BeginSend(text string) (agent.TurnRequest, error) {
	if o.state != StateIdle {
		o.logger.Debug("send rejected", zap.String("state", string(o.state)))
		return agent.TurnRequest{}, ErrBusy
	}

	req := o.buildRequest(text, false)

	o.append(model.Message{
		ID:        model.NewMessageID(),
		Role:      model.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
	o.appendPlaceholder()
	o.lastSent = text
	o.state = StateSending

	o.journal.LogSent("turn_request", req, nil)
	return req, nil
}

// RetryLast resubmits the last user message after a failure. Valid only when
// idle and something was sent before.
func (o *Orchestrator) RetryLast() (agent.TurnRequest, error) {
	if o.state != StateIdle {
		return agent.TurnRequest{}, ErrBusy
	}
	if o.lastSent == "" {
		return agent.TurnRequest{}, errors.New("nothing to retry")
	}

	req := o.buildRequest(o.lastSent, false)
	o.appendPlaceholder()
	o.state = StateSending
	o.journal.LogSent("turn_retry", req, nil)
	return req, nil
}

// Execute performs the network call and classification. It never touches
// orchestrator state and is safe to run in a background goroutine; feed its
// result to ApplyResult on the event loop.
func (o *Orchestrator) Execute(ctx context.Context, req agent.TurnRequest) TurnResult {
	resp, err := o.client.RouteAndRun(ctx, req)
	if err != nil {
		o.journal.LogReceived("turn_error", map[string]any{"error": err.Error()}, nil)
		return TurnResult{RequestID: req.RequestID, Err: fmt.Errorf("agent request: %w", err)}
	}
	o.journal.LogReceived("turn_response", resp, nil)

	outcome, err := classify.Classify(resp)
	if err != nil {
		return TurnResult{RequestID: req.RequestID, Err: err}
	}
	return TurnResult{RequestID: req.RequestID, Outcome: outcome}
}

// ApplyResult runs one state transition from a completed turn. The returned
// effect names what the event loop should schedule next.
func (o *Orchestrator) ApplyResult(res TurnResult) Effect {
	if o.state != StateSending {
		o.logger.Warn("turn result in unexpected state", zap.String("state", string(o.state)))
		return Effect{}
	}

	if res.Err != nil {
		return o.applyError(res.Err)
	}

	outcome := res.Outcome
	switch outcome.Kind {
	case model.OutcomeRedirect:
		o.removePlaceholder()
		content := fmt.Sprintf("Taking you to %s.", outcome.RedirectTarget)
		if outcome.RedirectReason != "" {
			content = fmt.Sprintf("%s Taking you to %s.", outcome.RedirectReason, outcome.RedirectTarget)
		}
		o.append(model.Message{
			ID:        model.NewMessageID(),
			Role:      model.RoleAssistant,
			Content:   content,
			Timestamp: time.Now(),
		})
		o.state = StateRedirecting
		return Effect{
			NavigateTarget:   outcome.RedirectTarget,
			NavigateExternal: outcome.ExternalTarget,
			NavigateAfter:    RedirectDelay,
		}

	case model.OutcomeApprovalRequired:
		o.removePlaceholder()
		o.append(model.Message{
			ID:        model.NewMessageID(),
			Role:      model.RoleAssistant,
			Content:   "This action needs your approval before it can proceed.",
			Timestamp: time.Now(),
			Status:    model.StatusAwaitingConfirmation,
		})
		o.gate.Open(outcome.ApprovalID)
		o.state = StateAwaitingApproval
		return Effect{ApprovalID: outcome.ApprovalID}

	case model.OutcomeClarificationNeeded:
		o.removePlaceholder()
		o.append(model.Message{
			ID:        model.NewMessageID(),
			Role:      model.RoleAssistant,
			Content:   outcome.ClarificationContent,
			Timestamp: time.Now(),
			Status:    model.StatusAwaitingUserInput,
		})
		o.state = StateIdle
		return Effect{Questions: outcome.Questions, FindingID: outcome.FindingID}

	case model.OutcomeConsentRequired:
		o.removePlaceholder()
		o.state = StateAwaitingConsent
		return Effect{ConsentPrompt: outcome.ConsentPrompt}

	case model.OutcomeFailed:
		return o.applyError(errors.New(outcome.FailureReason))
	}

	// Completed
	o.removePlaceholder()
	msg := model.Message{
		ID:               model.NewMessageID(),
		Role:             model.RoleAssistant,
		Content:          outcome.AnswerText,
		Blocks:           outcome.Blocks,
		Timestamp:        time.Now(),
		RouteType:        outcome.RouteType,
		DecisionLogCount: outcome.DecisionLogCount,
		HasPlan:          outcome.HasPlan,
	}
	if len(msg.Blocks) == 0 {
		msg.Blocks = o.paragraphBlocks(outcome.AnswerText)
	}
	o.append(msg)
	o.state = StateIdle

	effect := Effect{RenderMessageID: msg.ID, RenderBlocks: msg.Blocks}
	if outcome.RouteType.IsDeepReasoning() {
		effect.RefreshAfter = SettleDelay
	}
	return effect
}

// applyError handles both network failures and classification failures. A
// classification failure (missing approval id) appends nothing: the
// placeholder is dropped and the error is only logged, since there is no
// sound user-facing interpretation of the response.
func (o *Orchestrator) applyError(err error) Effect {
	o.removePlaceholder()
	if errors.Is(err, classify.ErrMissingApprovalID) {
		o.logger.Error("halting turn", zap.Error(err))
		o.state = StateIdle
		return Effect{}
	}
	o.append(model.Message{
		ID:        model.NewMessageID(),
		Role:      model.RoleAssistant,
		Content:   fmt.Sprintf("Something went wrong: %v", err),
		Timestamp: time.Now(),
		Status:    model.StatusFailed,
		Retryable: true,
	})
	o.state = StateIdle
	return Effect{}
}

// CompleteRedirect finishes the redirect once the scheduled delay elapsed.
func (o *Orchestrator) CompleteRedirect() {
	if o.state == StateRedirecting {
		o.state = StateIdle
	}
}

// ResolveApproval applies the external decision, narrates it, and returns to
// idle. Rejecting does not resubmit anything; it only surfaces intent.
func (o *Orchestrator) ResolveApproval(approved bool) {
	id, ok := o.gate.Resolve(approved)
	if !ok {
		return
	}
	narration := rejectedNarration
	if approved {
		narration = approvedNarration
	}
	o.append(model.Message{
		ID:        model.NewMessageID(),
		Role:      model.RoleAssistant,
		Content:   narration,
		Timestamp: time.Now(),
	})
	o.state = StateIdle
	o.journal.LogSent("approval_decision", map[string]any{"approval_id": id, "approved": approved}, nil)
}

// PendingApproval reports the approval id currently awaiting a decision.
func (o *Orchestrator) PendingApproval() (string, bool) {
	return o.gate.Pending()
}

// DismissApproval closes the dialog without a decision. Nothing is narrated.
func (o *Orchestrator) DismissApproval() {
	o.gate.Close()
	if o.state == StateAwaitingApproval {
		o.state = StateIdle
	}
}

// ResolveConsent answers a web-browsing consent prompt. Allowing returns the
// retry request (same message, consent granted) and moves back to Sending;
// declining appends a note and returns to idle.
func (o *Orchestrator) ResolveConsent(allow bool) (agent.TurnRequest, bool) {
	if o.state != StateAwaitingConsent {
		return agent.TurnRequest{}, false
	}
	if !allow {
		o.append(model.Message{
			ID:        model.NewMessageID(),
			Role:      model.RoleAssistant,
			Content:   consentDeclined,
			Timestamp: time.Now(),
		})
		o.state = StateIdle
		return agent.TurnRequest{}, false
	}

	req := o.buildRequest(o.lastSent, true)
	o.appendPlaceholder()
	o.state = StateSending
	o.journal.LogSent("turn_consent_retry", req, nil)
	return req, true
}

func (o *Orchestrator) buildRequest(text string, allowWebbrowse bool) agent.TurnRequest {
	return agent.TurnRequest{
		RequestID: uuid.NewString(),
		TripID:    o.tripID,
		Message:   text,
		ConversationContext: agent.ConversationContext{
			RecentMessages: agent.RecentWindow(o.renderedHistory()),
		},
		AllowWebbrowse: allowWebbrowse,
	}
}

// renderedHistory flattens the transcript for the wire context window. The
// placeholder never travels.
func (o *Orchestrator) renderedHistory() []string {
	rendered := make([]string, 0, len(o.history))
	for _, m := range o.history {
		if m.IsPlaceholder() {
			continue
		}
		rendered = append(rendered, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return rendered
}

func (o *Orchestrator) append(m model.Message) {
	o.history = append(o.history, m)
}

func (o *Orchestrator) appendPlaceholder() {
	placeholder := model.Message{
		ID:        model.NewMessageID(),
		Role:      model.RoleAssistant,
		Content:   "Thinking...",
		Timestamp: time.Now(),
		Status:    model.StatusThinking,
	}
	o.placeholderID = placeholder.ID
	o.append(placeholder)
}

// removePlaceholder drops the thinking entry by ID. This is the only removal
// the transcript ever sees.
func (o *Orchestrator) removePlaceholder() {
	if o.placeholderID == "" {
		return
	}
	kept := o.history[:0]
	for _, m := range o.history {
		if m.ID != o.placeholderID {
			kept = append(kept, m)
		}
	}
	o.history = kept
	o.placeholderID = ""
}

// paragraphBlocks splits plain answer text into paragraph blocks for the
// progressive renderer.
func (o *Orchestrator) paragraphBlocks(text string) []model.ContentBlock {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	o.blockSeq++
	parts := strings.Split(text, "\n\n")
	blocks := make([]model.ContentBlock, 0, len(parts))
	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		blocks = append(blocks, model.Paragraph(fmt.Sprintf("m%d-p%d", o.blockSeq, i), p))
	}
	return blocks
}

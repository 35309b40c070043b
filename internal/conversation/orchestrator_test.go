package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tripdeck/tui-go/internal/agent"
	"github.com/tripdeck/tui-go/internal/approval"
	"github.com/tripdeck/tui-go/internal/classify"
	"github.com/tripdeck/tui-go/internal/model"
)

func newTestOrchestrator() *Orchestrator {
	return New(nil, approval.NewGate(nil), nil, nil, nil)
}

func completedResult(text string) TurnResult {
	return TurnResult{Outcome: model.ResponseOutcome{Kind: model.OutcomeCompleted, AnswerText: text}}
}

func TestBeginSend(t *testing.T) {
	o := newTestOrchestrator()

	req, err := o.BeginSend("Plan three days in Kyoto")
	if err != nil {
		t.Fatalf("BeginSend: %v", err)
	}
	if req.Message != "Plan three days in Kyoto" {
		t.Errorf("request message = %q", req.Message)
	}
	if req.RequestID == "" {
		t.Error("request id not assigned")
	}
	if o.State() != StateSending {
		t.Fatalf("state = %v, want sending", o.State())
	}

	msgs := o.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript has %d messages, want user + placeholder", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "Plan three days in Kyoto" {
		t.Errorf("first message = %+v", msgs[0])
	}
	if !msgs[1].IsPlaceholder() {
		t.Errorf("second message is not the placeholder: %+v", msgs[1])
	}
}

func TestBeginSend_BusyRejectsWithoutAppending(t *testing.T) {
	o := newTestOrchestrator()
	if _, err := o.BeginSend("first"); err != nil {
		t.Fatalf("BeginSend: %v", err)
	}
	before := len(o.Messages())

	_, err := o.BeginSend("second")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	if len(o.Messages()) != before {
		t.Error("rejected send still appended messages")
	}
}

func TestApplyResult_Completed(t *testing.T) {
	o := newTestOrchestrator()
	o.BeginSend("hello")

	effect := o.ApplyResult(completedResult("First paragraph.\n\nSecond paragraph."))

	if o.State() != StateIdle {
		t.Fatalf("state = %v, want idle", o.State())
	}
	msgs := o.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript has %d messages, want user + answer", len(msgs))
	}
	for _, m := range msgs {
		if m.IsPlaceholder() {
			t.Fatal("placeholder survived the turn")
		}
	}
	answer := msgs[1]
	if answer.Content != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("answer content = %q", answer.Content)
	}
	if len(answer.Blocks) != 2 {
		t.Fatalf("answer split into %d blocks, want 2", len(answer.Blocks))
	}
	if effect.RenderMessageID != answer.ID {
		t.Errorf("effect renders %q, answer is %q", effect.RenderMessageID, answer.ID)
	}
	if effect.RefreshAfter != 0 {
		t.Errorf("shallow route scheduled a refresh: %v", effect.RefreshAfter)
	}
}

func TestApplyResult_DeepRouteSchedulesRefresh(t *testing.T) {
	o := newTestOrchestrator()
	o.BeginSend("replan everything")

	effect := o.ApplyResult(TurnResult{Outcome: model.ResponseOutcome{
		Kind:       model.OutcomeCompleted,
		AnswerText: "Replanned.",
		RouteType:  model.RouteSystem2Reasoning,
	}})

	if effect.RefreshAfter != SettleDelay {
		t.Errorf("RefreshAfter = %v, want %v", effect.RefreshAfter, SettleDelay)
	}
}

func TestApplyResult_Redirect(t *testing.T) {
	o := newTestOrchestrator()
	o.BeginSend("how much have I spent")

	effect := o.ApplyResult(TurnResult{Outcome: model.ResponseOutcome{
		Kind:           model.OutcomeRedirect,
		RedirectTarget: "/trips/t1/budget",
		RedirectReason: "Budget questions live on the budget page.",
	}})

	if o.State() != StateRedirecting {
		t.Fatalf("state = %v, want redirecting", o.State())
	}
	if effect.NavigateTarget != "/trips/t1/budget" || effect.NavigateAfter != RedirectDelay {
		t.Errorf("effect = %+v", effect)
	}

	o.CompleteRedirect()
	if o.State() != StateIdle {
		t.Errorf("state = %v after CompleteRedirect, want idle", o.State())
	}
}

func TestApplyResult_ApprovalLifecycle(t *testing.T) {
	o := newTestOrchestrator()
	o.BeginSend("book the ferry")

	effect := o.ApplyResult(TurnResult{Outcome: model.ResponseOutcome{
		Kind:       model.OutcomeApprovalRequired,
		ApprovalID: "ap-7",
	}})

	if o.State() != StateAwaitingApproval {
		t.Fatalf("state = %v, want awaiting approval", o.State())
	}
	if effect.ApprovalID != "ap-7" {
		t.Errorf("effect approval id = %q", effect.ApprovalID)
	}
	if id, ok := o.PendingApproval(); !ok || id != "ap-7" {
		t.Errorf("PendingApproval = %q, %v", id, ok)
	}

	// New sends are rejected while a decision is pending.
	if _, err := o.BeginSend("another thing"); !errors.Is(err, ErrBusy) {
		t.Errorf("send while awaiting approval: err = %v, want ErrBusy", err)
	}

	before := len(o.Messages())
	o.ResolveApproval(true)
	if o.State() != StateIdle {
		t.Fatalf("state = %v after decision, want idle", o.State())
	}
	msgs := o.Messages()
	if len(msgs) != before+1 {
		t.Fatalf("decision did not narrate: %d -> %d messages", before, len(msgs))
	}
	if msgs[len(msgs)-1].Content != approvedNarration {
		t.Errorf("narration = %q", msgs[len(msgs)-1].Content)
	}
}

func TestDismissApproval_NoNarration(t *testing.T) {
	o := newTestOrchestrator()
	o.BeginSend("book it")
	o.ApplyResult(TurnResult{Outcome: model.ResponseOutcome{
		Kind:       model.OutcomeApprovalRequired,
		ApprovalID: "ap-1",
	}})
	before := len(o.Messages())

	o.DismissApproval()
	if o.State() != StateIdle {
		t.Fatalf("state = %v, want idle", o.State())
	}
	if len(o.Messages()) != before {
		t.Error("dismissal appended a message")
	}
	if _, ok := o.PendingApproval(); ok {
		t.Error("approval still pending after dismissal")
	}
}

func TestApplyResult_MissingApprovalIDHalts(t *testing.T) {
	o := newTestOrchestrator()
	o.BeginSend("book it")
	userAndPlaceholder := len(o.Messages())

	effect := o.ApplyResult(TurnResult{Err: classify.ErrMissingApprovalID})

	if o.State() != StateIdle {
		t.Fatalf("state = %v, want idle", o.State())
	}
	// The placeholder is dropped and nothing replaces it.
	if got := len(o.Messages()); got != userAndPlaceholder-1 {
		t.Errorf("transcript has %d messages, want %d", got, userAndPlaceholder-1)
	}
	if effect.RenderMessageID != "" || effect.NavigateTarget != "" || effect.ApprovalID != "" {
		t.Errorf("halt produced an effect: %+v", effect)
	}
}

func TestApplyResult_FailureIsRetryable(t *testing.T) {
	o := newTestOrchestrator()
	o.BeginSend("plan my trip")

	o.ApplyResult(TurnResult{Err: errors.New("connection refused")})

	if o.State() != StateIdle {
		t.Fatalf("state = %v, want idle", o.State())
	}
	msgs := o.Messages()
	last := msgs[len(msgs)-1]
	if last.Status != model.StatusFailed || !last.Retryable {
		t.Fatalf("failure message = %+v", last)
	}

	req, err := o.RetryLast()
	if err != nil {
		t.Fatalf("RetryLast: %v", err)
	}
	if req.Message != "plan my trip" {
		t.Errorf("retry message = %q", req.Message)
	}
	if o.State() != StateSending {
		t.Errorf("state = %v after retry, want sending", o.State())
	}
}

func TestRetryLast_NothingSent(t *testing.T) {
	o := newTestOrchestrator()
	if _, err := o.RetryLast(); err == nil {
		t.Error("RetryLast with empty history succeeded")
	}
}

func TestConsentFlow(t *testing.T) {
	t.Run("allow resends with consent", func(t *testing.T) {
		o := newTestOrchestrator()
		o.BeginSend("find ferry times")
		o.ApplyResult(TurnResult{Outcome: model.ResponseOutcome{
			Kind:          model.OutcomeConsentRequired,
			ConsentPrompt: "May I browse the web?",
		}})
		if o.State() != StateAwaitingConsent {
			t.Fatalf("state = %v, want awaiting consent", o.State())
		}

		req, resend := o.ResolveConsent(true)
		if !resend {
			t.Fatal("allow did not produce a retry request")
		}
		if !req.AllowWebbrowse {
			t.Error("retry request does not grant consent")
		}
		if req.Message != "find ferry times" {
			t.Errorf("retry message = %q", req.Message)
		}
		if o.State() != StateSending {
			t.Errorf("state = %v, want sending", o.State())
		}
	})

	t.Run("decline returns to idle", func(t *testing.T) {
		o := newTestOrchestrator()
		o.BeginSend("find ferry times")
		o.ApplyResult(TurnResult{Outcome: model.ResponseOutcome{Kind: model.OutcomeConsentRequired}})

		_, resend := o.ResolveConsent(false)
		if resend {
			t.Error("decline produced a retry request")
		}
		if o.State() != StateIdle {
			t.Errorf("state = %v, want idle", o.State())
		}
		msgs := o.Messages()
		if msgs[len(msgs)-1].Content != consentDeclined {
			t.Errorf("last message = %q", msgs[len(msgs)-1].Content)
		}
	})
}

func TestRecentWindowExcludesPlaceholder(t *testing.T) {
	o := newTestOrchestrator()
	o.BeginSend("one")
	o.ApplyResult(completedResult("answer one"))

	req, err := o.BeginSend("two")
	if err != nil {
		t.Fatalf("BeginSend: %v", err)
	}
	for _, line := range req.ConversationContext.RecentMessages {
		if line == "assistant: Thinking..." {
			t.Errorf("placeholder leaked into the context window: %v", req.ConversationContext.RecentMessages)
		}
	}
}

// End-to-end clarification turn: the routing service asks for travel dates
// and the transcript plus effect carry the question set forward.
func TestClarificationTurn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent/route_and_run" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"status": "NEED_MORE_INFO",
				"payload": map[string]any{
					"clarificationMessage": "I need your travel dates before I can plan this.",
					"clarificationInfo": map[string]any{
						"findingId": "f-12",
						"questions": []any{
							map[string]any{"id": "dates", "text": "When are you traveling?", "type": "text"},
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := agent.NewClient(server.URL, "u-1", 0, nil)
	o := New(client, approval.NewGate(nil), nil, nil, nil)

	req, err := o.BeginSend("Plan a weekend in Lisbon")
	if err != nil {
		t.Fatalf("BeginSend: %v", err)
	}
	res := o.Execute(context.Background(), req)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}

	effect := o.ApplyResult(res)

	if o.State() != StateIdle {
		t.Fatalf("state = %v, want idle", o.State())
	}
	msgs := o.Messages()
	last := msgs[len(msgs)-1]
	if last.Status != model.StatusAwaitingUserInput {
		t.Errorf("last message status = %q", last.Status)
	}
	if last.Content != "I need your travel dates before I can plan this." {
		t.Errorf("last message content = %q", last.Content)
	}
	if effect.FindingID != "f-12" {
		t.Errorf("effect finding id = %q", effect.FindingID)
	}
	if len(effect.Questions) != 1 || effect.Questions[0].ID != "dates" {
		t.Errorf("effect questions = %+v", effect.Questions)
	}
}

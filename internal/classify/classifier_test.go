package classify

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tripdeck/tui-go/internal/model"
)

func TestClassify_Redirect(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		reason       string
		wantExternal bool
	}{
		{"internal route", "/trips/t1/budget", "Budget questions live on the budget page.", false},
		{"external url", "https://maps.example.com/route", "", true},
		{"bare word is internal", "budget", "", false},
		{"scheme-ish but no separator", "https:budget", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Response{Result: Result{
				Status: StatusRedirectRequired,
				Payload: &Payload{RedirectInfo: &RedirectInfo{
					Target: tt.target,
					Reason: tt.reason,
				}},
			}}

			out, err := Classify(resp)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if out.Kind != model.OutcomeRedirect {
				t.Fatalf("Kind = %v, want redirect", out.Kind)
			}
			if out.RedirectTarget != tt.target {
				t.Errorf("RedirectTarget = %q, want %q", out.RedirectTarget, tt.target)
			}
			if out.ExternalTarget != tt.wantExternal {
				t.Errorf("ExternalTarget = %v, want %v", out.ExternalTarget, tt.wantExternal)
			}
			if out.RedirectReason != tt.reason {
				t.Errorf("RedirectReason = %q, want %q", out.RedirectReason, tt.reason)
			}
		})
	}
}

func TestClassify_RedirectWinsOverOtherPayload(t *testing.T) {
	// A redirect response also carrying answer text must produce only the
	// redirect outcome.
	resp := Response{Result: Result{
		Status:     StatusRedirectRequired,
		AnswerText: "some answer that must not surface",
		Payload: &Payload{
			RedirectInfo:   &RedirectInfo{Target: "/trips/t1/itinerary"},
			SuspensionInfo: &SuspensionInfo{ApprovalID: "ap-1"},
		},
	}}

	out, err := Classify(resp)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.Kind != model.OutcomeRedirect {
		t.Fatalf("Kind = %v, want redirect", out.Kind)
	}
	if out.ApprovalID != "" || out.AnswerText != "" {
		t.Errorf("redirect outcome leaked other fields: %+v", out)
	}
}

func TestClassify_ApprovalMarker(t *testing.T) {
	resp := Response{Result: Result{
		Status:  StatusNeedConfirmation,
		Payload: &Payload{SuspensionInfo: &SuspensionInfo{ApprovalID: "ap-42"}},
	}}

	out, err := Classify(resp)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.Kind != model.OutcomeApprovalRequired {
		t.Fatalf("Kind = %v, want approval required", out.Kind)
	}
	if out.ApprovalID != "ap-42" {
		t.Errorf("ApprovalID = %q, want ap-42", out.ApprovalID)
	}
}

func TestClassify_ApprovalMarkerWithoutID(t *testing.T) {
	resp := Response{Result: Result{
		Status:  StatusNeedConfirmation,
		Payload: &Payload{SuspensionInfo: &SuspensionInfo{}},
	}}

	_, err := Classify(resp)
	if !errors.Is(err, ErrMissingApprovalID) {
		t.Fatalf("err = %v, want ErrMissingApprovalID", err)
	}
}

func TestClassify_ConfirmationStatusWithoutSuspensionInfo(t *testing.T) {
	// NEED_CONFIRMATION without suspensionInfo is not the approval marker;
	// it falls through to a completed outcome.
	resp := Response{Result: Result{
		Status:     StatusNeedConfirmation,
		AnswerText: "Here is the plan so far.",
	}}

	out, err := Classify(resp)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.Kind != model.OutcomeCompleted {
		t.Errorf("Kind = %v, want completed", out.Kind)
	}
}

func TestClassify_ClarificationMessagePrecedence(t *testing.T) {
	resp := Response{Result: Result{
		Status: StatusNeedMoreInfo,
		Payload: &Payload{
			ClarificationMessage: "When are you planning to travel?",
			ClarificationInfo: &ClarificationInfo{
				MissingServices: []string{"travel dates"},
				Impact:          "Cannot check availability.",
			},
		},
	}}

	out, err := Classify(resp)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.Kind != model.OutcomeClarificationNeeded {
		t.Fatalf("Kind = %v, want clarification needed", out.Kind)
	}
	if out.ClarificationContent != "When are you planning to travel?" {
		t.Errorf("ClarificationContent = %q, want the pre-rendered message", out.ClarificationContent)
	}
}

func TestClassify_ClarificationLegacyInfoRendering(t *testing.T) {
	tests := []struct {
		name string
		info ClarificationInfo
		want string
	}{
		{
			name: "all sections",
			info: ClarificationInfo{
				MissingServices: []string{"travel dates", "party size"},
				Impact:          "Availability cannot be checked.",
				Solutions:       []string{"Add dates on the trip page"},
			},
			want: "## Missing information\n- travel dates\n- party size\n\n## Impact\nAvailability cannot be checked.\n\n## Suggestions\n- Add dates on the trip page",
		},
		{
			name: "impact only",
			info: ClarificationInfo{Impact: "Budget totals may be wrong."},
			want: "## Impact\nBudget totals may be wrong.",
		},
		{
			name: "empty info",
			info: ClarificationInfo{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Response{Result: Result{
				Status:  StatusNeedMoreInfo,
				Payload: &Payload{ClarificationInfo: &tt.info},
			}}
			out, err := Classify(resp)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if diff := cmp.Diff(tt.want, out.ClarificationContent); diff != "" {
				t.Errorf("rendered content mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassify_ClarificationCarriesQuestionsAndFinding(t *testing.T) {
	questions := []json.RawMessage{
		json.RawMessage(`{"id":"dates","text":"When are you traveling?"}`),
	}
	resp := Response{Result: Result{
		Status: StatusNeedMoreInfo,
		Payload: &Payload{ClarificationInfo: &ClarificationInfo{
			FindingID: "f-7",
			Questions: questions,
		}},
	}}

	out, err := Classify(resp)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.FindingID != "f-7" {
		t.Errorf("FindingID = %q, want f-7", out.FindingID)
	}
	if len(out.Questions) != 1 || out.Questions[0].ID != "dates" {
		t.Errorf("Questions = %+v, want the parsed dates question", out.Questions)
	}
}

func TestClassify_Consent(t *testing.T) {
	t.Run("with prompt", func(t *testing.T) {
		resp := Response{Result: Result{
			Status:  StatusNeedConsent,
			Payload: &Payload{ConsentPrompt: "May I look up ferry schedules online?"},
		}}
		out, err := Classify(resp)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if out.Kind != model.OutcomeConsentRequired {
			t.Fatalf("Kind = %v, want consent required", out.Kind)
		}
		if out.ConsentPrompt != "May I look up ferry schedules online?" {
			t.Errorf("ConsentPrompt = %q", out.ConsentPrompt)
		}
	})

	t.Run("default prompt", func(t *testing.T) {
		resp := Response{Result: Result{Status: StatusNeedConsent}}
		out, err := Classify(resp)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if out.ConsentPrompt == "" {
			t.Error("expected a default consent prompt")
		}
	})
}

func TestClassify_FailureStatuses(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		answerText string
		wantReason string
	}{
		{"failed with text", StatusFailed, "upstream exploded", "upstream exploded"},
		{"failed without text", StatusFailed, "", "the assistant could not complete the request (failed)"},
		{"timeout without text", StatusTimeout, "", "the assistant could not complete the request (timeout)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Classify(Response{Result: Result{Status: tt.status, AnswerText: tt.answerText}})
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if out.Kind != model.OutcomeFailed {
				t.Fatalf("Kind = %v, want failed", out.Kind)
			}
			if out.FailureReason != tt.wantReason {
				t.Errorf("FailureReason = %q, want %q", out.FailureReason, tt.wantReason)
			}
		})
	}
}

func TestClassify_DeepReasoningNote(t *testing.T) {
	decisionLog := []DecisionLogItem{
		{Step: 1, ChosenAction: "gather_constraints"},
		{Step: 2, ChosenAction: "compose_answer"},
	}

	tests := []struct {
		name     string
		route    string
		text     string
		explain  *Explain
		wantNote bool
	}{
		{"deep route with log", "SYSTEM2_REASONING", "Here is the revised plan.", &Explain{DecisionLog: decisionLog}, true},
		{"webbrowse route with log", "SYSTEM2_WEBBROWSE", "Found three options.", &Explain{DecisionLog: decisionLog}, true},
		{"fast route with log", "SYSTEM1_API", "Quick answer.", &Explain{DecisionLog: decisionLog}, false},
		{"deep route without log", "SYSTEM2_REASONING", "Plan ready.", nil, false},
		{"deep route empty text", "SYSTEM2_REASONING", "", &Explain{DecisionLog: decisionLog}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Response{
				Result:  Result{Status: StatusOK, AnswerText: tt.text},
				Route:   &RouteInfo{Route: tt.route},
				Explain: tt.explain,
			}
			out, err := Classify(resp)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			hasNote := strings.Contains(out.AnswerText, deepReasoningNote)
			if hasNote != tt.wantNote {
				t.Errorf("note appended = %v, want %v (text %q)", hasNote, tt.wantNote, out.AnswerText)
			}
		})
	}
}

func TestClassify_CompletedBlocks(t *testing.T) {
	resp := Response{Result: Result{
		Status:     StatusOK,
		AnswerText: "Summary below.",
		Payload: &Payload{
			HasPlan: true,
			Blocks: []BlockWire{
				{ID: "b1", Type: "paragraph", Text: "Day one is packed."},
				{ID: "b2", Type: "summary_card", Title: "Budget", Fields: []CardFieldWire{{Label: "Total", Value: "$1200"}}},
			},
		},
	}}

	out, err := Classify(resp)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.Kind != model.OutcomeCompleted {
		t.Fatalf("Kind = %v, want completed", out.Kind)
	}
	if !out.HasPlan {
		t.Error("HasPlan not carried through")
	}
	want := []model.ContentBlock{
		{ID: "b1", Type: model.BlockParagraph, Text: "Day one is packed.", Fields: []model.CardField{}},
		{ID: "b2", Type: model.BlockSummaryCard, Title: "Budget", Fields: []model.CardField{{Label: "Total", Value: "$1200"}}},
	}
	if diff := cmp.Diff(want, out.Blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/tripdeck/tui-go/internal/clarify"
	"github.com/tripdeck/tui-go/internal/model"
)

// ErrMissingApprovalID is returned when a response carries the approval
// marker but no approval ID can be extracted. The pipeline halts without
// appending a message; this is a backend contract violation, not a
// recoverable state.
var ErrMissingApprovalID = errors.New("approval marker present but no approval id")

// deepReasoningNote is appended to deep-tier answers that carry a decision log.
const deepReasoningNote = "You can review the reasoning steps in the decision log."

// Classify inspects one routing-service response and produces exactly one
// outcome. It is a pure function; scheduling (redirect delays, refresh
// callbacks) belongs to the orchestrator.
func Classify(resp Response) (model.ResponseOutcome, error) {
	payload := resp.Result.Payload

	if resp.Result.Status == StatusRedirectRequired && payload != nil && payload.RedirectInfo != nil {
		target := payload.RedirectInfo.Target
		return model.ResponseOutcome{
			Kind:           model.OutcomeRedirect,
			RedirectReason: payload.RedirectInfo.Reason,
			RedirectTarget: target,
			ExternalTarget: hasURLScheme(target),
		}, nil
	}

	if resp.Result.Status == StatusNeedConfirmation && payload != nil && payload.SuspensionInfo != nil {
		id := payload.SuspensionInfo.ApprovalID
		if id == "" {
			return model.ResponseOutcome{}, ErrMissingApprovalID
		}
		return model.ResponseOutcome{Kind: model.OutcomeApprovalRequired, ApprovalID: id}, nil
	}

	if resp.Result.Status == StatusNeedMoreInfo {
		return classifyClarification(payload)
	}

	if resp.Result.Status == StatusNeedConsent {
		prompt := "This request needs web browsing. Allow it?"
		if payload != nil && payload.ConsentPrompt != "" {
			prompt = payload.ConsentPrompt
		}
		return model.ResponseOutcome{Kind: model.OutcomeConsentRequired, ConsentPrompt: prompt}, nil
	}

	if resp.Result.Status == StatusFailed || resp.Result.Status == StatusTimeout {
		reason := resp.Result.AnswerText
		if reason == "" {
			reason = fmt.Sprintf("the assistant could not complete the request (%s)", strings.ToLower(resp.Result.Status))
		}
		return model.ResponseOutcome{Kind: model.OutcomeFailed, FailureReason: reason}, nil
	}

	return classifyCompleted(resp), nil
}

func classifyClarification(payload *Payload) (model.ResponseOutcome, error) {
	out := model.ResponseOutcome{Kind: model.OutcomeClarificationNeeded}
	if payload == nil {
		return out, nil
	}
	// The pre-rendered message wins over the legacy structured shape.
	if payload.ClarificationMessage != "" {
		out.ClarificationContent = payload.ClarificationMessage
	} else if payload.ClarificationInfo != nil {
		out.ClarificationContent = renderClarificationInfo(payload.ClarificationInfo)
	}
	if payload.ClarificationInfo != nil {
		out.FindingID = payload.ClarificationInfo.FindingID
		if len(payload.ClarificationInfo.Questions) > 0 {
			out.Questions = clarify.ParseQuestions(payload.ClarificationInfo.Questions)
		}
	}
	return out, nil
}

func classifyCompleted(resp Response) model.ResponseOutcome {
	out := model.ResponseOutcome{
		Kind:       model.OutcomeCompleted,
		AnswerText: resp.Result.AnswerText,
	}
	if resp.Route != nil {
		out.RouteType = model.RouteType(resp.Route.Route)
	}
	if resp.Explain != nil {
		out.DecisionLogCount = len(resp.Explain.DecisionLog)
	}
	if payload := resp.Result.Payload; payload != nil {
		out.HasPlan = payload.HasPlan
		out.Blocks = lo.Map(payload.Blocks, func(b BlockWire, _ int) model.ContentBlock {
			return toContentBlock(b)
		})
	}
	if out.RouteType.IsDeepReasoning() && out.DecisionLogCount > 0 && out.AnswerText != "" {
		out.AnswerText = out.AnswerText + "\n\n" + deepReasoningNote
	}
	return out
}

// renderClarificationInfo renders the legacy structured shape into itemized
// Markdown. Each section is emitted only when non-empty.
func renderClarificationInfo(info *ClarificationInfo) string {
	var b strings.Builder
	if len(info.MissingServices) > 0 {
		b.WriteString("## Missing information\n")
		for _, s := range info.MissingServices {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if info.Impact != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## Impact\n")
		b.WriteString(info.Impact)
		b.WriteString("\n")
	}
	if len(info.Solutions) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## Suggestions\n")
		for _, s := range info.Solutions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func toContentBlock(b BlockWire) model.ContentBlock {
	return model.ContentBlock{
		ID:            b.ID,
		Type:          model.BlockType(b.Type),
		Text:          b.Text,
		Level:         b.Level,
		Items:         b.Items,
		Title:         b.Title,
		Fields:        lo.Map(b.Fields, func(f CardFieldWire, _ int) model.CardField { return model.CardField{Label: f.Label, Value: f.Value} }),
		HighlightType: b.HighlightType,
		QuestionID:    b.QuestionID,
	}
}

// hasURLScheme reports whether target names an external destination rather
// than an internal route path.
func hasURLScheme(target string) bool {
	for i, c := range target {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return i > 0 && strings.HasPrefix(target[i:], "://")
		}
	}
	return false
}

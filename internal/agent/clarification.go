package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tripdeck/tui-go/internal/clarify"
	"github.com/tripdeck/tui-go/internal/model"
)

// ClarificationService submits clarification answers over HTTP.
type ClarificationService struct {
	client *Client
}

// NewClarificationService wraps the shared service client.
func NewClarificationService(client *Client) *ClarificationService {
	return &ClarificationService{client: client}
}

type submitAnswersWire struct {
	Answers model.Answers `json:"answers"`
}

type submitResultWire struct {
	UpdatedFinding struct {
		ID string `json:"id"`
	} `json:"updatedFinding"`
	NextQuestions []json.RawMessage `json:"nextQuestions,omitempty"`
}

// SubmitAnswers delivers one round of answers. A non-empty NextQuestions in
// the result keeps the dialog open for another round.
func (s *ClarificationService) SubmitAnswers(ctx context.Context, tripID, findingID string, answers model.Answers) (clarify.SubmitResult, error) {
	var wire submitResultWire
	path := fmt.Sprintf("/trips/%s/findings/%s/answers", tripID, findingID)
	if err := s.client.post(ctx, path, submitAnswersWire{Answers: answers}, &wire); err != nil {
		return clarify.SubmitResult{}, err
	}
	return clarify.SubmitResult{
		UpdatedFindingID: wire.UpdatedFinding.ID,
		NextQuestions:    clarify.ParseQuestions(wire.NextQuestions),
	}, nil
}

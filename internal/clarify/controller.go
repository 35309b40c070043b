package clarify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tripdeck/tui-go/internal/model"
)

// Submitter delivers validated answers to the external clarification
// endpoint.
type Submitter interface {
	SubmitAnswers(ctx context.Context, tripID, findingID string, answers model.Answers) (SubmitResult, error)
}

// SubmitResult is the endpoint's reply. A non-empty NextQuestions means the
// dialog must stay open for another round.
type SubmitResult struct {
	UpdatedFindingID string
	NextQuestions    []model.Question
}

// Controller owns one clarification dialog: the current round's questions,
// the answers entered so far, and submission. A validation or submission
// failure never discards entered answers.
type Controller struct {
	logger    *zap.Logger
	submitter Submitter

	tripID    string
	findingID string
	questions []model.Question
	answers   model.Answers
	open      bool
	round     int
}

// NewController returns a closed controller. A nil logger disables logging.
func NewController(submitter Submitter, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{logger: logger, submitter: submitter}
}

// Begin opens a dialog for the given question set.
func (c *Controller) Begin(tripID, findingID string, questions []model.Question) {
	c.tripID = tripID
	c.findingID = findingID
	c.questions = questions
	c.answers = model.Answers{}
	c.open = true
	c.round = 1
	c.logger.Debug("clarification dialog opened",
		zap.String("finding_id", findingID),
		zap.Int("questions", len(questions)))
}

// Open reports whether a dialog is active.
func (c *Controller) Open() bool { return c.open }

// Questions returns the current round's question set.
func (c *Controller) Questions() []model.Question { return c.questions }

// Round returns the current round number, starting at 1.
func (c *Controller) Round() int { return c.round }

// SetAnswer records the entered value for a question.
func (c *Controller) SetAnswer(questionID string, value any) {
	if !c.open {
		return
	}
	c.answers[questionID] = value
}

// Answer returns the entered value for a question.
func (c *Controller) Answer(questionID string) (any, bool) {
	v, ok := c.answers[questionID]
	return v, ok
}

// Submit validates the entered answers and, only if validation passes, calls
// the external endpoint. A *ValidationError leaves the dialog open with
// answers intact and names the offending question. On success the dialog
// closes unless the endpoint asks another round.
func (c *Controller) Submit(ctx context.Context) error {
	if !c.open {
		return fmt.Errorf("no clarification dialog open")
	}
	if err := Validate(c.questions, c.answers); err != nil {
		return err
	}
	result, err := c.submitter.SubmitAnswers(ctx, c.tripID, c.findingID, c.answers)
	if err != nil {
		return fmt.Errorf("submit clarification answers: %w", err)
	}
	if len(result.NextQuestions) > 0 {
		c.questions = result.NextQuestions
		c.answers = model.Answers{}
		c.round++
		c.logger.Debug("clarification continues",
			zap.Int("round", c.round),
			zap.Int("questions", len(result.NextQuestions)))
		return nil
	}
	c.close()
	return nil
}

// Cancel closes the dialog without submitting.
func (c *Controller) Cancel() {
	if !c.open {
		return
	}
	c.logger.Debug("clarification dialog cancelled", zap.String("finding_id", c.findingID))
	c.close()
}

func (c *Controller) close() {
	c.open = false
	c.questions = nil
	c.answers = nil
	c.round = 0
}

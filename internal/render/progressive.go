// Package render reveals structured answer content over time. The renderer
// is a pure state machine: callers schedule ticks at the delays it reports
// and call Advance on each tick. Cancellation is dropping the session - a
// stale tick is recognized by session number and ignored.
package render

import (
	"math/rand"
	"time"

	"github.com/tripdeck/tui-go/internal/model"
)

// Reveal timing.
const (
	CharInterval = 25 * time.Millisecond
	BlockDelay   = 200 * time.Millisecond
)

// Phase is the renderer's lifecycle state for one session
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRevealing
	PhaseDone
)

// Renderer reveals an ordered block list. Paragraphs appear in randomized
// 1-3 character increments; every other block type appears atomically after
// an inter-block delay. Blocks are never re-ordered or dropped: block N+1
// is not shown before block N is fully revealed.
type Renderer struct {
	session  int
	blocks   []model.ContentBlock
	enabled  bool
	phase    Phase
	blockIdx int
	charIdx  int // revealed runes of the current paragraph

	completionPending bool
	step              func() int
}

// New returns an idle renderer.
func New() *Renderer {
	return &Renderer{
		phase: PhaseIdle,
		step:  func() int { return rand.Intn(3) + 1 },
	}
}

// SetBlocks starts a session for the given block list. Re-invocation with an
// identical list (compared by per-block identity, in order) is a no-op and
// does not restart the animation. A genuinely new list cancels the previous
// session before starting; ticks from the cancelled session are ignored by
// session number.
//
// With enabled false the full list becomes visible immediately and
// completion is signaled without any ticks. Otherwise the returned delay is
// the time until the first tick; started is true when a new session began.
func (r *Renderer) SetBlocks(blocks []model.ContentBlock, enabled bool) (delay time.Duration, started bool) {
	if r.sameIdentity(blocks) && r.phase != PhaseIdle {
		return 0, false
	}

	r.session++
	r.blocks = blocks
	r.enabled = enabled
	r.blockIdx = 0
	r.charIdx = 0

	if !enabled || len(blocks) == 0 {
		r.phase = PhaseDone
		r.completionPending = true
		return 0, false
	}
	r.phase = PhaseRevealing
	return r.delayFor(blocks[0]), true
}

// Session identifies the current rendering session. Tick messages must carry
// the session they were scheduled for; Advance callers drop ticks whose
// session does not match.
func (r *Renderer) Session() int { return r.session }

// CurrentPhase returns the lifecycle state of the active session.
func (r *Renderer) CurrentPhase() Phase { return r.phase }

// Advance processes one tick. It returns the delay until the next tick and
// whether another tick is needed; more is false once the session is done.
func (r *Renderer) Advance() (next time.Duration, more bool) {
	if r.phase != PhaseRevealing {
		return 0, false
	}

	current := r.blocks[r.blockIdx]
	if current.Type == model.BlockParagraph {
		runes := []rune(current.Text)
		r.charIdx += r.step()
		if r.charIdx < len(runes) {
			return CharInterval, true
		}
	}
	// Block fully revealed; move on.
	r.blockIdx++
	r.charIdx = 0
	if r.blockIdx >= len(r.blocks) {
		r.phase = PhaseDone
		r.completionPending = true
		return 0, false
	}
	return r.delayFor(r.blocks[r.blockIdx]), true
}

// Visible returns the revealed prefix of the block list, including the
// partial text of a paragraph mid-reveal.
func (r *Renderer) Visible() []model.ContentBlock {
	switch r.phase {
	case PhaseIdle:
		return nil
	case PhaseDone:
		return r.blocks
	}
	visible := make([]model.ContentBlock, 0, r.blockIdx+1)
	visible = append(visible, r.blocks[:r.blockIdx]...)
	current := r.blocks[r.blockIdx]
	if current.Type == model.BlockParagraph && r.charIdx > 0 {
		runes := []rune(current.Text)
		n := r.charIdx
		if n > len(runes) {
			n = len(runes)
		}
		partial := current
		partial.Text = string(runes[:n])
		visible = append(visible, partial)
	}
	return visible
}

// TakeCompletion reports session completion exactly once. It returns true on
// the first call after the last block is revealed (or immediately after a
// disabled-path SetBlocks) and false thereafter.
func (r *Renderer) TakeCompletion() bool {
	if !r.completionPending {
		return false
	}
	r.completionPending = false
	return true
}

// Cancel drops the current session. Pending ticks become stale and are
// ignored; no completion is signaled.
func (r *Renderer) Cancel() {
	r.session++
	r.phase = PhaseIdle
	r.blocks = nil
	r.blockIdx = 0
	r.charIdx = 0
	r.completionPending = false
}

func (r *Renderer) delayFor(b model.ContentBlock) time.Duration {
	if b.Type == model.BlockParagraph {
		return CharInterval
	}
	return BlockDelay
}

func (r *Renderer) sameIdentity(blocks []model.ContentBlock) bool {
	if len(blocks) != len(r.blocks) {
		return false
	}
	for i := range blocks {
		if blocks[i].ID != r.blocks[i].ID {
			return false
		}
	}
	return true
}

// Package approval owns the paused/resumed lifecycle around a pending human
// decision. Approval identity is opaque; resolution is pushed in by the
// dialog collaborator, never polled.
package approval

import "go.uber.org/zap"

// Gate tracks at most one pending approval per conversation.
type Gate struct {
	logger     *zap.Logger
	approvalID string
	dialogOpen bool
}

// NewGate returns a closed gate. A nil logger disables logging.
func NewGate(logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{logger: logger}
}

// Open starts a session for the given approval. Opening while a session is
// already live is illegal and ignored; the first session's ID is kept.
func (g *Gate) Open(approvalID string) {
	if g.dialogOpen {
		g.logger.Warn("approval already pending, ignoring open",
			zap.String("pending_id", g.approvalID),
			zap.String("ignored_id", approvalID))
		return
	}
	g.approvalID = approvalID
	g.dialogOpen = true
	g.logger.Info("approval session opened", zap.String("approval_id", approvalID))
}

// Resolve closes the session with a decision and returns its approval ID.
// ok is false when no session was open.
func (g *Gate) Resolve(approved bool) (approvalID string, ok bool) {
	if !g.dialogOpen {
		g.logger.Warn("resolve with no approval pending")
		return "", false
	}
	id := g.approvalID
	g.logger.Info("approval resolved",
		zap.String("approval_id", id),
		zap.Bool("approved", approved))
	g.clear()
	return id, true
}

// Close dismisses the session without an outcome. Nothing is narrated; the
// conversation simply returns to idle.
func (g *Gate) Close() {
	if !g.dialogOpen {
		return
	}
	g.logger.Info("approval dialog dismissed", zap.String("approval_id", g.approvalID))
	g.clear()
}

// Pending returns the live session's approval ID, if any.
func (g *Gate) Pending() (approvalID string, ok bool) {
	return g.approvalID, g.dialogOpen
}

func (g *Gate) clear() {
	g.approvalID = ""
	g.dialogOpen = false
}

package agent

import (
	"context"
	"fmt"

	"github.com/tripdeck/tui-go/internal/model"
)

// GapService is the HTTP implementation of the gap endpoint consumed by the
// side panel coordinator.
type GapService struct {
	client *Client
}

// NewGapService wraps the shared service client.
func NewGapService(client *Client) *GapService {
	return &GapService{client: client}
}

type gapWire struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	DayNumber   int    `json:"dayNumber"`
	TimeSlot    string `json:"timeSlot,omitempty"`
	Description string `json:"description"`
	Context     string `json:"context,omitempty"`
}

type gapListWire struct {
	Gaps []gapWire `json:"gaps"`
}

type gapIDsWire struct {
	IDs []string `json:"ids"`
}

// ListGaps fetches the trip's current gap list.
func (s *GapService) ListGaps(ctx context.Context, tripID string) ([]model.Gap, error) {
	var wire gapListWire
	if err := s.client.get(ctx, fmt.Sprintf("/trips/%s/gaps", tripID), &wire); err != nil {
		return nil, err
	}
	gaps := make([]model.Gap, len(wire.Gaps))
	for i, g := range wire.Gaps {
		gaps[i] = model.Gap{
			ID:          g.ID,
			Type:        g.Type,
			Severity:    model.GapSeverity(g.Severity),
			DayNumber:   g.DayNumber,
			TimeSlot:    g.TimeSlot,
			Description: g.Description,
			Context:     g.Context,
		}
	}
	return gaps, nil
}

// IgnoreGap marks one gap ignored on the server.
func (s *GapService) IgnoreGap(ctx context.Context, id string) error {
	return s.client.post(ctx, fmt.Sprintf("/gaps/%s/ignore", id), struct{}{}, nil)
}

// UnignoreGap restores one gap on the server.
func (s *GapService) UnignoreGap(ctx context.Context, id string) error {
	return s.client.post(ctx, fmt.Sprintf("/gaps/%s/unignore", id), struct{}{}, nil)
}

// IgnoreGapsBatch marks several gaps ignored in one call.
func (s *GapService) IgnoreGapsBatch(ctx context.Context, ids []string) error {
	return s.client.post(ctx, "/gaps/ignore-batch", gapIDsWire{IDs: ids}, nil)
}

// UnignoreGapsBatch restores several gaps in one call.
func (s *GapService) UnignoreGapsBatch(ctx context.Context, ids []string) error {
	return s.client.post(ctx, "/gaps/unignore-batch", gapIDsWire{IDs: ids}, nil)
}

package gaps

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tripdeck/tui-go/internal/model"
)

// Service is the external gap endpoint. Every call is independently failable.
type Service interface {
	ListGaps(ctx context.Context, tripID string) ([]model.Gap, error)
	IgnoreGap(ctx context.Context, id string) error
	UnignoreGap(ctx context.Context, id string) error
	IgnoreGapsBatch(ctx context.Context, ids []string) error
	UnignoreGapsBatch(ctx context.Context, ids []string) error
}

// snapshot cache tuning
const (
	snapshotTTL      = 30 * time.Second
	maxMutationCalls = 4
)

// BatchResult reports a per-ID mutation outcome. Failed IDs keep their
// selection; only succeeded IDs are cleared.
type BatchResult struct {
	Succeeded []string
	Failed    map[string]error
}

// AllSucceeded reports whether no per-ID call failed.
func (r BatchResult) AllSucceeded() bool { return len(r.Failed) == 0 }

// Coordinator applies ignore/un-ignore mutations and reconciles the local
// overlays with call outcomes. It is the single writer of gap state.
type Coordinator struct {
	svc    Service
	store  *PreferenceStore
	logger *zap.Logger

	tripID    string
	snapshots *gocache.Cache
}

// NewCoordinator wires the coordinator to its service and store. A nil
// logger disables logging.
func NewCoordinator(svc Service, store *PreferenceStore, tripID string, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		svc:       svc,
		store:     store,
		logger:    logger,
		tripID:    tripID,
		snapshots: gocache.New(snapshotTTL, 2*snapshotTTL),
	}
}

// Snapshot returns the trip's gap list, served from cache within the TTL.
func (c *Coordinator) Snapshot(ctx context.Context) ([]model.Gap, error) {
	if cached, ok := c.snapshots.Get(c.tripID); ok {
		return cached.([]model.Gap), nil
	}
	gaps, err := c.svc.ListGaps(ctx, c.tripID)
	if err != nil {
		return nil, fmt.Errorf("list gaps for trip %s: %w", c.tripID, err)
	}
	c.snapshots.SetDefault(c.tripID, gaps)
	return gaps, nil
}

// Invalidate drops the cached snapshot, forcing the next Snapshot to hit the
// service. Called after deep-reasoning answers settle.
func (c *Coordinator) Invalidate() {
	c.snapshots.Delete(c.tripID)
}

// Ignore marks one gap ignored. On failure the local overlays are left
// unchanged and the error is surfaced to the caller.
func (c *Coordinator) Ignore(ctx context.Context, id string) error {
	if err := c.svc.IgnoreGap(ctx, id); err != nil {
		c.logger.Warn("ignore gap failed", zap.String("gap_id", id), zap.Error(err))
		return fmt.Errorf("ignore gap %s: %w", id, err)
	}
	c.store.markIgnored(id)
	return nil
}

// Unignore restores one gap to the active view.
func (c *Coordinator) Unignore(ctx context.Context, id string) error {
	if err := c.svc.UnignoreGap(ctx, id); err != nil {
		c.logger.Warn("unignore gap failed", zap.String("gap_id", id), zap.Error(err))
		return fmt.Errorf("unignore gap %s: %w", id, err)
	}
	c.store.markUnignored(id)
	return nil
}

// IgnoreSelected ignores every selected gap with one service call per ID.
// Succeeded IDs are removed from the selection and marked ignored; a failed
// ID keeps its selection, so a partial failure never loses user intent.
func (c *Coordinator) IgnoreSelected(ctx context.Context) BatchResult {
	ids := c.store.Selected()
	result := BatchResult{Failed: make(map[string]error)}
	if len(ids) == 0 {
		return result
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxMutationCalls)
	for _, id := range ids {
		g.Go(func() error {
			err := c.svc.IgnoreGap(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[id] = err
				return nil // keep going, failures are per-ID
			}
			result.Succeeded = append(result.Succeeded, id)
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(result.Succeeded)

	for _, id := range result.Succeeded {
		c.store.markIgnored(id)
	}
	c.logger.Info("batch ignore finished",
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)))
	return result
}

// IgnoreAllVisible ignores the whole visible set through the batch endpoint.
// The call is all-or-nothing: on failure no overlay changes.
func (c *Coordinator) IgnoreAllVisible(ctx context.Context, visible []model.Gap) error {
	if len(visible) == 0 {
		return nil
	}
	ids := make([]string, len(visible))
	for i, g := range visible {
		ids[i] = g.ID
	}
	if err := c.svc.IgnoreGapsBatch(ctx, ids); err != nil {
		c.logger.Warn("batch ignore failed", zap.Int("count", len(ids)), zap.Error(err))
		return fmt.Errorf("ignore %d gaps: %w", len(ids), err)
	}
	for _, id := range ids {
		c.store.markIgnored(id)
	}
	return nil
}

// UnignoreAll restores every locally ignored gap through the batch endpoint.
func (c *Coordinator) UnignoreAll(ctx context.Context) error {
	ids := make([]string, 0, c.store.IgnoredCount())
	for id := range c.store.ignored {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := c.svc.UnignoreGapsBatch(ctx, ids); err != nil {
		return fmt.Errorf("unignore %d gaps: %w", len(ids), err)
	}
	for _, id := range ids {
		c.store.markUnignored(id)
	}
	return nil
}

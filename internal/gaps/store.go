// Package gaps drives the gap side panel: display preferences, the selected
// and ignored overlays, and mutations against the external gap service. UI
// components only dispatch intents and render derived state; all writes go
// through this package.
package gaps

import (
	"sort"

	"github.com/samber/lo"

	"github.com/tripdeck/tui-go/internal/model"
)

// Filter applies the display preferences to a gap snapshot. It is pure and
// order-preserving. An empty FilterTypes means no type restriction, never
// "show nothing".
func Filter(gaps []model.Gap, prefs model.GapDisplayPreferences) []model.Gap {
	return lo.Filter(gaps, func(g model.Gap, _ int) bool {
		if prefs.ShowOnlyCritical && g.Severity != model.SeverityCritical {
			return false
		}
		if len(prefs.FilterTypes) > 0 && !lo.Contains(prefs.FilterTypes, g.Type) {
			return false
		}
		return true
	})
}

// PreferenceStore holds the panel's display preferences plus the selection
// and ignored overlays. Pure state, no I/O. Selection is keyed by ID,
// independent of visibility: hiding a gap behind a filter does not discard
// its selection.
type PreferenceStore struct {
	prefs    model.GapDisplayPreferences
	selected map[string]struct{}
	ignored  map[string]struct{}
}

// NewPreferenceStore returns a store with the given initial preferences.
func NewPreferenceStore(prefs model.GapDisplayPreferences) *PreferenceStore {
	return &PreferenceStore{
		prefs:    prefs,
		selected: make(map[string]struct{}),
		ignored:  make(map[string]struct{}),
	}
}

// Preferences returns the current display preferences.
func (s *PreferenceStore) Preferences() model.GapDisplayPreferences { return s.prefs }

// ToggleCollapsed flips the collapsed flag.
func (s *PreferenceStore) ToggleCollapsed() { s.prefs.Collapsed = !s.prefs.Collapsed }

// ToggleCriticalOnly flips the severity filter.
func (s *PreferenceStore) ToggleCriticalOnly() { s.prefs.ShowOnlyCritical = !s.prefs.ShowOnlyCritical }

// SetTypeFilter replaces the type filter.
func (s *PreferenceStore) SetTypeFilter(types []string) { s.prefs.FilterTypes = types }

// ToggleTypeFilter adds or removes one type from the filter.
func (s *PreferenceStore) ToggleTypeFilter(gapType string) {
	if lo.Contains(s.prefs.FilterTypes, gapType) {
		s.prefs.FilterTypes = lo.Without(s.prefs.FilterTypes, gapType)
		return
	}
	s.prefs.FilterTypes = append(s.prefs.FilterTypes, gapType)
}

// ClearTypeFilter removes all type restrictions.
func (s *PreferenceStore) ClearTypeFilter() { s.prefs.FilterTypes = nil }

// Visible applies the preference filter and then drops ignored gaps. An
// ignored gap never appears until explicitly un-ignored.
func (s *PreferenceStore) Visible(gaps []model.Gap) []model.Gap {
	return lo.Filter(Filter(gaps, s.prefs), func(g model.Gap, _ int) bool {
		_, ignored := s.ignored[g.ID]
		return !ignored
	})
}

// ToggleSelect flips one gap's selection.
func (s *PreferenceStore) ToggleSelect(id string) {
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return
	}
	s.selected[id] = struct{}{}
}

// IsSelected reports whether a gap is selected.
func (s *PreferenceStore) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// SelectAll selects every gap in the currently visible set. Gaps hidden by
// the active filter are not touched.
func (s *PreferenceStore) SelectAll(visible []model.Gap) {
	for _, g := range visible {
		s.selected[g.ID] = struct{}{}
	}
}

// ClearSelection deselects everything.
func (s *PreferenceStore) ClearSelection() {
	s.selected = make(map[string]struct{})
}

// Selected returns the selected IDs in stable order.
func (s *PreferenceStore) Selected() []string {
	ids := lo.Keys(s.selected)
	sort.Strings(ids)
	return ids
}

// SelectedCount returns the size of the selection set.
func (s *PreferenceStore) SelectedCount() int { return len(s.selected) }

func (s *PreferenceStore) markIgnored(id string) {
	s.ignored[id] = struct{}{}
	delete(s.selected, id)
}

func (s *PreferenceStore) markUnignored(id string) {
	delete(s.ignored, id)
}

// IsIgnored reports whether a gap is locally ignored.
func (s *PreferenceStore) IsIgnored(id string) bool {
	_, ok := s.ignored[id]
	return ok
}

// IgnoredCount returns the size of the ignored overlay.
func (s *PreferenceStore) IgnoredCount() int { return len(s.ignored) }

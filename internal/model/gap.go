package model

// GapSeverity ranks how urgent a flagged incompleteness item is
type GapSeverity string

const (
	SeverityCritical  GapSeverity = "CRITICAL"
	SeveritySuggested GapSeverity = "SUGGESTED"
	SeverityOptional  GapSeverity = "OPTIONAL"
)

// Gap is one flagged item of trip incompleteness, sourced from the external
// readiness service. The client holds a read-only snapshot; ignored/selected
// state is a local overlay keyed by ID.
type Gap struct {
	ID          string
	Type        string
	Severity    GapSeverity
	DayNumber   int
	TimeSlot    string
	Description string
	Context     string
}

// GapDisplayPreferences is pure client state for the gap panel. It lives for
// the session only; no server round-trip.
type GapDisplayPreferences struct {
	Collapsed        bool
	ShowOnlyCritical bool
	FilterTypes      []string
}

// GapTypeOptions lists the filterable gap types in display order.
var GapTypeOptions = []string{
	"missing_transport",
	"missing_lodging",
	"schedule_conflict",
	"missing_activity",
	"budget_overrun",
	"missing_meal",
}

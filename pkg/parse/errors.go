package parse

import "fmt"

// StructureError indicates that a document carries none of the recognizable
// EUR-Lex structural markers. It is terminal: no chunks or TOC are produced.
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("no recognizable document structure: %s", e.Reason)
}

// WarningKind classifies non-fatal extraction anomalies.
type WarningKind string

const (
	// WarnBoundaryAmbiguity is recorded when a marker's kind could not be
	// unambiguously ranked against the currently open boundary. The content
	// is attached to the nearest preceding same-or-senior boundary.
	WarnBoundaryAmbiguity WarningKind = "boundary_ambiguity"

	// WarnTableFallback is recorded when a table matches neither the
	// list-structured nor the clean tabular shape and is rendered as raw
	// line-joined text instead.
	WarnTableFallback WarningKind = "table_classification_fallback"
)

// Warning is a non-fatal extraction anomaly, collected and returned alongside
// the result so callers can audit extraction quality.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	SourceID string      `json:"source_id,omitempty"`
	Detail   string      `json:"detail"`
}

func (w Warning) String() string {
	if w.SourceID != "" {
		return fmt.Sprintf("%s [%s]: %s", w.Kind, w.SourceID, w.Detail)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Detail)
}

// warningList collects warnings during a single parse. It is owned by one
// Builder and never shared across parses.
type warningList struct {
	warnings []Warning
}

func (wl *warningList) add(kind WarningKind, sourceID, format string, args ...any) {
	wl.warnings = append(wl.warnings, Warning{
		Kind:     kind,
		SourceID: sourceID,
		Detail:   fmt.Sprintf(format, args...),
	})
}

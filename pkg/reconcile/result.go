package reconcile

import (
	"fmt"
	"time"

	"github.com/riboseqorg/ribocollate/pkg/tables"
	"github.com/riboseqorg/ribocollate/pkg/vocab"
)

// Result contains the outcome of a matching run.
type Result struct {
	// Records are the unified records in sample input order.
	Records []*UnifiedRecord

	// Report accumulates the run's non-fatal data-quality issues.
	Report *Report

	// Execution metadata
	ExecutedAt time.Time
	Duration   time.Duration
}

// Summary returns a human-readable one-line summary of the result.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d unified records, %d orphans, %d duplicates collapsed, %d unmapped terms (took %v)",
		len(r.Records), r.Report.OrphanCount(), r.Report.DeduplicatedCount(),
		len(r.Report.Unmapped), r.Duration)
}

// Report is the structured end-of-run account of every non-fatal issue:
// skipped rows, orphaned platform/verification rows, silently collapsed
// duplicates, and vocabulary terms with no canonical mapping. Issues are
// accumulated, never dropped without a trace.
type Report struct {
	// RowErrors are the loader's skipped rows across all sources.
	RowErrors []tables.RowError

	// Orphans maps source name (platform or verification) to its orphan rows.
	Orphans map[string][]Orphan

	// Deduplicated counts byte-identical duplicate rows collapsed per source.
	Deduplicated map[string]int

	// Unmapped are vocabulary terms that passed through without a mapping.
	Unmapped []vocab.UnmappedTerm
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		Orphans:      make(map[string][]Orphan),
		Deduplicated: make(map[string]int),
	}
}

// AddRowErrors appends loader row errors to the report.
func (r *Report) AddRowErrors(errs ...tables.RowError) {
	r.RowErrors = append(r.RowErrors, errs...)
}

// OrphanCount returns the total orphan rows across all sources.
func (r *Report) OrphanCount() int {
	total := 0
	for _, orphans := range r.Orphans {
		total += len(orphans)
	}
	return total
}

// DeduplicatedCount returns the total duplicates collapsed across sources.
func (r *Report) DeduplicatedCount() int {
	total := 0
	for _, n := range r.Deduplicated {
		total += n
	}
	return total
}

// Clean reports whether the run surfaced no data-quality issues at all.
func (r *Report) Clean() bool {
	return len(r.RowErrors) == 0 && r.OrphanCount() == 0 &&
		r.DeduplicatedCount() == 0 && len(r.Unmapped) == 0
}

// Package reconcile joins the cleaned sample metadata against the platform
// sample-matching tables and the verification table, producing one immutable
// unified record per canonical accession. Joins are hash joins on canonical
// identifiers; rows that match no known sample are orphans, reported and
// excluded rather than failing the run.
package reconcile

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/riboseqorg/ribocollate/pkg/accessions"
	"github.com/riboseqorg/ribocollate/pkg/errors"
	"github.com/riboseqorg/ribocollate/pkg/logging"
	"github.com/riboseqorg/ribocollate/pkg/tables"
	"github.com/riboseqorg/ribocollate/pkg/vocab"
)

// Platform identifies one of the downstream visualization services.
type Platform string

// The three supported platforms.
const (
	PlatformGWIPS     Platform = "GWIPS"
	PlatformTrips     Platform = "Trips"
	PlatformRiboCrypt Platform = "RiboCrypt"
)

// Platforms returns the platforms in their fixed processing order.
func Platforms() []Platform {
	return []Platform{PlatformGWIPS, PlatformTrips, PlatformRiboCrypt}
}

// String returns the string representation of a platform.
func (p Platform) String() string {
	return string(p)
}

// VerificationStatus is the manual-check state of a sample.
type VerificationStatus string

// Verification states. Absence of a verification row means unverified.
const (
	StatusVerified   VerificationStatus = "verified"
	StatusUnverified VerificationStatus = "unverified"
	StatusFlagged    VerificationStatus = "flagged"
)

// ProcessStatus tracks RiboCrypt processing of a sample.
type ProcessStatus string

// RiboCrypt processing states.
const (
	ProcessNotStarted ProcessStatus = "Not Yet Started"
	ProcessCompleted  ProcessStatus = "Completed"
	ProcessFailed     ProcessStatus = "Failed"
)

// Well-known columns across the input tables.
const (
	ColumnRun      = "Run"
	ColumnStudy    = "BioProject"
	ColumnChecked  = "CHECKED"
	ColumnComplete = "complete"

	// CheckedAuto marks verification rows produced by automated checks only.
	CheckedAuto = "auto"

	// SourceVerification names the verification table in orphan reports.
	SourceVerification = "verification"
)

// PlatformSupport carries one platform's claim about a sample.
type PlatformSupport struct {
	Supported bool
	// Fields holds the platform row's cells beyond the join key.
	Fields map[string]string
}

// UnifiedRecord is the join of one sample with its platform-support claims
// and verification status. Constructed once during matching and immutable
// afterwards; owned by the fixture serializer until emitted.
type UnifiedRecord struct {
	// Accession is the canonical run accession.
	Accession string

	// Study is the BioProject the sample belongs to.
	Study string

	// Fields holds the sample's metadata cells, vocabulary-normalized.
	Fields map[string]string

	// Platforms maps each platform to its support claim. Every platform has
	// an entry; absence of a source row yields Supported == false.
	Platforms map[Platform]PlatformSupport

	Verification VerificationStatus
	Process      ProcessStatus
}

// Supported reports whether the given platform supports this sample.
func (u *UnifiedRecord) Supported(p Platform) bool {
	return u.Platforms[p].Supported
}

// Orphan is a platform or verification row whose join key matches no known
// sample. The primary data-quality signal the pipeline surfaces.
type Orphan struct {
	Source string

	// Key is the row's join key: a canonical run accession, or a BioProject
	// for study-level tables.
	Key string

	Line int
}

// Matcher joins loaded tables into unified records.
type Matcher struct {
	resolver   *accessions.Resolver
	normalizer *vocab.Normalizer
	logger     zerolog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the matcher's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

// New creates a Matcher. The resolver must be fully built; the normalizer
// may be nil when no cleaning sheet was supplied.
func New(resolver *accessions.Resolver, normalizer *vocab.Normalizer, opts ...Option) *Matcher {
	m := &Matcher{
		resolver:   resolver,
		normalizer: normalizer,
		logger:     *logging.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match joins samples against the platform tables and the verification
// table. Platform tables are optional (nil entries mean the platform has no
// data this run), as is the verification table. The returned result carries
// the unified records in sample input order plus the run report.
func (m *Matcher) Match(samples *tables.Table, platforms map[Platform]*tables.Table, verification *tables.Table) (*Result, error) {
	start := time.Now()
	report := NewReport()

	records, index, err := m.buildSamples(samples)
	if err != nil {
		return nil, err
	}
	m.logger.Info().Int("samples", len(records)).Msg("Built sample records")

	studyIndex := indexByStudy(records)

	for _, platform := range Platforms() {
		table := platforms[platform]
		if table == nil {
			continue
		}
		if err := m.matchPlatform(platform, table, index, studyIndex, report); err != nil {
			return nil, err
		}
	}

	if verification != nil {
		if err := m.matchVerification(verification, index, report); err != nil {
			return nil, err
		}
	}

	if m.normalizer != nil {
		report.Unmapped = m.normalizer.Unmapped()
	}

	result := &Result{
		Records:    records,
		Report:     report,
		ExecutedAt: start,
		Duration:   time.Since(start),
	}
	m.logger.Info().
		Int("records", len(records)).
		Int("orphans", report.OrphanCount()).
		Dur("elapsed", result.Duration).
		Msg("Matching complete")

	return result, nil
}

// buildSamples resolves accessions, normalizes vocabulary-scoped fields, and
// indexes the records by canonical accession. A duplicate canonical
// accession among samples violates the uniqueness invariant and is fatal.
func (m *Matcher) buildSamples(samples *tables.Table) ([]*UnifiedRecord, map[string]*UnifiedRecord, error) {
	records := make([]*UnifiedRecord, 0, samples.Len())
	index := make(map[string]*UnifiedRecord, samples.Len())

	for _, row := range samples.Rows {
		canon := m.resolver.Resolve(strings.TrimSpace(row.Get(ColumnRun)))
		if canon == "" {
			return nil, nil, errors.NewValidationError(ColumnRun, row.Line, "empty accession after resolution")
		}
		if _, ok := index[canon]; ok {
			return nil, nil, errors.NewValidationError(ColumnRun, canon,
				"duplicate canonical accession in sample metadata")
		}

		fields, err := m.normalizeFields(samples.Columns, row)
		if err != nil {
			return nil, nil, err
		}
		fields[ColumnRun] = canon

		record := &UnifiedRecord{
			Accession:    canon,
			Study:        strings.TrimSpace(row.Get(ColumnStudy)),
			Fields:       fields,
			Platforms:    make(map[Platform]PlatformSupport, 3),
			Verification: StatusUnverified,
			Process:      ProcessNotStarted,
		}
		for _, p := range Platforms() {
			record.Platforms[p] = PlatformSupport{}
		}

		records = append(records, record)
		index[canon] = record
	}

	return records, index, nil
}

// normalizeFields copies the row's cells, canonicalizing every column the
// cleaning sheet declares as a scope.
func (m *Matcher) normalizeFields(columns []string, row tables.Row) (map[string]string, error) {
	fields := make(map[string]string, len(columns))
	for _, col := range columns {
		value := row.Get(col)
		if m.normalizer != nil && m.normalizer.HasScope(col) {
			normalized, err := m.normalizer.Normalize(col, value)
			if err != nil {
				return nil, err
			}
			value = normalized
		}
		fields[col] = value
	}
	return fields, nil
}

// matchPlatform probes one platform table against the sample index. Tables
// carrying a Run column join per-sample; tables keyed only by BioProject
// (the GWIPS sheet is study-level) join every sample of the study.
func (m *Matcher) matchPlatform(platform Platform, table *tables.Table, index map[string]*UnifiedRecord, studyIndex map[string][]*UnifiedRecord, report *Report) error {
	byRun := table.Has(ColumnRun)

	seen := make(map[string]string) // join key -> fingerprint
	matched := 0

	for _, row := range table.Rows {
		var key string
		var targets []*UnifiedRecord

		if byRun {
			key = m.resolver.Resolve(strings.TrimSpace(row.Get(ColumnRun)))
			if record, ok := index[key]; ok {
				targets = []*UnifiedRecord{record}
			}
		} else {
			key = strings.TrimSpace(row.Get(ColumnStudy))
			targets = studyIndex[key]
		}

		fingerprint := table.Fingerprint(row)
		if previous, ok := seen[key]; ok {
			if previous == fingerprint {
				report.Deduplicated[platform.String()]++
				continue
			}
			return errors.NewAmbiguityError(platform.String(), key, previous, fingerprint)
		}
		seen[key] = fingerprint

		if len(targets) == 0 {
			report.Orphans[platform.String()] = append(report.Orphans[platform.String()], Orphan{
				Source: platform.String(),
				Key:    key,
				Line:   row.Line,
			})
			continue
		}

		support := PlatformSupport{
			Supported: true,
			Fields:    platformFields(table, row, byRun),
		}
		for _, record := range targets {
			record.Platforms[platform] = support
			if platform == PlatformRiboCrypt {
				record.Process = processStatus(row.Get(ColumnComplete))
			}
			matched++
		}
	}

	m.logger.Info().
		Str("platform", platform.String()).
		Int("rows", table.Len()).
		Int("matched", matched).
		Int("orphans", len(report.Orphans[platform.String()])).
		Int("deduplicated", report.Deduplicated[platform.String()]).
		Msg("Matched platform table")

	return nil
}

// matchVerification probes the verification table. Rows from automated
// checks (CHECKED == auto) flag the sample for review instead of verifying
// it. Conflicting duplicate claims for one accession are fatal.
func (m *Matcher) matchVerification(table *tables.Table, index map[string]*UnifiedRecord, report *Report) error {
	seen := make(map[string]VerificationStatus)

	for _, row := range table.Rows {
		canon := m.resolver.Resolve(strings.TrimSpace(row.Get(ColumnRun)))

		status := StatusVerified
		if strings.EqualFold(strings.TrimSpace(row.Get(ColumnChecked)), CheckedAuto) {
			status = StatusFlagged
		}

		if previous, ok := seen[canon]; ok {
			if previous == status {
				report.Deduplicated[SourceVerification]++
				continue
			}
			return errors.NewAmbiguityError(SourceVerification, canon, string(previous), string(status))
		}
		seen[canon] = status

		record, ok := index[canon]
		if !ok {
			report.Orphans[SourceVerification] = append(report.Orphans[SourceVerification], Orphan{
				Source: SourceVerification,
				Key:    canon,
				Line:   row.Line,
			})
			continue
		}
		record.Verification = status
	}

	m.logger.Info().
		Int("rows", table.Len()).
		Int("orphans", len(report.Orphans[SourceVerification])).
		Msg("Matched verification table")

	return nil
}

// platformFields copies a platform row's cells beyond the join key.
func platformFields(table *tables.Table, row tables.Row, byRun bool) map[string]string {
	fields := make(map[string]string, len(table.Columns))
	for _, col := range table.Columns {
		if byRun && col == ColumnRun {
			continue
		}
		if !byRun && col == ColumnStudy {
			continue
		}
		fields[col] = row.Values[col]
	}
	return fields
}

func indexByStudy(records []*UnifiedRecord) map[string][]*UnifiedRecord {
	index := make(map[string][]*UnifiedRecord)
	for _, record := range records {
		if record.Study != "" {
			index[record.Study] = append(index[record.Study], record)
		}
	}
	return index
}

func processStatus(complete string) ProcessStatus {
	switch strings.ToLower(strings.TrimSpace(complete)) {
	case "true", "1", "yes":
		return ProcessCompleted
	case "false", "0", "no":
		return ProcessFailed
	}
	return ProcessNotStarted
}

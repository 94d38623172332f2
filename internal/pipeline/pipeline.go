// Package pipeline wires the load, resolve, normalize, match, and serialize
// stages into one batch run. Each stage owns only the structures it
// produces; outputs are handed to the next stage as immutable snapshots.
package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/riboseqorg/ribocollate/pkg/accessions"
	"github.com/riboseqorg/ribocollate/pkg/errors"
	"github.com/riboseqorg/ribocollate/pkg/fixtures"
	"github.com/riboseqorg/ribocollate/pkg/reconcile"
	"github.com/riboseqorg/ribocollate/pkg/report"
	"github.com/riboseqorg/ribocollate/pkg/tables"
	"github.com/riboseqorg/ribocollate/pkg/vocab"
)

// Options holds one run's input and output declarations. The master
// metadata and the output path are mandatory; every other source is
// optional and its stage is skipped when the path is empty.
type Options struct {
	// MetadataPath is the cleaned master metadata CSV.
	MetadataPath string

	// Platform sample-matching tables.
	GWIPSPath     string
	TripsPath     string
	RiboCryptPath string

	// CollapsedPath is the collapsed-accessions TSV.
	CollapsedPath string

	// VerifiedPath is the manually-checked samples CSV.
	VerifiedPath string

	// CleanPath is the controlled-vocabulary name-cleaning CSV.
	CleanPath string

	// SchemaPath is the YAML schema descriptor; empty uses the default.
	SchemaPath string

	// OutputPath receives the fixture records.
	OutputPath string

	// Format is the fixture serialization ("json" or "yaml").
	Format string

	// ReportPath, when set, receives the Markdown data-quality report.
	ReportPath string

	// SQLiteDir, when set, receives one open-column database per study.
	SQLiteDir string

	// StrictVocab fails the run on any unmapped vocabulary term.
	StrictVocab bool

	Logger zerolog.Logger
}

// Run executes the full reconciliation pipeline and returns the match
// result for inspection. File-level failures abort the run; row-level,
// orphan, and vocabulary issues accumulate into the result's report.
func Run(opts Options) (*reconcile.Result, error) {
	if opts.MetadataPath == "" {
		return nil, errors.NewConfigError("pipeline", "metadata path is required", nil)
	}
	if opts.OutputPath == "" {
		return nil, errors.NewConfigError("pipeline", "output path is required", nil)
	}

	format, err := fixtures.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	schema := fixtures.DefaultSchema()
	if opts.SchemaPath != "" {
		schema, err = fixtures.LoadSchema(opts.SchemaPath)
		if err != nil {
			return nil, err
		}
	}

	var rowErrs []tables.RowError

	samples, errs, err := tables.Load(opts.MetadataPath, tables.CSV("metadata", reconcile.ColumnRun, reconcile.ColumnStudy))
	if err != nil {
		return nil, err
	}
	rowErrs = append(rowErrs, errs...)
	opts.Logger.Info().Str("path", opts.MetadataPath).Int("rows", samples.Len()).Msg("Loaded metadata")

	resolver := accessions.Empty()
	if opts.CollapsedPath != "" {
		collapsed, errs, err := tables.Load(opts.CollapsedPath, tables.TSV("collapsed", accessions.Required()...))
		if err != nil {
			return nil, err
		}
		rowErrs = append(rowErrs, errs...)
		resolver, err = accessions.Build(collapsed)
		if err != nil {
			return nil, err
		}
		opts.Logger.Info().Int("groups", resolver.Groups()).Int("accessions", resolver.Len()).Msg("Built accession resolver")
	}

	var normalizer *vocab.Normalizer
	if opts.CleanPath != "" {
		sheet, errs, err := tables.Load(opts.CleanPath, tables.CSV("vocabulary", vocab.Required()...))
		if err != nil {
			return nil, err
		}
		rowErrs = append(rowErrs, errs...)

		policy := vocab.Lenient
		if opts.StrictVocab {
			policy = vocab.Strict
		}
		normalizer, err = vocab.New(sheet, vocab.WithPolicy(policy))
		if err != nil {
			return nil, err
		}
		opts.Logger.Info().Int("scopes", len(normalizer.Scopes())).Msg("Built vocabulary normalizer")
	}

	platforms := make(map[reconcile.Platform]*tables.Table, 3)
	platformPaths := []struct {
		platform reconcile.Platform
		path     string
		spec     tables.Spec
	}{
		{reconcile.PlatformGWIPS, opts.GWIPSPath, tables.CSV("gwips", reconcile.ColumnStudy)},
		{reconcile.PlatformTrips, opts.TripsPath, tables.CSV("trips", reconcile.ColumnRun)},
		{reconcile.PlatformRiboCrypt, opts.RiboCryptPath, tables.CSV("ribocrypt", reconcile.ColumnRun)},
	}
	for _, p := range platformPaths {
		if p.path == "" {
			continue
		}
		table, errs, err := tables.Load(p.path, p.spec)
		if err != nil {
			return nil, err
		}
		rowErrs = append(rowErrs, errs...)
		platforms[p.platform] = table
	}

	var verification *tables.Table
	if opts.VerifiedPath != "" {
		verification, errs, err = tables.Load(opts.VerifiedPath, tables.CSV("verified", reconcile.ColumnRun))
		if err != nil {
			return nil, err
		}
		rowErrs = append(rowErrs, errs...)
	}

	matcher := reconcile.New(resolver, normalizer, reconcile.WithLogger(opts.Logger))
	result, err := matcher.Match(samples, platforms, verification)
	if err != nil {
		return nil, err
	}
	result.Report.AddRowErrors(rowErrs...)

	var terms []vocab.Term
	if normalizer != nil {
		terms = normalizer.Terms()
	}

	serializer := fixtures.New(schema, fixtures.WithLogger(opts.Logger))
	records, err := serializer.Serialize(result.Records, terms)
	if err != nil {
		return nil, err
	}
	if err := fixtures.WriteFile(opts.OutputPath, records, format); err != nil {
		return nil, err
	}
	opts.Logger.Info().Str("path", opts.OutputPath).Int("records", len(records)).Msg("Wrote fixture file")

	if opts.SQLiteDir != "" {
		if err := fixtures.ExportOpenColumnDatabases(opts.SQLiteDir, schema, result.Records); err != nil {
			return nil, err
		}
		opts.Logger.Info().Str("dir", opts.SQLiteDir).Msg("Wrote open-column databases")
	}

	report.Log(opts.Logger, result)
	if opts.ReportPath != "" {
		if err := report.WriteMarkdown(opts.ReportPath, result); err != nil {
			return nil, err
		}
		opts.Logger.Info().Str("path", opts.ReportPath).Msg("Wrote data-quality report")
	}

	return result, nil
}

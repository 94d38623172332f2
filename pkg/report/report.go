// Package report renders the end-of-run data-quality report. Every
// non-fatal issue the pipeline accumulated — skipped rows, orphaned platform
// and verification rows, collapsed duplicates, unmapped vocabulary terms —
// is written out with counts and identifiers so nothing is dropped silently.
package report

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	md "github.com/nao1215/markdown"
	"github.com/rs/zerolog"

	"github.com/riboseqorg/ribocollate/pkg/errors"
	"github.com/riboseqorg/ribocollate/pkg/reconcile"
)

// WriteMarkdown renders the report as a Markdown document.
func WriteMarkdown(path string, result *reconcile.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer f.Close()

	report := result.Report
	doc := md.NewMarkdown(f).
		H1("Reconciliation report").
		PlainText(result.Summary()).
		LF()

	doc.H2("Skipped rows")
	if len(report.RowErrors) == 0 {
		doc.PlainText("None.").LF()
	} else {
		rows := make([][]string, 0, len(report.RowErrors))
		for _, rowErr := range report.RowErrors {
			rows = append(rows, []string{
				rowErr.Source,
				strconv.Itoa(rowErr.Line),
				rowErr.Column,
				rowErr.Message,
			})
		}
		doc.Table(md.TableSet{
			Header: []string{"Source", "Line", "Column", "Reason"},
			Rows:   rows,
		})
	}

	doc.H2("Orphan rows")
	if report.OrphanCount() == 0 {
		doc.PlainText("None.").LF()
	} else {
		rows := make([][]string, 0, report.OrphanCount())
		for _, source := range sortedSources(report.Orphans) {
			for _, orphan := range report.Orphans[source] {
				rows = append(rows, []string{
					orphan.Source,
					orphan.Key,
					strconv.Itoa(orphan.Line),
				})
			}
		}
		doc.Table(md.TableSet{
			Header: []string{"Source", "Join key", "Line"},
			Rows:   rows,
		})
	}

	if report.DeduplicatedCount() > 0 {
		doc.H2("Collapsed duplicates")
		var items []string
		for _, source := range sortedCounts(report.Deduplicated) {
			items = append(items, fmt.Sprintf("%s: %d identical rows collapsed", source, report.Deduplicated[source]))
		}
		doc.BulletList(items...)
	}

	doc.H2("Unmapped vocabulary terms")
	if len(report.Unmapped) == 0 {
		doc.PlainText("None.").LF()
	} else {
		rows := make([][]string, 0, len(report.Unmapped))
		for _, term := range report.Unmapped {
			rows = append(rows, []string{term.Scope, term.Term, strconv.Itoa(term.Count)})
		}
		doc.Table(md.TableSet{
			Header: []string{"Scope", "Term", "Occurrences"},
			Rows:   rows,
		})
	}

	if err := doc.Build(); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Log emits the report's counts through the structured logger, warning on
// any source that produced issues.
func Log(logger zerolog.Logger, result *reconcile.Result) {
	report := result.Report

	for _, rowErr := range report.RowErrors {
		logger.Warn().
			Str("source", rowErr.Source).
			Int("line", rowErr.Line).
			Str("column", rowErr.Column).
			Msg(rowErr.Message)
	}

	for _, source := range sortedSources(report.Orphans) {
		orphans := report.Orphans[source]
		logger.Warn().
			Str("source", source).
			Int("count", len(orphans)).
			Msg("Orphan rows excluded from output")
	}

	for _, term := range report.Unmapped {
		logger.Warn().
			Str("scope", term.Scope).
			Str("term", term.Term).
			Int("count", term.Count).
			Msg("Vocabulary term has no canonical mapping")
	}

	if report.Clean() {
		logger.Info().Msg("No data-quality issues found")
	}
}

func sortedSources(m map[string][]reconcile.Orphan) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCounts(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package report_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riboseqorg/ribocollate/pkg/logging"
	"github.com/riboseqorg/ribocollate/pkg/reconcile"
	"github.com/riboseqorg/ribocollate/pkg/report"
	"github.com/riboseqorg/ribocollate/pkg/tables"
	"github.com/riboseqorg/ribocollate/pkg/vocab"
)

func dirtyResult() *reconcile.Result {
	r := reconcile.NewReport()
	r.AddRowErrors(tables.RowError{Source: "metadata", Line: 3, Column: "Run", Message: "required cell is empty"})
	r.Orphans["Trips"] = []reconcile.Orphan{{Source: "Trips", Key: "SRX999", Line: 7}}
	r.Deduplicated["Trips"] = 2
	r.Unmapped = []vocab.UnmappedTerm{{Scope: "LIBRARYTYPE", Term: "mystery", Count: 4}}

	return &reconcile.Result{
		Records:    nil,
		Report:     r,
		ExecutedAt: time.Now(),
		Duration:   time.Second,
	}
}

func cleanResult() *reconcile.Result {
	return &reconcile.Result{Report: reconcile.NewReport()}
}

func TestWriteMarkdownWithIssues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")

	require.NoError(t, report.WriteMarkdown(path, dirtyResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "# Reconciliation report")
	assert.Contains(t, content, "## Skipped rows")
	assert.Contains(t, content, "required cell is empty")
	assert.Contains(t, content, "## Orphan rows")
	assert.Contains(t, content, "SRX999")
	assert.Contains(t, content, "## Collapsed duplicates")
	assert.Contains(t, content, "Trips: 2 identical rows collapsed")
	assert.Contains(t, content, "## Unmapped vocabulary terms")
	assert.Contains(t, content, "mystery")
}

func TestWriteMarkdownCleanRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")

	require.NoError(t, report.WriteMarkdown(path, cleanResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "None.")
	assert.NotContains(t, content, "## Collapsed duplicates")
}

func TestLogWarnsOnIssues(t *testing.T) {
	tl := logging.NewTestLogger(t)

	report.Log(*tl.Logger, dirtyResult())

	assert.True(t, tl.Contains("Orphan rows excluded from output"))
	assert.True(t, tl.Contains("Vocabulary term has no canonical mapping"))
	assert.True(t, tl.Contains("required cell is empty"))
	assert.False(t, tl.Contains("No data-quality issues found"))
}

func TestLogCleanRun(t *testing.T) {
	tl := logging.NewTestLogger(t)

	report.Log(*tl.Logger, cleanResult())

	assert.True(t, tl.Contains("No data-quality issues found"))
}

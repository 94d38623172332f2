package fixtures_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riboseqorg/ribocollate/pkg/fixtures"
	"github.com/riboseqorg/ribocollate/pkg/reconcile"
)

func TestExportOpenColumnDatabases(t *testing.T) {
	dir := t.TempDir()
	records := []*reconcile.UnifiedRecord{
		newRecord("SRX001", "PRJ001", map[string]string{"STRAIN": "BY4741", "GROWTH_PHASE": "log"}),
		newRecord("SRX002", "PRJ001", map[string]string{"STRAIN": "W303"}),
		newRecord("SRX003", "PRJ002", map[string]string{"STRAIN": "S288C"}),
	}

	require.NoError(t, fixtures.ExportOpenColumnDatabases(dir, fixtures.DefaultSchema(), records))

	db, err := sql.Open("sqlite", filepath.Join(dir, "PRJ001.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT "Run", "GROWTH_PHASE", "STRAIN" FROM "PRJ001" ORDER BY "Run"`)
	require.NoError(t, err)
	defer rows.Close()

	type row struct{ run, phase, strain string }
	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.run, &r.phase, &r.strain))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())

	require.Len(t, got, 2)
	assert.Equal(t, row{"SRX001", "log", "BY4741"}, got[0])
	assert.Equal(t, row{"SRX002", "", "W303"}, got[1])
}

func TestExportOpenColumnDatabasesReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	records := []*reconcile.UnifiedRecord{
		newRecord("SRX001", "PRJ001", map[string]string{"STRAIN": "BY4741"}),
	}

	require.NoError(t, fixtures.ExportOpenColumnDatabases(dir, fixtures.DefaultSchema(), records))
	// A second export over the same directory replaces the table.
	require.NoError(t, fixtures.ExportOpenColumnDatabases(dir, fixtures.DefaultSchema(), records))

	db, err := sql.Open("sqlite", filepath.Join(dir, "PRJ001.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "PRJ001"`).Scan(&count))
	assert.Equal(t, 1, count)
}

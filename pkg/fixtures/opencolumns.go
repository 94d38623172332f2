package fixtures

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/riboseqorg/ribocollate/pkg/errors"
	"github.com/riboseqorg/ribocollate/pkg/reconcile"
)

// openColumnRecords emits one entity per (study, open column) pair. Open
// columns are metadata columns the sample entity does not accept; their
// distinct non-empty values are aggregated per study so study pages can
// still expose them.
func (s *Serializer) openColumnRecords(records []*reconcile.UnifiedRecord) []Record {
	var out []Record

	for _, study := range studyOrder(records) {
		values := make(map[string][]string) // column -> distinct values in row order
		seen := make(map[string]map[string]bool)

		for _, record := range records {
			if record.Study != study {
				continue
			}
			for _, col := range openColumns(s.schema, record) {
				value := strings.TrimSpace(record.Fields[col])
				if value == "" {
					continue
				}
				if seen[col] == nil {
					seen[col] = make(map[string]bool)
				}
				if seen[col][value] {
					continue
				}
				seen[col][value] = true
				values[col] = append(values[col], value)
			}
		}

		for _, col := range sortedKeysSlice(values) {
			out = append(out, Record{
				Model: s.schema.Model(EntityOpenColumns),
				PK:    s.next(EntityOpenColumns),
				Fields: map[string]any{
					"column_name": col,
					"bioproject":  study,
					"values":      cleanValue(strings.Join(values[col], ",")),
				},
			})
		}
	}

	return out
}

// ExportOpenColumnDatabases writes one sqlite database per study into dir,
// each holding a table (named after the BioProject) of the study's samples
// restricted to their open columns. These sidecar files feed the study
// detail pages; they are not the relational store the fixture file targets.
func ExportOpenColumnDatabases(dir string, schema *Schema, records []*reconcile.UnifiedRecord) error {
	for _, study := range studyOrder(records) {
		var rows []*reconcile.UnifiedRecord
		columnSet := make(map[string]bool)
		var columns []string

		for _, record := range records {
			if record.Study != study {
				continue
			}
			rows = append(rows, record)
			for _, col := range openColumns(schema, record) {
				if !columnSet[col] {
					columnSet[col] = true
					columns = append(columns, col)
				}
			}
		}
		sort.Strings(columns)

		if err := writeStudyDatabase(filepath.Join(dir, study+".sqlite"), study, columns, rows); err != nil {
			return err
		}
	}
	return nil
}

// writeStudyDatabase creates (or replaces) one study's sidecar database.
func writeStudyDatabase(path, study string, columns []string, rows []*reconcile.UnifiedRecord) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.WrapIO("open", path, err)
	}
	defer db.Close()

	quoted := make([]string, 0, len(columns)+1)
	quoted = append(quoted, quoteIdent("Run")+" TEXT")
	for _, col := range columns {
		quoted = append(quoted, quoteIdent(col)+" TEXT")
	}

	table := quoteIdent(study)
	if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return errors.WrapIO("write", path, err)
	}
	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(quoted, ", "))); err != nil {
		return errors.WrapIO("write", path, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)+1), ", ")
	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, placeholders)

	tx, err := db.Begin()
	if err != nil {
		return errors.WrapIO("write", path, err)
	}
	for _, record := range rows {
		args := make([]any, 0, len(columns)+1)
		args = append(args, record.Accession)
		for _, col := range columns {
			args = append(args, record.Fields[col])
		}
		if _, err := tx.Exec(insert, args...); err != nil {
			_ = tx.Rollback()
			return errors.WrapIO("write", path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// openColumns returns the record's columns not accepted by the sample
// entity, sorted for deterministic output.
func openColumns(schema *Schema, record *reconcile.UnifiedRecord) []string {
	var cols []string
	for col := range record.Fields {
		if !schema.IsSampleColumn(col) {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	return cols
}

// studyOrder returns the studies in first-appearance order.
func studyOrder(records []*reconcile.UnifiedRecord) []string {
	var studies []string
	seen := make(map[string]bool)
	for _, record := range records {
		if record.Study != "" && !seen[record.Study] {
			seen[record.Study] = true
			studies = append(studies, record.Study)
		}
	}
	return studies
}

// quoteIdent quotes an SQL identifier, escaping embedded quotes.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func sortedKeysSlice(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

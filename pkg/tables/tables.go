// Package tables loads the pipeline's tabular sources (CSV or TSV) into typed
// row records. A missing required column in a source header is fatal for that
// file; malformed rows are skipped and reported so one bad line never aborts
// a whole load.
package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/riboseqorg/ribocollate/pkg/errors"
)

// Spec declares how a single source file is parsed. Encoding and delimiter
// are fixed per source, never sniffed.
type Spec struct {
	// Name is the logical source name used in errors and reports.
	Name string

	// Delimiter separates fields (',' for CSV, '\t' for TSV).
	Delimiter rune

	// Required lists the header columns that must be present. A row with an
	// empty cell in any required column is skipped with a row error.
	Required []string
}

// CSV returns a comma-delimited source spec.
func CSV(name string, required ...string) Spec {
	return Spec{Name: name, Delimiter: ',', Required: required}
}

// TSV returns a tab-delimited source spec.
func TSV(name string, required ...string) Spec {
	return Spec{Name: name, Delimiter: '\t', Required: required}
}

// Row is a single parsed record keyed by column name.
type Row struct {
	// Line is the 1-based line number in the source file, header included.
	Line int

	// Values maps column name to cell content.
	Values map[string]string
}

// Get returns the cell for the given column, or "" if absent.
func (r Row) Get(column string) string {
	return r.Values[column]
}

// RowError records a skipped row and why it was skipped.
type RowError struct {
	Source  string
	Line    int
	Column  string
	Message string
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s:%d: column %q: %s", e.Source, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Message)
}

// Table holds the valid rows of one loaded source.
type Table struct {
	// Source is the logical name from the Spec.
	Source string

	// Columns is the header in file order.
	Columns []string

	// Rows are the valid rows in file order.
	Rows []Row
}

// Len returns the number of valid rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table header contains the given column.
func (t *Table) Has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Fingerprint returns a canonical serialization of a row over the table's
// column order. Two rows with identical cell content in every column have
// equal fingerprints; used to detect byte-identical duplicates.
func (t *Table) Fingerprint(r Row) string {
	var b strings.Builder
	for i, col := range t.Columns {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(r.Values[col])
	}
	return b.String()
}

// Load parses the file at path according to spec. It returns the valid rows,
// the accumulated row-level errors, and a fatal error. A missing required
// header column or an unreadable file is fatal; anything row-shaped is not.
func Load(path string, spec Spec) (*Table, []RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	table, rowErrs, err := Read(f, path, spec)
	if err != nil {
		return nil, nil, err
	}
	return table, rowErrs, nil
}

// Read parses spec-conformant rows from r. Split out from Load so tests and
// callers with in-memory sources can bypass the filesystem.
func Read(r io.Reader, path string, spec Spec) (*Table, []RowError, error) {
	reader := csv.NewReader(r)
	reader.Comma = spec.Delimiter
	reader.FieldsPerRecord = -1 // ragged rows handled per-row below
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.WrapParse(format(spec), path, err)
	}
	header = cleanHeader(header)

	for _, col := range spec.Required {
		if !contains(header, col) {
			return nil, nil, errors.NewMissingColumnError(path, col)
		}
	}

	table := &Table{Source: spec.Name, Columns: header}
	var rowErrs []RowError

	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{
				Source:  spec.Name,
				Line:    line,
				Message: err.Error(),
			})
			continue
		}
		if isBlank(record) {
			continue
		}

		row := Row{Line: line, Values: make(map[string]string, len(header))}
		for i, col := range header {
			if i < len(record) {
				row.Values[col] = record[i]
			} else {
				row.Values[col] = ""
			}
		}

		if col, ok := missingRequired(row, spec.Required); !ok {
			rowErrs = append(rowErrs, RowError{
				Source:  spec.Name,
				Line:    line,
				Column:  col,
				Message: "required cell is empty",
			})
			continue
		}

		table.Rows = append(table.Rows, row)
	}

	return table, rowErrs, nil
}

// cleanHeader trims whitespace and strips a UTF-8 BOM from the first column.
func cleanHeader(header []string) []string {
	cleaned := make([]string, len(header))
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		cleaned[i] = strings.TrimSpace(col)
	}
	return cleaned
}

// missingRequired returns the first required column whose cell is empty.
func missingRequired(row Row, required []string) (string, bool) {
	for _, col := range required {
		if strings.TrimSpace(row.Values[col]) == "" {
			return col, false
		}
	}
	return "", true
}

func contains(columns []string, col string) bool {
	for _, c := range columns {
		if c == col {
			return true
		}
	}
	return false
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func format(spec Spec) string {
	if spec.Delimiter == '\t' {
		return "tsv"
	}
	return "csv"
}

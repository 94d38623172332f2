// Package fixtures maps unified sample records onto the target relational
// schema and serializes them into the interchange format consumed by the
// external bulk loader. The loader applies the output idempotently; nothing
// in this package touches a live database connection.
package fixtures

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/riboseqorg/ribocollate/pkg/errors"
)

// Entity names in the target schema.
const (
	EntitySample          = "sample"
	EntityStudy           = "study"
	EntityPlatformSupport = "platformsupport"
	EntityVerification    = "verification"
	EntityOpenColumns     = "opencolumns"
	EntityVocabTerm       = "vocabterm"
)

// Schema describes the target relational schema: which app namespace the
// entities live under, which sample columns the schema accepts, and where
// each entity's primary-key counter starts. Loaded from a YAML descriptor;
// DefaultSchema matches the data portal's current schema.
type Schema struct {
	// App is the application namespace prefixed to entity names
	// (app "main" + entity "sample" -> model "main.sample").
	App string `yaml:"app"`

	// SampleColumns are the metadata columns stored on the sample entity.
	// Columns outside this set are "open" columns, aggregated per study.
	SampleColumns []string `yaml:"sample_columns"`

	// IntegerColumns are sample columns serialized as integers. A cell that
	// does not parse is omitted from the record rather than failing the run.
	IntegerColumns []string `yaml:"integer_columns"`

	// StudyColumns are sample columns hoisted onto the study entity, taking
	// the first non-empty value among the study's samples.
	StudyColumns []string `yaml:"study_columns"`

	// Start maps entity name to the first primary key assigned. Entities
	// absent from the map start at 1. The study entity uses its natural key
	// (BioProject) and takes no counter.
	Start map[string]int `yaml:"start"`
}

// DefaultSchema returns the descriptor for the data portal's schema.
func DefaultSchema() *Schema {
	return &Schema{
		App: "main",
		SampleColumns: []string{
			"Run", "BioProject", "GEO", "spots", "bases", "avgLength", "size_MB",
			"Experiment", "LibraryName", "LibraryStrategy", "LibrarySelection",
			"LibrarySource", "LibraryLayout", "InsertSize", "InsertDev",
			"Platform", "Model", "SRAStudy", "Study_Pubmed_id", "Sample",
			"BioSample", "SampleType", "TaxID", "ScientificName", "SampleName",
			"CenterName", "Submission", "MONTH", "YEAR", "AUTHOR",
			"sample_source", "sample_title", "LIBRARYTYPE", "REPLICATE",
			"CONDITION", "INHIBITOR", "TIMEPOINT", "TISSUE", "CELL_LINE",
			"FRACTION",
		},
		IntegerColumns: []string{"spots", "bases", "avgLength", "size_MB"},
		StudyColumns:   []string{"GEO", "SRAStudy", "Study_Pubmed_id", "CenterName", "AUTHOR", "YEAR"},
		Start:          map[string]int{},
	}
}

// LoadSchema reads a YAML schema descriptor from path. Fields omitted from
// the descriptor fall back to the defaults.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	schema := DefaultSchema()
	if err := yaml.Unmarshal(data, schema); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}

// Validate checks the descriptor for the fields the serializer depends on.
func (s *Schema) Validate() error {
	if s.App == "" {
		return errors.NewConfigError("schema", "app namespace is empty", nil)
	}
	if len(s.SampleColumns) == 0 {
		return errors.NewConfigError("schema", "sample_columns is empty", nil)
	}
	for _, col := range []string{"Run", "BioProject"} {
		if !containsColumn(s.SampleColumns, col) {
			return errors.NewConfigError("schema",
				fmt.Sprintf("sample_columns must include %q", col), nil)
		}
	}
	return nil
}

// Model returns the fully-qualified model name for an entity.
func (s *Schema) Model(entity string) string {
	return fmt.Sprintf("%s.%s", s.App, entity)
}

// IsSampleColumn reports whether the schema stores col on the sample entity.
func (s *Schema) IsSampleColumn(col string) bool {
	return containsColumn(s.SampleColumns, col)
}

// IsIntegerColumn reports whether col is serialized as an integer.
func (s *Schema) IsIntegerColumn(col string) bool {
	return containsColumn(s.IntegerColumns, col)
}

// StartFor returns the first primary key for an entity's counter.
func (s *Schema) StartFor(entity string) int {
	if start, ok := s.Start[entity]; ok && start > 0 {
		return start
	}
	return 1
}

func containsColumn(columns []string, col string) bool {
	for _, c := range columns {
		if c == col {
			return true
		}
	}
	return false
}

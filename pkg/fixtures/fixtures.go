package fixtures

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"

	"github.com/riboseqorg/ribocollate/pkg/errors"
	"github.com/riboseqorg/ribocollate/pkg/logging"
	"github.com/riboseqorg/ribocollate/pkg/reconcile"
	"github.com/riboseqorg/ribocollate/pkg/vocab"
)

// Record is one schema-conformant output record, tagged with its target
// entity model and carrying either a natural or assigned primary key.
type Record struct {
	Model  string         `json:"model" yaml:"model"`
	PK     any            `json:"pk" yaml:"pk"`
	Fields map[string]any `json:"fields" yaml:"fields"`
}

// Format selects the interchange serialization.
type Format int

// Supported output formats.
const (
	FormatJSON Format = iota
	FormatYAML
)

// ParseFormat converts a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return FormatJSON, errors.NewConfigError("output", "unknown format "+name, nil)
}

// Serializer maps unified records into output records. Primary keys are
// assigned from monotonic per-entity counters scoped to the run, so
// re-serializing unchanged input produces identical output.
type Serializer struct {
	schema   *Schema
	logger   zerolog.Logger
	counters map[string]int
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithLogger sets the serializer's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Serializer) { s.logger = logger }
}

// New creates a Serializer for the given schema.
func New(schema *Schema, opts ...Option) *Serializer {
	s := &Serializer{
		schema:   schema,
		logger:   *logging.Default(),
		counters: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serialize maps the unified records onto the target schema. Output order is
// deterministic: studies in first-appearance order, then samples in input
// order, then platform-support and verification entities in sample order,
// then per-study open columns, then vocabulary terms. Every foreign key
// references a record emitted in the same output set.
func (s *Serializer) Serialize(records []*reconcile.UnifiedRecord, terms []vocab.Term) ([]Record, error) {
	var out []Record

	out = append(out, s.studyRecords(records)...)

	samplePKs := make(map[string]int, len(records))
	for _, record := range records {
		pk := s.next(EntitySample)
		samplePKs[record.Accession] = pk
		out = append(out, s.sampleRecord(record, pk))
	}

	for _, record := range records {
		out = append(out, s.platformRecords(record, samplePKs[record.Accession])...)
	}

	for _, record := range records {
		if record.Verification == reconcile.StatusUnverified {
			continue // absence is the default, not a record
		}
		out = append(out, Record{
			Model: s.schema.Model(EntityVerification),
			PK:    s.next(EntityVerification),
			Fields: map[string]any{
				"sample": samplePKs[record.Accession],
				"status": string(record.Verification),
			},
		})
	}

	out = append(out, s.openColumnRecords(records)...)
	out = append(out, s.vocabRecords(terms)...)

	s.logger.Info().Int("records", len(out)).Msg("Serialized fixture records")
	return out, nil
}

// sampleRecord emits the sample entity. Platform-support flags and the
// verification status are denormalized onto the sample row the way the data
// portal's sample table stores them; the FK-linked entities carry the
// platform metadata.
func (s *Serializer) sampleRecord(record *reconcile.UnifiedRecord, pk int) Record {
	fields := make(map[string]any, len(s.schema.SampleColumns)+5)

	for _, col := range s.schema.SampleColumns {
		value, ok := record.Fields[col]
		if !ok {
			continue
		}
		if s.schema.IsIntegerColumn(col) {
			if n, ok := parseInt(value); ok {
				fields[col] = n
			}
			continue
		}
		fields[col] = cleanValue(value)
	}

	fields["BioProject"] = record.Study
	fields["gwips_id"] = record.Supported(reconcile.PlatformGWIPS)
	fields["trips_id"] = record.Supported(reconcile.PlatformTrips)
	fields["ribocrypt_id"] = record.Supported(reconcile.PlatformRiboCrypt)
	fields["process_status"] = string(record.Process)
	fields["verified"] = record.Verification == reconcile.StatusVerified

	return Record{
		Model:  s.schema.Model(EntitySample),
		PK:     pk,
		Fields: fields,
	}
}

// studyRecords emits one study entity per BioProject, keyed naturally, in
// first-appearance order over the sample records. Study-level columns take
// the first non-empty value among the study's samples.
func (s *Serializer) studyRecords(records []*reconcile.UnifiedRecord) []Record {
	var out []Record
	seen := make(map[string]bool)

	byStudy := make(map[string][]*reconcile.UnifiedRecord)
	for _, record := range records {
		byStudy[record.Study] = append(byStudy[record.Study], record)
	}

	for _, record := range records {
		if record.Study == "" || seen[record.Study] {
			continue
		}
		seen[record.Study] = true

		fields := map[string]any{"BioProject": record.Study}
		for _, col := range s.schema.StudyColumns {
			for _, candidate := range byStudy[record.Study] {
				if value := strings.TrimSpace(candidate.Fields[col]); value != "" {
					fields[col] = cleanValue(value)
					break
				}
			}
		}

		out = append(out, Record{
			Model:  s.schema.Model(EntityStudy),
			PK:     record.Study,
			Fields: fields,
		})
	}

	return out
}

// platformRecords emits one platform-support entity per supported platform,
// carrying the platform row's metadata fields.
func (s *Serializer) platformRecords(record *reconcile.UnifiedRecord, samplePK int) []Record {
	var out []Record

	for _, platform := range reconcile.Platforms() {
		support := record.Platforms[platform]
		if !support.Supported {
			continue
		}

		fields := map[string]any{
			"sample":   samplePK,
			"platform": platform.String(),
		}
		for _, col := range sortedKeys(support.Fields) {
			if value := support.Fields[col]; value != "" {
				fields[col] = cleanValue(value)
			}
		}

		out = append(out, Record{
			Model:  s.schema.Model(EntityPlatformSupport),
			PK:     s.next(EntityPlatformSupport),
			Fields: fields,
		})
	}

	return out
}

// vocabRecords emits the controlled-vocabulary terms used this run.
func (s *Serializer) vocabRecords(terms []vocab.Term) []Record {
	var out []Record
	for _, term := range terms {
		out = append(out, Record{
			Model: s.schema.Model(EntityVocabTerm),
			PK:    s.next(EntityVocabTerm),
			Fields: map[string]any{
				"scope":     term.Scope,
				"raw":       term.Raw,
				"canonical": term.Canonical,
			},
		})
	}
	return out
}

// next returns the next primary key for an entity's counter.
func (s *Serializer) next(entity string) int {
	if _, ok := s.counters[entity]; !ok {
		s.counters[entity] = s.schema.StartFor(entity) - 1
	}
	s.counters[entity]++
	return s.counters[entity]
}

// Write serializes records to w in the given format.
func Write(w io.Writer, records []Record, format Format) error {
	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(records)
		if err != nil {
			return errors.WrapParse("yaml", "", err)
		}
		_, err = w.Write(data)
		return errors.WrapIO("write", "", err)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return errors.WrapIO("write", "", enc.Encode(records))
	}
}

// WriteFile serializes records to the file at path.
func WriteFile(path string, records []Record, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer f.Close()

	if err := Write(f, records, format); err != nil {
		return err
	}
	return errors.WrapIO("close", path, f.Close())
}

// cleanValue applies the loader's string conventions: stray quote runs
// become apostrophes and newlines collapse to spaces so every field stays a
// single JSON-safe line.
func cleanValue(value string) string {
	value = strings.ReplaceAll(value, `""""`, "'")
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, `"`, "'")
	return value
}

// parseInt parses integer cells, accepting float-formatted values like
// "1234.0" that the upstream metadata export produces.
func parseInt(value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

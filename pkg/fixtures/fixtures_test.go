package fixtures_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riboseqorg/ribocollate/pkg/fixtures"
	"github.com/riboseqorg/ribocollate/pkg/reconcile"
	"github.com/riboseqorg/ribocollate/pkg/vocab"
)

func newRecord(accession, study string, fields map[string]string) *reconcile.UnifiedRecord {
	if fields == nil {
		fields = make(map[string]string)
	}
	fields["Run"] = accession
	fields["BioProject"] = study

	record := &reconcile.UnifiedRecord{
		Accession:    accession,
		Study:        study,
		Fields:       fields,
		Platforms:    make(map[reconcile.Platform]reconcile.PlatformSupport, 3),
		Verification: reconcile.StatusUnverified,
		Process:      reconcile.ProcessNotStarted,
	}
	for _, p := range reconcile.Platforms() {
		record.Platforms[p] = reconcile.PlatformSupport{}
	}
	return record
}

func recordsByModel(out []fixtures.Record, model string) []fixtures.Record {
	var matched []fixtures.Record
	for _, r := range out {
		if r.Model == model {
			matched = append(matched, r)
		}
	}
	return matched
}

func TestSerializeStudyRecordsFirstAppearanceOrder(t *testing.T) {
	s := fixtures.New(fixtures.DefaultSchema())

	out, err := s.Serialize([]*reconcile.UnifiedRecord{
		newRecord("SRX001", "PRJ002", map[string]string{"AUTHOR": "Ingolia"}),
		newRecord("SRX002", "PRJ001", nil),
		newRecord("SRX003", "PRJ002", map[string]string{"AUTHOR": "Weissman"}),
	}, nil)
	require.NoError(t, err)

	studies := recordsByModel(out, "main.study")
	require.Len(t, studies, 2)
	assert.Equal(t, "PRJ002", studies[0].PK)
	assert.Equal(t, "PRJ001", studies[1].PK)

	// Study-level columns take the first non-empty value among the samples.
	assert.Equal(t, "Ingolia", studies[0].Fields["AUTHOR"])

	// Studies precede every sample record.
	assert.Equal(t, "main.study", out[0].Model)
	assert.Equal(t, "main.study", out[1].Model)
	assert.Equal(t, "main.sample", out[2].Model)
}

func TestSerializeSamplePrimaryKeysAreSequential(t *testing.T) {
	s := fixtures.New(fixtures.DefaultSchema())

	out, err := s.Serialize([]*reconcile.UnifiedRecord{
		newRecord("SRX001", "PRJ001", nil),
		newRecord("SRX002", "PRJ001", nil),
		newRecord("SRX003", "PRJ001", nil),
	}, nil)
	require.NoError(t, err)

	samples := recordsByModel(out, "main.sample")
	require.Len(t, samples, 3)
	for i, sample := range samples {
		assert.Equal(t, i+1, sample.PK)
	}
}

func TestSerializeRespectsConfiguredStart(t *testing.T) {
	schema := fixtures.DefaultSchema()
	schema.Start = map[string]int{fixtures.EntitySample: 1000}
	s := fixtures.New(schema)

	out, err := s.Serialize([]*reconcile.UnifiedRecord{newRecord("SRX001", "PRJ001", nil)}, nil)
	require.NoError(t, err)

	samples := recordsByModel(out, "main.sample")
	require.Len(t, samples, 1)
	assert.Equal(t, 1000, samples[0].PK)
}

func TestSerializeIsDeterministic(t *testing.T) {
	records := []*reconcile.UnifiedRecord{
		newRecord("SRX001", "PRJ001", map[string]string{"TISSUE": "liver"}),
		newRecord("SRX002", "PRJ002", nil),
	}

	first, err := fixtures.New(fixtures.DefaultSchema()).Serialize(records, nil)
	require.NoError(t, err)
	second, err := fixtures.New(fixtures.DefaultSchema()).Serialize(records, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSampleRecordIntegerColumns(t *testing.T) {
	s := fixtures.New(fixtures.DefaultSchema())

	out, err := s.Serialize([]*reconcile.UnifiedRecord{
		newRecord("SRX001", "PRJ001", map[string]string{
			"spots":     "123456",
			"bases":     "9876543.0",
			"avgLength": "not a number",
			"size_MB":   "",
		}),
	}, nil)
	require.NoError(t, err)

	sample := recordsByModel(out, "main.sample")[0]
	assert.Equal(t, int64(123456), sample.Fields["spots"])
	assert.Equal(t, int64(9876543), sample.Fields["bases"])
	assert.NotContains(t, sample.Fields, "avgLength")
	assert.NotContains(t, sample.Fields, "size_MB")
}

func TestSampleRecordCleansStrings(t *testing.T) {
	s := fixtures.New(fixtures.DefaultSchema())

	out, err := s.Serialize([]*reconcile.UnifiedRecord{
		newRecord("SRX001", "PRJ001", map[string]string{
			"sample_title": "ribosome profiling of \"\"\"\"stressed\"\"\"\" cells\nreplicate \"one\"",
		}),
	}, nil)
	require.NoError(t, err)

	sample := recordsByModel(out, "main.sample")[0]
	assert.Equal(t, "ribosome profiling of 'stressed' cells replicate 'one'", sample.Fields["sample_title"])
}

func TestSampleRecordDenormalizedFlags(t *testing.T) {
	record := newRecord("SRX001", "PRJ001", nil)
	record.Platforms[reconcile.PlatformTrips] = reconcile.PlatformSupport{Supported: true}
	record.Process = reconcile.ProcessCompleted
	record.Verification = reconcile.StatusVerified

	out, err := fixtures.New(fixtures.DefaultSchema()).Serialize([]*reconcile.UnifiedRecord{record}, nil)
	require.NoError(t, err)

	sample := recordsByModel(out, "main.sample")[0]
	assert.Equal(t, false, sample.Fields["gwips_id"])
	assert.Equal(t, true, sample.Fields["trips_id"])
	assert.Equal(t, false, sample.Fields["ribocrypt_id"])
	assert.Equal(t, "Completed", sample.Fields["process_status"])
	assert.Equal(t, true, sample.Fields["verified"])
}

func TestPlatformSupportRecordsReferenceEmittedSamples(t *testing.T) {
	first := newRecord("SRX001", "PRJ001", nil)
	first.Platforms[reconcile.PlatformGWIPS] = reconcile.PlatformSupport{Supported: true}
	first.Platforms[reconcile.PlatformTrips] = reconcile.PlatformSupport{
		Supported: true,
		Fields:    map[string]string{"file_id": "41", "organism": "human"},
	}
	second := newRecord("SRX002", "PRJ001", nil)

	out, err := fixtures.New(fixtures.DefaultSchema()).Serialize([]*reconcile.UnifiedRecord{first, second}, nil)
	require.NoError(t, err)

	samplePKs := make(map[any]bool)
	for _, sample := range recordsByModel(out, "main.sample") {
		samplePKs[sample.PK] = true
	}

	support := recordsByModel(out, "main.platformsupport")
	require.Len(t, support, 2)
	for _, rec := range support {
		assert.True(t, samplePKs[rec.Fields["sample"]], "platform support references unknown sample pk %v", rec.Fields["sample"])
	}
	assert.Equal(t, "GWIPS", support[0].Fields["platform"])
	assert.Equal(t, "Trips", support[1].Fields["platform"])
	assert.Equal(t, "41", support[1].Fields["file_id"])
}

func TestVerificationRecordsSkipUnverified(t *testing.T) {
	verified := newRecord("SRX001", "PRJ001", nil)
	verified.Verification = reconcile.StatusVerified
	flagged := newRecord("SRX002", "PRJ001", nil)
	flagged.Verification = reconcile.StatusFlagged
	unverified := newRecord("SRX003", "PRJ001", nil)

	out, err := fixtures.New(fixtures.DefaultSchema()).Serialize(
		[]*reconcile.UnifiedRecord{verified, flagged, unverified}, nil)
	require.NoError(t, err)

	records := recordsByModel(out, "main.verification")
	require.Len(t, records, 2)
	assert.Equal(t, "verified", records[0].Fields["status"])
	assert.Equal(t, "flagged", records[1].Fields["status"])
}

func TestOpenColumnRecordsAggregatePerStudy(t *testing.T) {
	out, err := fixtures.New(fixtures.DefaultSchema()).Serialize([]*reconcile.UnifiedRecord{
		newRecord("SRX001", "PRJ001", map[string]string{"STRAIN": "BY4741"}),
		newRecord("SRX002", "PRJ001", map[string]string{"STRAIN": "BY4741"}),
		newRecord("SRX003", "PRJ001", map[string]string{"STRAIN": "W303"}),
		newRecord("SRX004", "PRJ002", map[string]string{"STRAIN": "S288C"}),
	}, nil)
	require.NoError(t, err)

	open := recordsByModel(out, "main.opencolumns")
	require.Len(t, open, 2)

	assert.Equal(t, "STRAIN", open[0].Fields["column_name"])
	assert.Equal(t, "PRJ001", open[0].Fields["bioproject"])
	assert.Equal(t, "BY4741,W303", open[0].Fields["values"])
	assert.Equal(t, "PRJ002", open[1].Fields["bioproject"])
	assert.Equal(t, "S288C", open[1].Fields["values"])
}

func TestVocabTermRecords(t *testing.T) {
	out, err := fixtures.New(fixtures.DefaultSchema()).Serialize(nil, []vocab.Term{
		{Scope: "LIBRARYTYPE", Raw: "RFP", Canonical: "RIBO-SEQ"},
	})
	require.NoError(t, err)

	terms := recordsByModel(out, "main.vocabterm")
	require.Len(t, terms, 1)
	assert.Equal(t, "LIBRARYTYPE", terms[0].Fields["scope"])
	assert.Equal(t, "RFP", terms[0].Fields["raw"])
	assert.Equal(t, "RIBO-SEQ", terms[0].Fields["canonical"])
}

func TestWriteJSON(t *testing.T) {
	records := []fixtures.Record{
		{Model: "main.sample", PK: 1, Fields: map[string]any{"Run": "SRX001"}},
	}

	var buf bytes.Buffer
	require.NoError(t, fixtures.Write(&buf, records, fixtures.FormatJSON))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "main.sample", decoded[0]["model"])
	assert.Equal(t, float64(1), decoded[0]["pk"])
}

func TestWriteFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	records := []fixtures.Record{
		{Model: "main.sample", PK: 1, Fields: map[string]any{"Run": "SRX001"}},
	}

	require.NoError(t, fixtures.WriteFile(path, records, fixtures.FormatYAML))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "model: main.sample")
	assert.Contains(t, string(data), "Run: SRX001")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    fixtures.Format
		wantErr bool
	}{
		{name: "", want: fixtures.FormatJSON},
		{name: "json", want: fixtures.FormatJSON},
		{name: "yaml", want: fixtures.FormatYAML},
		{name: "YML", want: fixtures.FormatYAML},
		{name: "xml", wantErr: true},
	}

	for _, tt := range tests {
		got, err := fixtures.ParseFormat(tt.name)
		if tt.wantErr {
			assert.Error(t, err, "format %q", tt.name)
			continue
		}
		require.NoError(t, err, "format %q", tt.name)
		assert.Equal(t, tt.want, got, "format %q", tt.name)
	}
}

package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/testing/fixtures"
)

const sampleTSV = "SubjectID\tVisit\tPC1\tPC2\tGroup\n" +
	"S1\tBaseline\t0.10\t-0.20\tA\n" +
	"S1\tWeek4\t0.30\t0.05\tA\n" +
	"S2\tBaseline\tNA\t0.40\tB\n" +
	"S2\tWeek4\t-0.15\t0.22\tB\n" +
	"S3\tBaseline\t0.00\t0.00\tB\n"

func newTestParser(t *testing.T, delimiter string) *Parser {
	t.Helper()
	p, err := NewParser(DefaultColumns(), delimiter, 2)
	require.NoError(t, err)
	return p
}

func TestNewParser(t *testing.T) {
	p, err := NewParser(DefaultColumns(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, DelimiterTab, p.delimiter)
	assert.Equal(t, 1, p.concurrency)
	assert.Empty(t, p.cache)

	_, err = NewParser(DefaultColumns(), "pipe", 1)
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))

	cols := DefaultColumns()
	cols.PC2 = " "
	_, err = NewParser(cols, DelimiterAuto, 1)
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
}

func TestParseTSV(t *testing.T) {
	table, err := newTestParser(t, DelimiterTab).Parse(strings.NewReader(sampleTSV), "sample.tsv")

	require.NoError(t, err)
	assert.Equal(t, []string{"SubjectID", "Visit", "PC1", "PC2", "Group"}, table.Headers)
	assert.Equal(t, 5, table.Rows)
	assert.Equal(t, 1, table.Dropped)
	assert.Equal(t, EncodingUTF8, table.Encoding)
	require.Len(t, table.Records, 4)
	assert.Equal(t, model.Record{SubjectID: "S1", Visit: "Baseline", PC1: 0.10, PC2: -0.20}, table.Records[0])
	assert.Equal(t, []string{"Baseline", "Week4"}, table.Visits())
	assert.Equal(t, []string{"S1", "S2", "S3"}, table.Subjects())
}

func TestParseDelimiters(t *testing.T) {
	tests := []struct {
		name      string
		delimiter string
		input     string
	}{
		{"comma", DelimiterComma, "SubjectID,Visit,PC1,PC2\nS1,V1,1,2\n"},
		{"semicolon", DelimiterSemicolon, "SubjectID;Visit;PC1;PC2\nS1;V1;1;2\n"},
		{"auto comma", DelimiterAuto, "SubjectID,Visit,PC1,PC2\nS1,V1,1,2\n"},
		{"auto semicolon", DelimiterAuto, "SubjectID;Visit;PC1;PC2\nS1;V1;1;2\n"},
		{"auto tab", DelimiterAuto, "SubjectID\tVisit\tPC1\tPC2\nS1\tV1\t1\t2\n"},
		{"crlf", DelimiterTab, "SubjectID\tVisit\tPC1\tPC2\r\nS1\tV1\t1\t2\r\n"},
		{"bom", DelimiterTab, "\ufeffSubjectID\tVisit\tPC1\tPC2\nS1\tV1\t1\t2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := newTestParser(t, tt.delimiter).Parse(strings.NewReader(tt.input), tt.name)
			require.NoError(t, err)
			require.Len(t, table.Records, 1)
			assert.Equal(t, model.Record{SubjectID: "S1", Visit: "V1", PC1: 1, PC2: 2}, table.Records[0])
		})
	}
}

func TestParseMissingValues(t *testing.T) {
	var b strings.Builder
	b.WriteString("SubjectID\tVisit\tPC1\tPC2\n")
	for i, cell := range []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "abc", "inf"} {
		fmt.Fprintf(&b, "S%d\tV1\t%s\t0.5\n", i, cell)
	}
	b.WriteString("S99\t\t0.1\t0.5\n")
	b.WriteString("S100\tV1\t0.1\n")
	b.WriteString("S101\tV1\t 0.25 \t-1e-3\n")

	table, err := newTestParser(t, DelimiterTab).Parse(strings.NewReader(b.String()), "na.tsv")

	require.NoError(t, err)
	assert.Equal(t, 13, table.Rows)
	assert.Equal(t, 12, table.Dropped)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "S101", table.Records[0].SubjectID)
	assert.InDelta(t, 0.25, table.Records[0].PC1, 1e-12)
	assert.InDelta(t, -0.001, table.Records[0].PC2, 1e-12)
}

func TestParseDropsSpreadsheetNATokens(t *testing.T) {
	p := newTestParser(t, DelimiterTab)
	input := "SubjectID\tVisit\tPC1\tPC2\n" +
		"S1\tBaseline\t0.1\t0.2\n" +
		"S1\tn/a\t0.3\t0.4\n" +
		"#N/A\tWeek4\t0.5\t0.6\n" +
		"S2\tWeek4\t<NA>\t0.6\n" +
		"S2\tBaseline\t1.#IND\t0.6\n" +
		"S3\tWeek4\t0.7\t0.8\n"

	table, err := p.Parse(strings.NewReader(input), "na.tsv")

	require.NoError(t, err)
	assert.Equal(t, 6, table.Rows)
	assert.Equal(t, 4, table.Dropped)
	assert.Equal(t, []string{"Baseline", "Week4"}, table.Visits())
	assert.Equal(t, []string{"S1", "S3"}, table.Subjects())
}

func TestParseSchemaErrors(t *testing.T) {
	p := newTestParser(t, DelimiterTab)

	_, err := p.Parse(strings.NewReader("SubjectID\tVisit\tPC1\nS1\tV1\t0.1\n"), "short.tsv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSchema))
	assert.Contains(t, err.Error(), `"PC2"`)
	assert.Contains(t, err.Error(), "available: SubjectID, Visit, PC1")

	_, err = p.Parse(strings.NewReader(""), "empty.tsv")
	assert.True(t, errors.Is(err, model.ErrSchema))
}

func TestParseCustomColumns(t *testing.T) {
	cols := ColumnMapping{Subject: "Patient", Visit: "Timepoint", PC1: "Axis.1", PC2: "Axis.2"}
	p, err := NewParser(cols, DelimiterComma, 1)
	require.NoError(t, err)

	table, err := p.Parse(strings.NewReader("Axis.1,Axis.2,Timepoint,Patient\n0.5,0.6,D0,P7\n"), "custom.csv")

	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, model.Record{SubjectID: "P7", Visit: "D0", PC1: 0.5, PC2: 0.6}, table.Records[0])
}

func TestParseLatin1Fallback(t *testing.T) {
	raw := []byte("SubjectID\tVisit\tPC1\tPC2\nJos\xe9\tSemaine\xa04\t0.1\t0.2\n")

	table, err := newTestParser(t, DelimiterTab).Parse(strings.NewReader(string(raw)), "latin1.tsv")

	require.NoError(t, err)
	assert.Equal(t, EncodingLatin1, table.Encoding)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "José", table.Records[0].SubjectID)
	assert.Equal(t, "Semaine\u00a04", table.Records[0].Visit)
}

func TestParseFileCachesUntilContentChanges(t *testing.T) {
	p := newTestParser(t, DelimiterTab)
	path := filepath.Join(t.TempDir(), "pcoa.tsv")
	require.NoError(t, os.WriteFile(path, []byte(sampleTSV), 0644))

	first, err := p.ParseFile(path)
	require.NoError(t, err)
	second, err := p.ParseFile(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, os.WriteFile(path, []byte(sampleTSV+"S4\tWeek4\t0.9\t0.9\tC\n"), 0644))
	third, err := p.ParseFile(path)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Len(t, third.Records, 5)

	_, err = p.ParseFile(filepath.Join(t.TempDir(), "missing.tsv"))
	assert.Error(t, err)
}

func TestParseFiles(t *testing.T) {
	p := newTestParser(t, DelimiterTab)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.tsv")
	bad := filepath.Join(dir, "bad.tsv")
	require.NoError(t, os.WriteFile(good, []byte(sampleTSV), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("a\tb\n1\t2\n"), 0644))

	got := map[string]ParseResult{}
	for res := range p.ParseFiles([]string{good, bad}) {
		got[res.File] = res
	}

	require.Len(t, got, 2)
	assert.NoError(t, got[good].Error)
	assert.Len(t, got[good].Table.Records, 4)
	assert.True(t, errors.Is(got[bad].Error, model.ErrSchema))
}

func TestParseGeneratedCohort(t *testing.T) {
	p := newTestParser(t, DelimiterAuto)
	cohort := fixtures.Cohort{
		Subjects:  50,
		Visits:    []string{"Baseline", "Week4", "Week12"},
		Delimiter: ',',
		NAEvery:   7,
	}
	path, err := fixtures.NewTableGenerator(t.TempDir()).Generate("cohort.csv", cohort)
	require.NoError(t, err)

	table, err := p.ParseFile(path)

	require.NoError(t, err)
	assert.Equal(t, 150, table.Rows)
	assert.Equal(t, 21, table.Dropped)
	assert.Len(t, table.Records, 129)
	assert.Equal(t, []string{"Baseline", "Week12", "Week4"}, table.Visits())
	assert.Len(t, table.Subjects(), 50)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, '\t', SniffDelimiter("a\tb\tc"))
	assert.Equal(t, ',', SniffDelimiter("a,b,c"))
	assert.Equal(t, ';', SniffDelimiter("a;b;c"))
	assert.Equal(t, '\t', SniffDelimiter("single"))
}

func TestIsMissing(t *testing.T) {
	assert.True(t, IsMissing(""))
	assert.True(t, IsMissing("NA"))
	assert.False(t, IsMissing("na"))
	for _, token := range []string{"n/a", "#N/A", "#N/A N/A", "#NA", "<NA>", "-nan", "-NaN", "1.#IND", "-1.#QNAN", "None"} {
		assert.True(t, IsMissing(token), token)
	}
	assert.False(t, IsMissing("0"))
}

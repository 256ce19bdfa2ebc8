// Package parser reads PCoA coordinate tables into records.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/util"
)

// Delimiter names accepted by the parser.
const (
	DelimiterTab       = "tab"
	DelimiterComma     = "comma"
	DelimiterSemicolon = "semicolon"
	DelimiterAuto      = "auto"
)

// Encodings reported on a parsed table.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"
)

// naTokens are cell values treated as missing, the same set pandas reads
// as NaN by default. Matching is case-sensitive.
var naTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// ColumnMapping names the table columns that carry each record role.
type ColumnMapping struct {
	Subject string `yaml:"subject" json:"subject"`
	Visit   string `yaml:"visit" json:"visit"`
	PC1     string `yaml:"pc1" json:"pc1"`
	PC2     string `yaml:"pc2" json:"pc2"`
}

// DefaultColumns returns the conventional column names.
func DefaultColumns() ColumnMapping {
	return ColumnMapping{Subject: "SubjectID", Visit: "Visit", PC1: "PC1", PC2: "PC2"}
}

func (m ColumnMapping) roles() [4]string {
	return [4]string{m.Visit, m.Subject, m.PC1, m.PC2}
}

// Table is a parsed input file.
type Table struct {
	Source   string
	Headers  []string
	Records  []model.Record
	Rows     int
	Dropped  int
	Encoding string
}

// Visits returns the distinct visit labels in sorted order.
func (t *Table) Visits() []string {
	return distinct(t.Records, func(r model.Record) string { return r.Visit })
}

// Subjects returns the distinct subject IDs in sorted order.
func (t *Table) Subjects() []string {
	return distinct(t.Records, func(r model.Record) string { return r.SubjectID })
}

func distinct(records []model.Record, key func(model.Record) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	File  string
	Table *Table
	Error error
}

type cacheEntry struct {
	fingerprint string
	table       *Table
}

// Parser turns delimited text into records. Parsed files are cached until
// their content changes.
type Parser struct {
	columns     ColumnMapping
	delimiter   string
	concurrency int

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewParser creates a parser for the given column mapping and delimiter name.
func NewParser(columns ColumnMapping, delimiter string, concurrency int) (*Parser, error) {
	if delimiter == "" {
		delimiter = DelimiterTab
	}
	if _, err := delimiterRune(delimiter); err != nil && delimiter != DelimiterAuto {
		return nil, err
	}
	for _, name := range columns.roles() {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: empty column name in mapping", model.ErrInvalidConfig)
		}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{
		columns:     columns,
		delimiter:   delimiter,
		concurrency: concurrency,
		cache:       make(map[string]cacheEntry),
	}, nil
}

func delimiterRune(name string) (rune, error) {
	switch name {
	case DelimiterTab:
		return '\t', nil
	case DelimiterComma:
		return ',', nil
	case DelimiterSemicolon:
		return ';', nil
	default:
		return 0, fmt.Errorf("%w: unknown delimiter %q (want tab, comma, semicolon or auto)", model.ErrInvalidConfig, name)
	}
}

// SniffDelimiter picks the delimiter that splits the header line into the most
// fields, preferring tab on ties.
func SniffDelimiter(header string) rune {
	best, bestCount := '\t', strings.Count(header, "\t")
	for _, r := range []rune{',', ';'} {
		if n := strings.Count(header, string(r)); n > bestCount {
			best, bestCount = r, n
		}
	}
	return best
}

// ParseFile parses the table at path.
func (p *Parser) ParseFile(path string) (*Table, error) {
	fingerprint, err := util.CalculateFileFingerprint(path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if cached, ok := p.cache[path]; ok && cached.fingerprint == fingerprint {
		p.mu.Unlock()
		util.LogDebugf("Parse cache hit: %s", path)
		return cached.table, nil
	}
	p.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	table, err := p.Parse(file, path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[path] = cacheEntry{fingerprint: fingerprint, table: table}
	p.mu.Unlock()
	return table, nil
}

// Parse reads a table from r. source names the input in errors and logs.
func (p *Parser) Parse(r io.Reader, source string) (*Table, error) {
	start := time.Now()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	text, encoding := decode(raw)
	text = strings.TrimPrefix(text, "\ufeff")

	delim := '\t'
	if p.delimiter == DelimiterAuto {
		firstLine, _, _ := strings.Cut(text, "\n")
		delim = SniffDelimiter(firstLine)
	} else if delim, err = delimiterRune(p.delimiter); err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s is empty", model.ErrSchema, source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header of %s: %v", model.ErrSchema, source, err)
	}
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(h)
	}

	index, err := p.resolve(headers, source)
	if err != nil {
		return nil, err
	}

	table := &Table{Source: source, Headers: headers, Encoding: encoding}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrSchema, source, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		table.Rows++

		record, ok := toRecord(row, index)
		if !ok {
			table.Dropped++
			continue
		}
		table.Records = append(table.Records, record)
	}

	util.LogDebugf("Parsed %s: %d rows, %d records, %d dropped, encoding %s, delimiter %q, duration %v",
		source, table.Rows, len(table.Records), table.Dropped, encoding, delim, time.Since(start))
	return table, nil
}

// resolve maps each role to its column index in headers.
func (p *Parser) resolve(headers []string, source string) ([4]int, error) {
	var index [4]int
	for i, name := range p.columns.roles() {
		index[i] = -1
		for j, h := range headers {
			if h == name {
				index[i] = j
				break
			}
		}
		if index[i] < 0 {
			return index, fmt.Errorf("%w: column %q not found in %s (available: %s)",
				model.ErrSchema, name, source, strings.Join(headers, ", "))
		}
	}
	return index, nil
}

// toRecord builds a record from row, reporting false when any role value is
// missing.
func toRecord(row []string, index [4]int) (model.Record, bool) {
	var values [4]string
	for i, col := range index {
		if col >= len(row) {
			return model.Record{}, false
		}
		v := strings.TrimSpace(row[col])
		if IsMissing(v) {
			return model.Record{}, false
		}
		values[i] = v
	}

	pc1, ok := parseCoordinate(values[2])
	if !ok {
		return model.Record{}, false
	}
	pc2, ok := parseCoordinate(values[3])
	if !ok {
		return model.Record{}, false
	}
	return model.Record{Visit: values[0], SubjectID: values[1], PC1: pc1, PC2: pc2}, true
}

// IsMissing reports whether a trimmed cell counts as a missing value.
func IsMissing(cell string) bool {
	if cell == "" {
		return true
	}
	_, ok := naTokens[cell]
	return ok
}

func parseCoordinate(cell string) (float64, bool) {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// decode returns raw as a string, re-reading it as ISO-8859-1 when it is not
// valid UTF-8.
func decode(raw []byte) (string, string) {
	if utf8.Valid(raw) {
		return string(raw), EncodingUTF8
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw), EncodingUTF8
	}
	return string(decoded), EncodingLatin1
}

// ParseFiles parses multiple files concurrently and returns a channel of ParseResult.
func (p *Parser) ParseFiles(files []string) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebugf("Start concurrent parsing of %d files, concurrency: %d", len(files), p.concurrency)

	semaphore := make(chan struct{}, p.concurrency)
	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			table, err := p.ParseFile(f)
			if err != nil {
				util.LogDebugf("File parsing failed: %s - %v", f, err)
			}
			results <- ParseResult{File: f, Table: table, Error: err}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebugf("Concurrent parsing finished, total duration: %v", time.Since(start))
	}()

	return results
}

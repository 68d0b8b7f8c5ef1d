package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// LoadOptions controls how a dataset file is read.
type LoadOptions struct {
	// Delimiter for CSV. If 0, picked from the file extension and header line.
	Delimiter rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

// missingTokens mirrors the default NA markers of common dataframe readers.
var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"NULL": {}, "null": {}, "None": {}, "<NA>": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {},
	"-1.#IND": {}, "-1.#QNAN": {}, "1.#IND": {}, "1.#QNAN": {},
}

// IsMissingToken reports whether a raw cell value denotes an absent entry.
func IsMissingToken(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads a CSV, TSV or XLSX file into a Table. Any failure is a *FormatError.
func Load(path string, opt LoadOptions) (*Table, error) {
	lower := strings.ToLower(path)
	var (
		records [][]string
		err     error
	)
	if strings.HasSuffix(lower, ".xlsx") {
		records, err = readXLSX(path, opt.Sheet)
	} else {
		records, err = readCSV(path, opt.Delimiter)
	}
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	t, err := FromRecords(filepath.Base(path), records)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	return t, nil
}

func readCSV(path string, delim rune) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	data, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	if delim == 0 {
		delim = sniffDelimiter(path, data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim
	var out [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// decodeText strips a UTF-8 BOM, decodes UTF-16 with BOM, and falls back to
// Windows-1252 for byte streams that are not valid UTF-8.
func decodeText(raw []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(raw, utf8BOM):
		return raw[len(utf8BOM):], nil
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}), bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode utf-16: %w", err)
		}
		return out, nil
	case utf8.Valid(raw):
		return raw, nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode windows-1252: %w", err)
	}
	return out, nil
}

func sniffDelimiter(path string, data []byte) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestN := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyDataset
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// FromRecords builds a Table from a header row followed by data rows.
// Short rows are padded with missing cells; rows longer than the header are rejected.
func FromRecords(name string, records [][]string) (*Table, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmptyDataset
	}
	header := uniqueNames(records[0])
	body := records[1:]
	if len(body) == 0 {
		return nil, ErrEmptyDataset
	}
	ncol := len(header)
	cells := make([][]string, ncol)
	for j := range cells {
		cells[j] = make([]string, len(body))
	}
	for i, rec := range body {
		if len(rec) > ncol {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", i+2, ncol, len(rec))
		}
		for j := 0; j < len(rec); j++ {
			cells[j][i] = rec[j]
		}
	}
	cols := make([]*Column, ncol)
	for j, name := range header {
		cols[j] = inferColumn(name, cells[j])
	}
	return NewTable(name, cols), nil
}

// uniqueNames fills blank headers and de-duplicates repeated names as "x", "x.1", ...
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func inferColumn(name string, raw []string) *Column {
	n := len(raw)
	missing := make([]bool, n)
	allInt, allFloat := true, true
	present := 0
	for i, v := range raw {
		if IsMissingToken(v) {
			missing[i] = true
			continue
		}
		present++
		s := strings.TrimSpace(v)
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, ok := parseFloat(s); !ok {
				allFloat = false
			}
		}
	}
	col := &Column{Name: name, Missing: missing}
	switch {
	case present == 0:
		col.Kind = KindFloat
		col.Numbers = make([]float64, n)
	case allInt || allFloat:
		col.Kind = KindFloat
		if allInt {
			col.Kind = KindInt
		}
		col.Numbers = make([]float64, n)
		for i, v := range raw {
			if missing[i] {
				continue
			}
			col.Numbers[i], _ = parseFloat(strings.TrimSpace(v))
		}
	default:
		col.Kind = KindText
		col.Text = make([]string, n)
		for i, v := range raw {
			if !missing[i] {
				col.Text[i] = v
			}
		}
	}
	return col
}

// parseFloat accepts decimal and scientific notation but not the hex or
// underscore forms strconv would otherwise allow.
func parseFloat(s string) (float64, bool) {
	if strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Package imports runs bulk lead imports from CSV or JSON files, inline or as
// background jobs.
package imports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"crm_backend/platform/apperr"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

const (
	ColumnName     = "name"
	ColumnPhone    = "phone"
	ColumnEmail    = "email"
	ColumnWhatsApp = "whatsapp"
	ColumnCity     = "city"
	ColumnLeadType = "lead_type"
)

// RequiredColumns must be present in every import header.
var RequiredColumns = []string{ColumnName, ColumnPhone}

var columnFolder = cases.Lower(language.Und)

// NormalizeColumn folds a header cell: trimmed, lower-cased, inner spaces
// replaced by underscores. "WhatsApp Number " becomes "whatsapp_number".
func NormalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return columnFolder.String(strings.Join(strings.Fields(name), "_"))
}

// Row is one data row keyed by normalized column. Line is the 1-based position
// in the source file (the CSV header is line 1).
type Row struct {
	Line   int
	Fields map[string]string
}

func (r Row) Get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// Batch is a parsed import file.
type Batch struct {
	Columns []string
	Rows    []Row
}

// MissingColumns lists the required columns absent from the header.
func (b Batch) MissingColumns() []string {
	present := make(map[string]bool, len(b.Columns))
	for _, c := range b.Columns {
		present[c] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// DetectFormat picks the parser from the file extension, then the content type.
func DetectFormat(fileName, contentType string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	}
	switch {
	case strings.Contains(contentType, "csv"):
		return FormatCSV, nil
	case strings.Contains(contentType, "json"):
		return FormatJSON, nil
	}
	return "", apperr.Validation("unsupported import file type, expected .csv or .json")
}

// Parse reads data in the given format.
func Parse(format string, data []byte) (Batch, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(bytes.NewReader(data))
	case FormatJSON:
		return ParseJSON(bytes.NewReader(data))
	}
	return Batch{}, apperr.Validation(fmt.Sprintf("unsupported import format %q", format))
}

// ParseCSV reads a header row followed by data rows. Blank rows are ignored.
func ParseCSV(r io.Reader) (Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Batch{}, apperr.Validation("import file is empty")
	}
	if err != nil {
		return Batch{}, apperr.Validation("import file is not valid CSV").WithDetails(err.Error())
	}

	batch := Batch{Columns: make([]string, len(header))}
	for i, h := range header {
		batch.Columns[i] = NormalizeColumn(h)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Batch{}, apperr.Validation("import file is not valid CSV").WithDetails(err.Error())
		}
		line, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}
		fields := make(map[string]string, len(batch.Columns))
		for i, col := range batch.Columns {
			if i < len(record) && col != "" {
				fields[col] = record[i]
			}
		}
		batch.Rows = append(batch.Rows, Row{Line: line, Fields: fields})
	}
	return batch, nil
}

// ParseJSON reads an array of flat objects. Non-string scalars are formatted;
// nested values are rejected.
func ParseJSON(r io.Reader) (Batch, error) {
	var raw []map[string]any
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return Batch{}, apperr.Validation("import file is not a JSON array of objects").WithDetails(err.Error())
	}

	seen := map[string]bool{}
	batch := Batch{}
	for i, obj := range raw {
		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			col := NormalizeColumn(k)
			if col == "" {
				continue
			}
			if !seen[col] {
				seen[col] = true
				batch.Columns = append(batch.Columns, col)
			}
			switch val := v.(type) {
			case nil:
			case string:
				fields[col] = val
			case json.Number, bool:
				fields[col] = fmt.Sprint(val)
			default:
				return Batch{}, apperr.Validation(fmt.Sprintf("row %d: field %q must be a scalar", i+1, k))
			}
		}
		batch.Rows = append(batch.Rows, Row{Line: i + 1, Fields: fields})
	}
	sort.Strings(batch.Columns)
	return batch, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

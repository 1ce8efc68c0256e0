package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"catalog-service/internal/normalize"
)

// RawRow is one data row of the uploaded spreadsheet: normalized column name
// to trimmed cell text, with empty cells present as "" so column alignment is
// preserved. Index is the 1-based position among data rows and is what error
// strings reference.
type RawRow struct {
	Index  int
	Fields map[string]string
}

// DecodeError means the upload has no recognizable tabular structure. It
// aborts the whole job before any row is processed.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode spreadsheet: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode spreadsheet: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reads an Excel workbook and returns its first sheet as a sequence of
// RawRow, using the first row as header. Header names are normalized (case,
// accents, collapsed whitespace) so later field matching is alias-friendly.
func Decode(r io.Reader) ([]RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &DecodeError{Reason: "not a readable workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &DecodeError{Reason: "workbook has no sheets"}
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &DecodeError{Reason: "failed to read sheet", Err: err}
	}
	if len(cells) < 2 {
		return nil, &DecodeError{Reason: "file must have a header row and at least one data row"}
	}

	headers := make([]string, len(cells[0]))
	for i, h := range cells[0] {
		headers[i] = normalize.Text(strings.TrimSuffix(strings.TrimSpace(h), " *"))
	}

	rows := make([]RawRow, 0, len(cells)-1)
	for i, line := range cells[1:] {
		fields := make(map[string]string, len(headers))
		for j, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if j < len(line) {
				value = strings.TrimSpace(line[j])
			}
			fields[header] = value
		}
		rows = append(rows, RawRow{Index: i + 1, Fields: fields})
	}

	return rows, nil
}

package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"crudbench/errs"
)

// Record is one source row: column name to scalar value. Absent values are
// either missing keys or nil.
type Record map[string]any

var bom = []byte{0xEF, 0xBB, 0xBF}

// Load reads a UTF-8, comma separated file with a header row. Empty cells are
// loaded as nil. It returns the records and the header in file order.
func Load(path string) ([]Record, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errs.Wrap(errs.MalformedInput, "load", "read "+path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse reads records from r in the same format as Load.
func Parse(r io.Reader) ([]Record, []string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errs.Wrap(errs.MalformedInput, "load", "read dataset", err)
	}
	data = bytes.TrimPrefix(data, bom)
	if !utf8.Valid(data) {
		return nil, nil, errs.New(errs.MalformedInput, "load", "dataset is not valid UTF-8")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errs.New(errs.MalformedInput, "load", "empty dataset")
	}
	if err != nil {
		return nil, nil, errs.Wrap(errs.MalformedInput, "load", "parse header", err)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, errs.Wrap(errs.MalformedInput, "load", fmt.Sprintf("parse row %d", len(records)+1), err)
		}

		rec := make(Record, len(header))
		for i, name := range header {
			if i < len(row) && row[i] != "" {
				rec[name] = row[i]
			} else {
				rec[name] = nil
			}
		}
		records = append(records, rec)
	}

	return records, header, nil
}

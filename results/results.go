// Package results appends benchmark measurements to a CSV log that survives
// across runs.
package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"crudbench/errs"

	zlog "github.com/rs/zerolog/log"
)

var Header = []string{"operation", "rows_affected", "duration_seconds"}

type Record struct {
	Operation string
	Rows      int64
	Seconds   float64
}

// Logger appends one line per measurement. The file is opened for each write,
// so several loggers (or processes run one after another) share one header.
type Logger struct {
	path string
}

func New(path string) *Logger {
	return &Logger{path: path}
}

func (l *Logger) Path() string {
	return l.path
}

// Log appends (label, rows, seconds) with the duration rounded to two
// decimals, writing the header first when the log is new or empty.
func (l *Logger) Log(label string, rows int64, seconds float64) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.Wrap(errs.IO, "log", "open "+l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errs.Wrap(errs.IO, "log", "stat "+l.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		w.Write(Header)
	}
	w.Write([]string{label, strconv.FormatInt(rows, 10), strconv.FormatFloat(seconds, 'f', 2, 64)})
	w.Flush()
	if err := w.Error(); err != nil {
		return errs.Wrap(errs.IO, "log", "write "+l.path, err)
	}
	if err := f.Close(); err != nil {
		return errs.Wrap(errs.IO, "log", "close "+l.path, err)
	}

	zlog.Debug().Str("operation", label).Int64("rows", rows).Float64("seconds", seconds).
		Str("file", l.path).Msg("result logged")
	return nil
}

// ReadAll parses a result log written by Logger.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.IO, "read_results", "open "+path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.MalformedInput, "read_results", "parse header", err)
	}
	for i, name := range Header {
		if header[i] != name {
			return nil, errs.New(errs.MalformedInput, "read_results",
				fmt.Sprintf("unexpected header %v", header))
		}
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, errs.Wrap(errs.MalformedInput, "read_results", "parse log", err)
		}

		rows, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, errs.Wrap(errs.MalformedInput, "read_results", fmt.Sprintf("line %d: rows", line), err)
		}
		seconds, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, errs.Wrap(errs.MalformedInput, "read_results", fmt.Sprintf("line %d: duration", line), err)
		}
		records = append(records, Record{Operation: row[0], Rows: rows, Seconds: seconds})
	}
}

// Package dataset loads the source CSV and coerces it into rows the target
// table accepts.
package dataset

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"crudbench/errs"
)

const zeroPrice = "0.00"

var plainDecimal = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Dataset is a normalized record set. Rows hold one value per column, in
// Columns order.
type Dataset struct {
	Columns []string
	Rows    [][]any
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Records returns the rows as column-keyed records.
func (d *Dataset) Records() []Record {
	out := make([]Record, len(d.Rows))
	for i, row := range d.Rows {
		rec := make(Record, len(d.Columns))
		for j, name := range d.Columns {
			rec[name] = row[j]
		}
		out[i] = rec
	}
	return out
}

// Report counts what normalization had to change.
type Report struct {
	Rows    int
	Filled  int // absent values replaced by "" or 0
	Coerced int // numeric values that did not parse and became 0
	Prices  int // price values rewritten
}

// Normalize projects records onto schema order and coerces every value:
// absent text becomes "", absent numbers become 0, and price columns become
// decimal strings. A schema column that no record carries is a configuration
// error.
func Normalize(records []Record, schema Schema) (*Dataset, Report, error) {
	report := Report{Rows: len(records)}
	ds := &Dataset{Columns: schema.Names(), Rows: make([][]any, 0, len(records))}

	if len(records) > 0 {
		for _, col := range schema.Columns {
			if !anyHasKey(records, col.Name) {
				return nil, report, errs.New(errs.InvalidArgument, "normalize",
					fmt.Sprintf("column %q is not present in the dataset", col.Name))
			}
		}
	}

	for _, rec := range records {
		row := make([]any, len(schema.Columns))
		for i, col := range schema.Columns {
			row[i] = normalizeValue(rec[col.Name], col.Type, &report)
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, report, nil
}

// LoadNormalized loads the CSV at path and normalizes it against schema.
func LoadNormalized(path string, schema Schema) (*Dataset, Report, error) {
	records, _, err := Load(path)
	if err != nil {
		return nil, Report{}, err
	}
	return Normalize(records, schema)
}

func anyHasKey(records []Record, key string) bool {
	for _, r := range records {
		if _, ok := r[key]; ok {
			return true
		}
	}
	return false
}

func normalizeValue(v any, typ ColumnType, report *Report) any {
	switch typ {
	case Int:
		if v == nil {
			report.Filled++
			return int64(0)
		}
		n, ok := toInt(v)
		if !ok {
			report.Coerced++
		}
		return n
	case Decimal:
		if v == nil {
			report.Filled++
			return float64(0)
		}
		f, ok := toFloat(v)
		if !ok {
			report.Coerced++
		}
		return f
	case Price:
		if v == nil {
			report.Filled++
			report.Prices++
			return zeroPrice
		}
		raw := toText(v)
		clean := CleanPrice(raw)
		if clean != raw {
			report.Prices++
		}
		return clean
	default:
		if v == nil {
			report.Filled++
			return ""
		}
		return toText(v)
	}
}

// CleanPrice turns a display price into a non-negative decimal string.
// Currency symbols are removed, "Free" becomes "0.00", a comma is a thousands
// separator when a dot is also present and a decimal separator otherwise.
// Anything that still is not a plain decimal becomes "0.00".
func CleanPrice(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	if strings.EqualFold(s, "free") || s == "" {
		return zeroPrice
	}

	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}

	if !plainDecimal.MatchString(s) {
		return zeroPrice
	}
	return s
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	}
	s := strings.TrimSpace(toText(v))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	// pandas-style exports write integer columns with gaps as "12.0"
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(toText(v)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

package gateway

import (
	"context"
	"fmt"
	"strings"

	"crudbench/errs"

	zlog "github.com/rs/zerolog/log"
)

// ExecuteMany binds every row to the same statement template and applies
// them as one unit. INSERT ... VALUES (?, ...) templates are rewritten into
// multi-row VALUES statements, chunked to stay under the engine's bind
// parameter limit; any other template is executed once per row. Without an
// open transaction one is opened and committed here.
func (g *Gateway) ExecuteMany(ctx context.Context, query string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	own := g.tx == nil
	if own {
		if err := g.Begin(ctx); err != nil {
			return 0, err
		}
	}

	n, err := g.executeMany(ctx, query, rows)
	if err != nil {
		if own {
			if rbErr := g.Rollback(); rbErr != nil {
				zlog.Warn().Err(rbErr).Msg("rollback after batch failure")
			}
		}
		return 0, err
	}

	if own {
		if err := g.Commit(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (g *Gateway) executeMany(ctx context.Context, query string, rows [][]any) (int64, error) {
	tmpl, ok := splitValues(query)
	if !ok {
		var total int64
		for _, row := range rows {
			n, err := g.Execute(ctx, query, row...)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	}

	for i, row := range rows {
		if len(row) != tmpl.params {
			return 0, errs.New(errs.SchemaMismatch, "execute_many",
				fmt.Sprintf("row %d has %d values, statement expects %d", i, len(row), tmpl.params))
		}
	}

	perChunk := len(rows)
	if tmpl.params > 0 {
		perChunk = max(1, g.engine.MaxParams()/tmpl.params)
	}

	var total int64
	for start := 0; start < len(rows); start += perChunk {
		end := min(start+perChunk, len(rows))
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*tmpl.params)
		for _, row := range chunk {
			args = append(args, row...)
		}

		n, err := g.Execute(ctx, tmpl.expand(len(chunk)), args...)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// valuesTemplate is an INSERT statement split around its VALUES group.
type valuesTemplate struct {
	prefix string // up to and including VALUES
	group  string // "(?, ?, ...)"
	suffix string
	params int
}

func (t valuesTemplate) expand(n int) string {
	var b strings.Builder
	b.WriteString(t.prefix)
	b.WriteByte(' ')
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.group)
	}
	b.WriteString(t.suffix)
	return b.String()
}

// splitValues recognizes "INSERT ... VALUES (...)" templates.
func splitValues(query string) (valuesTemplate, bool) {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")
	upper := strings.ToUpper(q)
	if !strings.HasPrefix(upper, "INSERT") {
		return valuesTemplate{}, false
	}

	idx := strings.LastIndex(upper, "VALUES")
	if idx < 0 {
		return valuesTemplate{}, false
	}
	rest := q[idx+len("VALUES"):]
	open := strings.IndexByte(rest, '(')
	if open < 0 || strings.TrimSpace(rest[:open]) != "" {
		return valuesTemplate{}, false
	}

	depth := 0
	closeAt := -1
	for i := open; i < len(rest) && closeAt < 0; i++ {
		switch rest[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				closeAt = i
			}
		}
	}
	if closeAt < 0 {
		return valuesTemplate{}, false
	}

	group := rest[open : closeAt+1]
	return valuesTemplate{
		prefix: q[:idx+len("VALUES")],
		group:  group,
		suffix: rest[closeAt+1:],
		params: strings.Count(group, "?"),
	}, true
}

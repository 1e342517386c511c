package crud

import (
	"context"
	"fmt"
	"strings"

	"crudbench/benchmark"
	"crudbench/dataset"
	"crudbench/errs"
	"crudbench/gateway"

	zlog "github.com/rs/zerolog/log"
)

const (
	SingleInsertionLabel = "single_insertion"
	BulkInsertionLabel   = "bulk_insertion"
	NarrowQueryLabel     = "narrow_query"
	AnalyticalQueryLabel = "analytical_query"
	SingleUpdateLabel    = "single_update"
	BulkUpdateLabel      = "bulk_update"
	SingleDeleteLabel    = "single_delete"
	BulkDeleteLabel      = "bulk_delete"
)

// Source is where the insertion operations read their records from.
type Source struct {
	Path   string
	Schema dataset.Schema
}

func (s Source) load() (*dataset.Dataset, error) {
	ds, report, err := dataset.LoadNormalized(s.Path, s.Schema)
	if err != nil {
		return nil, err
	}
	zlog.Debug().Str("dataset", s.Path).Int("rows", report.Rows).Int("filled", report.Filled).
		Int("coerced", report.Coerced).Int("prices", report.Prices).Msg("dataset normalized")
	return ds, nil
}

// Analytical parameterizes the ranked top-genre query.
type Analytical struct {
	// only games released after Cutoff count towards the top genres
	Cutoff  string `yaml:"cutoff"`
	TopN    int    `yaml:"topN"`
	MaxRank int    `yaml:"maxRank"`
	Limit   int    `yaml:"limit"`
}

func insertSQL(gw *gateway.Gateway, table string, columns []string) string {
	eng := gw.Engine()
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = eng.QuoteIdent(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		eng.QuoteIdent(table), strings.Join(quoted, ", "), placeholders)
}

// SingleInsertion inserts the record at rowIndex of the freshly loaded
// dataset. An index outside the dataset inserts nothing and is not a failure.
func SingleInsertion(ctx context.Context, table string, gw *gateway.Gateway, src Source, rowIndex int) benchmark.Outcome {
	ds, err := src.load()
	if err != nil {
		return failed(SingleInsertionLabel, err)
	}
	if rowIndex < 0 || rowIndex >= ds.Len() {
		zlog.Warn().Str("operation", SingleInsertionLabel).Int("index", rowIndex).Int("rows", ds.Len()).
			Msg("row index out of range, nothing inserted")
		return benchmark.Outcome{Label: SingleInsertionLabel}
	}

	query := insertSQL(gw, table, ds.Columns)
	return write(ctx, gw, SingleInsertionLabel, func() (int64, error) {
		return gw.Execute(ctx, query, ds.Rows[rowIndex]...)
	})
}

// BulkInsertion inserts the whole dataset in one batched call and reports the
// dataset size.
func BulkInsertion(ctx context.Context, table string, gw *gateway.Gateway, src Source) benchmark.Outcome {
	ds, err := src.load()
	if err != nil {
		return failed(BulkInsertionLabel, err)
	}

	query := insertSQL(gw, table, ds.Columns)
	return write(ctx, gw, BulkInsertionLabel, func() (int64, error) {
		if _, err := gw.ExecuteMany(ctx, query, ds.Rows); err != nil {
			return 0, err
		}
		return int64(ds.Len()), nil
	})
}

// NarrowQuery reads at most limit rows of the table.
func NarrowQuery(ctx context.Context, table string, gw *gateway.Gateway, limit int) benchmark.Outcome {
	if limit < 0 {
		return failed(NarrowQueryLabel, errs.New(errs.InvalidArgument, NarrowQueryLabel,
			fmt.Sprintf("limit must not be negative, got %d", limit)))
	}
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", gw.Engine().QuoteIdent(table), limit)
	return read(ctx, gw, NarrowQueryLabel, query)
}

// AnalyticalQuery ranks priced games by price within their genre and returns
// the best ranked ones of the genres with most recent releases.
func AnalyticalQuery(ctx context.Context, table string, gw *gateway.Gateway, params Analytical) benchmark.Outcome {
	if params.TopN < 1 || params.MaxRank < 1 || params.Limit < 0 {
		return failed(AnalyticalQueryLabel, errs.New(errs.InvalidArgument, AnalyticalQueryLabel,
			fmt.Sprintf("invalid parameters %+v", params)))
	}

	eng := gw.Engine()
	query := fmt.Sprintf(`
WITH priced AS (
	SELECT id, name, genre, release_date, achievements, %s AS price_num
	FROM %s
	WHERE original_price IS NOT NULL AND original_price <> 'Free' AND genre IS NOT NULL AND genre <> ''
),
ranked AS (
	SELECT *,
		ROW_NUMBER() OVER (PARTITION BY genre ORDER BY price_num DESC) AS price_rank,
		AVG(achievements) OVER (PARTITION BY genre) AS genre_avg_achievements
	FROM priced
),
top_genres AS (
	SELECT genre, COUNT(id) AS games, AVG(achievements) AS avg_achievements
	FROM priced
	WHERE release_date > ?
	GROUP BY genre
	ORDER BY games DESC, avg_achievements DESC, genre
	LIMIT %d
)
SELECT r.genre, r.name, r.release_date, r.price_num, r.achievements, r.price_rank, r.genre_avg_achievements
FROM ranked r
JOIN top_genres t ON r.genre = t.genre
WHERE r.price_rank <= %d
ORDER BY r.genre, r.price_rank
LIMIT %d`,
		eng.DecimalCast("original_price"), eng.QuoteIdent(table), params.TopN, params.MaxRank, params.Limit)

	return read(ctx, gw, AnalyticalQueryLabel, query, params.Cutoff)
}

// SingleUpdate reprices the game with the given id. A price of "0" also
// clears the discount price.
func SingleUpdate(ctx context.Context, table string, gw *gateway.Gateway, id int64, price string) benchmark.Outcome {
	discount := price
	if price == "0" {
		discount = "0.00"
	}
	query := fmt.Sprintf("UPDATE %s SET original_price = ?, discount_price = ? WHERE id = ?",
		gw.Engine().QuoteIdent(table))
	return write(ctx, gw, SingleUpdateLabel, func() (int64, error) {
		return gw.Execute(ctx, query, price, discount, id)
	})
}

// BulkUpdate sets the developer of every game, or only of the games currently
// attributed to from when it is not empty.
func BulkUpdate(ctx context.Context, table string, gw *gateway.Gateway, developer, from string) benchmark.Outcome {
	query := fmt.Sprintf("UPDATE %s SET developer = ?", gw.Engine().QuoteIdent(table))
	args := []any{developer}
	if from != "" {
		query += " WHERE developer = ?"
		args = append(args, from)
	}
	return write(ctx, gw, BulkUpdateLabel, func() (int64, error) {
		return gw.Execute(ctx, query, args...)
	})
}

// SingleDelete deletes the games named exactly name.
func SingleDelete(ctx context.Context, table string, gw *gateway.Gateway, name string) benchmark.Outcome {
	query := fmt.Sprintf("DELETE FROM %s WHERE name = ?", gw.Engine().QuoteIdent(table))
	return write(ctx, gw, SingleDeleteLabel, func() (int64, error) {
		return gw.Execute(ctx, query, name)
	})
}

// BulkDelete deletes the games whose release date mentions year. An empty year
// is rejected before the store is touched, it never widens into deleting
// every row.
func BulkDelete(ctx context.Context, table string, gw *gateway.Gateway, year string) benchmark.Outcome {
	year = strings.TrimSpace(year)
	if year == "" {
		return failed(BulkDeleteLabel, errs.New(errs.InvalidArgument, BulkDeleteLabel,
			"a release year is required"))
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE release_date LIKE ? ESCAPE '!'",
		gw.Engine().QuoteIdent(table))
	pattern := "%" + escapeLike(year) + "%"
	return write(ctx, gw, BulkDeleteLabel, func() (int64, error) {
		return gw.Execute(ctx, query, pattern)
	})
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// write runs fn inside its own transaction. Any failure rolls back and
// reports zero affected rows.
func write(ctx context.Context, gw *gateway.Gateway, label string, fn func() (int64, error)) benchmark.Outcome {
	if err := gw.Begin(ctx); err != nil {
		return failed(label, err)
	}

	n, err := fn()
	if err == nil {
		err = gw.Commit()
	}
	if err != nil {
		if rbErr := gw.Rollback(); rbErr != nil {
			zlog.Warn().Str("operation", label).Err(rbErr).Msg("rollback failed")
		}
		return failed(label, err)
	}

	zlog.Debug().Str("operation", label).Int64("rows", n).Msg("committed")
	return benchmark.Outcome{Label: label, Rows: n}
}

func read(ctx context.Context, gw *gateway.Gateway, label string, query string, args ...any) benchmark.Outcome {
	table, err := gw.Query(ctx, query, args...)
	if err != nil {
		return failed(label, err)
	}
	if table.Len() == 0 {
		zlog.Debug().Str("operation", label).Msg("no rows found")
	}
	return benchmark.Outcome{Label: label, Rows: int64(table.Len()), Table: table}
}

func failed(label string, err error) benchmark.Outcome {
	err = errs.WithOp(err, label)
	kind := errs.KindOf(err)

	event := zlog.Warn()
	if errs.IsFatal(err) {
		event = zlog.Error()
	}
	event.Str("operation", label).Str("kind", string(kind)).Err(err).Msg("operation failed")

	return benchmark.Outcome{Label: label, Err: err}
}

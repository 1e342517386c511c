// Package crud is the CRUD benchmark: eight insert, read, update and delete
// variants run against one table, chained in a fixed order.
package crud

import (
	"context"
	"fmt"
	"strconv"

	"crudbench/benchmark"
	"crudbench/config"
	"crudbench/dataset"
	dbutils "crudbench/dbUtils"
	"crudbench/errs"
	"crudbench/gateway"

	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Settings are the arguments of each operation in the chain.
type Settings struct {
	InsertRow     int        `yaml:"insertRow"`
	QueryLimit    int        `yaml:"queryLimit"`
	Analytical    Analytical `yaml:"analytical"`
	UpdateID      int64      `yaml:"updateId"`
	UpdatePrice   string     `yaml:"updatePrice"`
	Developer     string     `yaml:"developer"`
	FromDeveloper string     `yaml:"fromDeveloper"`
	DeleteName    string     `yaml:"deleteName"`
	DeleteYear    string     `yaml:"deleteYear"`
}

type Crud struct {
	table    string
	source   Source
	Settings Settings `yaml:"crud"`
	// overrides the steam_games schema when present
	Schema *dataset.Schema `yaml:"schema"`
}

func DefaultSettings() Settings {
	return Settings{
		InsertRow:  0,
		QueryLimit: 5,
		Analytical: Analytical{
			Cutoff:  "2023-01-01",
			TopN:    3,
			MaxRank: 5,
			Limit:   5,
		},
		UpdateID:    1,
		UpdatePrice: "0",
		Developer:   "Valve",
		DeleteName:  "DOOM",
		DeleteYear:  "2018",
	}
}

// New decodes the benchmark from the config file contents. The table and
// dataset come from the shared run configuration, the operation arguments
// from the crud section.
func New(configData []byte) (*Crud, error) {
	cfg, err := config.Parse(configData)
	if err != nil {
		return nil, err
	}

	c := &Crud{Settings: DefaultSettings()}
	if err := yaml.Unmarshal(configData, c); err != nil {
		return nil, fmt.Errorf("parse crud config: %w", err)
	}

	schema := dataset.SteamGames()
	if c.Schema != nil {
		schema = *c.Schema
	}
	for _, col := range schema.Columns {
		if !config.ValidIdentifier(col.Name) {
			return nil, fmt.Errorf("invalid column name %q", col.Name)
		}
	}
	if !config.ValidIdentifier(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}

	c.table = cfg.Table
	c.source = Source{Path: cfg.Dataset, Schema: schema}
	return c, nil
}

func (c *Crud) log(msg string) {
	zlog.Info().Str("benchmark", "crud").Str("table", c.table).Msg(msg)
}

func (c *Crud) Table() string {
	return c.table
}

// Prepare returns the chain: truncate, single insertion, truncate, bulk
// insertion, then the reads, updates and deletes against the bulk loaded rows.
func (c *Crud) Prepare(gw *gateway.Gateway) []benchmark.Step {
	c.log("Preparing")
	s := c.Settings
	return []benchmark.Step{
		{Name: SingleInsertionLabel, Truncate: true, Run: func(ctx context.Context) benchmark.Outcome {
			return SingleInsertion(ctx, c.table, gw, c.source, s.InsertRow)
		}},
		{Name: BulkInsertionLabel, Truncate: true, Run: func(ctx context.Context) benchmark.Outcome {
			return BulkInsertion(ctx, c.table, gw, c.source)
		}},
		{Name: NarrowQueryLabel, Run: func(ctx context.Context) benchmark.Outcome {
			return NarrowQuery(ctx, c.table, gw, s.QueryLimit)
		}},
		{Name: AnalyticalQueryLabel, Run: func(ctx context.Context) benchmark.Outcome {
			return AnalyticalQuery(ctx, c.table, gw, s.Analytical)
		}},
		{Name: SingleUpdateLabel, Run: func(ctx context.Context) benchmark.Outcome {
			return SingleUpdate(ctx, c.table, gw, s.UpdateID, s.UpdatePrice)
		}},
		{Name: BulkUpdateLabel, Run: func(ctx context.Context) benchmark.Outcome {
			return BulkUpdate(ctx, c.table, gw, s.Developer, s.FromDeveloper)
		}},
		{Name: SingleDeleteLabel, Run: func(ctx context.Context) benchmark.Outcome {
			return SingleDelete(ctx, c.table, gw, s.DeleteName)
		}},
		{Name: BulkDeleteLabel, Run: func(ctx context.Context) benchmark.Outcome {
			return BulkDelete(ctx, c.table, gw, s.DeleteYear)
		}},
	}
}

// Returns the benchmark-specific configurations
func (c *Crud) GetConfigs() map[string]string {
	return map[string]string{
		"table":      c.table,
		"dataset":    c.source.Path,
		"insertRow":  strconv.Itoa(c.Settings.InsertRow),
		"queryLimit": strconv.Itoa(c.Settings.QueryLimit),
		"topN":       strconv.Itoa(c.Settings.Analytical.TopN),
		"maxRank":    strconv.Itoa(c.Settings.Analytical.MaxRank),
		"deleteYear": c.Settings.DeleteYear,
	}
}

// Returns the benchmark-specific metrics
func (c *Crud) GetMetrics(ctx context.Context, gw *gateway.Gateway) map[string]string {
	n, err := dbutils.RowCount(ctx, gw, c.table)
	if err != nil {
		zlog.Warn().Str("kind", string(errs.KindOf(err))).Err(err).Msg("could not count remaining rows")
		return map[string]string{"remainingRows": "n/a"}
	}
	return map[string]string{"remainingRows": strconv.FormatInt(n, 10)}
}

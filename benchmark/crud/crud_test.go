package crud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudbench/dataset"
	dbutils "crudbench/dbUtils"
)

func TestNew_Defaults(t *testing.T) {
	c, err := New([]byte("engine: sqlite\n"))
	require.NoError(t, err)

	assert.Equal(t, "steam_games", c.Table())
	assert.Equal(t, DefaultSettings(), c.Settings)
	assert.Equal(t, dataset.SteamGames(), c.source.Schema)
	assert.Equal(t, "data/steam_games_complete.csv", c.source.Path)
}

func TestNew_Overrides(t *testing.T) {
	data := []byte(`
table: games
dataset: fixtures/games.csv
crud:
  queryLimit: 10
  deleteYear: "2019"
  fromDeveloper: Valve
  analytical:
    topN: 2
schema:
  columns:
    - {name: id, type: int}
    - {name: name, type: text}
    - {name: original_price, type: price}
`)
	c, err := New(data)
	require.NoError(t, err)

	assert.Equal(t, "games", c.Table())
	assert.Equal(t, "fixtures/games.csv", c.source.Path)
	assert.Equal(t, 10, c.Settings.QueryLimit)
	assert.Equal(t, "2019", c.Settings.DeleteYear)
	assert.Equal(t, "Valve", c.Settings.FromDeveloper)
	assert.Equal(t, 2, c.Settings.Analytical.TopN)
	assert.Equal(t, 5, c.Settings.Analytical.MaxRank, "unset fields keep their default")
	assert.Equal(t, []string{"id", "name", "original_price"}, c.source.Schema.Names())
	assert.Equal(t, "10", c.GetConfigs()["queryLimit"])
}

func TestNew_RejectsUnsafeIdentifiers(t *testing.T) {
	_, err := New([]byte("table: \"games; DROP TABLE x\"\n"))
	assert.Error(t, err)

	_, err = New([]byte("schema:\n  columns:\n    - {name: \"id)\", type: int}\n"))
	assert.Error(t, err)

	_, err = New([]byte("crud: [not, a, map]\n"))
	assert.Error(t, err)
}

func TestPrepare_Chain(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	steps := c.Prepare(nil)
	var names []string
	var truncated []string
	for _, s := range steps {
		names = append(names, s.Name)
		if s.Truncate {
			truncated = append(truncated, s.Name)
		}
	}
	assert.Equal(t, []string{
		SingleInsertionLabel, BulkInsertionLabel, NarrowQueryLabel, AnalyticalQueryLabel,
		SingleUpdateLabel, BulkUpdateLabel, SingleDeleteLabel, BulkDeleteLabel,
	}, names)
	assert.Equal(t, []string{SingleInsertionLabel, BulkInsertionLabel}, truncated)
}

func TestChain_RunsAgainstStore(t *testing.T) {
	ctx := context.Background()
	gw := openStore(t)
	src := writeDataset(t, sampleGames())

	c, err := New(nil)
	require.NoError(t, err)
	c.source = src

	rows := map[string]int64{}
	for _, step := range c.Prepare(gw) {
		if step.Truncate {
			require.NoError(t, dbutils.Truncate(ctx, gw, c.Table()))
		}
		out := step.Run(ctx)
		require.True(t, out.OK(), "%s: %v", step.Name, out.Err)
		assert.Equal(t, step.Name, out.Label)
		rows[step.Name] = out.Rows
	}

	assert.Equal(t, map[string]int64{
		SingleInsertionLabel: 1,
		BulkInsertionLabel:   7,
		NarrowQueryLabel:     5,
		// nothing in the sample is recent enough to rank
		AnalyticalQueryLabel: 0,
		SingleUpdateLabel:    1,
		BulkUpdateLabel:      7,
		SingleDeleteLabel:    1,
		BulkDeleteLabel:      2,
	}, rows)

	assert.Equal(t, map[string]string{"remainingRows": "4"}, c.GetMetrics(ctx, gw))
}

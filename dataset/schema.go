package dataset

// ColumnType is the shape a column must have before it reaches the store.
type ColumnType string

const (
	Text    ColumnType = "text"
	Int     ColumnType = "int"
	Decimal ColumnType = "decimal"
	// Price columns are stored as decimal-parseable text
	Price ColumnType = "price"
)

type Column struct {
	Name string     `yaml:"name"`
	Type ColumnType `yaml:"type"`
}

// Schema is the ordered column list of the target table. Insertion binds
// values positionally, so the order here must match the table definition.
type Schema struct {
	Columns []Column `yaml:"columns"`
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// SteamGames is the schema of the steam_games table used by the default
// benchmark dataset.
func SteamGames() Schema {
	return Schema{Columns: []Column{
		{"id", Int},
		{"url", Text},
		{"types", Text},
		{"name", Text},
		{"desc_snippet", Text},
		{"recent_reviews", Text},
		{"all_reviews", Text},
		{"release_date", Text},
		{"developer", Text},
		{"publisher", Text},
		{"popular_tags", Text},
		{"game_details", Text},
		{"languages", Text},
		{"achievements", Int},
		{"genre", Text},
		{"game_description", Text},
		{"mature_content", Text},
		{"minimum_requirements", Text},
		{"recommended_requirements", Text},
		{"original_price", Price},
		{"discount_price", Price},
	}}
}

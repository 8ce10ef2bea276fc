package model

// StorageFormat records which gold storage backend actually received the
// aggregate rows.
type StorageFormat string

const (
	FormatSQLite  StorageFormat = "sqlite"
	FormatParquet StorageFormat = "parquet"
)

// AggregateRow is one grouped summary row. Both storage formats expose this
// same logical schema.
type AggregateRow struct {
	RunDate     string `json:"run_date" parquet:"run_date"`
	State       string `json:"state" parquet:"state"`
	BreweryType string `json:"brewery_type" parquet:"brewery_type"`
	Count       int64  `json:"count" parquet:"count"`
}

// Aggregate is the gold artifact: grouped rows plus metadata about the
// storage format that succeeded.
type Aggregate struct {
	RunID          string         `json:"run_id"`
	Rows           []AggregateRow `json:"rows"`
	Format         StorageFormat  `json:"format"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
}

package model

import "time"

// GenericRecord is a schema-agnostic map for records as fetched from the source
type GenericRecord map[string]interface{}

// RawBatch is the bronze artifact: records exactly as captured from the
// external source, plus capture metadata. Never mutated downstream.
type RawBatch struct {
	Source     string          `json:"source"`
	CapturedAt time.Time       `json:"captured_at"`
	Records    []GenericRecord `json:"records"`
}

// Brewery is the canonical silver record shape after casting and cleaning.
// WebsiteURL, Longitude and Latitude stay nullable so data-quality rules can
// measure missing values.
type Brewery struct {
	ID          string   `json:"id" parquet:"id"`
	Name        string   `json:"name" parquet:"name"`
	BreweryType string   `json:"brewery_type" parquet:"brewery_type"`
	City        string   `json:"city" parquet:"city"`
	State       string   `json:"state" parquet:"state"`
	WebsiteURL  *string  `json:"website_url" parquet:"website_url,optional"`
	Longitude   *float64 `json:"longitude" parquet:"longitude,optional"`
	Latitude    *float64 `json:"latitude" parquet:"latitude,optional"`
}

// TransformCounts tracks what happened to every input record during the
// silver transformation: input == dropped + output.
type TransformCounts struct {
	Input          int `json:"input"`
	DroppedCast    int `json:"dropped_cast"`
	DroppedNull    int `json:"dropped_null"`
	DroppedDup     int `json:"dropped_dup"`
	Output         int `json:"output"`
	DistinctStates int `json:"distinct_states"`
}

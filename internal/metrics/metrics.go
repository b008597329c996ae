// Package metrics implements in-process performance measurement: timing
// capture for individual operations, a bounded history of completed
// measurements, and aggregate statistics comparing internal storage
// against the external recipe service.
package metrics

import (
	"math"
	"time"
)

// OperationType classifies where a measured operation executed.
type OperationType string

const (
	// OpInternal marks operations against the application's own store.
	OpInternal OperationType = "internal"
	// OpExternal marks calls to the external recipe service.
	OpExternal OperationType = "external"
)

// IsValid reports whether t is a known operation type.
func (t OperationType) IsValid() bool {
	return t == OpInternal || t == OpExternal
}

// Metadata carries optional context captured alongside a measurement.
// Only well-known keys are supported so serialization stays deterministic.
type Metadata struct {
	Query       string `json:"query,omitempty"`
	RecipeID    string `json:"recipe_id,omitempty"`
	ResultCount *int   `json:"result_count,omitempty"`
	Found       *bool  `json:"found,omitempty"`
	CacheHit    *bool  `json:"cache_hit,omitempty"`
}

// SearchMetadata describes a search operation and how many records it returned.
func SearchMetadata(query string, resultCount int) Metadata {
	return Metadata{Query: query, ResultCount: &resultCount}
}

// LookupMetadata describes a fetch-by-ID operation and whether it found a record.
func LookupMetadata(recipeID string, found bool) Metadata {
	return Metadata{RecipeID: recipeID, Found: &found}
}

// Record is one completed measurement. Records are immutable once created.
type Record struct {
	Timestamp  time.Time     `json:"timestamp"`
	Type       OperationType `json:"operation_type"`
	Name       string        `json:"operation_name"`
	DurationMS float64       `json:"duration_ms"`
	Metadata   Metadata      `json:"metadata"`
}

// Recorder accepts completed measurements.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(opType OperationType, name string, durationMS float64, md Metadata)
}

// RoundMS rounds to two decimal places, the precision used for every
// reported duration.
func RoundMS(v float64) float64 {
	return math.Round(v*100) / 100
}

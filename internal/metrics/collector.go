package metrics

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// DefaultHistorySize is the number of records retained for recent-history
// queries. Aggregates keep growing past this bound.
const DefaultHistorySize = 1000

// nameAggregate accumulates totals for one operation name. Aggregates grow
// monotonically and are never reduced when old records fall out of history.
type nameAggregate struct {
	count int64
	sum   float64
	min   float64
	max   float64
}

// typeAggregate accumulates totals for one operation type.
type typeAggregate struct {
	count int64
	sum   float64
}

// Collector is the process-wide metrics store. It keeps a fixed-capacity
// ring of the most recent records plus running aggregates, and is safe for
// concurrent use by request handlers and both query branches.
type Collector struct {
	logger *slog.Logger

	mu       sync.RWMutex
	records  []Record // ring storage
	head     int      // appends since last clear; next slot is head % len(records)
	count    int      // retained records, at most len(records)
	names    map[string]*nameAggregate
	internal typeAggregate
	external typeAggregate
}

// NewCollector returns an empty Collector retaining DefaultHistorySize records.
func NewCollector(logger *slog.Logger) *Collector {
	return NewCollectorWithCapacity(DefaultHistorySize, logger)
}

// NewCollectorWithCapacity returns an empty Collector retaining up to
// capacity records. Non-positive capacities fall back to DefaultHistorySize.
func NewCollectorWithCapacity(capacity int, logger *slog.Logger) *Collector {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &Collector{
		logger:  logger,
		records: make([]Record, capacity),
		names:   make(map[string]*nameAggregate),
	}
}

// Record appends one measurement, evicting the oldest retained record when
// the history is full, and updates the running aggregates. Invalid input is
// logged and never fails the operation being measured.
func (c *Collector) Record(opType OperationType, name string, durationMS float64, md Metadata) {
	if !opType.IsValid() {
		c.logger.Warn("metric dropped: unknown operation type",
			slog.String("operation_type", string(opType)),
			slog.String("operation_name", name))
		return
	}
	if durationMS < 0 {
		c.logger.Warn("metric duration clamped to zero",
			slog.String("operation_name", name),
			slog.Float64("duration_ms", durationMS))
		durationMS = 0
	}
	durationMS = RoundMS(durationMS)

	rec := Record{
		Timestamp:  time.Now().UTC(),
		Type:       opType,
		Name:       name,
		DurationMS: durationMS,
		Metadata:   md,
	}

	c.mu.Lock()
	idx := c.head % len(c.records)
	c.records[idx] = rec
	c.head++
	if c.count < len(c.records) {
		c.count++
	}

	agg, ok := c.names[name]
	if !ok {
		agg = &nameAggregate{min: math.MaxFloat64}
		c.names[name] = agg
	}
	agg.count++
	agg.sum += durationMS
	if durationMS < agg.min {
		agg.min = durationMS
	}
	if durationMS > agg.max {
		agg.max = durationMS
	}

	switch opType {
	case OpInternal:
		c.internal.count++
		c.internal.sum += durationMS
	case OpExternal:
		c.external.count++
		c.external.sum += durationMS
	}
	c.mu.Unlock()

	c.logger.Debug("recorded metric",
		slog.String("operation_type", string(opType)),
		slog.String("operation_name", name),
		slog.Float64("duration_ms", durationMS))
}

// NameStatistics summarizes every measurement recorded under one operation name.
type NameStatistics struct {
	Count   int64   `json:"count"`
	AvgMS   float64 `json:"avg_ms"`
	MinMS   float64 `json:"min_ms"`
	MaxMS   float64 `json:"max_ms"`
	TotalMS float64 `json:"total_ms"`
}

// Statistics is a point-in-time snapshot of the aggregates. Counts are
// monotonic since the last Clear and may exceed the retained history.
type Statistics struct {
	InternalAvgMS   float64                   `json:"internal_avg_ms"`
	InternalCount   int64                     `json:"internal_count"`
	ExternalAvgMS   float64                   `json:"external_avg_ms"`
	ExternalCount   int64                     `json:"external_count"`
	Operations      map[string]NameStatistics `json:"operations"`
	TotalOperations int64                     `json:"total_operations"`
}

// Statistics computes the aggregate snapshot without mutating state.
// Averages are 0 for types with no recorded operations.
func (c *Collector) Statistics() Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Statistics{
		InternalCount:   c.internal.count,
		ExternalCount:   c.external.count,
		Operations:      make(map[string]NameStatistics, len(c.names)),
		TotalOperations: c.internal.count + c.external.count,
	}
	if c.internal.count > 0 {
		stats.InternalAvgMS = RoundMS(c.internal.sum / float64(c.internal.count))
	}
	if c.external.count > 0 {
		stats.ExternalAvgMS = RoundMS(c.external.sum / float64(c.external.count))
	}
	for name, agg := range c.names {
		stats.Operations[name] = NameStatistics{
			Count:   agg.count,
			AvgMS:   RoundMS(agg.sum / float64(agg.count)),
			MinMS:   agg.min,
			MaxMS:   agg.max,
			TotalMS: agg.sum,
		}
	}
	return stats
}

// Recent returns up to limit of the retained records, newest first.
// The result is a copy and never aliases internal storage.
func (c *Collector) Recent(limit int) []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := limit
	if n > c.count {
		n = c.count
	}
	if n < 0 {
		n = 0
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = c.records[(c.head-1-i)%len(c.records)]
	}
	return out
}

// Comparison reports which source type is faster on average.
type Comparison struct {
	FasterSource  OperationType `json:"faster_source"`
	SpeedupFactor float64       `json:"speedup_factor"`
	Message       string        `json:"message"`
}

// minComparableAvgMS floors the faster average when computing the speedup
// ratio so an all-zero average cannot produce a non-finite factor.
const minComparableAvgMS = 0.01

// Comparison compares average internal and external latency. It returns
// nil until both types have at least one recorded operation, so it never
// divides by a zero count. Equal averages report internal as faster with
// a factor of 1.
func (c *Collector) Comparison() *Comparison {
	c.mu.RLock()
	internalCount, internalSum := c.internal.count, c.internal.sum
	externalCount, externalSum := c.external.count, c.external.sum
	c.mu.RUnlock()

	if internalCount == 0 || externalCount == 0 {
		return nil
	}

	internalAvg := internalSum / float64(internalCount)
	externalAvg := externalSum / float64(externalCount)

	cmp := &Comparison{FasterSource: OpInternal}
	faster, slower := internalAvg, externalAvg
	if externalAvg < internalAvg {
		cmp.FasterSource = OpExternal
		faster, slower = externalAvg, internalAvg
	}
	if faster < minComparableAvgMS {
		faster = minComparableAvgMS
	}
	cmp.SpeedupFactor = RoundMS(slower / faster)
	if cmp.SpeedupFactor < 1 {
		cmp.SpeedupFactor = 1
	}

	if cmp.FasterSource == OpInternal {
		cmp.Message = fmt.Sprintf("Internal storage is %.1fx faster than the external API", cmp.SpeedupFactor)
	} else {
		cmp.Message = fmt.Sprintf("External API is %.1fx faster than internal storage", cmp.SpeedupFactor)
	}
	return cmp
}

// Clear atomically resets the history and every aggregate.
func (c *Collector) Clear() {
	c.mu.Lock()
	for i := range c.records {
		c.records[i] = Record{}
	}
	c.head = 0
	c.count = 0
	c.names = make(map[string]*nameAggregate)
	c.internal = typeAggregate{}
	c.external = typeAggregate{}
	c.mu.Unlock()

	c.logger.Info("metrics cleared")
}

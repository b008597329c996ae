package metrics

import "time"

// Timer measures one operation and records it to a Recorder exactly once.
//
// Start it at the top of an operation and stop it in a deferred closure so
// the measurement is recorded on every exit path, including error returns:
//
//	timer := metrics.StartTimer(rec, metrics.OpInternal, "search_recipes")
//	defer func() { timer.Stop(metrics.SearchMetadata(term, len(out))) }()
//
// Stop is a no-op after the first call.
type Timer struct {
	rec     Recorder
	opType  OperationType
	name    string
	start   time.Time
	stopped bool
	elapsed float64
}

// StartTimer begins measuring an operation.
func StartTimer(rec Recorder, opType OperationType, name string) *Timer {
	return &Timer{
		rec:    rec,
		opType: opType,
		name:   name,
		start:  time.Now(),
	}
}

// Stop measures the elapsed time in milliseconds, rounded to two decimal
// places, and records it with the supplied metadata. Only the first call
// records; later calls return the original measurement.
func (t *Timer) Stop(md Metadata) float64 {
	if t.stopped {
		return t.elapsed
	}
	t.stopped = true
	t.elapsed = RoundMS(float64(time.Since(t.start)) / float64(time.Millisecond))
	t.rec.Record(t.opType, t.name, t.elapsed, md)
	return t.elapsed
}

// DurationMS returns the measured duration, or 0 if the timer is still running.
func (t *Timer) DurationMS() float64 {
	return t.elapsed
}

package metrics

import (
	"math"
	"testing"
	"time"
)

type captureRecorder struct {
	records []Record
}

func (c *captureRecorder) Record(opType OperationType, name string, durationMS float64, md Metadata) {
	c.records = append(c.records, Record{
		Type:       opType,
		Name:       name,
		DurationMS: durationMS,
		Metadata:   md,
	})
}

func TestTimer_MeasuresElapsed(t *testing.T) {
	t.Parallel()

	rec := &captureRecorder{}
	timer := StartTimer(rec, OpInternal, "sleepy_op")
	time.Sleep(10 * time.Millisecond)
	got := timer.Stop(Metadata{})

	if got < 10.0 {
		t.Errorf("Stop returned %vms, want at least 10ms", got)
	}
	if got > 5000.0 {
		t.Errorf("Stop returned %vms, implausibly long", got)
	}
	if len(rec.records) != 1 {
		t.Fatalf("recorded %d times, want 1", len(rec.records))
	}
	if rec.records[0].DurationMS != got {
		t.Errorf("recorded %v, Stop returned %v", rec.records[0].DurationMS, got)
	}
}

func TestTimer_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	rec := &captureRecorder{}
	timer := StartTimer(rec, OpExternal, "search_meals")

	first := timer.Stop(SearchMetadata("chicken", 3))
	second := timer.Stop(Metadata{})

	if len(rec.records) != 1 {
		t.Fatalf("recorded %d times, want exactly 1", len(rec.records))
	}
	if first != second {
		t.Errorf("second Stop returned %v, want original %v", second, first)
	}
	if timer.DurationMS() != first {
		t.Errorf("DurationMS = %v, want %v", timer.DurationMS(), first)
	}
}

func TestTimer_DurationZeroBeforeStop(t *testing.T) {
	t.Parallel()

	timer := StartTimer(NewNoop(), OpInternal, "pending_op")
	if got := timer.DurationMS(); got != 0 {
		t.Errorf("DurationMS before Stop = %v, want 0", got)
	}
}

func TestTimer_RecordsMetadata(t *testing.T) {
	t.Parallel()

	rec := &captureRecorder{}
	timer := StartTimer(rec, OpExternal, "get_meal_by_id")
	timer.Stop(LookupMetadata("52772", true))

	if len(rec.records) != 1 {
		t.Fatal("expected exactly one record")
	}
	md := rec.records[0].Metadata
	if md.RecipeID != "52772" {
		t.Errorf("RecipeID = %s, want 52772", md.RecipeID)
	}
	if md.Found == nil || !*md.Found {
		t.Errorf("Found = %v, want true", md.Found)
	}
}

func TestTimer_DeferredStopRecordsOnPanic(t *testing.T) {
	t.Parallel()

	rec := &captureRecorder{}

	func() {
		defer func() { _ = recover() }()

		timer := StartTimer(rec, OpInternal, "doomed_op")
		defer func() { timer.Stop(Metadata{}) }()
		panic("boom")
	}()

	if len(rec.records) != 1 {
		t.Fatalf("recorded %d times, want 1 even when the operation panics", len(rec.records))
	}
	if rec.records[0].Name != "doomed_op" {
		t.Errorf("Name = %s, want doomed_op", rec.records[0].Name)
	}
}

func TestTimer_RoundsToTwoDecimals(t *testing.T) {
	t.Parallel()

	timer := StartTimer(NewNoop(), OpInternal, "quick_op")
	time.Sleep(time.Millisecond)
	got := timer.Stop(Metadata{})

	scaled := got * 100
	if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		t.Errorf("Stop returned %v, want a value rounded to two decimal places", got)
	}
}

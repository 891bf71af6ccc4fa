package app

import (
	"errors"
	"testing"
)

func TestDecorationAggregatesFailures(t *testing.T) {
	var d Decoration
	d.Record("lock.voice", nil)
	if !d.OK() || d.Err() != nil {
		t.Fatal("decoration with only successes reported a failure")
	}

	boom := errors.New("boom")
	d.Record("panel", boom)
	d.Record("move", nil)
	if d.OK() {
		t.Fatal("failed step not reported")
	}
	if failed := d.Failed(); len(failed) != 1 || failed[0].Step != "panel" {
		t.Fatalf("failed = %+v", failed)
	}
	if !errors.Is(d.Err(), boom) {
		t.Fatalf("Err() = %v, want it to wrap the step error", d.Err())
	}
}

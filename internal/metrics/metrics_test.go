package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutcome(t *testing.T) {
	before := testutil.ToFloat64(checkoutOutcomes.WithLabelValues("CASH", "success"))
	Outcome("CASH", "success")
	Outcome("CASH", "success")
	if got := testutil.ToFloat64(checkoutOutcomes.WithLabelValues("CASH", "success")); got != before+2 {
		t.Fatalf("counter: got %v, want %v", got, before+2)
	}
}

func TestObserveCommit(t *testing.T) {
	ObserveCommit("ONLINE", 20*time.Millisecond)
	if n := testutil.CollectAndCount(commitDuration); n < 1 {
		t.Fatalf("expected histogram series, got %d", n)
	}
}

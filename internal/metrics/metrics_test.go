package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSettlementsCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(SettlementsTotal.WithLabelValues("success"))
	SettlementsTotal.WithLabelValues(Result(nil)).Inc()
	after := testutil.ToFloat64(SettlementsTotal.WithLabelValues("success"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", after-before)
	}
	if Result(errors.New("boom")) != "error" {
		t.Fatalf("unexpected result label")
	}
}

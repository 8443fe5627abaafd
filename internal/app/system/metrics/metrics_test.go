package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(LoginAttempts.WithLabelValues(LoginSuccess))
	LoginAttempts.WithLabelValues(LoginSuccess).Inc()
	if got := testutil.ToFloat64(LoginAttempts.WithLabelValues(LoginSuccess)); got != before+1 {
		t.Errorf("login_attempts_total{outcome=success} = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(ActivityWriteFailures)
	ActivityWriteFailures.Inc()
	if got := testutil.ToFloat64(ActivityWriteFailures); got != before+1 {
		t.Errorf("activity_write_failures_total = %v, want %v", got, before+1)
	}
}

func TestCollectorsLint(t *testing.T) {
	collectors := map[string]prometheus.Collector{
		"login_attempts":  LoginAttempts,
		"registrations":   Registrations,
		"gate_decisions":  GateDecisions,
		"activity_writes": ActivityWriteFailures,
		"cache_requests":  CacheRequests,
	}
	for name, c := range collectors {
		problems, err := testutil.CollectAndLint(c)
		if err != nil {
			t.Fatalf("%s: CollectAndLint() error = %v", name, err)
		}
		for _, p := range problems {
			t.Errorf("%s: lint problem %s: %s", name, p.Metric, p.Text)
		}
	}
}

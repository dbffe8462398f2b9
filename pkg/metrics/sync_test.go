package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSyncMetricsRecordsPerSource(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.IncSuccess("purchase_portal")
	m.IncSuccess("purchase_portal")
	m.IncFailure("sales_portal")
	m.AddRecords("purchase_portal", 7)
	m.IncRejected("sales_portal")
	m.ObserveDuration("purchase_portal", 250*time.Millisecond)

	if got := testutil.ToFloat64(m.success.WithLabelValues("purchase_portal")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("sales_portal")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.records.WithLabelValues("purchase_portal")); got != 7 {
		t.Fatalf("expected 7 records, got %v", got)
	}
	if got := testutil.ToFloat64(m.rejected.WithLabelValues("sales_portal")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
}

func TestSyncMetricsNilSafe(t *testing.T) {
	var m *SyncMetrics
	m.IncSuccess("purchase_portal")
	m.IncFailure("purchase_portal")
	m.AddRecords("purchase_portal", 1)
	m.IncRejected("purchase_portal")
	m.ObserveDuration("purchase_portal", time.Second)

	empty := NewSyncMetrics(nil)
	empty.IncSuccess("purchase_portal")
}

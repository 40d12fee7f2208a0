package metricsndmp

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	registry = nil
	if m := New(); m != nil {
		t.Fatal("New() should return nil when InitRegistry has not been called")
	}
}

func TestNewCreatesMetricsWhenEnabled(t *testing.T) {
	InitRegistry()
	defer func() { registry = nil }()

	m := New()
	if m == nil {
		t.Fatal("New() returned nil after InitRegistry")
	}

	pm, ok := m.(*prometheusMetrics)
	if !ok {
		t.Fatalf("New() returned %T, want *prometheusMetrics", m)
	}
	if pm.requestsTotal == nil || pm.requestDuration == nil || pm.sessionsActive == nil ||
		pm.dataStateTotal == nil || pm.moverStateTotal == nil || pm.bytesMovedTotal == nil ||
		pm.tapeFlushTotal == nil || pm.tapeFlushSeconds == nil || pm.notifyTotal == nil {
		t.Error("New() left a metric uninitialized")
	}
}

func TestNilMetricsAreSafeToCall(t *testing.T) {
	var m *prometheusMetrics
	m.RecordRequest("DATA_START_BACKUP", time.Millisecond, "NDMP_NO_ERR")
	m.RecordSessionOpened()
	m.RecordSessionClosed()
	m.RecordDataState("ACTIVE")
	m.RecordMoverState("ACTIVE")
	m.RecordBytesMoved("write", 4096)
	m.RecordTapeFlush(time.Millisecond, nil)
	m.RecordNotify("NOTIFY_DATA_HALTED")
}

func TestRecordRequestIncrementsCounters(t *testing.T) {
	InitRegistry()
	defer func() { registry = nil }()

	m := New().(*prometheusMetrics)
	m.RecordRequest("DATA_START_BACKUP", 10*time.Millisecond, "NDMP_NO_ERR")

	if got := testCounterValue(t, m.requestsTotal.WithLabelValues("DATA_START_BACKUP", "NDMP_NO_ERR")); got != 1 {
		t.Errorf("requestsTotal = %v, want 1", got)
	}
}

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestNewCollector_DoubleRegisterPanics は同じレジストリへの二重登録でpanicすることを検証する。
func TestNewCollector_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewCollector(reg)
}

// TestRecordHTTPRequest_CountsByRouteAndStatus はルートとステータス別に集計されることを検証する。
func TestRecordHTTPRequest_CountsByRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("GET", "/notes/{id}", 200, 10*time.Millisecond)
	c.RecordHTTPRequest("GET", "/notes/{id}", 200, 20*time.Millisecond)
	c.RecordHTTPRequest("GET", "/notes/{id}", 404, 5*time.Millisecond)

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/notes/{id}", "200")); got != 2 {
		t.Errorf("200 count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/notes/{id}", "404")); got != 1 {
		t.Errorf("404 count = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.httpLatency); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
}

// TestRecordAuthEvent_IncrementsCounter は認証イベントカウンタが増加することを検証する。
func TestRecordAuthEvent_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthEvent("login", "success")
	c.RecordAuthEvent("login", "failure")
	c.RecordAuthEvent("login", "failure")

	expected := `
# HELP notegraph_auth_events_total 認証イベントの結果別の件数
# TYPE notegraph_auth_events_total counter
notegraph_auth_events_total{event="login",outcome="failure"} 2
notegraph_auth_events_total{event="login",outcome="success"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "notegraph_auth_events_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

// TestRecordRateLimited_IncrementsCounter はレート制限カウンタが種別ごとに増加することを検証する。
func TestRecordRateLimited_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRateLimited("auth")

	if got := testutil.ToFloat64(c.rateLimited.WithLabelValues("auth")); got != 1 {
		t.Errorf("auth = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.rateLimited.WithLabelValues("general")); got != 0 {
		t.Errorf("general = %v, want 0", got)
	}
}

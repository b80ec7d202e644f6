package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベルのメトリクスを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordRefresh_CountsByResult はリフレッシュ結果がラベル別に記録されることを検証する。
func TestRecordRefresh_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRefresh(10*time.Millisecond, true)
	c.RecordRefresh(20*time.Millisecond, true)
	c.RecordRefresh(5*time.Millisecond, false)

	success := findMetric(t, reg, "catalogo_refresh_total", map[string]string{"result": "success"})
	if success == nil || success.GetCounter().GetValue() != 2 {
		t.Errorf("success refresh count = %v, want 2", success)
	}
	failure := findMetric(t, reg, "catalogo_refresh_total", map[string]string{"result": "failure"})
	if failure == nil || failure.GetCounter().GetValue() != 1 {
		t.Errorf("failure refresh count = %v, want 1", failure)
	}

	latency := findMetric(t, reg, "catalogo_refresh_latency_seconds", nil)
	if latency == nil || latency.GetHistogram().GetSampleCount() != 3 {
		t.Errorf("latency sample count = %v, want 3", latency)
	}
}

// TestRecordRefreshSuperseded_IncrementsCounter は破棄カウンタが増加することを検証する。
func TestRecordRefreshSuperseded_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRefreshSuperseded()

	m := findMetric(t, reg, "catalogo_refresh_superseded_total", nil)
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("superseded = %v, want 1", m)
	}
}

// TestRecordNotification_LabelsByOp は通知が種別ごとに記録されることを検証する。
func TestRecordNotification_LabelsByOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordNotification("INSERT")
	c.RecordNotification("INSERT")
	c.RecordNotification("RESYNC")

	insert := findMetric(t, reg, "catalogo_change_notifications_total", map[string]string{"op": "INSERT"})
	if insert == nil || insert.GetCounter().GetValue() != 2 {
		t.Errorf("INSERT notifications = %v, want 2", insert)
	}
	resync := findMetric(t, reg, "catalogo_change_notifications_total", map[string]string{"op": "RESYNC"})
	if resync == nil || resync.GetCounter().GetValue() != 1 {
		t.Errorf("RESYNC notifications = %v, want 1", resync)
	}
}

// TestRecordStoreFailure_LabelsByOp はストア失敗が操作ごとに記録されることを検証する。
func TestRecordStoreFailure_LabelsByOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordStoreFailure("list")

	m := findMetric(t, reg, "catalogo_store_failures_total", map[string]string{"op": "list"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("store failures = %v, want 1", m)
	}
}

// TestRecordHTTPStatus_LabelsByStatusCode はステータスコード別に記録されることを検証する。
func TestRecordHTTPStatus_LabelsByStatusCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	ok := findMetric(t, reg, "catalogo_http_status_total", map[string]string{"status_code": "200"})
	if ok == nil || ok.GetCounter().GetValue() != 2 {
		t.Errorf("status 200 = %v, want 2", ok)
	}
	nf := findMetric(t, reg, "catalogo_http_status_total", map[string]string{"status_code": "404"})
	if nf == nil || nf.GetCounter().GetValue() != 1 {
		t.Errorf("status 404 = %v, want 1", nf)
	}
}

// TestSetCachedProducts_SetsGauge はゲージが最新値になることを検証する。
func TestSetCachedProducts_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetCachedProducts(12)
	c.SetCachedProducts(11)

	m := findMetric(t, reg, "catalogo_cached_products", nil)
	if m == nil || m.GetGauge().GetValue() != 11 {
		t.Errorf("cached products = %v, want 11", m)
	}
}

// TestRecordImageFetch_CountsByResult は画像取得結果が記録されることを検証する。
func TestRecordImageFetch_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordImageFetch(false)

	m := findMetric(t, reg, "catalogo_image_fetch_total", map[string]string{"result": "failure"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("image failures = %v, want 1", m)
	}
}

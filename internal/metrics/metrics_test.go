package metrics

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetricsWith_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)
	m.BarsAppended.Inc()
	m.PatternsTotal.WithLabelValues("Doji", "NEUTRAL").Inc()

	// A second set on a fresh registry must not collide.
	NewMetricsWith(prometheus.NewRegistry())

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{"candlewatch_bars_appended_total", "candlewatch_patterns_total"} {
		if !found[name] {
			t.Errorf("expected %s to be gathered", name)
		}
	}
}

func serveHealth(t *testing.T, h *HealthStatus) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("healthz body is not JSON: %v", err)
	}
	return rec.Code, body
}

func TestHealthz_States(t *testing.T) {
	h := NewHealthStatus("AAPL")
	h.SetSQLiteOK(true)

	code, body := serveHealth(t, h)
	if code != http.StatusOK || body["status"] != "healthy" {
		t.Fatalf("sqlite only, redis disabled: expected healthy/200, got %v/%d", body["status"], code)
	}

	h.SetRedisEnabled(true)
	code, body = serveHealth(t, h)
	if code != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Errorf("redis enabled but down: expected degraded/503, got %v/%d", body["status"], code)
	}

	h.SetRedisConnected(true)
	h.RecordCycle(time.Now(), errors.New("fetch failed"))
	_, body = serveHealth(t, h)
	if body["status"] != "degraded" || body["last_cycle_err"] != "fetch failed" {
		t.Errorf("cycle error: expected degraded with error, got %v", body)
	}

	h.RecordCycle(time.Time{}, nil)
	h.SetSQLiteOK(false)
	h.SetRedisConnected(false)
	_, body = serveHealth(t, h)
	if body["status"] != "unhealthy" {
		t.Errorf("all stores down: expected unhealthy, got %v", body["status"])
	}
}

func TestServer_MountsMetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)
	m.CyclesTotal.WithLabelValues("ok").Inc()

	h := NewHealthStatus("AAPL")
	h.SetSQLiteOK(true)
	s := NewServer(":0", h, reg)
	s.Handle("/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	}))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for path, want := range map[string]string{
		"/metrics": "candlewatch_cycles_total",
		"/healthz": `"symbol":"AAPL"`,
		"/ping":    "pong",
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, resp.Body)
		resp.Body.Close()
		if !strings.Contains(buf.String(), want) {
			t.Errorf("%s: expected body to contain %q, got %q", path, want, buf.String())
		}
	}
}

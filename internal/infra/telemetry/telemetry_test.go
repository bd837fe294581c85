package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAuthMetricsObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewAuthMetrics(AuthMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("NewAuthMetrics returned error: %v", err)
	}

	metrics.Observe("login", "success", 20*time.Millisecond)
	metrics.Observe("login", "invalid_credentials", 30*time.Millisecond)
	metrics.Observe("login", "", 10*time.Millisecond)

	if got := testutil.ToFloat64(metrics.Operations.WithLabelValues("login", "success")); got != 2 {
		t.Fatalf("expected 2 successful logins, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.Operations.WithLabelValues("login", "invalid_credentials")); got != 1 {
		t.Fatalf("expected 1 failed login, got %f", got)
	}
	if samples := testutil.CollectAndCount(metrics.Duration); samples == 0 {
		t.Fatal("expected duration samples")
	}
}

func TestAuthMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewAuthMetrics(AuthMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	second, err := NewAuthMetrics(AuthMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("second registration failed: %v", err)
	}
	if first.Operations != second.Operations {
		t.Fatal("expected the existing counter to be reused")
	}
}

func TestAuthMetricsNilSafe(t *testing.T) {
	var metrics *AuthMetrics
	metrics.Observe("login", "success", time.Millisecond)
}

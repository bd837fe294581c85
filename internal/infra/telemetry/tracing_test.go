package telemetry

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/MiguelGP111/micampofresco/internal/infra/config"
)

func TestNewTracerProviderDisabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetrySettings{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp != nil {
		t.Fatal("expected nil provider when tracing is disabled")
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil provider shutdown returned error: %v", err)
	}
	if Tracer("test") == nil {
		t.Fatal("expected global tracer to be available")
	}
}

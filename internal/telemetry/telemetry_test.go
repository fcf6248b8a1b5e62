package telemetry

import (
	"context"
	"datapack/internal/config"
	"testing"
)

func TestSetup_NoEndpointIsNoop(t *testing.T) {
	tel, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "datapack"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if tel.Enabled() {
		t.Fatalf("expected telemetry disabled without an endpoint")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestShutdown_NilTelemetry(t *testing.T) {
	var tel *Telemetry
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown on nil: %v", err)
	}
}

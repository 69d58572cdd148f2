package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRegistryPrometheusOutput(t *testing.T) {
	registry := New()
	registry.ObserveTick(12*time.Millisecond, 3)
	registry.ObserveTick(8*time.Millisecond, 2)
	registry.ObserveStoreCall(2 * time.Millisecond)
	registry.IncStoreError()
	registry.IncMalformedSkip()
	registry.IncEstimatorSkip()
	registry.ObservePublish(true, 1)
	registry.ObservePublish(false, 1)
	registry.ObserveElection(true, true)
	registry.ObserveElection(false, true)

	var buf bytes.Buffer
	registry.WritePrometheus(&buf)
	out := buf.String()

	if !strings.Contains(out, "sensorium_ticks_total 2") {
		t.Fatalf("expected tick count in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sensorium_observations_read_total 5") {
		t.Fatalf("expected observation count in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sensorium_store_errors_total 1") {
		t.Fatalf("expected store error count in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sensorium_malformed_observations_skipped_total 1") {
		t.Fatalf("expected malformed skip count in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sensorium_estimator_skips_total 1") {
		t.Fatalf("expected estimator skip count in output, got:\n%s", out)
	}
	if !strings.Contains(out, `sensorium_groups_total{outcome="published"} 1`) {
		t.Fatalf("expected published group count in output, got:\n%s", out)
	}
	if !strings.Contains(out, `sensorium_groups_total{outcome="suppressed"} 1`) {
		t.Fatalf("expected suppressed group count in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sensorium_election_transitions_total 1") {
		t.Fatalf("expected election transition count in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sensorium_election_master_ticks_total 2") {
		t.Fatalf("expected election master tick count in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sensorium_tick_duration_seconds_bucket") {
		t.Fatalf("expected tick duration histogram in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sensorium_store_call_duration_seconds_bucket") {
		t.Fatalf("expected store duration histogram in output, got:\n%s", out)
	}
}

func TestRegistryNilSafe(t *testing.T) {
	var registry *Registry
	registry.ObserveTick(time.Millisecond, 1)
	registry.IncStoreError()
	var buf bytes.Buffer
	registry.WritePrometheus(&buf)
	if buf.Len() != 0 {
		t.Fatalf("expected no output for nil registry, got %q", buf.String())
	}
}

package election

import (
	"context"
	"testing"
	"time"

	"github.com/afeldman/sensorium/store"
)

func TestRunnerBecomesLeaderForSoleNode(t *testing.T) {
	s := store.NewMemoryStore()
	r := NewRunner(s, Config{NodeID: "node-1", HeartbeatTTL: 30 * time.Millisecond}, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	if !r.IsLeader() {
		t.Fatalf("expected sole runner to become leader, status=%+v", r.Status())
	}
}

func TestRunnerStopsOnContextCancellation(t *testing.T) {
	s := store.NewMemoryStore()
	r := NewRunner(s, Config{NodeID: "node-1", HeartbeatTTL: 30 * time.Millisecond}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected Run to return promptly after context cancellation")
	}
}

func TestRunnerDefaultIntervalIsHalfTTL(t *testing.T) {
	r := NewRunner(store.NewMemoryStore(), Config{NodeID: "node-1", HeartbeatTTL: 10 * time.Second}, 0)
	if r.interval != 5*time.Second {
		t.Fatalf("expected default interval of half the TTL, got %v", r.interval)
	}
}

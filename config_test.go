package sensorium

import (
	"errors"
	"testing"
	"time"

	"github.com/afeldman/sensorium/errs"
	"github.com/afeldman/sensorium/store"
	"github.com/afeldman/sensorium/timeoffset"
)

func TestValidateRequiresNodeID(t *testing.T) {
	cfg := Config{Store: store.NewMemoryStore()}
	err := cfg.validate()
	if !errors.Is(err, errs.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestValidateRequiresStore(t *testing.T) {
	cfg := Config{NodeID: "node-1"}
	err := cfg.validate()
	if !errors.Is(err, errs.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := Config{NodeID: "node-1", Store: store.NewMemoryStore()}
	if err := cfg.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWithDefaultsFillsZeroFields(t *testing.T) {
	cfg := Config{NodeID: "node-1", Store: store.NewMemoryStore()}
	filled := cfg.withDefaults()

	d := DefaultConfig()
	if filled.HeartbeatTTL != d.HeartbeatTTL {
		t.Fatalf("expected default heartbeat ttl, got %v", filled.HeartbeatTTL)
	}
	if filled.ObservationTTL != d.ObservationTTL {
		t.Fatalf("expected default observation ttl, got %v", filled.ObservationTTL)
	}
	if filled.BucketMS != d.BucketMS {
		t.Fatalf("expected default bucket ms, got %v", filled.BucketMS)
	}
	if filled.DriftLearningRate != d.DriftLearningRate {
		t.Fatalf("expected default drift learning rate, got %v", filled.DriftLearningRate)
	}
	if filled.OffsetVarBounds != d.OffsetVarBounds {
		t.Fatalf("expected default variance bounds, got %v", filled.OffsetVarBounds)
	}
	if filled.StoreTimeout != d.StoreTimeout {
		t.Fatalf("expected default store timeout, got %v", filled.StoreTimeout)
	}
}

func TestWithDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{
		NodeID:       "node-1",
		Store:        store.NewMemoryStore(),
		HeartbeatTTL: 30 * time.Second,
		BucketMS:     50,
	}
	filled := cfg.withDefaults()
	if filled.HeartbeatTTL != 30*time.Second {
		t.Fatalf("expected explicit heartbeat ttl preserved, got %v", filled.HeartbeatTTL)
	}
	if filled.BucketMS != 50 {
		t.Fatalf("expected explicit bucket ms preserved, got %v", filled.BucketMS)
	}
}

func TestWithDefaultsRejectsInvertedVarianceBounds(t *testing.T) {
	cfg := Config{
		NodeID:          "node-1",
		Store:           store.NewMemoryStore(),
		OffsetVarBounds: timeoffset.VarianceBounds{Min: 10, Max: 1},
	}
	filled := cfg.withDefaults()
	if filled.OffsetVarBounds != DefaultConfig().OffsetVarBounds {
		t.Fatalf("expected inverted bounds replaced with defaults, got %+v", filled.OffsetVarBounds)
	}
}

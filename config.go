package sensorium

import (
	"fmt"
	"strings"
	"time"

	"github.com/afeldman/sensorium/errs"
	"github.com/afeldman/sensorium/store"
	"github.com/afeldman/sensorium/timeoffset"
)

// Config configures a single Engine instance. Every field except
// NodeID and Store is optional; DefaultConfig supplies the values the
// orchestrator spec pins.
type Config struct {
	// NodeID identifies this node in the election heartbeat keyspace.
	// Required.
	NodeID string
	// Store is the backing key-value store. Required -- construct a
	// store.RedisStore for production or a store.MemoryStore for tests.
	Store store.Store
	// Metrics is an optional per-tick metrics sink. Nil disables it.
	Metrics metricsSink

	HeartbeatTTL      time.Duration
	ObservationTTL    time.Duration
	BucketMS          int64
	DriftLearningRate float64
	OffsetVarBounds   timeoffset.VarianceBounds
	StoreTimeout      time.Duration
}

// metricsSink is the subset of metrics.Registry the engine calls,
// declared locally so this package does not need to import metrics
// just to accept an optional *metrics.Registry (which already
// tolerates a nil receiver on every method).
type metricsSink interface {
	ObserveTick(duration time.Duration, observationCount int)
	ObserveStoreCall(duration time.Duration)
	IncStoreError()
	IncMalformedSkip()
	IncEstimatorSkip()
	ObservePublish(published bool, groupCount int)
	ObserveElection(transitioned, isMaster bool)
}

// DefaultConfig returns the documented defaults: 5s heartbeat TTL,
// 300s observation TTL, 100ms bucket width, 1e-4 drift learning rate,
// [1e-12, 1e6] variance bounds, 1s store timeout.
func DefaultConfig() Config {
	return Config{
		HeartbeatTTL:      5 * time.Second,
		ObservationTTL:    300 * time.Second,
		BucketMS:          100,
		DriftLearningRate: timeoffset.DefaultDriftLearningRate,
		OffsetVarBounds:   timeoffset.DefaultVarianceBounds(),
		StoreTimeout:      time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HeartbeatTTL <= 0 {
		c.HeartbeatTTL = d.HeartbeatTTL
	}
	if c.ObservationTTL <= 0 {
		c.ObservationTTL = d.ObservationTTL
	}
	if c.BucketMS <= 0 {
		c.BucketMS = d.BucketMS
	}
	if c.DriftLearningRate <= 0 {
		c.DriftLearningRate = d.DriftLearningRate
	}
	if c.OffsetVarBounds.Min <= 0 || c.OffsetVarBounds.Max <= c.OffsetVarBounds.Min {
		c.OffsetVarBounds = d.OffsetVarBounds
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	return c
}

func (c Config) validate() error {
	if strings.TrimSpace(c.NodeID) == "" {
		return fmt.Errorf("%w: node id is required", errs.ErrConfig)
	}
	if c.Store == nil {
		return fmt.Errorf("%w: store is required", errs.ErrConfig)
	}
	return nil
}

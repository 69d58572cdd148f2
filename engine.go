// Package sensorium is the probabilistic sensor time-synchronization
// engine: it orchestrates the time-offset estimator, soft clusterer,
// and bully leader election over a shared TTL key-value store into
// the single fixed per-tick procedure described by Engine.Step.
//
// Grounded structurally on gateway.Gateway (gateway.go) for the
// "construct once, call a single verb per unit of work" shape, and on
// submissionmanager.LeaderRunner's ctx-threaded, sequential-I/O style
// for the tick body.
package sensorium

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/afeldman/sensorium/cluster"
	"github.com/afeldman/sensorium/election"
	"github.com/afeldman/sensorium/errs"
	"github.com/afeldman/sensorium/model"
	"github.com/afeldman/sensorium/store"
	"github.com/afeldman/sensorium/timeoffset"
)

// Engine owns a store connection, this node's identity, and an
// in-memory cache of offset models loaded during the current tick.
// There is no ambient singleton: callers construct and hold their own
// Engine.
type Engine struct {
	cfg       Config
	estimator *timeoffset.Estimator

	mu         sync.Mutex
	lastMaster bool
	sawMaster  bool
}

// NewEngine constructs an Engine. cfg.NodeID and cfg.Store are
// required; every other field falls back to DefaultConfig's values.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:       cfg,
		estimator: timeoffset.New(cfg.DriftLearningRate, cfg.OffsetVarBounds),
	}, nil
}

// Step performs one orchestration tick: heartbeat, read, estimate,
// cluster, conditional publish, return. It always returns the
// computed groups, even on follower nodes that did not write them.
func (e *Engine) Step(ctx context.Context) ([]model.SyncGroup, error) {
	start := time.Now()
	groups, observationCount, err := e.step(ctx)
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObserveTick(time.Since(start), observationCount)
	}
	return groups, err
}

func (e *Engine) step(ctx context.Context) ([]model.SyncGroup, int, error) {
	status, err := e.evaluateElection(ctx)
	if err != nil {
		e.incStoreError()
		return nil, 0, fmt.Errorf("sensorium: election: %w", err)
	}

	observations, err := e.loadObservations(ctx)
	if err != nil {
		e.incStoreError()
		return nil, 0, fmt.Errorf("sensorium: load observations: %w", err)
	}

	offsets, err := e.loadOffsets(ctx, observations)
	if err != nil {
		e.incStoreError()
		return nil, len(observations), fmt.Errorf("sensorium: load offsets: %w", err)
	}

	groups, err := cluster.Cluster(observations, offsets)
	if err != nil {
		return nil, len(observations), fmt.Errorf("sensorium: cluster: %w", err)
	}

	covariance := make(map[string]float64, len(observations))
	for _, obs := range observations {
		covariance[obs.SensorID] = obs.Covariance
	}
	e.updateAndPersistOffsets(ctx, groups, offsets, covariance)

	for i := range groups {
		groups[i].GroupID = e.groupID(ctx, groups[i])
	}

	if status.IsMaster {
		if err := e.publish(ctx, groups); err != nil {
			return nil, len(observations), fmt.Errorf("sensorium: publish: %w", err)
		}
	}
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObservePublish(status.IsMaster, len(groups))
	}

	return groups, len(observations), nil
}

func (e *Engine) evaluateElection(ctx context.Context) (election.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()
	status, err := election.Evaluate(ctx, e.cfg.Store, election.Config{
		NodeID:       e.cfg.NodeID,
		HeartbeatTTL: e.cfg.HeartbeatTTL,
	})
	if err != nil {
		return election.Status{}, err
	}

	e.mu.Lock()
	transitioned := e.sawMaster && e.lastMaster != status.IsMaster
	e.lastMaster = status.IsMaster
	e.sawMaster = true
	e.mu.Unlock()

	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObserveElection(transitioned, status.IsMaster)
	}
	return status, nil
}

func (e *Engine) loadObservations(ctx context.Context) ([]model.Observation, error) {
	keys, err := e.scanKeys(ctx, store.ObservationPrefix)
	if err != nil {
		return nil, err
	}

	observations := make([]model.Observation, 0, len(keys))
	for _, key := range keys {
		var obs model.Observation
		ok, err := e.getJSON(ctx, key, &obs)
		if err != nil {
			if errors.Is(err, errs.ErrStore) {
				return nil, err
			}
			log.Printf("sensorium: decode %s failed: %v", key, err)
			continue
		}
		if !ok {
			continue
		}
		if !isFinite(obs.LocalTimestamp) || obs.Covariance < 0 {
			log.Printf("sensorium: skipping malformed observation key=%s sensor_id=%s", key, obs.SensorID)
			if e.cfg.Metrics != nil {
				e.cfg.Metrics.IncMalformedSkip()
			}
			continue
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

func (e *Engine) loadOffsets(ctx context.Context, observations []model.Observation) (map[string]model.TimeOffsetModel, error) {
	offsets := make(map[string]model.TimeOffsetModel)
	seen := make(map[string]bool, len(observations))
	for _, obs := range observations {
		if seen[obs.SensorID] {
			continue
		}
		seen[obs.SensorID] = true

		var m model.TimeOffsetModel
		key := store.TimeOffsetKey(obs.SensorID)
		ok, err := e.getJSON(ctx, key, &m)
		if err != nil {
			if errors.Is(err, errs.ErrStore) {
				return nil, err
			}
			log.Printf("sensorium: decode %s failed, using prior: %v", key, err)
			ok = false
		}
		if !ok {
			m = model.DefaultTimeOffsetModel()
		}
		offsets[obs.SensorID] = m
	}
	return offsets, nil
}

// updateAndPersistOffsets feeds each group's t_global back into its
// contributing sensors' offset estimators (the clusterer's §4.3 step
// 6 side effect) and persists the result. A sensor whose update fails
// keeps its prior state in offsets and in the store.
func (e *Engine) updateAndPersistOffsets(ctx context.Context, groups []cluster.Group, offsets map[string]model.TimeOffsetModel, covariance map[string]float64) {
	for _, g := range groups {
		for _, member := range g.Members {
			prior, ok := offsets[member.SensorID]
			if !ok {
				continue
			}
			updated, err := e.estimator.Update(prior, member.LocalTimestamp, covariance[member.SensorID], g.TGlobal)
			if err != nil {
				log.Printf("sensorium: estimator update skipped sensor_id=%s: %v", member.SensorID, err)
				if e.cfg.Metrics != nil {
					e.cfg.Metrics.IncEstimatorSkip()
				}
				continue
			}
			key := store.TimeOffsetKey(member.SensorID)
			if err := e.setJSON(ctx, key, updated, 0); err != nil {
				log.Printf("sensorium: persist %s failed: %v", key, err)
				continue
			}
			offsets[member.SensorID] = updated
		}
	}
}

func (e *Engine) publish(ctx context.Context, groups []model.SyncGroup) error {
	for _, g := range groups {
		key := store.SyncGroupKey(g.GroupID)
		if err := e.setJSON(ctx, key, g, 0); err != nil {
			return err
		}
	}
	return nil
}

// groupID computes the idempotent group_id for g and, on the rare
// event that a differently-membered group already occupies the same
// bucket+hash slot, appends a uuid suffix to de-collide.
func (e *Engine) groupID(ctx context.Context, g model.SyncGroup) string {
	candidate := NewGroupID(g, e.cfg.BucketMS)

	var existing model.SyncGroup
	ok, err := e.getJSON(ctx, store.SyncGroupKey(candidate), &existing)
	if err == nil && ok && !sameMembership(existing, g) {
		log.Printf("sensorium: group_id collision at %s, falling back to uuid suffix", candidate)
		return candidate + ":" + uuid.NewString()[:8]
	}
	return candidate
}

// NewGroupID computes the idempotent group_id for g: a bucket derived
// from t_global (bucket width bucketMS) plus the first 8 hex characters
// of a SHA-256 over the sorted, comma-joined member sensor_ids.
// Grounded on submissionmanager's payloadHash (store_helpers.go,
// sha256.Sum256) for the hashing technique.
func NewGroupID(g model.SyncGroup, bucketMS int64) string {
	if bucketMS <= 0 {
		bucketMS = 100
	}
	bucketWidthNanos := bucketMS * int64(time.Millisecond)
	tGlobalNanos := int64(g.TGlobal * float64(time.Second))
	bucketedNanos := (tGlobalNanos / bucketWidthNanos) * bucketWidthNanos

	return fmt.Sprintf("g:%d:%s", bucketedNanos, memberSetHash(g))
}

func memberSetHash(g model.SyncGroup) string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.SensorID
	}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, ",")))
	return hex.EncodeToString(sum[:])[:8]
}

func sameMembership(a, b model.SyncGroup) bool {
	if len(a.Members) != len(b.Members) {
		return false
	}
	idsA := make([]string, len(a.Members))
	idsB := make([]string, len(b.Members))
	for i, m := range a.Members {
		idsA[i] = m.SensorID
	}
	for i, m := range b.Members {
		idsB[i] = m.SensorID
	}
	sort.Strings(idsA)
	sort.Strings(idsB)
	return strings.Join(idsA, ",") == strings.Join(idsB, ",")
}

func (e *Engine) scanKeys(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()
	start := time.Now()
	keys, err := e.cfg.Store.ScanKeys(ctx, prefix)
	e.observeStoreCall(start)
	return keys, err
}

func (e *Engine) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()
	start := time.Now()
	ok, err := e.cfg.Store.GetJSON(ctx, key, dest)
	e.observeStoreCall(start)
	return ok, err
}

func (e *Engine) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()
	start := time.Now()
	err := e.cfg.Store.SetJSON(ctx, key, value, ttl)
	e.observeStoreCall(start)
	return err
}

func (e *Engine) observeStoreCall(start time.Time) {
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObserveStoreCall(time.Since(start))
	}
}

func (e *Engine) incStoreError() {
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.IncStoreError()
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

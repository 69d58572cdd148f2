// Package store is the narrow adapter over the shared TTL-capable
// key-value store the engine treats as an external collaborator. The
// engine never imports a concrete backing client directly -- it calls
// the Store interface defined here, generalized from
// submissionmanager's sqlStore shape (store.go) from a SQL Server
// session store to a TTL JSON key-value medium.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/afeldman/sensorium/errs"
)

// Store is the engine-facing key-value contract. Implementations must
// be safe for concurrent use by multiple goroutines within one node;
// cross-node coordination is the election package's job, not the
// store's.
type Store interface {
	// SetJSON marshals value and writes it under key. ttl <= 0 means no
	// expiry (used for sync:state:* keys).
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	// GetJSON reads key and unmarshals it into dest. ok is false if the
	// key does not exist (not an error).
	GetJSON(ctx context.Context, key string, dest any) (ok bool, err error)
	// ScanKeys lists every live key matching prefix+"*".
	ScanKeys(ctx context.Context, prefix string) ([]string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key builders, matching the *_key functions of the sensor-redis
// reference crate.

// ObservationKey builds the obs:{sensor_id}:{timestamp_ns} key for a
// raw observation.
func ObservationKey(sensorID string, localTimestamp float64) string {
	timestampNS := int64(localTimestamp * 1e9)
	return fmt.Sprintf("obs:%s:%d", sensorID, timestampNS)
}

// ObservationPrefix is the scan prefix for every raw observation key.
const ObservationPrefix = "obs:"

// TimeOffsetKey builds the sync:state:{sensor_id} key for a sensor's
// persisted TimeOffsetModel.
func TimeOffsetKey(sensorID string) string {
	return "sync:state:" + sensorID
}

// SyncGroupKey builds the sync:group:{group_id} key for an emitted
// SyncGroup.
func SyncGroupKey(groupID string) string {
	return "sync:group:" + groupID
}

// HeartbeatKey builds the election:heartbeat:{node_id} key for a
// node's liveness heartbeat.
func HeartbeatKey(nodeID string) string {
	return "election:heartbeat:" + nodeID
}

// HeartbeatPrefix is the scan prefix for every live heartbeat key.
const HeartbeatPrefix = "election:heartbeat:"

// wrapStoreErr wraps err with errs.ErrStore and call context, annotating
// low-level driver errors with a stable sentinel the caller can
// errors.Is against.
func wrapStoreErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store: %s %q: %w: %v", op, key, errs.ErrStore, err)
}

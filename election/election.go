// Package election implements a heartbeat-based bully leader election
// protocol over a shared TTL key-value store. There are no explicit
// election messages: every node's liveness is entirely derived from
// whether its election:heartbeat:{node_id} key is still present, and
// mastership is the lexicographically greatest node_id among the live
// set.
//
// Grounded on sensor-election's current_master/is_master/send_heartbeat
// (sensor-election/src/lib.rs), adapted from raw KEYS scanning to the
// store.Store abstraction's cursor-based ScanKeys.
package election

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/afeldman/sensorium/model"
	"github.com/afeldman/sensorium/store"
)

// Status is the outcome of one Evaluate call: whether the calling node
// is currently master, and the full live membership it was computed
// from.
type Status struct {
	NodeID   string
	IsMaster bool
	Master   string
	Live     []string
}

// Config configures Evaluate and Runner.
type Config struct {
	// NodeID identifies this node in the shared heartbeat keyspace.
	NodeID string
	// HeartbeatTTL is the TTL attached to this node's heartbeat key.
	// Defaults to 5s.
	HeartbeatTTL time.Duration
	// TermHint is written into the heartbeat value for operator
	// visibility only; it is never consulted for correctness.
	TermHint int64
}

// DefaultHeartbeatTTL matches heartbeat_ttl_s's documented default.
const DefaultHeartbeatTTL = 5 * time.Second

func (c Config) ttl() time.Duration {
	if c.HeartbeatTTL <= 0 {
		return DefaultHeartbeatTTL
	}
	return c.HeartbeatTTL
}

// Evaluate performs one election step: write this node's heartbeat
// with TTL, scan the live heartbeat set, and determine mastership as
// the lexicographically maximum live node_id. It is the single-shot
// primitive the sync engine calls once per tick.
func Evaluate(ctx context.Context, s store.Store, cfg Config) (Status, error) {
	nodeID := strings.TrimSpace(cfg.NodeID)
	if nodeID == "" {
		return Status{}, fmt.Errorf("election: node id is required")
	}

	hb := model.Heartbeat{NodeID: nodeID, TermHint: cfg.TermHint}
	key := store.HeartbeatKey(nodeID)
	if err := s.SetJSON(ctx, key, hb, cfg.ttl()); err != nil {
		return Status{}, fmt.Errorf("election: write heartbeat: %w", err)
	}

	keys, err := s.ScanKeys(ctx, store.HeartbeatPrefix)
	if err != nil {
		return Status{}, fmt.Errorf("election: scan heartbeats: %w", err)
	}

	live := make([]string, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimPrefix(k, store.HeartbeatPrefix)
		if id != "" {
			live = append(live, id)
		}
	}
	sort.Strings(live)

	master := ""
	if len(live) > 0 {
		master = live[len(live)-1]
	}

	return Status{
		NodeID:   nodeID,
		IsMaster: master != "" && master == nodeID,
		Master:   master,
		Live:     live,
	}, nil
}

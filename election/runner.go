package election

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/afeldman/sensorium/store"
)

// Runner re-invokes Evaluate on a fixed interval and keeps the most
// recent Status available to concurrent readers, for hosts that want a
// background heartbeat/rescan loop independent of the sync engine's
// own tick cadence (e.g. to keep a standby node's heartbeat warm
// between infrequent sync ticks).
//
// Grounded on submissionmanager.LeaderRunner (leader_runner.go); unlike
// LeaderRunner, Runner carries no leadership side effects of its own --
// it only tracks the Status Evaluate returns.
type Runner struct {
	store    store.Store
	cfg      Config
	interval time.Duration

	mu     sync.Mutex
	status Status
}

// NewRunner constructs a Runner. interval <= 0 defaults to half the
// configured heartbeat TTL, so a live node renews comfortably within
// its own TTL window.
func NewRunner(s store.Store, cfg Config, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = cfg.ttl() / 2
	}
	return &Runner{
		store:    s,
		cfg:      cfg,
		interval: interval,
		status:   Status{NodeID: cfg.NodeID},
	}
}

// Run blocks, calling Evaluate immediately and then every interval,
// until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	status, err := Evaluate(ctx, r.store, r.cfg)
	if err != nil {
		log.Printf("election_evaluate_failed node_id=%s error=%v", r.cfg.NodeID, err)
		return
	}
	r.setStatus(status)
	if status.IsMaster {
		log.Printf("election_master node_id=%s live=%d", status.NodeID, len(status.Live))
	}
}

// Status returns the most recently computed election outcome.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// IsLeader reports whether the last Evaluate call found this node to
// be master.
func (r *Runner) IsLeader() bool {
	return r.Status().IsMaster
}

func (r *Runner) setStatus(status Status) {
	r.mu.Lock()
	r.status = status
	r.mu.Unlock()
}

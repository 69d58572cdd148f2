// Package model defines the value objects exchanged between the sync
// engine and the shared key-value store. Every shape here is the
// bit-exact JSON on the wire; field order and names are part of the
// contract, not an implementation detail.
package model

// Observation is a single timestamped reading from one sensor. It is
// immutable once written: the engine never mutates an Observation it
// reads back from the store.
type Observation struct {
	SensorID       string  `json:"sensor_id"`
	SensorType     string  `json:"sensor_type"`
	LocalTimestamp float64 `json:"local_timestamp"`
	Payload        any     `json:"payload,omitempty"`
	Covariance     float64 `json:"covariance"`
}

// TimeOffsetModel is a sensor's Gaussian belief over its clock offset
// from global time, plus a linear drift term:
//
//	t_global = local_timestamp + offset_mean + drift*local_timestamp
type TimeOffsetModel struct {
	OffsetMean float64 `json:"offset_mean"`
	OffsetVar  float64 `json:"offset_var"`
	Drift      float64 `json:"drift"`
}

// DefaultTimeOffsetModel returns the prior used on first sighting of a
// sensor: mean 0, variance 1.0, drift 0.
func DefaultTimeOffsetModel() TimeOffsetModel {
	return TimeOffsetModel{OffsetMean: 0, OffsetVar: 1.0, Drift: 0}
}

// GroupMember is one sensor's contribution to a SyncGroup, carrying its
// posterior membership probability.
type GroupMember struct {
	SensorID       string  `json:"sensor_id"`
	LocalTimestamp float64 `json:"local_timestamp"`
	Probability    float64 `json:"probability"`
}

// SyncGroup is an event group with a shared global timestamp and
// normalized per-member membership probabilities. Members sum to 1
// within 1e-9.
type SyncGroup struct {
	GroupID string        `json:"group_id"`
	TGlobal float64       `json:"t_global"`
	Members []GroupMember `json:"members"`
}

// Heartbeat is the value written under an election:heartbeat:* key.
// TermHint is advisory: it is never consulted for correctness. It
// carries whatever value the writer's election.Config supplies; the
// engine leaves it 0, and nothing in this module counts mastership
// acquisitions into it.
type Heartbeat struct {
	NodeID   string `json:"node_id"`
	TermHint int64  `json:"term_hint"`
}

// Package cluster implements the soft-clustering procedure that turns
// a batch of observations plus per-sensor time-offset models into one
// or more SyncGroups with normalized membership probabilities.
//
// Grounded on sensor_sync::group_observations_probabilistically and
// estimate_event_time, adapted to this module's precision-weighted-mean
// procedure.
package cluster

import (
	"math"
	"sort"

	"github.com/afeldman/sensorium/assoc"
	"github.com/afeldman/sensorium/model"
	"github.com/afeldman/sensorium/timeoffset"
)

// Group is one emitted SyncGroup together with the global time
// estimate it was built from. It is an alias of model.SyncGroup; Cluster
// leaves GroupID empty -- id assignment is the caller's concern (see
// github.com/afeldman/sensorium/engine.go and DESIGN.md).
type Group = model.SyncGroup

// Cluster runs the baseline single-group-per-tick precision-weighted-
// mean procedure over observations, using offsets as each sensor's
// current TimeOffsetModel. Observations whose sensor has no entry in
// offsets are skipped (the caller should have created a prior for
// every sensor in the batch before calling Cluster).
//
// Cluster returns a slice, even though the baseline procedure never
// emits more than one group, so that a future multi-group extension
// can be introduced as a drop-in replacement for this function without
// changing the orchestrator's call shape.
func Cluster(observations []model.Observation, offsets map[string]model.TimeOffsetModel) ([]Group, error) {
	usable := make([]model.Observation, 0, len(observations))
	for _, obs := range observations {
		if _, ok := offsets[obs.SensorID]; ok {
			usable = append(usable, obs)
		}
	}
	if len(usable) == 0 {
		return nil, nil
	}

	sortMembers(usable)

	if len(usable) == 1 {
		obs := usable[0]
		tGlobal := timeoffset.ToGlobal(obs.LocalTimestamp, offsets[obs.SensorID])
		return []Group{{
			TGlobal: tGlobal,
			Members: []model.GroupMember{{
				SensorID:       obs.SensorID,
				LocalTimestamp: obs.LocalTimestamp,
				Probability:    1.0,
			}},
		}}, nil
	}

	tGlobals := make([]float64, len(usable))
	variances := make([]float64, len(usable))
	var numerator, denominator float64
	for i, obs := range usable {
		m := offsets[obs.SensorID]
		tg := timeoffset.ToGlobal(obs.LocalTimestamp, m)
		v := m.OffsetVar + obs.Covariance
		if v <= 0 {
			v = 1e-12
		}
		tGlobals[i] = tg
		variances[i] = v
		numerator += tg / v
		denominator += 1.0 / v
	}
	tHat := numerator / denominator

	weights := make([]float64, len(usable))
	var sumW float64
	for i := range usable {
		w := assoc.GaussianPDF(tGlobals[i]-tHat, variances[i])
		weights[i] = w
		sumW += w
	}

	members := make([]model.GroupMember, len(usable))
	if sumW > 0 {
		for i, obs := range usable {
			members[i] = model.GroupMember{
				SensorID:       obs.SensorID,
				LocalTimestamp: obs.LocalTimestamp,
				Probability:    weights[i] / sumW,
			}
		}
	} else {
		uniform := 1.0 / float64(len(usable))
		for i, obs := range usable {
			members[i] = model.GroupMember{
				SensorID:       obs.SensorID,
				LocalTimestamp: obs.LocalTimestamp,
				Probability:    uniform,
			}
		}
	}

	return []Group{{TGlobal: tHat, Members: members}}, nil
}

// sortMembers enforces the required tie-breaking order: ascending
// sensor_id, then local_timestamp.
func sortMembers(observations []model.Observation) {
	sort.SliceStable(observations, func(i, j int) bool {
		if observations[i].SensorID != observations[j].SensorID {
			return observations[i].SensorID < observations[j].SensorID
		}
		return observations[i].LocalTimestamp < observations[j].LocalTimestamp
	})
}

// Normalized reports whether a group's member probabilities sum to 1
// within a 1e-9 tolerance. Exposed for callers and tests that want to
// assert the invariant directly.
func Normalized(g Group) bool {
	var sum float64
	for _, m := range g.Members {
		sum += m.Probability
	}
	return math.Abs(sum-1.0) <= 1e-9
}

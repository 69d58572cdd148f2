// Package timeoffset implements the per-sensor scalar Kalman filter
// that maps a sensor's local clock onto the shared global timeline.
//
// Grounded on TimeOffset::kalman_update (sensor-sync/time_model.rs),
// adapted to this module's mapping and numerical contract:
//
//	t_global = local_timestamp + offset_mean + drift*local_timestamp
package timeoffset

import (
	"fmt"
	"math"

	"github.com/afeldman/sensorium/errs"
	"github.com/afeldman/sensorium/model"
)

const (
	// MinVariance is the lower clamp applied to offset_var after every
	// update, preventing numerical collapse into overconfidence.
	MinVariance = 1e-12
	// MaxVariance is the upper clamp applied to offset_var after every
	// update.
	MaxVariance = 1e6
	// DriftEpsilon guards the drift update's division by
	// local_timestamp; updates are skipped below this magnitude.
	DriftEpsilon = 1e-9
	// DefaultDriftLearningRate is the damped proportional term's
	// default learning rate, alpha in the drift update below.
	DefaultDriftLearningRate = 1e-4
)

// VarianceBounds is the [min, max] clamp applied to offset_var.
type VarianceBounds struct {
	Min float64
	Max float64
}

// DefaultVarianceBounds returns [1e-12, 1e6].
func DefaultVarianceBounds() VarianceBounds {
	return VarianceBounds{Min: MinVariance, Max: MaxVariance}
}

// Estimator wraps a sensor's TimeOffsetModel with the Kalman update
// rule and its configured learning rate / variance bounds. The zero
// value is not usable; construct with New.
type Estimator struct {
	DriftLearningRate float64
	Bounds            VarianceBounds
}

// New constructs an Estimator with the given drift learning rate and
// variance bounds. A zero or negative learning rate falls back to
// DefaultDriftLearningRate; a zero-value bounds falls back to
// DefaultVarianceBounds.
func New(driftLearningRate float64, bounds VarianceBounds) *Estimator {
	if driftLearningRate <= 0 {
		driftLearningRate = DefaultDriftLearningRate
	}
	if bounds.Min <= 0 || bounds.Max <= bounds.Min {
		bounds = DefaultVarianceBounds()
	}
	return &Estimator{DriftLearningRate: driftLearningRate, Bounds: bounds}
}

// ToGlobal projects a local timestamp into global time using the
// current offset model: local + offset_mean + drift*local.
func ToGlobal(localTimestamp float64, m model.TimeOffsetModel) float64 {
	return localTimestamp + m.OffsetMean + m.Drift*localTimestamp
}

// Predict inflates offset_var by processNoise*|dt| to account for
// clock drift uncertainty accrued since the last sighting of this
// sensor. Grounded on TimeOffset::predict (sensor-sync/time_model.rs);
// not invoked by the baseline orchestrator tick, exposed for hosts
// that track inter-tick gaps per sensor.
func Predict(m model.TimeOffsetModel, dt, processNoise float64) model.TimeOffsetModel {
	m.OffsetVar += processNoise * math.Abs(dt)
	return m
}

// Update runs one Kalman correction step given an observation and a
// reference global time estimate (typically the clusterer's
// precision-weighted group mean). It returns the updated model without
// mutating the input.
//
// On non-finite input it returns errs.ErrInvalidInput wrapped with
// context and the unmodified model: the caller skips this sensor's
// update for the tick and state is left unchanged.
func (e *Estimator) Update(m model.TimeOffsetModel, localTimestamp, covariance, tRef float64) (model.TimeOffsetModel, error) {
	if !isFinite(localTimestamp) || !isFinite(covariance) || !isFinite(tRef) || !isFinite(m.OffsetMean) || !isFinite(m.OffsetVar) || !isFinite(m.Drift) {
		return m, fmt.Errorf("timeoffset: %w: non-finite input", errs.ErrInvalidInput)
	}
	if covariance < 0 {
		return m, fmt.Errorf("timeoffset: %w: negative covariance", errs.ErrInvalidInput)
	}

	innovation := tRef - (localTimestamp + m.OffsetMean)
	innovationVar := m.OffsetVar + covariance
	if innovationVar <= 0 {
		return m, fmt.Errorf("timeoffset: %w: non-positive innovation variance", errs.ErrInvalidInput)
	}

	gain := m.OffsetVar / innovationVar
	updated := m
	updated.OffsetMean = m.OffsetMean + gain*innovation
	updated.OffsetVar = clamp((1-gain)*m.OffsetVar, e.Bounds.Min, e.Bounds.Max)

	if math.Abs(localTimestamp) >= DriftEpsilon {
		// Denominator is max(local_timestamp, epsilon), not
		// abs(local_timestamp) -- the guard above only gates whether
		// the update runs at all.
		updated.Drift = m.Drift + e.DriftLearningRate*innovation/math.Max(localTimestamp, DriftEpsilon)
	}

	if !isFinite(updated.OffsetMean) || !isFinite(updated.OffsetVar) || !isFinite(updated.Drift) {
		return m, fmt.Errorf("timeoffset: %w: update produced non-finite state", errs.ErrInvalidInput)
	}

	return updated, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

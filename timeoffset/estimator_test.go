package timeoffset

import (
	"errors"
	"math"
	"testing"

	"github.com/afeldman/sensorium/errs"
	"github.com/afeldman/sensorium/model"
)

func TestDefaultModelPriors(t *testing.T) {
	m := model.DefaultTimeOffsetModel()
	if m.OffsetMean != 0 || m.OffsetVar != 1.0 || m.Drift != 0 {
		t.Fatalf("unexpected priors: %+v", m)
	}
}

func TestUpdateRejectsNonFiniteInput(t *testing.T) {
	e := New(0, VarianceBounds{})
	m := model.DefaultTimeOffsetModel()

	_, err := e.Update(m, math.NaN(), 0.01, 10.0)
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	_, err = e.Update(m, 10.0, math.Inf(1), 10.0)
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for inf covariance, got %v", err)
	}
}

func TestUpdateRejectsNegativeCovariance(t *testing.T) {
	e := New(0, VarianceBounds{})
	m := model.DefaultTimeOffsetModel()
	if _, err := e.Update(m, 10.0, -1.0, 10.0); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateLeavesStateUnchangedOnFailure(t *testing.T) {
	e := New(0, VarianceBounds{})
	m := model.TimeOffsetModel{OffsetMean: 0.5, OffsetVar: 0.2, Drift: 0.01}
	out, err := e.Update(m, math.NaN(), 0.01, 10.0)
	if err == nil {
		t.Fatal("expected error")
	}
	if out != m {
		t.Fatalf("state mutated on failure: got %+v want %+v", out, m)
	}
}

func TestUpdateContractsVarianceAndConvergesMean(t *testing.T) {
	e := New(0, VarianceBounds{})
	m := model.DefaultTimeOffsetModel()
	trueOffset := 0.5

	prevVar := m.OffsetVar
	for i := 1; i <= 50; i++ {
		tLocal := float64(i)
		tRef := tLocal + trueOffset
		var err error
		m, err = e.Update(m, tLocal, 0.001, tRef)
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if m.OffsetVar > prevVar {
			t.Fatalf("variance increased at step %d: %v > %v", i, m.OffsetVar, prevVar)
		}
		prevVar = m.OffsetVar
	}
	if math.Abs(m.OffsetMean-trueOffset) > 0.05 {
		t.Fatalf("offset_mean did not converge: got %v want ~%v", m.OffsetMean, trueOffset)
	}
}

func TestVarianceClampedToBounds(t *testing.T) {
	bounds := VarianceBounds{Min: 1e-12, Max: 1e6}
	e := New(0, bounds)
	m := model.TimeOffsetModel{OffsetMean: 0, OffsetVar: 1e-20, Drift: 0}
	m, err := e.Update(m, 1.0, 1e-20, 1.0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if m.OffsetVar < bounds.Min {
		t.Fatalf("offset_var below min clamp: %v", m.OffsetVar)
	}
}

func TestDriftSkippedNearZeroTimestamp(t *testing.T) {
	e := New(1e-4, VarianceBounds{})
	m := model.TimeOffsetModel{OffsetMean: 0, OffsetVar: 1.0, Drift: 0.25}
	out, err := e.Update(m, 1e-10, 0.01, 0.0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if out.Drift != m.Drift {
		t.Fatalf("drift updated despite near-zero local_timestamp: %v != %v", out.Drift, m.Drift)
	}
}

func TestToGlobalMapsIdentityWhenPriorUnset(t *testing.T) {
	m := model.DefaultTimeOffsetModel()
	got := ToGlobal(10.0, m)
	if got != 10.0 {
		t.Fatalf("expected identity mapping with zero offset/drift, got %v", got)
	}
}

func TestPredictInflatesVariance(t *testing.T) {
	m := model.TimeOffsetModel{OffsetMean: 0, OffsetVar: 0.01, Drift: 0}
	out := Predict(m, 1.0, 0.001)
	if out.OffsetVar <= m.OffsetVar {
		t.Fatalf("expected variance to inflate, got %v from %v", out.OffsetVar, m.OffsetVar)
	}
}

package assoc

import (
	"math"
	"testing"
)

func TestGaussianPDFZeroAtCenter(t *testing.T) {
	got := GaussianPDF(0, 1.0)
	want := 1.0 / math.Sqrt(2*math.Pi)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestGaussianPDFNonPositiveVariance(t *testing.T) {
	if GaussianPDF(0.1, 0) != 0 {
		t.Fatal("expected 0 for zero variance")
	}
	if GaussianPDF(1.0, -1.0) != 0 {
		t.Fatal("expected 0 for negative variance")
	}
}

func TestLikelihoodSymmetric(t *testing.T) {
	cases := []struct {
		a, b, sigmaSq float64
	}{
		{10.0, 10.005, 0.02},
		{-3.0, 7.5, 1.5},
		{0.0, 0.0, 0.5},
	}
	for _, c := range cases {
		p1 := Likelihood(c.a, c.b, c.sigmaSq)
		p2 := Likelihood(c.b, c.a, c.sigmaSq)
		if math.Abs(p1-p2) > 1e-12 {
			t.Fatalf("assoc(a,b)=%v != assoc(b,a)=%v for %+v", p1, p2, c)
		}
	}
}

func TestLikelihoodFiniteForFiniteInputs(t *testing.T) {
	p := Likelihood(1e6, -1e6, 1e-3)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		t.Fatalf("expected finite likelihood, got %v", p)
	}
}

func TestBucketIDFloorsDownward(t *testing.T) {
	if got := BucketID(10.0, 100); got != 100 {
		t.Fatalf("got %v want 100", got)
	}
	if got := BucketID(0.0999, 100); got != 0 {
		t.Fatalf("got %v want 0", got)
	}
}

func TestBucketIDDefaultsBucketMS(t *testing.T) {
	if got := BucketID(1.0, 0); got != BucketID(1.0, 100) {
		t.Fatalf("expected default bucket_ms=100, got %v", got)
	}
}

// Package assoc implements the pairwise association likelihood between
// two projected observations: the zero-mean Gaussian PDF of their
// global-time residual. Grounded on sensor-core::likelihood and
// sensor-sync::gaussian_pdf.
package assoc

import "math"

// GaussianPDF evaluates the zero-mean Gaussian probability density at
// residual delta with variance sigmaSq. Returns 0 for sigmaSq <= 0
// rather than propagating NaN/Inf.
func GaussianPDF(delta, sigmaSq float64) float64 {
	if sigmaSq <= 0 {
		return 0
	}
	sigma := math.Sqrt(sigmaSq)
	exponent := -0.5 * (delta / sigma) * (delta / sigma)
	normalization := 1.0 / (sigma * math.Sqrt(2*math.Pi))
	return normalization * math.Exp(exponent)
}

// Likelihood computes N(tgA - tgB; 0, sigmaSq) for two observations
// already projected into global time, where sigmaSq is their combined
// variance (offset_var_a + offset_var_b + cov_a + cov_b). Likelihood
// is symmetric in tgA and tgB since the residual is squared.
func Likelihood(tgA, tgB, sigmaSq float64) float64 {
	return GaussianPDF(tgA-tgB, sigmaSq)
}

// BucketID is the optional prefilter bucket id:
// floor(local_timestamp*1000/bucket_ms). It is advisory only and must
// never drive a hard association decision.
func BucketID(localTimestamp float64, bucketMS int64) int64 {
	if bucketMS <= 0 {
		bucketMS = 100
	}
	return int64(math.Floor(localTimestamp * 1000 / float64(bucketMS)))
}

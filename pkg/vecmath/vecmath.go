// Package vecmath provides the small set of dense-vector operations used by
// the recommendation engines: dot product, cosine similarity, and in-place
// unit normalization over []float32.
package vecmath

import "math"

// Dot returns the dot product of a and b. Panics are avoided: extra
// dimensions in the longer vector are ignored.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// CosineSimilarity returns the cosine of the angle between a and b in
// [-1, 1]. Zero-magnitude input yields 0 rather than NaN so that an
// all-missing feature row never corrupts a ranking.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na2, nb2 float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2))
}

// CosineDistance returns 1 - CosineSimilarity(a, b), in [0, 2].
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// Normalize scales v to unit length in place and returns it. A
// zero-magnitude vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

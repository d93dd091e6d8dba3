package assign

import "hash/fnv"

const bucketRange = 100000

// bucketScalar maps an input string to [0, 1). FNV-1a is a pure function of
// its input, stable across runs and platforms, and spreads visitor ids
// evenly enough that declared weights are honored over a population. This
// is bucketing, not cryptography.
func bucketScalar(s string) float64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return float64(h.Sum64()%bucketRange) / bucketRange
}

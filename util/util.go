package util

import (
	"math"
	"sort"
	"time"
)

// Panics if there is an error, otherwise returns the result
func Try[T any](result T, err error) T {
	CheckErr(err)
	return result
}

// Panics if error is not null
func CheckErr(err error) {
	if err != nil {
		panic(err)
	}
}

// Returns the seconds elapsed since start, using the monotonic clock reading
func SecondsSince(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// Computes a percentile (0-100) from an array. The array is not modified.
func Percentile(a []float64, p int) float64 {
	if len(a) == 0 {
		return math.NaN()
	}
	if len(a) == 1 {
		return a[0]
	}

	sorted := make([]float64, len(a))
	copy(sorted, a)
	sort.Float64s(sorted)

	r := (float64(p)/100)*float64(len(sorted)) - 1
	if r <= 0 {
		return sorted[0]
	}
	if r >= float64(len(sorted)-1) {
		return sorted[len(sorted)-1]
	}

	if r == float64(int(r)) {
		return sorted[int(r)]
	} else {
		ri := int(r)
		rf := r - float64(ri)
		return sorted[ri] + rf*(sorted[ri+1]-sorted[ri])
	}
}

// Arithmetic mean, NaN for an empty array
func Mean(a []float64) float64 {
	if len(a) == 0 {
		return math.NaN()
	}
	var total float64
	for _, x := range a {
		total += x
	}
	return total / float64(len(a))
}

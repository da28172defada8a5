package utils

import (
	"math/rand"
	"time"
)

// RandRng returns a random int in [min, max]. Used for jittered delays so
// bot behavior does not tick in lockstep across the fleet.
func RandRng(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min+1)
}

// RandDuration returns a random duration in [min, max].
func RandDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// RandFloat returns a random float64 in [min, max).
func RandFloat(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rand.Float64()*(max-min)
}

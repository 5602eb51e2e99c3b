package testutil

import (
	"math"
	"math/rand"
)

// Cohort is a synthetic normative sample
type Cohort struct {
	Age   []float64
	Value []float64
}

// LogNormalCohort draws n rows with age uniform on [1,18] and a log-normal
// response whose log median is 3 + 0.04(age-9.5)^2 and log sd is 0.8.
// The same seed always yields the same rows.
func LogNormalCohort(n int, seed int64) Cohort {
	rng := rand.New(rand.NewSource(seed))
	c := Cohort{Age: make([]float64, n), Value: make([]float64, n)}
	for i := 0; i < n; i++ {
		age := 1 + 17*rng.Float64()
		c.Age[i] = age
		c.Value[i] = math.Exp(3 + 0.04*(age-9.5)*(age-9.5) + 0.8*rng.NormFloat64())
	}
	return c
}

// NormalCohort draws n rows with age uniform on [1,18] and a normal
// response with mean 10 + 0.5 age and unit sd.
func NormalCohort(n int, seed int64) Cohort {
	rng := rand.New(rand.NewSource(seed))
	c := Cohort{Age: make([]float64, n), Value: make([]float64, n)}
	for i := 0; i < n; i++ {
		age := 1 + 17*rng.Float64()
		c.Age[i] = age
		c.Value[i] = 10 + 0.5*age + rng.NormFloat64()
	}
	return c
}

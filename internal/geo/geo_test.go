package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeeTiers(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		want       int64
	}{
		{name: "same point", distanceKm: 0, want: 200},
		{name: "inside first tier", distanceKm: 3.4, want: 200},
		{name: "first tier boundary", distanceKm: 5, want: 200},
		{name: "just over first tier", distanceKm: 5.0001, want: 300},
		{name: "second tier", distanceKm: 7.2, want: 300},
		{name: "third tier", distanceKm: 12, want: 400},
		{name: "fourth tier boundary", distanceKm: 20, want: 500},
		{name: "five km past schedule", distanceKm: 25, want: 750},
		{name: "fractional excess rounds up", distanceKm: 20.1, want: 550},
		{name: "very long haul", distanceKm: 1000, want: 49500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fee(tt.distanceKm))
		})
	}
}

func TestFeeMonotonic(t *testing.T) {
	prev := Fee(0)
	for d := 0.5; d <= 60; d += 0.5 {
		cur := Fee(d)
		if cur < prev {
			t.Fatalf("fee(%v) = %d is less than fee for shorter distance %d", d, cur, prev)
		}
		prev = cur
	}
}

func TestDistanceZeroForSamePoint(t *testing.T) {
	d := Distance(-1.286389, 36.817223, -1.286389, 36.817223)
	assert.InDelta(t, 0, d, 1e-9)
}

func TestDistanceKnownPair(t *testing.T) {
	// Найроби CBD — Westlands, около 3.5 км
	d := Distance(-1.286389, 36.817223, -1.2683, 36.8109)
	assert.InDelta(t, 2.1, d, 0.5)

	// Найроби — Момбаса, около 440 км
	d = Distance(-1.286389, 36.817223, -4.043477, 39.668206)
	assert.InDelta(t, 440, d, 10)
}

func TestDistanceSymmetric(t *testing.T) {
	a := Distance(-1.3, 36.8, -1.4, 36.9)
	b := Distance(-1.4, 36.9, -1.3, 36.8)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("distance not symmetric: %v vs %v", a, b)
	}
}

func TestDistanceAntipodalNoOverflow(t *testing.T) {
	d := Distance(0, 0, 0, 180)
	// Половина окружности Земли
	assert.InDelta(t, math.Pi*earthRadiusKm, d, 1)
}

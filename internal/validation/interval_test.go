package validation

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

func TestPoissonInterval(t *testing.T) {
	tests := []struct {
		mean      float64
		wantLower int
		wantUpper int
	}{
		{0, 0, 0},
		{-1, 0, 0},
		{1, 0, 7},
		{5, 0, 16},
		{20, 5, 40},
		{100, 64, 141},
	}
	for _, tt := range tests {
		lo, hi := PoissonInterval(tt.mean, 0.9999)
		if lo != tt.wantLower || hi != tt.wantUpper {
			t.Errorf("PoissonInterval(%v) = [%d, %d], want [%d, %d]", tt.mean, lo, hi, tt.wantLower, tt.wantUpper)
		}
	}
}

func TestPoissonInterval_Coverage(t *testing.T) {
	const level = 0.999
	tail := (1 - level) / 2
	for _, mean := range []float64{0.01, 0.5, 3, 17.5, 250, 4000} {
		lo, hi := PoissonInterval(mean, level)
		p := distuv.Poisson{Lambda: mean}
		if lo > 0 && p.CDF(float64(lo-1)) >= tail {
			t.Errorf("mean %v: lower %d is not the smallest quantile", mean, lo)
		}
		if p.CDF(float64(lo)) < tail {
			t.Errorf("mean %v: lower %d is below the quantile", mean, lo)
		}
		if p.CDF(float64(hi)) < 1-tail {
			t.Errorf("mean %v: upper %d is below the quantile", mean, hi)
		}
		if hi > 0 && p.CDF(float64(hi-1)) >= 1-tail {
			t.Errorf("mean %v: upper %d is not the smallest quantile", mean, hi)
		}
	}
}

func TestAggregateTolerance(t *testing.T) {
	tests := []struct {
		name     string
		expected float64
		want     float64
	}{
		{"small total uses four sigma", 144, 48},
		{"default births", 1460, 4 * math.Sqrt(1460)},
		{"crossover", 6400, 320},
		{"large total uses five percent", 40000, 2000},
		{"tiny total hits floor", 1, 5},
		{"zero", 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateTolerance(tt.expected)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AggregateTolerance(%v) = %v, want %v", tt.expected, got, tt.want)
			}
			if sigmas := got / math.Sqrt(math.Max(tt.expected, 1)); tt.expected > 1 && sigmas < 4-1e-9 {
				t.Errorf("AggregateTolerance(%v) = %.2f sigma, want >= 4", tt.expected, sigmas)
			}
		})
	}
}

func TestSubgroupTolerance(t *testing.T) {
	tests := []struct {
		name     string
		expected float64
		want     float64
	}{
		{"floor", 16, 5},
		{"zero", 0, 5},
		{"capped at twenty percent", 100, 20},
		{"four sigma", 2500, 200},
		{"aggregate floor", 10000, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubgroupTolerance(tt.expected); got != tt.want {
				t.Errorf("SubgroupTolerance(%v) = %v, want %v", tt.expected, got, tt.want)
			}
		})
	}
}

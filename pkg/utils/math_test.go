package utils

import (
	"math"
	"testing"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		num, den int
		expected float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{0, 10, 0},
		{5, 10, 0.5},
		{10, 10, 1},
	}

	for _, tt := range tests {
		result := Ratio(tt.num, tt.den)
		if result != tt.expected {
			t.Errorf("Ratio(%d, %d) = %f, expected %f", tt.num, tt.den, result, tt.expected)
		}
	}
}

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"single", []float64{4}, 4},
		{"several", []float64{1, 2, 3, 4, 5}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Mean(tt.values)
			if result != tt.expected {
				t.Errorf("Mean(%v) = %f, expected %f", tt.values, result, tt.expected)
			}
		})
	}
}

func TestVariance(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	result := Variance(values)
	if result != 4 {
		t.Errorf("Variance(%v) = %f, expected 4", values, result)
	}
	if Variance(nil) != 0 {
		t.Error("Variance of empty slice should be 0")
	}
}

func TestStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	result := StdDev(values)
	if math.Abs(result-2) > 1e-9 {
		t.Errorf("StdDev(%v) = %f, expected 2", values, result)
	}
}

func TestSum(t *testing.T) {
	if Sum([]float64{1.5, 2.5, 3}) != 7 {
		t.Error("Sum should be 7")
	}
	if Sum(nil) != 0 {
		t.Error("Sum of empty slice should be 0")
	}
}

func TestMinMax(t *testing.T) {
	lo, hi := MinMax([]float64{3, -1, 8, 2})
	if lo != -1 || hi != 8 {
		t.Errorf("MinMax = (%f, %f), expected (-1, 8)", lo, hi)
	}

	lo, hi = MinMax(nil)
	if lo != 0 || hi != 0 {
		t.Errorf("MinMax(nil) = (%f, %f), expected (0, 0)", lo, hi)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		value    float64
		decimals int
		expected float64
	}{
		{3.14159, 2, 3.14},
		{3.145, 1, 3.1},
		{2.5, 0, 3},
		{0.123456, 4, 0.1235},
	}

	for _, tt := range tests {
		result := Round(tt.value, tt.decimals)
		if result != tt.expected {
			t.Errorf("Round(%f, %d) = %f, expected %f", tt.value, tt.decimals, result, tt.expected)
		}
	}
}

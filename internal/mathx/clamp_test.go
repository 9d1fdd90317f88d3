package mathx

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	testCases := []struct {
		name         string
		v, lo, hi, w float32
	}{
		{"inside", 0.5, 0, 1, 0.5},
		{"below", -0.1, 0, 1, 0},
		{"above", 1.5, 0, 1, 1},
		{"swapped bounds", 2, 1, 0, 1},
		{"on edge", 1, 0, 1, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clamp(tc.v, tc.lo, tc.hi); got != tc.w {
				t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tc.v, tc.lo, tc.hi, got, tc.w)
			}
		})
	}
}

func TestClampUnsigned(t *testing.T) {
	if got := Clamp[uint32](2, 3, 0xFFFD); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := Clamp[uint32](0xFFFF, 3, 0xFFFD); got != 0xFFFD {
		t.Errorf("expected 0xFFFD, got %#x", got)
	}
}

func TestBetween(t *testing.T) {
	if !Between(5, 10, 0) {
		t.Error("5 should be between 0 and 10 regardless of order")
	}
	if Between(11, 0, 10) {
		t.Error("11 should not be between 0 and 10")
	}
}

func TestIsNaN(t *testing.T) {
	if !IsNaN(float32(math.NaN())) {
		t.Error("NaN not detected")
	}
	if IsNaN(float32(0.3)) {
		t.Error("0.3 reported as NaN")
	}
}

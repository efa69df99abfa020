package bitint

import "testing"

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-8, 1},
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{1000, 1024},
		{1024, 1024},
		{4097, 8192},
	}
	for _, tt := range tests {
		if got := NextPowerOfTwo(tt.in); got != tt.want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, n := range []int{1, 2, 4, 64, 4096, 1 << 30} {
		if !IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = false, want true", n)
		}
	}
	for _, n := range []int{-4, 0, 3, 6, 100, 4095} {
		if IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = true, want false", n)
		}
	}
}

package engine

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 5,
		InitialWait: 10 * time.Millisecond,
		MaxWait:     50 * time.Millisecond,
		Multiplier:  2,
	}

	tests := []struct {
		attempt int
		base    time.Duration
	}{
		{0, 10 * time.Millisecond},
		{1, 20 * time.Millisecond},
		{2, 40 * time.Millisecond},
		{3, 50 * time.Millisecond},
		{6, 50 * time.Millisecond},
	}
	for _, tt := range tests {
		lo := time.Duration(float64(tt.base) * 0.8)
		hi := time.Duration(float64(tt.base) * 1.2)
		for range 20 {
			got := backoff(cfg, tt.attempt)
			if got < lo || got > hi {
				t.Errorf("backoff(%d) = %v, want within [%v, %v]", tt.attempt, got, lo, hi)
			}
		}
	}
}

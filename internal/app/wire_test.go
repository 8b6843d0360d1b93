package app

import (
	"testing"
	"time"
)

func TestRequestBudget(t *testing.T) {
	tests := []struct {
		perSecond  float64
		wantLimit  int
		wantWindow time.Duration
	}{
		{0, 1, time.Second},
		{2, 2, time.Second},
		{2.7, 2, time.Second},
		{0.5, 1, 2 * time.Second},
		{0.25, 1, 4 * time.Second},
	}
	for _, tt := range tests {
		limit, window := requestBudget(tt.perSecond)
		if limit != tt.wantLimit || window != tt.wantWindow {
			t.Errorf("requestBudget(%v) = %d/%v, want %d/%v", tt.perSecond, limit, window, tt.wantLimit, tt.wantWindow)
		}
	}
}

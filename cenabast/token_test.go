package cenabast

import (
	"testing"
	"time"
)

func TestEffectiveExpiryClampsToMaxTTL(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	claimed := now.Add(24 * time.Hour)
	if got := EffectiveExpiry(now, claimed); !got.Equal(now.Add(time.Hour)) {
		t.Errorf("multi-day claim must clamp to one hour, got %v", got)
	}

	claimed = now.Add(30 * time.Minute)
	if got := EffectiveExpiry(now, claimed); !got.Equal(claimed) {
		t.Errorf("claims under the cap pass through, got %v", got)
	}
}

func TestIsStale(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		claimed time.Time
		want    bool
	}{
		{"already expired", now.Add(-time.Minute), true},
		{"inside the buffer", now.Add(2 * time.Minute), true},
		{"exactly at the buffer", now.Add(5 * time.Minute), true},
		{"just past the buffer", now.Add(6 * time.Minute), false},
		{"half an hour left", now.Add(30 * time.Minute), false},
		{"claims a day but clamp leaves an hour", now.Add(24 * time.Hour), false},
	}
	for _, tc := range cases {
		if got := IsStale(now, tc.claimed); got != tc.want {
			t.Errorf("%s: IsStale = %v, want %v", tc.name, got, tc.want)
		}
	}
}

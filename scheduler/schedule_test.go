package scheduler

import (
	"testing"
	"time"
)

func TestParseRunTime(t *testing.T) {
	h, m, err := ParseRunTime("08:30")
	if err != nil || h != 8 || m != 30 {
		t.Fatalf("ParseRunTime(08:30) = (%d, %d, %v)", h, m, err)
	}
	for _, bad := range []string{"", "25:00", "10:60", "10", "aa:bb"} {
		if _, _, err := ParseRunTime(bad); err == nil {
			t.Errorf("ParseRunTime(%q) should fail", bad)
		}
	}
}

func TestParseWeekdays(t *testing.T) {
	days := ParseWeekdays("1, 3,5, 9, x")
	if !days[1] || !days[3] || !days[5] {
		t.Errorf("expected 1,3,5 enabled: %v", days)
	}
	if days[9] || len(days) != 3 {
		t.Errorf("out-of-range entries must be ignored: %v", days)
	}
}

func TestComputeNextRunSkipsToNextEnabledDay(t *testing.T) {
	// Wednesday 09:00; task runs Mon/Wed/Fri at 08:00. Today's slot has
	// passed, so the next run is Friday 08:00.
	now := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	got, err := ComputeNextRun(now, "08:00", "1,3,5")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 9, 4, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("next run = %v, want %v", got, want)
	}
}

func TestComputeNextRunTodayStillAhead(t *testing.T) {
	// Wednesday 07:00 with an 08:00 slot fires later the same day.
	now := time.Date(2026, 9, 2, 7, 0, 0, 0, time.UTC)
	got, err := ComputeNextRun(now, "08:00", "1,3,5")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("next run = %v, want %v", got, want)
	}
}

func TestComputeNextRunSundayMapping(t *testing.T) {
	// Saturday 10:00 with Sunday (7) enabled fires Sunday.
	now := time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC)
	got, err := ComputeNextRun(now, "09:30", "7")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 9, 6, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("next run = %v, want %v", got, want)
	}
}

func TestComputeNextRunNoWeekdaysFallsBackToTomorrow(t *testing.T) {
	now := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	got, err := ComputeNextRun(now, "08:00", "")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 9, 3, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("next run = %v, want %v", got, want)
	}
	if !got.After(now) {
		t.Error("fallback must be in the future")
	}
}

func TestComputeNextRunNeverInPast(t *testing.T) {
	now := time.Date(2026, 9, 2, 23, 59, 0, 0, time.UTC)
	for _, days := range []string{"1", "2", "3", "4", "5", "6", "7", "1,2,3,4,5,6,7"} {
		got, err := ComputeNextRun(now, "00:00", days)
		if err != nil {
			t.Fatal(err)
		}
		if !got.After(now) {
			t.Errorf("days=%s: next run %v is not after %v", days, got, now)
		}
	}
}

func TestComputeNextRunInvalidTime(t *testing.T) {
	if _, err := ComputeNextRun(time.Now(), "99:99", "1"); err == nil {
		t.Error("invalid run time must error")
	}
}

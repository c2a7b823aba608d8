package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseRunTime parses an "HH:MM" clock string.
func ParseRunTime(raw string) (hour int, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("hora_ejecucion inválida: %q", raw)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hora_ejecucion inválida: %q", raw)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("hora_ejecucion inválida: %q", raw)
	}
	return hour, minute, nil
}

// ParseWeekdays parses a comma-separated weekday list ("1,3,5") where
// 1 is Monday and 7 is Sunday. Unknown entries are ignored.
func ParseWeekdays(raw string) map[int]bool {
	days := make(map[int]bool)
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil && n >= 1 && n <= 7 {
			days[n] = true
		}
	}
	return days
}

func weekdayNumber(t time.Time) int {
	n := int(t.Weekday())
	if n == 0 {
		return 7
	}
	return n
}

// ComputeNextRun returns the next instant the task should fire: the first
// day within the coming week whose weekday is enabled, at the task's run
// time. Today only counts if the run time has not passed yet. When no
// weekday is enabled the task falls back to tomorrow at the same time, so
// a misconfigured row never ends up with a run in the past.
func ComputeNextRun(now time.Time, runTime string, weekdays string) (time.Time, error) {
	hour, minute, err := ParseRunTime(runTime)
	if err != nil {
		return time.Time{}, err
	}
	days := ParseWeekdays(weekdays)

	for i := 0; i <= 7; i++ {
		day := now.AddDate(0, 0, i)
		candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
		if !days[weekdayNumber(candidate)] {
			continue
		}
		if candidate.After(now) {
			return candidate, nil
		}
	}

	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, minute, 0, 0, now.Location()), nil
}

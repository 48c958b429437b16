package schedule

import (
	"fmt"
	"testing"
	"time"
)

// exactPlanner disables drift compensation so landings can be checked exactly.
func exactPlanner(wake, bed int, interval time.Duration) Planner {
	p := NewPlanner(wake, bed, interval)
	p.Bias = 0
	p.Fudge = 1
	return p
}

func at(h, m, s int) time.Time {
	return time.Date(2026, 3, 10, h, m, s, 0, time.UTC)
}

func TestPlanAlignsToNextSlot(t *testing.T) {
	p := exactPlanner(6, 0, 30*time.Minute)

	now := at(12, 10, 20)
	d := p.Plan(now)
	if d != 1180*time.Second {
		t.Fatalf("expected 1180s, got %v", d)
	}
	if got := now.Add(d); !got.Equal(at(12, 30, 0)) {
		t.Errorf("expected wake at 12:30:00, got %v", got)
	}
}

func TestPlanAppliesDriftCompensation(t *testing.T) {
	p := NewPlanner(6, 0, 30*time.Minute)

	// (1180 + 3) * 1.0015 = 1184.77 -> 1184
	d := p.Plan(at(12, 10, 20))
	if d != 1184*time.Second {
		t.Errorf("expected 1184s, got %v", d)
	}
	if d%time.Second != 0 {
		t.Errorf("plan must be whole seconds, got %v", d)
	}
}

func TestPlanSkipsSlotBelowMinimumSleep(t *testing.T) {
	p := exactPlanner(6, 6, 30*time.Minute)

	// Offset 29 of 30: one minute left is under the two minute floor, so
	// the wake moves to the slot after next (07:00), 31 minutes away. The
	// skip adds one interval to the remaining minute; it never sleeps 59.
	now := at(6, 29, 0)
	d := p.Plan(now)
	if d != 31*time.Minute {
		t.Fatalf("expected 31m, got %v", d)
	}
	if got := now.Add(d); !got.Equal(at(7, 0, 0)) {
		t.Errorf("expected wake at 07:00, got %v", got)
	}
}

func TestPlanSkipsSlotPastRatio(t *testing.T) {
	p := exactPlanner(6, 6, 60*time.Minute)

	// 150s remain (above the floor) but 95.8% of the hour has elapsed.
	now := at(6, 57, 30)
	d := p.Plan(now)
	if got := now.Add(d); !got.Equal(at(8, 0, 0)) {
		t.Errorf("expected wake at 08:00, got %v (d=%v)", got, d)
	}
}

func TestPlanNightWindowSleepsUntilWake(t *testing.T) {
	p := exactPlanner(6, 22, 60*time.Minute)

	now := at(21, 45, 0)
	d := p.Plan(now)
	if d != 29700*time.Second {
		t.Fatalf("expected 29700s, got %v", d)
	}
	want := time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC)
	if got := now.Add(d); !got.Equal(want) {
		t.Errorf("expected wake at %v, got %v", want, got)
	}

	// Same instant with drift compensation: (29700 + 3) * 1.0015
	if d := NewPlanner(6, 22, 60*time.Minute).Plan(now); d != 29747*time.Second {
		t.Errorf("expected 29747s with compensation, got %v", d)
	}
}

func TestPlanBedtimeAtMidnight(t *testing.T) {
	p := exactPlanner(6, 0, 30*time.Minute)

	now := at(23, 45, 0)
	d := p.Plan(now)
	want := time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC)
	if got := now.Add(d); !got.Equal(want) {
		t.Errorf("expected wake at %v, got %v", want, got)
	}
}

func TestPlanNoNightWindowWhenBedEqualsWake(t *testing.T) {
	p := exactPlanner(6, 6, 30*time.Minute)

	now := at(23, 50, 0)
	d := p.Plan(now)
	if d != 10*time.Minute {
		t.Errorf("expected 10m, got %v", d)
	}
}

func TestPlanWokenDuringNight(t *testing.T) {
	p := exactPlanner(6, 22, 30*time.Minute)

	// Manual reset at 02:13:07 lands on 06:00.
	now := at(2, 13, 7)
	d := p.Plan(now)
	if got := now.Add(d); !got.Equal(at(6, 0, 0)) {
		t.Errorf("expected wake at 06:00, got %v", got)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	p := NewPlanner(7, 23, 15*time.Minute)
	now := at(13, 7, 44)
	first := p.Plan(now)
	for i := 0; i < 5; i++ {
		if got := p.Plan(now); got != first {
			t.Fatalf("call %d: got %v, want %v", i, got, first)
		}
	}
}

func TestPlanBoundsAndLandings(t *testing.T) {
	intervals := []int{1, 5, 15, 30, 45, 60, 90, 180, 720, 1440}
	hours := []int{0, 6, 22, 23}

	for _, wake := range hours {
		for _, bed := range hours {
			for _, iv := range intervals {
				interval := time.Duration(iv) * time.Minute
				name := fmt.Sprintf("wake=%d/bed=%d/every=%dm", wake, bed, iv)
				t.Run(name, func(t *testing.T) {
					checkPlanner(t, wake, bed, interval)
				})
			}
		}
	}
}

func checkPlanner(t *testing.T, wake, bed int, interval time.Duration) {
	t.Helper()
	compensated := NewPlanner(wake, bed, interval)
	exact := exactPlanner(wake, bed, interval)
	upper := 24*time.Hour + interval

	start := at(0, 0, 0)
	for step := 0; step < 24*60; step += 7 {
		now := start.Add(time.Duration(step)*time.Minute + time.Duration(step%60)*time.Second)

		d := compensated.Plan(now)
		if d <= 0 || d > upper {
			t.Fatalf("%v: plan %v outside (0, %v]", now.Format("15:04:05"), d, upper)
		}

		land := now.Add(exact.Plan(now))
		if land.Second() != 0 {
			t.Fatalf("%v: landing %v not on a minute boundary", now.Format("15:04:05"), land)
		}
		if land.Hour() == wake && land.Minute() == 0 {
			continue
		}
		if !exact.InActiveWindow(land) {
			t.Fatalf("%v: landing %v outside active window", now.Format("15:04:05"), land.Format("15:04"))
		}
		sinceWake := ((land.Hour()-wake+24)%24)*60 + land.Minute()
		if sinceWake%int(interval/time.Minute) != 0 {
			t.Fatalf("%v: landing %v not aligned to %v", now.Format("15:04:05"), land.Format("15:04"), interval)
		}
	}
}

func TestInActiveWindow(t *testing.T) {
	p := NewPlanner(6, 22, time.Hour)
	tests := []struct {
		t    time.Time
		want bool
	}{
		{at(5, 59, 0), false},
		{at(6, 0, 0), true},
		{at(21, 59, 0), true},
		{at(22, 0, 0), false},
		{at(0, 0, 0), false},
	}
	for _, tt := range tests {
		if got := p.InActiveWindow(tt.t); got != tt.want {
			t.Errorf("%v: got %v, want %v", tt.t.Format("15:04"), got, tt.want)
		}
	}
	if !NewPlanner(6, 6, time.Hour).InActiveWindow(at(3, 0, 0)) {
		t.Error("no night window when bed == wake")
	}
}

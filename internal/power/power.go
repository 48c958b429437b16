// Package power performs the terminal sleep action of a wake episode: arm
// the RTC wake alarm, then power the board off.
package power

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sweeney/weather-epd/internal/log"
)

// Action is the terminal sleep action. Indefinite means no wake is armed
// and the device stays off until a manual reset.
type Action struct {
	Duration   time.Duration
	Indefinite bool
}

// Sleep returns an Action that wakes after d.
func Sleep(d time.Duration) Action { return Action{Duration: d} }

// Hibernate returns an Action with no scheduled wake.
func Hibernate() Action { return Action{Indefinite: true} }

// Microseconds is the value handed to a hardware wake timer.
func (a Action) Microseconds() uint64 {
	if a.Indefinite || a.Duration <= 0 {
		return 0
	}
	return uint64(a.Duration / time.Microsecond)
}

func (a Action) String() string {
	if a.Indefinite {
		return "hibernate"
	}
	return "sleep " + a.Duration.String()
}

// Sleeper executes an Action. On real hardware a successful call does not
// return.
type Sleeper interface {
	Enter(a Action) error
}

// RTCSleeper arms the wakealarm of a Linux RTC through sysfs and powers
// the system off.
type RTCSleeper struct {
	WakeAlarmPath string
	Now           func() time.Time
	PowerOff      func() error
}

// NewRTCSleeper returns a sleeper for the RTC at wakeAlarmPath.
func NewRTCSleeper(wakeAlarmPath string) *RTCSleeper {
	return &RTCSleeper{
		WakeAlarmPath: wakeAlarmPath,
		Now:           time.Now,
		PowerOff:      powerOff,
	}
}

// Enter clears any pending alarm, arms a new one unless a is indefinite,
// and powers off.
func (s *RTCSleeper) Enter(a Action) error {
	logger := log.WithComponent("power")

	// The kernel rejects a new alarm while one is pending.
	if err := s.writeAlarm("0"); err != nil {
		return fmt.Errorf("clear wakealarm: %w", err)
	}

	if !a.Indefinite {
		wake := s.Now().Add(a.Duration)
		if err := s.writeAlarm(strconv.FormatInt(wake.Unix(), 10)); err != nil {
			return fmt.Errorf("arm wakealarm: %w", err)
		}
		logger.Info().Time("wake_at", wake).Dur("sleep", a.Duration).Msg("wake alarm armed")
	} else {
		logger.Warn().Msg("hibernating indefinitely, manual reset required")
	}

	return s.PowerOff()
}

func (s *RTCSleeper) writeAlarm(v string) error {
	return os.WriteFile(s.WakeAlarmPath, []byte(v), 0o644)
}

// DryRunSleeper logs the action and returns.
type DryRunSleeper struct{}

// Enter logs a.
func (DryRunSleeper) Enter(a Action) error {
	logger := log.WithComponent("power")
	logger.Info().
		Bool("indefinite", a.Indefinite).
		Dur("sleep", a.Duration).
		Uint64("wake_timer_us", a.Microseconds()).
		Msg("dry run: not sleeping")
	return nil
}

// FakeSleeper records actions for tests.
type FakeSleeper struct {
	Actions []Action
	Err     error
}

// Enter records a.
func (f *FakeSleeper) Enter(a Action) error {
	f.Actions = append(f.Actions, a)
	return f.Err
}

//go:build !linux

package clock

import (
	"errors"
	"time"
)

func setSystemClock(t time.Time) error {
	return errors.New("clock: setting the system clock requires Linux")
}

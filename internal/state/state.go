// Package state persists the minimal cycle state that survives between wake
// episodes.
//
// Two stores with different lifetimes are used. The retained store mirrors
// RTC memory: it survives a deep-sleep wake but not a power loss, so it must
// live on a filesystem that is cleared at cold boot. The durable store mirrors
// non-volatile flash and survives both.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrNotFound is returned by Store.Get when a key has never been written.
var ErrNotFound = errors.New("state: key not found")

// Keys within the stores.
const (
	KeyWakeCounter = "wakeCounter"
	KeyLowBattery  = "lowBat"
)

// FailSafeCounter is the counter reported when the retained store cannot be
// read. It is larger than any cycles-per-interval value, so it forces a
// clock resync.
const FailSafeCounter = math.MaxUint32

// Store is a minimal byte-oriented key/value store.
type Store interface {
	// Get returns ErrNotFound for keys that have never been written.
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Close() error
}

// CycleState is the state carried from one wake episode to the next.
type CycleState struct {
	// WakeCounter counts wake cycles since the last successful clock sync.
	WakeCounter uint32
	// LowBattery latches the first low-battery detection so the warning
	// screen is drawn only once.
	LowBattery bool
}

// Persistence loads and commits CycleState across the two stores.
type Persistence struct {
	retained Store
	durable  Store
}

// New returns a Persistence over the given stores.
func New(retained, durable Store) *Persistence {
	return &Persistence{retained: retained, durable: durable}
}

// Load reads the cycle state. Missing keys yield the zero value. Storage
// errors are never fatal: a usable state is always returned alongside the
// error, with the counter set to FailSafeCounter when it could not be read.
func (p *Persistence) Load() (CycleState, error) {
	var st CycleState
	var errs []error

	counter, err := p.loadCounter()
	if err != nil {
		errs = append(errs, fmt.Errorf("load wake counter: %w", err))
		counter = FailSafeCounter
	}
	st.WakeCounter = counter

	lowBat, err := p.loadLowBattery()
	if err != nil {
		errs = append(errs, fmt.Errorf("load low battery latch: %w", err))
	}
	st.LowBattery = lowBat

	return st, errors.Join(errs...)
}

func (p *Persistence) loadCounter() (uint32, error) {
	if p.retained == nil {
		return 0, errors.New("no retained store")
	}
	v, err := p.retained.Get(KeyWakeCounter)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("corrupt counter value (%d bytes)", len(v))
	}
	return binary.BigEndian.Uint32(v), nil
}

func (p *Persistence) loadLowBattery() (bool, error) {
	if p.durable == nil {
		return false, errors.New("no durable store")
	}
	v, err := p.durable.Get(KeyLowBattery)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(v) == 1 && v[0] == 1, nil
}

// Commit writes the fields of next that differ from prev. Unchanged fields
// are not written, which keeps flash writes to latch transitions only.
func (p *Persistence) Commit(prev, next CycleState) error {
	var errs []error

	if next.WakeCounter != prev.WakeCounter && p.retained != nil {
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, next.WakeCounter)
		if err := p.retained.Put(KeyWakeCounter, buf); err != nil {
			errs = append(errs, fmt.Errorf("commit wake counter: %w", err))
		}
	}

	if next.LowBattery != prev.LowBattery && p.durable != nil {
		var b byte
		if next.LowBattery {
			b = 1
		}
		if err := p.durable.Put(KeyLowBattery, []byte{b}); err != nil {
			errs = append(errs, fmt.Errorf("commit low battery latch: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Close closes both stores.
func (p *Persistence) Close() error {
	var errs []error
	if p.retained != nil {
		errs = append(errs, p.retained.Close())
	}
	if p.durable != nil {
		errs = append(errs, p.durable.Close())
	}
	return errors.Join(errs...)
}

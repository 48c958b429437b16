// Package network acquires and monitors the WiFi link used for one wake
// episode.
package network

import (
	"context"
	"errors"
	"fmt"
)

// Status is the link state. The values are stable: they are embedded in
// link-lost fetch status codes.
type Status int

const (
	Idle           Status = 0
	NoSSID         Status = 1
	Connected      Status = 3
	ConnectFailed  Status = 4
	ConnectionLost Status = 5
	Disconnected   Status = 6
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case NoSSID:
		return "no_ssid"
	case Connected:
		return "connected"
	case ConnectFailed:
		return "connect_failed"
	case ConnectionLost:
		return "connection_lost"
	case Disconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrNotConnected is returned by Connect when the link did not come up
// before the deadline.
var ErrNotConnected = errors.New("network: link not connected")

// Link is the WiFi link.
type Link interface {
	// Connect waits for association until ctx is done and classifies the
	// result. The error is non-nil whenever the status is not Connected.
	Connect(ctx context.Context) (Status, error)

	// Status reports the current link state.
	Status() Status

	// RSSI returns the received signal strength in dBm.
	RSSI() (int, error)

	// Close releases the link.
	Close() error
}

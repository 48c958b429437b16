package network

import (
	"context"
	"fmt"
)

// FakeLink is a test double with a scripted connection result.
type FakeLink struct {
	// ConnectStatus is returned by Connect. Anything but Connected also
	// returns ErrNotConnected.
	ConnectStatus Status

	// DropAfter, when positive, makes Status report ConnectionLost from
	// the DropAfter-th call onwards.
	DropAfter int

	// Signal is returned by RSSI.
	Signal int

	// RSSIError, if set, will be returned by RSSI.
	RSSIError error

	// Connects and Checks count calls to Connect and Status.
	Connects int
	Checks   int

	// Closed tracks if Close was called.
	Closed bool

	connected bool
}

// NewFakeLink creates a link that connects successfully.
func NewFakeLink() *FakeLink {
	return &FakeLink{ConnectStatus: Connected, Signal: -60}
}

// Connect returns the scripted status.
func (f *FakeLink) Connect(ctx context.Context) (Status, error) {
	f.Connects++
	if f.ConnectStatus != Connected {
		return f.ConnectStatus, fmt.Errorf("%w: %s", ErrNotConnected, f.ConnectStatus)
	}
	f.connected = true
	return Connected, nil
}

// Status reports Connected until DropAfter checks have been made.
func (f *FakeLink) Status() Status {
	f.Checks++
	if !f.connected {
		return Disconnected
	}
	if f.DropAfter > 0 && f.Checks >= f.DropAfter {
		return ConnectionLost
	}
	return Connected
}

// RSSI returns Signal.
func (f *FakeLink) RSSI() (int, error) {
	if f.RSSIError != nil {
		return 0, f.RSSIError
	}
	return f.Signal, nil
}

// Close marks the link as closed.
func (f *FakeLink) Close() error {
	f.Closed = true
	f.connected = false
	return nil
}

package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mdlayher/wifi"
)

// DefaultPollInterval is how often association is checked while connecting.
const DefaultPollInterval = 50 * time.Millisecond

// nl80211 is the part of *wifi.Client the link uses.
type nl80211 interface {
	Interfaces() ([]*wifi.Interface, error)
	BSS(ifi *wifi.Interface) (*wifi.BSS, error)
	StationInfo(ifi *wifi.Interface) ([]*wifi.StationInfo, error)
	Close() error
}

// WiFiLink watches an interface managed by the OS supplicant over nl80211.
type WiFiLink struct {
	client       nl80211
	ifName       string
	ssid         string
	pollInterval time.Duration

	ifi       *wifi.Interface
	sawBSS    bool
	connected bool
	closed    bool
}

// NewWiFiLink opens a netlink client for ifName and the expected ssid.
func NewWiFiLink(ifName, ssid string) (*WiFiLink, error) {
	c, err := wifi.New()
	if err != nil {
		return nil, fmt.Errorf("open nl80211: %w", err)
	}
	return newWiFiLink(c, ifName, ssid), nil
}

func newWiFiLink(c nl80211, ifName, ssid string) *WiFiLink {
	return &WiFiLink{
		client:       c,
		ifName:       ifName,
		ssid:         ssid,
		pollInterval: DefaultPollInterval,
	}
}

// Connect polls the interface until it is associated with the expected
// SSID or ctx is done. NoSSID is reported when the interface never saw any
// BSS; ConnectFailed otherwise.
func (l *WiFiLink) Connect(ctx context.Context) (Status, error) {
	ifi, err := l.findInterface()
	if err != nil {
		return ConnectFailed, err
	}
	l.ifi = ifi

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		if l.associated() {
			l.connected = true
			return Connected, nil
		}
		select {
		case <-ctx.Done():
			if !l.sawBSS {
				return NoSSID, fmt.Errorf("%w: ssid %q not found", ErrNotConnected, l.ssid)
			}
			return ConnectFailed, fmt.Errorf("%w: %v", ErrNotConnected, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *WiFiLink) findInterface() (*wifi.Interface, error) {
	ifis, err := l.client.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list wifi interfaces: %w", err)
	}
	for _, ifi := range ifis {
		if ifi.Name == l.ifName {
			return ifi, nil
		}
	}
	return nil, fmt.Errorf("wifi interface %q not found", l.ifName)
}

func (l *WiFiLink) associated() bool {
	bss, err := l.client.BSS(l.ifi)
	if err != nil || bss == nil {
		return false
	}
	l.sawBSS = true
	return bss.SSID == l.ssid && bss.Status == wifi.BSSStatusAssociated
}

// Status re-checks association.
func (l *WiFiLink) Status() Status {
	if l.ifi == nil {
		return Idle
	}
	if l.associated() {
		return Connected
	}
	if l.connected {
		return ConnectionLost
	}
	return Disconnected
}

// RSSI returns the signal of the associated station.
func (l *WiFiLink) RSSI() (int, error) {
	if l.ifi == nil {
		return 0, ErrNotConnected
	}
	stations, err := l.client.StationInfo(l.ifi)
	if err != nil {
		return 0, fmt.Errorf("station info: %w", err)
	}
	if len(stations) == 0 {
		return 0, errors.New("no station info")
	}
	return stations[0].Signal, nil
}

// Close closes the netlink client. Later calls are no-ops, so the link can
// be dropped mid-episode and released again at exit.
func (l *WiFiLink) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.client.Close()
}

package network

import (
	"context"
	"testing"
	"time"

	"github.com/mdlayher/wifi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNL struct {
	ifis   []*wifi.Interface
	bss    *wifi.BSS
	signal int
	closes int
}

func (f *fakeNL) Interfaces() ([]*wifi.Interface, error) { return f.ifis, nil }

func (f *fakeNL) BSS(*wifi.Interface) (*wifi.BSS, error) { return f.bss, nil }

func (f *fakeNL) StationInfo(*wifi.Interface) ([]*wifi.StationInfo, error) {
	return []*wifi.StationInfo{{Signal: f.signal}}, nil
}

func (f *fakeNL) Close() error { f.closes++; return nil }

func newTestLink(nl *fakeNL) *WiFiLink {
	l := newWiFiLink(nl, "wlan0", "home")
	l.pollInterval = time.Millisecond
	return l
}

func TestWiFiLinkConnect(t *testing.T) {
	nl := &fakeNL{
		ifis:   []*wifi.Interface{{Name: "eth0"}, {Name: "wlan0"}},
		bss:    &wifi.BSS{SSID: "home", Status: wifi.BSSStatusAssociated},
		signal: -58,
	}
	l := newTestLink(nl)

	status, err := l.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Connected, status)
	assert.Equal(t, Connected, l.Status())

	rssi, err := l.RSSI()
	require.NoError(t, err)
	assert.Equal(t, -58, rssi)

	nl.bss = nil
	assert.Equal(t, ConnectionLost, l.Status())
}

func TestWiFiLinkNoSSID(t *testing.T) {
	l := newTestLink(&fakeNL{ifis: []*wifi.Interface{{Name: "wlan0"}}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	status, err := l.Connect(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, NoSSID, status)
}

func TestWiFiLinkWrongSSID(t *testing.T) {
	l := newTestLink(&fakeNL{
		ifis: []*wifi.Interface{{Name: "wlan0"}},
		bss:  &wifi.BSS{SSID: "neighbour", Status: wifi.BSSStatusAssociated},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	status, err := l.Connect(ctx)
	assert.Error(t, err)
	assert.Equal(t, ConnectFailed, status)
}

func TestWiFiLinkCloseTwice(t *testing.T) {
	nl := &fakeNL{}
	l := newTestLink(nl)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Equal(t, 1, nl.closes)
}

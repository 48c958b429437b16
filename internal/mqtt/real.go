package mqtt

import (
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Options configures the broker connection.
type Options struct {
	Server   string
	Port     int
	Username string
	Password string
	Device   Device

	ConnectTimeout time.Duration
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	device Device
}

// NewRealPublisher creates a publisher connected to the given broker.
// The connection is one-shot: no automatic reconnects.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}

	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", o.Server, o.Port)).
		SetClientID(o.Device.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(o.ConnectTimeout)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(o.ConnectTimeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{
		client: client,
		device: o.Device,
	}, nil
}

// PublishStatus sends every discovery and state message. A failed publish
// does not stop the remaining ones.
func (p *RealPublisher) PublishStatus(t Telemetry) error {
	msgs, err := Messages(p.device, t)
	if err != nil {
		return err
	}

	var errs []error
	for _, m := range msgs {
		// QoS 0 (at-most-once), retained so Home Assistant sees the last
		// value while the device sleeps
		token := p.client.Publish(m.Topic, 0, m.Retained, m.Payload)
		if !token.WaitTimeout(5 * time.Second) {
			errs = append(errs, fmt.Errorf("publish %s: timeout", m.Topic))
			continue
		}
		if err := token.Error(); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", m.Topic, err))
		}
	}
	return errors.Join(errs...)
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

// DialOnPublish connects to the broker on the first PublishStatus, so it
// can be built before the network link is up.
type DialOnPublish struct {
	Options Options

	// Dial defaults to NewRealPublisher.
	Dial func(Options) (Publisher, error)

	pub Publisher
}

// NewDialOnPublish returns a lazily connecting publisher.
func NewDialOnPublish(o Options) *DialOnPublish {
	return &DialOnPublish{Options: o}
}

// PublishStatus connects if needed and publishes t.
func (d *DialOnPublish) PublishStatus(t Telemetry) error {
	if d.pub == nil {
		dial := d.Dial
		if dial == nil {
			dial = func(o Options) (Publisher, error) { return NewRealPublisher(o) }
		}
		pub, err := dial(d.Options)
		if err != nil {
			return err
		}
		d.pub = pub
	}
	return d.pub.PublishStatus(t)
}

// Close disconnects if a connection was made.
func (d *DialOnPublish) Close() error {
	if d.pub == nil {
		return nil
	}
	return d.pub.Close()
}

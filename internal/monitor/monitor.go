// Package monitor polls Flower Care devices on an interval and
// publishes readings to an MQTT broker. Each device gets its own poll
// loop and its own session; sessions for different devices are
// independent, so the loops run in parallel.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/plantmon/flowercare/internal/ble"
	"github.com/plantmon/flowercare/internal/flowercare"
)

// Publisher delivers a reading payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// MQTTPublisher publishes over an MQTT connection.
type MQTTPublisher struct {
	client paho.Client
}

// NewMQTTPublisher connects to the broker and returns a publisher.
func NewMQTTPublisher(broker, clientID string) (*MQTTPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	client := paho.NewClient(opts)
	tok := client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("monitor: connect to broker %s: %w", broker, err)
	}
	return &MQTTPublisher{client: client}, nil
}

func (p *MQTTPublisher) Publish(topic string, payload []byte) error {
	tok := p.client.Publish(topic, 1, false, payload)
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("monitor: publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

var _ Publisher = (*MQTTPublisher)(nil)

// Options configures a Monitor.
type Options struct {
	Interval      time.Duration
	TopicPrefix   string
	RetryAttempts int
	RetryBackoff  time.Duration
	Session       flowercare.SessionOptions
	Logger        *slog.Logger
}

// Monitor owns the poll loops.
type Monitor struct {
	adapter ble.Adapter
	pub     Publisher
	opts    Options
	log     *slog.Logger
}

// New creates a monitor publishing through pub.
func New(adapter ble.Adapter, pub Publisher, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = "flowercare"
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		adapter: adapter,
		pub:     pub,
		opts:    opts,
		log:     log.With(slog.String("component", "monitor")),
	}
}

// Run polls every device until ctx is cancelled. Poll failures are
// logged and the loop keeps going; a sensor that is briefly out of
// range should not stop monitoring.
func (m *Monitor) Run(ctx context.Context, handles []flowercare.DeviceHandle) {
	var wg sync.WaitGroup
	for _, handle := range handles {
		wg.Add(1)
		go func(h flowercare.DeviceHandle) {
			defer wg.Done()
			m.pollLoop(ctx, h)
		}(handle)
	}
	wg.Wait()
}

func (m *Monitor) pollLoop(ctx context.Context, handle flowercare.DeviceHandle) {
	log := m.log.With(slog.String("address", handle.Address))
	log.Info("monitoring started", "interval", m.opts.Interval)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		if err := m.PollOnce(ctx, handle); err != nil && ctx.Err() == nil {
			log.Warn("poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			log.Info("monitoring stopped")
			return
		case <-ticker.C:
		}
	}
}

// PollOnce opens a transient session, reads live data and publishes it.
func (m *Monitor) PollOnce(ctx context.Context, handle flowercare.DeviceHandle) error {
	sess := flowercare.NewSession(m.adapter, handle, m.opts.Session)

	var reading flowercare.SensorReading
	err := flowercare.Retry(ctx, m.opts.RetryAttempts, m.opts.RetryBackoff, func() error {
		return sess.With(ctx, func(s *flowercare.Session) error {
			r, err := s.ReadLiveData(ctx)
			if err != nil {
				return err
			}
			reading = r
			return nil
		})
	})
	if err != nil {
		return err
	}

	payload, err := json.Marshal(readingPayload{
		Address:      handle.Address,
		Name:         handle.Name,
		Timestamp:    reading.Timestamp,
		Temperature:  reading.Temperature,
		Brightness:   reading.Brightness,
		Moisture:     reading.Moisture,
		Conductivity: reading.Conductivity,
		InRange:      reading.InPhysicalRange(),
	})
	if err != nil {
		return fmt.Errorf("monitor: marshal reading: %w", err)
	}
	return m.pub.Publish(Topic(m.opts.TopicPrefix, handle.Address), payload)
}

type readingPayload struct {
	Address      string    `json:"address"`
	Name         string    `json:"name,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Temperature  float64   `json:"temperature"`
	Brightness   uint32    `json:"brightness"`
	Moisture     uint8     `json:"moisture"`
	Conductivity uint16    `json:"conductivity"`
	InRange      bool      `json:"in_range"`
}

// Topic returns the publish topic for a device address:
// "<prefix>/<address with colons stripped, lowercase>".
func Topic(prefix, address string) string {
	addr := strings.ToLower(strings.ReplaceAll(address, ":", ""))
	return prefix + "/" + addr
}

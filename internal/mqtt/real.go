package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/tv-remote/internal/keys"
	"github.com/sweeney/tv-remote/internal/sink"
)

// DefaultPublishTimeout bounds how long a key report may block the tick loop.
const DefaultPublishTimeout = 500 * time.Millisecond

// Sink sends key reports to an MQTT broker.
type Sink struct {
	client      paho.Client
	keysTopic   string
	systemTopic string
	timeout     time.Duration
	now         func() time.Time
}

// NewSink wraps an existing client. Key reports use QoS 1 so a press is
// never delivered without its release.
func NewSink(client paho.Client, base string, timeout time.Duration, now func() time.Time) *Sink {
	if base == "" {
		base = DefaultBaseTopic
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Sink{
		client:      client,
		keysTopic:   KeysTopic(base),
		systemTopic: SystemTopic(base),
		timeout:     timeout,
		now:         now,
	}
}

// Connect creates a client for broker and starts connecting in the
// background. The sink reports not connected until the broker is reachable;
// the client keeps retrying and reconnects on its own.
func Connect(broker, clientID, base string, logger log.FieldLogger) *Sink {
	if base == "" {
		base = DefaultBaseTopic
	}
	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(SystemTopic(base), string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) {
			logger.WithField("broker", broker).Info("mqtt connected")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.WithField("broker", broker).WithError(err).Warn("mqtt connection lost")
		})

	client := paho.NewClient(opts)
	client.Connect()

	return NewSink(client, base, DefaultPublishTimeout, time.Now)
}

// IsConnected reports whether the broker connection is up.
func (s *Sink) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

// Write taps code.
func (s *Sink) Write(code keys.Code) error {
	return s.send(sink.OpWrite, code)
}

// Press holds code down.
func (s *Sink) Press(code keys.Code) error {
	return s.send(sink.OpPress, code)
}

// Release lets code go.
func (s *Sink) Release(code keys.Code) error {
	return s.send(sink.OpRelease, code)
}

// ReleaseAll lets every key go.
func (s *Sink) ReleaseAll() error {
	return s.send(sink.OpReleaseAll, 0)
}

func (s *Sink) send(op sink.Op, code keys.Code) error {
	if !s.IsConnected() {
		return sink.ErrNotConnected
	}
	payload, err := sink.FormatMessage(op, code, s.now())
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return s.publish(s.keysTopic, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (s *Sink) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	if err := s.publish(s.systemTopic, 1, event.Retained, payload); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (s *Sink) publish(topic string, qos byte, retained bool, payload []byte) error {
	token := s.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *Sink) Close() error {
	s.client.Disconnect(1000) // 1 second quiesce
	return nil
}

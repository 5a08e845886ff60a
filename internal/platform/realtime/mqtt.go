package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// mqttPublisher is the part of mqtt.Client the publisher uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher mirrors events onto an MQTT broker for waiting-room
// displays. Event "queue.checked_in" on topic "queue" goes to
// "<prefix>/queue/checked_in".
type MQTTPublisher struct {
	client mqttPublisher
	prefix string
	logger zerolog.Logger
	now    func() time.Time
	close  func()
}

// NewMQTTPublisher connects to the broker. Reconnects are handled by the
// paho client.
func NewMQTTPublisher(cfg MQTTConfig, logger zerolog.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, err)
	}
	logger.Info().Str("broker", cfg.Broker).Str("client_id", cfg.ClientID).Msg("connected to MQTT broker")

	p := newMQTTPublisher(client, cfg.TopicPrefix, logger)
	p.close = func() { client.Disconnect(250) }
	return p, nil
}

func newMQTTPublisher(client mqttPublisher, prefix string, logger zerolog.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger,
		now:    time.Now,
		close:  func() {},
	}
}

// TopicFor maps an event onto its broker topic.
func (p *MQTTPublisher) TopicFor(topic, eventType string) string {
	name := strings.TrimPrefix(eventType, topic+".")
	if p.prefix == "" {
		return topic + "/" + name
	}
	return p.prefix + "/" + topic + "/" + name
}

func (p *MQTTPublisher) Publish(ctx context.Context, topic, eventType string, payload interface{}) error {
	ev, err := newEvent(topic, eventType, payload, p.now())
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	target := p.TopicFor(topic, eventType)
	token := p.client.Publish(target, 1, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return errors.New("publish to " + target + ": timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", target, err)
	}
	p.logger.Debug().Str("topic", target).Msg("published mqtt event")
	return nil
}

func (p *MQTTPublisher) Close() {
	p.close()
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttConnectTimeout    = 10 * time.Second
	mqttPublishTimeout    = 5 * time.Second
	mqttDisconnectQuiesce = 250 // milliseconds
	mqttMaxQoS            = 2
)

var (
	ErrMQTTConnect = errors.New("mqtt: connection failed")
	ErrMQTTQoS     = errors.New("mqtt: QoS must be 0, 1 or 2")
)

type MQTTOptions struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Username string
	Password string
	Topic    string // events are published to Topic/<op>
	QoS      byte
}

// MQTT publishes events as JSON to an MQTT broker.
type MQTT struct {
	client pahomqtt.Client
	topic  string
	qos    byte
	logger *slog.Logger
}

var _ Publisher = (*MQTT)(nil)

// DialMQTT connects to the broker and returns a publisher using that connection.
func DialMQTT(options *MQTTOptions, logger *slog.Logger) (*MQTT, error) {
	if options.QoS > mqttMaxQoS {
		return nil, ErrMQTTQoS
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(options.Broker).
		SetClientID(options.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "err", err)
		}).
		SetOnConnectHandler(func(pahomqtt.Client) {
			logger.Info("mqtt connected", "broker", options.Broker)
		})
	if options.Username != "" {
		opts.SetUsername(options.Username)
		opts.SetPassword(options.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrMQTTConnect, mqttConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMQTTConnect, err)
	}

	return NewMQTT(client, options.Topic, options.QoS, logger), nil
}

func NewMQTT(client pahomqtt.Client, topic string, qos byte, logger *slog.Logger) *MQTT {
	return &MQTT{client: client, topic: topic, qos: qos, logger: logger}
}

// Publish logs failures instead of returning them: the change already happened.
func (p *MQTT) Publish(ctx context.Context, e Event) {
	topic := p.topic + "/" + string(e.Op)
	err := p.publish(topic, e)
	if err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "could not publish event",
			slog.String("topic", topic),
			slog.Any("err", err),
		)
	}
}

func (p *MQTT) publish(topic string, e Event) error {
	if !p.client.IsConnected() {
		return errors.New("mqtt: not connected")
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}

	token := p.client.Publish(topic, p.qos, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("mqtt: publish timeout after %v", mqttPublishTimeout)
	}
	return token.Error()
}

func (p *MQTT) Close() {
	p.client.Disconnect(mqttDisconnectQuiesce)
}

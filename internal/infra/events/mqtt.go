// Package events publishes order and supply-request lifecycle events to an
// MQTT broker for downstream consumers (fleet tracking, notifications).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

// Config holds broker connection settings.
type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	QoS            byte
	ConnectTimeout time.Duration
}

// OrderTopic returns the topic of an order's status events.
func OrderTopic(prefix, orderID string) string {
	return fmt.Sprintf("%s/orders/%s/status", prefix, orderID)
}

// SuppliesTopic returns the topic of a supply request's status events.
func SuppliesTopic(prefix, requestID string) string {
	return fmt.Sprintf("%s/supplies/%s/status", prefix, requestID)
}

// MQTTPublisher implements port.EventPublisher over paho.
type MQTTPublisher struct {
	client mqtt.Client
	cfg    Config
	logger *zap.Logger
}

// NewMQTTPublisher connects to the broker. Reconnects are automatic.
func NewMQTTPublisher(cfg Config, logger *zap.Logger) (*MQTTPublisher, error) {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "mir"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("mqtt: connected", zap.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt: connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, err)
	}

	return &MQTTPublisher{client: client, cfg: cfg, logger: logger}, nil
}

func (p *MQTTPublisher) PublishOrderEvent(ctx context.Context, evt domain.OrderEvent) error {
	return p.publish(ctx, OrderTopic(p.cfg.TopicPrefix, evt.OrderID), evt)
}

func (p *MQTTPublisher) PublishSuppliesEvent(ctx context.Context, evt domain.SuppliesEvent) error {
	return p.publish(ctx, SuppliesTopic(p.cfg.TopicPrefix, evt.RequestID), evt)
}

// Close disconnects, waiting briefly for in-flight messages.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
	p.logger.Info("mqtt: disconnected")
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	token := p.client.Publish(topic, p.cfg.QoS, false, data)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishOrderEvent(context.Context, domain.OrderEvent) error { return nil }

func (Noop) PublishSuppliesEvent(context.Context, domain.SuppliesEvent) error { return nil }

func (Noop) Close() {}

package mqtt

import (
	"fmt"

	"pq-sarfi/pkg/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MessageHandler handles one inbound message
type MessageHandler func(topic string, payload []byte) error

// Client wraps the paho MQTT client
type Client struct {
	client mqtt.Client
	config *config.MQTTConfig
}

// NewClient connects to the broker
func NewClient(cfg *config.MQTTConfig) (*Client, error) {
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

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

// Subscribe subscribes a handler to a topic
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if token := c.client.Subscribe(topic, qos, func(client mqtt.Client, msg mqtt.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			// log and keep consuming; a bad payload must not stop the feed
			fmt.Printf("Error handling MQTT message: %v\n", err)
		}
	}); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	return nil
}

// Unsubscribe removes subscriptions
func (c *Client) Unsubscribe(topics ...string) error {
	token := c.client.Unsubscribe(topics...)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe: %w", token.Error())
	}

	return nil
}

// Disconnect disconnects from the broker
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

// IsConnected reports the connection state
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

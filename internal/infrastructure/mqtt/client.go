package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/redec/homebridge-nest/internal/infrastructure/config"
)

// Client is the bridge's broker connection. It publishes retained
// characteristic state and command acks, and keeps the command
// subscription alive across reconnects.
//
// All methods are safe for concurrent use.
type Client struct {
	paho     pahomqtt.Client
	topics   Topics
	qos      byte
	clientID string

	connected atomic.Bool

	mu           sync.RWMutex
	commands     CommandHandler
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger is the subset of logging.Logger the client reports through.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

func newClient(cfg config.MQTTConfig) (*Client, error) {
	if cfg.QoS < 0 || cfg.QoS > 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQoS, cfg.QoS)
	}
	return &Client{
		topics:   NewTopics(cfg.TopicPrefix),
		qos:      byte(cfg.QoS),
		clientID: cfg.Broker.ClientID,
	}, nil
}

// Connect dials the broker described by cfg and publishes the online
// status. Paho reconnects on its own after the first success; every
// reconnect re-establishes the command subscription and republishes the
// online status.
//
// Returns:
//   - *Client: connected client
//   - error: ErrInvalidQoS, or ErrConnectionFailed if the broker is unreachable
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	opts := clientOptions(cfg, c.topics).
		SetOnConnectHandler(func(_ pahomqtt.Client) { c.handleConnect() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) }).
		SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("mqtt reconnecting", "broker", cfg.Broker.Host)
			}
		})

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously; mark the link up now so
	// callers see it immediately.
	c.connected.Store(true)
	return c, nil
}

// handleConnect runs on the first connect and on every reconnect. With a
// clean session the broker forgets subscriptions, so the command
// subscription is made again here.
func (c *Client) handleConnect() {
	c.connected.Store(true)

	c.mu.RLock()
	handler := c.commands
	callback := c.onConnect
	c.mu.RUnlock()

	if handler != nil {
		if err := c.subscribeCommands(handler); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("restoring command subscription", "error", err)
			}
		}
	}

	c.paho.Publish(c.topics.SystemStatus(), 1, true, statusPayload(c.clientID, statusOnline, ""))

	if callback != nil {
		callback()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)

	c.mu.RLock()
	callback := c.onDisconnect
	c.mu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// Close publishes a graceful offline status and disconnects.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.paho.Publish(c.topics.SystemStatus(), 1, true, statusPayload(c.clientID, statusOffline, reasonShutdown))
		token.WaitTimeout(operationTimeout)
	}
	c.paho.Disconnect(disconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.connected.Load() && c.paho.IsConnected()
}

// Topics returns the topic layout for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// SetOnConnect sets a callback run after every (re)connect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets where handler errors and panics are reported.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// CommandHandler receives one command addressed to deviceID. Handlers run
// on paho's delivery goroutine and must not block; a returned error is
// logged.
type CommandHandler func(deviceID string, payload []byte) error

// SubscribeCommands subscribes to every device's command topic and routes
// messages to handler. The subscription is restored after each reconnect
// until UnsubscribeCommands is called.
func (c *Client) SubscribeCommands(handler CommandHandler) error {
	c.mu.Lock()
	c.commands = handler
	c.mu.Unlock()

	if !c.IsConnected() {
		// handleConnect subscribes once the link is back.
		return ErrNotConnected
	}
	return c.subscribeCommands(handler)
}

func (c *Client) subscribeCommands(handler CommandHandler) error {
	filter := c.topics.AllCommands()
	token := c.paho.Subscribe(filter, c.qos, c.dispatch(handler))
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("%w: %s: timeout", ErrSubscribeFailed, filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, filter, err)
	}
	return nil
}

// UnsubscribeCommands stops command delivery and forgets the handler, so a
// later reconnect does not subscribe again.
func (c *Client) UnsubscribeCommands() error {
	c.mu.Lock()
	c.commands = nil
	c.mu.Unlock()

	if !c.IsConnected() {
		return nil
	}
	filter := c.topics.AllCommands()
	token := c.paho.Unsubscribe(filter)
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("mqtt: unsubscribe %s: timeout", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: unsubscribe %s: %w", filter, err)
	}
	return nil
}

// dispatch turns handler into a paho callback that resolves the device ID
// from the topic and recovers handler panics.
func (c *Client) dispatch(handler CommandHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		logger := c.getLogger()
		defer func() {
			if r := recover(); r != nil && logger != nil {
				logger.Error("command handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		deviceID, err := c.topics.CommandDevice(msg.Topic())
		if err != nil {
			if logger != nil {
				logger.Warn("ignoring command", "error", err)
			}
			return
		}
		if err := handler(deviceID, msg.Payload()); err != nil && logger != nil {
			logger.Warn("command handler failed", "device_id", deviceID, "error", err)
		}
	}
}

// PublishState publishes one characteristic's value as a retained message,
// so a subscriber joining later sees the current state immediately.
func (c *Client) PublishState(deviceID, characteristic string, payload []byte) error {
	return c.publish(c.topics.State(deviceID, characteristic), true, payload)
}

// PublishAck publishes a command outcome. Acks are events and are not
// retained.
func (c *Client) PublishAck(deviceID string, payload []byte) error {
	return c.publish(c.topics.Ack(deviceID), false, payload)
}

func (c *Client) publish(topic string, retained bool, payload []byte) error {
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %s: payload of %d bytes exceeds %d", ErrPublishFailed, topic, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.paho.Publish(topic, c.qos, retained, payload)
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("%w: %s: timeout", ErrPublishFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

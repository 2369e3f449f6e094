package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redec/homebridge-nest/internal/accessory"
	"github.com/redec/homebridge-nest/internal/characteristic"
	"github.com/redec/homebridge-nest/internal/infrastructure/mqtt"
)

// defaultCommandTimeout bounds one command from acceptance to the Nest
// answer.
const defaultCommandTimeout = 10 * time.Second

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	PublishState(deviceID, characteristic string, payload []byte) error
	PublishAck(deviceID string, payload []byte) error
	SubscribeCommands(handler mqtt.CommandHandler) error
	UnsubscribeCommands() error
}

// MetricWriter records numeric characteristic values. *influxdb.Client
// satisfies it.
type MetricWriter interface {
	WriteThermostatSample(deviceID, name, characteristic string, value float64)
}

// Logger defines the logging interface used by Bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Bridge.
type Options struct {
	// MQTT publishes state and receives commands. Required.
	MQTT MQTTClient

	// Registry resolves command device IDs. Required.
	Registry *accessory.Registry

	// Metrics receives numeric changes. Optional.
	Metrics MetricWriter

	// CommandTimeout defaults to 10s.
	CommandTimeout time.Duration

	// Logger defaults to a no-op logger.
	Logger Logger
}

// Bridge mirrors thermostat characteristics onto MQTT and applies commands
// received there.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	client         MQTTClient
	registry       *accessory.Registry
	metrics        MetricWriter
	commandTimeout time.Duration
	logger         Logger

	attachedMu sync.Mutex
	attached   map[string]bool

	// Shutdown coordination. stopMu orders wg.Add in handleMessage
	// against the cancel in Stop.
	stopMu    sync.Mutex
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// New creates a Bridge. Call Start to receive commands and Attach for every
// thermostat whose state should be published.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, ErrMissingMQTT
	}
	if opts.Registry == nil {
		return nil, ErrMissingRegistry
	}

	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		client:         opts.MQTT,
		registry:       opts.Registry,
		metrics:        opts.Metrics,
		commandTimeout: timeout,
		logger:         logger,
		attached:       make(map[string]bool),
		ctx:            ctx,
		ctxCancel:      cancel,
	}, nil
}

// Start subscribes to the command topics. The MQTT client keeps the
// subscription across reconnects.
func (b *Bridge) Start() error {
	if err := b.client.SubscribeCommands(b.handleMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logger.Info("subscribed to commands")
	return nil
}

// Stop unsubscribes and waits for in-flight commands. Commands still
// waiting on Nest are cancelled.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if err := b.client.UnsubscribeCommands(); err != nil {
			b.logger.Warn("unsubscribe from commands failed", "error", err)
		}
		b.stopMu.Lock()
		b.ctxCancel()
		b.stopMu.Unlock()
		b.wg.Wait()
		b.logger.Info("mqtt bridge stopped")
	})
}

// Attach publishes the current value of every characteristic t binds and
// republishes each one as it changes. Attaching the same device twice is a
// no-op.
func (b *Bridge) Attach(t *accessory.Thermostat) error {
	b.attachedMu.Lock()
	if b.attached[t.DeviceID()] {
		b.attachedMu.Unlock()
		return nil
	}
	b.attached[t.DeviceID()] = true
	b.attachedMu.Unlock()

	for _, id := range t.BoundCharacteristics() {
		c, err := t.Characteristic(id)
		if err != nil {
			return fmt.Errorf("attaching %s: %w", t.DeviceID(), err)
		}
		c.OnChange(func(ch characteristic.Change) {
			b.publishState(t, ch.ID, ch.NewValue)
		})
		b.publishState(t, id, c.Value())
	}

	b.logger.Info("thermostat mirrored to mqtt",
		"name", t.Name(),
		"device_id", t.DeviceID(),
	)
	return nil
}

// publishState publishes one retained state message and records numeric
// values.
func (b *Bridge) publishState(t *accessory.Thermostat, id characteristic.ID, value any) {
	if value == nil {
		return
	}

	if b.metrics != nil {
		if _, isBool := value.(bool); !isBool {
			if f, err := characteristic.Float(value); err == nil {
				b.metrics.WriteThermostatSample(t.DeviceID(), t.Name(), string(id), f)
			}
		}
	}

	payload, err := json.Marshal(NewStateMessage(t.DeviceID(), t.Name(), id, value))
	if err != nil {
		b.logger.Error("failed to marshal state", "characteristic", id, "error", err)
		return
	}
	if err := b.client.PublishState(t.DeviceID(), string(id), payload); err != nil {
		b.logger.Warn("failed to publish state", "device_id", t.DeviceID(), "characteristic", id, "error", err)
		return
	}
	b.logger.Debug("state published", "device_id", t.DeviceID(), "characteristic", id, "value", value)
}

// handleMessage receives command messages. The write runs in its own
// goroutine so the MQTT client's dispatch is never blocked on Nest.
func (b *Bridge) handleMessage(deviceID string, payload []byte) error {
	cmd, err := ParseCommand(payload, deviceID)
	if err != nil {
		b.publishAck(NewAckError(CommandMessage{DeviceID: deviceID}, ErrCodeInvalidCommand, err.Error()))
		return err
	}

	b.logger.Info("received command",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"characteristic", cmd.Characteristic,
		"value", cmd.Value,
	)

	b.stopMu.Lock()
	if b.ctx.Err() != nil {
		b.stopMu.Unlock()
		b.publishAck(NewAckError(cmd, ErrCodeShuttingDown, ErrStopped.Error()))
		return ErrStopped
	}
	b.wg.Add(1)
	b.stopMu.Unlock()

	go func() {
		defer b.wg.Done()
		b.executeCommand(cmd)
	}()
	return nil
}

// executeCommand validates cmd, acknowledges it and writes the value.
func (b *Bridge) executeCommand(cmd CommandMessage) {
	t, err := b.registry.Get(cmd.DeviceID)
	if err != nil {
		b.publishAck(NewAckError(cmd, ErrCodeDeviceNotFound, err.Error()))
		return
	}

	id, err := characteristic.ParseID(cmd.Characteristic)
	if err != nil {
		b.publishAck(NewAckError(cmd, ErrCodeUnknownCharacteristic, err.Error()))
		return
	}
	c, err := t.Characteristic(id)
	if err != nil {
		b.publishAck(NewAckError(cmd, ErrCodeUnknownCharacteristic, err.Error()))
		return
	}
	value, err := characteristic.Normalize(id, cmd.Value)
	if err != nil {
		b.publishAck(NewAckError(cmd, ErrCodeInvalidValue, err.Error()))
		return
	}

	b.publishAck(NewAckMessage(cmd, AckAccepted))

	ctx, cancel := context.WithTimeout(b.ctx, b.commandTimeout)
	defer cancel()

	if err := c.Write(ctx, value); err != nil {
		b.logger.Warn("command failed",
			"command_id", cmd.ID,
			"device_id", cmd.DeviceID,
			"characteristic", cmd.Characteristic,
			"error", err,
		)
		b.publishAck(NewAckError(cmd, errorCode(err), err.Error()))
		return
	}
	b.publishAck(NewAckMessage(cmd, AckCompleted))
}

// errorCode maps a write error to an ack error code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, characteristic.ErrReadOnly):
		return ErrCodeReadOnly
	case errors.Is(err, characteristic.ErrInvalidValue):
		return ErrCodeInvalidValue
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrCodeTimeout
	default:
		return ErrCodeNestError
	}
}

// publishAck publishes a command acknowledgment.
func (b *Bridge) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logger.Error("failed to marshal ack", "error", err)
		return
	}
	if err := b.client.PublishAck(ack.DeviceID, payload); err != nil {
		b.logger.Warn("failed to publish ack", "error", err)
	}
}

package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/redec/homebridge-nest/internal/characteristic"
)

// MQTT message types exchanged with home automation clients.

// CommandMessage asks the bridge to write a characteristic.
// Topic: {prefix}/command/{device_id}
type CommandMessage struct {
	// ID correlates the command with its acknowledgments. Optional.
	ID string `json:"id,omitempty"`

	// DeviceID is the Nest device ID. Taken from the topic when empty.
	DeviceID string `json:"device_id,omitempty"`

	// Characteristic names the characteristic to write, e.g. "TargetTemperature".
	Characteristic string `json:"characteristic"`

	// Value is the written value in the characteristic's units (°C for
	// temperatures, 0-3 for heating/cooling states, bool for Away).
	Value any `json:"value"`

	// Source indicates where the command originated, e.g. "automation".
	Source string `json:"source,omitempty"`
}

// ParseCommand decodes a command payload. deviceID from the topic fills in a
// missing device_id; a payload that names a different device is rejected.
func ParseCommand(payload []byte, deviceID string) (CommandMessage, error) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return CommandMessage{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if cmd.DeviceID == "" {
		cmd.DeviceID = deviceID
	}
	if cmd.DeviceID != deviceID {
		return CommandMessage{}, fmt.Errorf("%w: device_id %q does not match topic %q", ErrInvalidCommand, cmd.DeviceID, deviceID)
	}
	if cmd.Characteristic == "" {
		return CommandMessage{}, fmt.Errorf("%w: characteristic is required", ErrInvalidCommand)
	}
	if cmd.Value == nil {
		return CommandMessage{}, fmt.Errorf("%w: value is required", ErrInvalidCommand)
	}
	return cmd, nil
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was validated and sent to Nest.
	AckAccepted AckStatus = "accepted"

	// AckCompleted indicates Nest accepted the write.
	AckCompleted AckStatus = "completed"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// AckMessage acknowledges a command.
// Topic: {prefix}/ack/{device_id}
type AckMessage struct {
	CommandID      string    `json:"command_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	DeviceID       string    `json:"device_id"`
	Characteristic string    `json:"characteristic,omitempty"`
	Status         AckStatus `json:"status"`
	Error          *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeInvalidCommand        = "INVALID_COMMAND"
	ErrCodeDeviceNotFound        = "DEVICE_NOT_FOUND"
	ErrCodeUnknownCharacteristic = "UNKNOWN_CHARACTERISTIC"
	ErrCodeInvalidValue          = "INVALID_VALUE"
	ErrCodeReadOnly              = "READ_ONLY"
	ErrCodeNestError             = "NEST_ERROR"
	ErrCodeTimeout               = "TIMEOUT"
	ErrCodeShuttingDown          = "SHUTTING_DOWN"
)

// NewAckMessage creates an acknowledgment for cmd.
func NewAckMessage(cmd CommandMessage, status AckStatus) AckMessage {
	return AckMessage{
		CommandID:      cmd.ID,
		Timestamp:      time.Now().UTC(),
		DeviceID:       cmd.DeviceID,
		Characteristic: cmd.Characteristic,
		Status:         status,
	}
}

// NewAckError creates a failed acknowledgment for cmd.
func NewAckError(cmd CommandMessage, code, message string) AckMessage {
	ack := NewAckMessage(cmd, AckFailed)
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// StateMessage carries one characteristic value.
// Topic: {prefix}/state/{device_id}/{characteristic}
// QoS: configured, Retained: Yes
type StateMessage struct {
	DeviceID       string    `json:"device_id"`
	Name           string    `json:"name"`
	Characteristic string    `json:"characteristic"`
	Value          any       `json:"value"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewStateMessage creates a state message stamped with the current time.
func NewStateMessage(deviceID, name string, id characteristic.ID, value any) StateMessage {
	return StateMessage{
		DeviceID:       deviceID,
		Name:           name,
		Characteristic: string(id),
		Value:          value,
		Timestamp:      time.Now().UTC(),
	}
}

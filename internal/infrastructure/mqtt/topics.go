package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "nestbridge"

// Topics builds the bridge's MQTT topics under a configurable prefix.
//
//	<prefix>/state/<device_id>/<characteristic>  retained state
//	<prefix>/command/<device_id>                 writes from automations
//	<prefix>/ack/<device_id>                     command outcomes
//	<prefix>/system/status                       online/offline, also the LWT
type Topics struct {
	Prefix string
}

// NewTopics returns a Topics for prefix, falling back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// State returns the retained state topic for one characteristic.
func (t Topics) State(deviceID, characteristic string) string {
	return fmt.Sprintf("%s/state/%s/%s", t.Prefix, deviceID, characteristic)
}

// Command returns the topic a device's commands arrive on.
func (t Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", t.Prefix, deviceID)
}

// Ack returns the topic command acknowledgements are published on.
func (t Topics) Ack(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s", t.Prefix, deviceID)
}

// SystemStatus returns the online/offline status topic.
func (t Topics) SystemStatus() string {
	return t.Prefix + "/system/status"
}

// AllCommands is the subscription filter for every device's commands.
func (t Topics) AllCommands() string {
	return t.Prefix + "/command/+"
}

// CommandDevice extracts the device ID from a command topic.
func (t Topics) CommandDevice(topic string) (string, error) {
	deviceID, ok := strings.CutPrefix(topic, t.Command(""))
	if !ok || deviceID == "" || strings.Contains(deviceID, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return deviceID, nil
}

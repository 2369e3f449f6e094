package nest

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/redec/homebridge-nest/internal/thermostat"
)

// Snapshot is one decoded copy of the account's data tree.
type Snapshot struct {
	Thermostats map[string]thermostat.DeviceSnapshot
	Structures  map[string]thermostat.StructureSnapshot
}

// Device returns a copy of the thermostat with the given ID, or nil.
func (s Snapshot) Device(id string) *thermostat.DeviceSnapshot {
	d, ok := s.Thermostats[id]
	if !ok {
		return nil
	}
	return &d
}

// Structure returns a copy of the structure with the given ID, or nil.
func (s Snapshot) Structure(id string) *thermostat.StructureSnapshot {
	st, ok := s.Structures[id]
	if !ok {
		return nil
	}
	return &st
}

// ParseEvent decodes the data line of a "put" event, which wraps the tree
// as {"path": "/", "data": {...}}.
func ParseEvent(payload []byte) (Snapshot, error) {
	if !gjson.ValidBytes(payload) {
		return Snapshot{}, ErrInvalidPayload
	}
	event := gjson.ParseBytes(payload)
	if path := event.Get("path").String(); path != "/" {
		return Snapshot{}, fmt.Errorf("%w: unexpected path %q", ErrInvalidPayload, path)
	}
	return parseTree(event.Get("data"))
}

// ParseTree decodes a bare data tree, as returned by a GET on the API root.
func ParseTree(payload []byte) (Snapshot, error) {
	if !gjson.ValidBytes(payload) {
		return Snapshot{}, ErrInvalidPayload
	}
	return parseTree(gjson.ParseBytes(payload))
}

func parseTree(root gjson.Result) (Snapshot, error) {
	snap := Snapshot{
		Thermostats: make(map[string]thermostat.DeviceSnapshot),
		Structures:  make(map[string]thermostat.StructureSnapshot),
	}

	var decodeErr error
	root.Get("devices.thermostats").ForEach(func(key, value gjson.Result) bool {
		var d thermostat.DeviceSnapshot
		if err := json.Unmarshal([]byte(value.Raw), &d); err != nil {
			decodeErr = fmt.Errorf("%w: thermostat %s: %v", ErrInvalidPayload, key.String(), err)
			return false
		}
		if d.DeviceID == "" {
			d.DeviceID = key.String()
		}
		snap.Thermostats[d.DeviceID] = d
		return true
	})
	if decodeErr != nil {
		return Snapshot{}, decodeErr
	}

	root.Get("structures").ForEach(func(key, value gjson.Result) bool {
		var s thermostat.StructureSnapshot
		if err := json.Unmarshal([]byte(value.Raw), &s); err != nil {
			decodeErr = fmt.Errorf("%w: structure %s: %v", ErrInvalidPayload, key.String(), err)
			return false
		}
		if s.StructureID == "" {
			s.StructureID = key.String()
		}
		snap.Structures[s.StructureID] = s
		return true
	})
	if decodeErr != nil {
		return Snapshot{}, decodeErr
	}

	return snap, nil
}

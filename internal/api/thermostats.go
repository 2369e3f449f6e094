package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redec/homebridge-nest/internal/accessory"
	"github.com/redec/homebridge-nest/internal/characteristic"
)

// thermostatResponse is the JSON form of one thermostat.
type thermostatResponse struct {
	ID              string                    `json:"id"`
	UUID            string                    `json:"uuid"`
	Name            string                    `json:"name"`
	StructureID     string                    `json:"structure_id"`
	State           string                    `json:"state"`
	UsesFahrenheit  bool                      `json:"uses_fahrenheit"`
	Characteristics map[characteristic.ID]any `json:"characteristics"`
}

// characteristicResponse is the JSON form of one characteristic value.
type characteristicResponse struct {
	ID             string `json:"id"`
	Characteristic string `json:"characteristic"`
	Value          any    `json:"value"`
}

// setCharacteristicRequest is the body of a characteristic write.
type setCharacteristicRequest struct {
	Value any `json:"value"`
}

func newThermostatResponse(t *accessory.Thermostat) thermostatResponse {
	state := "uninitialized"
	if t.State() == accessory.StateReady {
		state = "ready"
	}
	return thermostatResponse{
		ID:              t.DeviceID(),
		UUID:            t.UUID().String(),
		Name:            t.Name(),
		StructureID:     t.StructureID(),
		State:           state,
		UsesFahrenheit:  t.UsesFahrenheit(),
		Characteristics: t.Values(),
	}
}

// handleListThermostats returns every registered thermostat.
func (s *Server) handleListThermostats(w http.ResponseWriter, _ *http.Request) {
	list := s.registry.List()
	thermostats := make([]thermostatResponse, 0, len(list))
	for _, t := range list {
		thermostats = append(thermostats, newThermostatResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"thermostats": thermostats, "count": len(thermostats)})
}

// handleGetThermostat returns one thermostat.
func (s *Server) handleGetThermostat(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newThermostatResponse(t))
}

// handleGetCharacteristic reads a fresh characteristic value from the
// current snapshots.
func (s *Server) handleGetCharacteristic(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	id, c, ok := s.characteristic(w, r, t)
	if !ok {
		return
	}

	value, err := c.Fetch(r.Context())
	if err != nil {
		writeInternalError(w, "failed to read characteristic")
		return
	}
	writeJSON(w, http.StatusOK, characteristicResponse{
		ID:             t.DeviceID(),
		Characteristic: string(id),
		Value:          value,
	})
}

// handleSetCharacteristic writes a characteristic and waits for Nest.
//
// Body: {"value": <number|bool>}
func (s *Server) handleSetCharacteristic(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	id, _, ok := s.characteristic(w, r, t)
	if !ok {
		return
	}

	var req setCharacteristicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.writeTimeout())
	defer cancel()

	err := t.WriteCharacteristic(ctx, id, req.Value)
	switch {
	case err == nil:
	case errors.Is(err, characteristic.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	case errors.Is(err, characteristic.ErrReadOnly):
		writeError(w, http.StatusMethodNotAllowed, ErrCodeReadOnly, string(id)+" is read-only")
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "nest did not answer in time")
		return
	default:
		s.logger.Warn("characteristic write failed",
			"device_id", t.DeviceID(),
			"characteristic", id,
			"error", err,
		)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, err.Error())
		return
	}

	c, _ := t.Characteristic(id)
	writeJSON(w, http.StatusOK, characteristicResponse{
		ID:             t.DeviceID(),
		Characteristic: string(id),
		Value:          c.Value(),
	})
}

// lookup resolves the {id} URL parameter, writing a 404 when unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*accessory.Thermostat, bool) {
	id := chi.URLParam(r, "id")
	t, err := s.registry.Get(id)
	if err != nil {
		writeNotFound(w, "thermostat not found")
		return nil, false
	}
	return t, true
}

// characteristic resolves the {characteristic} URL parameter.
func (s *Server) characteristic(w http.ResponseWriter, r *http.Request, t *accessory.Thermostat) (characteristic.ID, characteristic.Characteristic, bool) {
	id, err := characteristic.ParseID(chi.URLParam(r, "characteristic"))
	if err != nil {
		writeNotFound(w, "unknown characteristic")
		return "", nil, false
	}
	c, err := t.Characteristic(id)
	if err != nil {
		writeNotFound(w, "characteristic not bound")
		return "", nil, false
	}
	return id, c, true
}

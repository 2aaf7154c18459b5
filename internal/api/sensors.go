package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/vme-thermal/internal/monitor"
	"github.com/nerrad567/vme-thermal/internal/thermal"
)

// sensorView is the JSON form of a sensor. Reading fields are omitted until
// the sensor has been sampled.
type sensorView struct {
	Address        uint16       `json:"address"`
	Name           string       `json:"name"`
	Kind           thermal.Kind `json:"kind"`
	ScalingFactor  float64      `json:"scaling_factor"`
	Offset         float64      `json:"offset"`
	Sampled        bool         `json:"sampled"`
	RawValue       *int         `json:"raw_value,omitempty"`
	MinRawValue    *int         `json:"min_raw_value,omitempty"`
	MaxRawValue    *int         `json:"max_raw_value,omitempty"`
	Temperature    *float64     `json:"temperature,omitempty"`
	MinTemperature *float64     `json:"min_temperature,omitempty"`
	MaxTemperature *float64     `json:"max_temperature,omitempty"`
}

func newSensorView(s *thermal.Sensor) sensorView {
	v := sensorView{
		Address:       s.Address(),
		Name:          s.Name(),
		Kind:          s.Kind(),
		ScalingFactor: s.ScalingFactor(),
		Offset:        s.Offset(),
		Sampled:       s.Sampled(),
	}
	if !v.Sampled {
		return v
	}

	// The getters only fail before the first sample.
	raw, _ := s.RawValue()
	minRaw, _ := s.MinRawValue()
	maxRaw, _ := s.MaxRawValue()
	temp, _ := s.Temperature()
	minTemp, _ := s.MinTemperature()
	maxTemp, _ := s.MaxTemperature()
	v.RawValue, v.MinRawValue, v.MaxRawValue = &raw, &minRaw, &maxRaw
	v.Temperature, v.MinTemperature, v.MaxTemperature = &temp, &minTemp, &maxTemp
	return v
}

// addSensorRequest is the body of POST /sensors.
type addSensorRequest struct {
	Address       *uint16  `json:"address"`
	Kind          string   `json:"kind"`
	Name          string   `json:"name"`
	ScalingFactor *float64 `json:"scaling_factor"`
	Offset        float64  `json:"offset"`
}

// handleListSensors returns every registered sensor ordered by address.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	sensors := s.monitor.Sensors()
	views := make([]sensorView, 0, len(sensors))
	for i := range sensors {
		views = append(views, newSensorView(&sensors[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sensors": views,
		"count":   len(views),
	})
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	address, ok := addressParam(w, r)
	if !ok {
		return
	}

	sensor, err := s.monitor.Sensor(address)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSensorView(&sensor))
}

// handleAddSensor registers a new sensor. An occupied address is a conflict;
// remove the sensor first to replace it.
func (s *Server) handleAddSensor(w http.ResponseWriter, r *http.Request) {
	var req addSensorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Address == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "address is required")
		return
	}
	kind, err := thermal.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	address := *req.Address
	if _, err := s.monitor.Sensor(address); err == nil {
		writeError(w, http.StatusConflict, ErrCodeConflict, "a sensor is already registered at address "+strconv.Itoa(int(address)))
		return
	}

	opts := []thermal.Option{}
	if req.Name != "" {
		opts = append(opts, thermal.WithName(req.Name))
	}
	scalingFactor := thermal.DefaultScalingFactor
	if req.ScalingFactor != nil {
		scalingFactor = *req.ScalingFactor
	}
	opts = append(opts, thermal.WithCalibration(scalingFactor, req.Offset))

	if err := s.monitor.AddSensor(address, kind, opts...); err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("sensor added via API", "address", address, "kind", kind.Code(), "by", subject(r.Context()))

	sensor, err := s.monitor.Sensor(address)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSensorView(&sensor))
}

func (s *Server) handleRemoveSensor(w http.ResponseWriter, r *http.Request) {
	address, ok := addressParam(w, r)
	if !ok {
		return
	}

	if err := s.monitor.RemoveSensor(address); err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("sensor removed via API", "address", address, "by", subject(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// handleSetCalibration updates scaling factor and/or offset. Omitted fields
// keep their current values; at least one must be given.
func (s *Server) handleSetCalibration(w http.ResponseWriter, r *http.Request) {
	address, ok := addressParam(w, r)
	if !ok {
		return
	}

	var cmd monitor.CalibrationCommand
	if !decodeBody(w, r, &cmd) {
		return
	}
	if cmd.ScalingFactor == nil && cmd.Offset == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "scaling_factor or offset is required")
		return
	}

	if err := s.monitor.ApplyCalibration(address, cmd); err != nil {
		writeDomainError(w, err)
		return
	}

	sensor, err := s.monitor.Sensor(address)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSensorView(&sensor))
}

// addressParam parses the {address} URL parameter, writing a 400 on failure.
func addressParam(w http.ResponseWriter, r *http.Request) (uint16, bool) {
	raw := chi.URLParam(r, "address")
	address, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		writeBadRequest(w, "invalid sensor address: "+raw)
		return 0, false
	}
	return uint16(address), true
}

// decodeBody decodes a JSON request body into v, writing a 400 or 413 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return false
		}
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

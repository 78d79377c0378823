package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Moritzheine/growflow-homeassistant/internal/actions"
	"github.com/Moritzheine/growflow-homeassistant/internal/entity"
	"github.com/Moritzheine/growflow-homeassistant/internal/eventbus"
	"github.com/Moritzheine/growflow-homeassistant/internal/grow"
	"github.com/Moritzheine/growflow-homeassistant/internal/manager"
)

type createPlantRequest struct {
	ID                   string `json:"id,omitempty"`
	Name                 string `json:"name"`
	Strain               string `json:"strain,omitempty"`
	Growbox              string `json:"growbox,omitempty"`
	PlantedDate          string `json:"planted_date,omitempty"`
	Phase                string `json:"phase,omitempty"`
	DefaultWaterVolumeML int    `json:"default_water_volume_ml,omitempty"`
}

func (s *Server) handleCreatePlant(w http.ResponseWriter, r *http.Request) {
	var req createPlantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	params := manager.CreatePlantParams{
		ID:                   req.ID,
		Name:                 req.Name,
		Strain:               req.Strain,
		Growbox:              req.Growbox,
		Phase:                grow.Phase(req.Phase),
		DefaultWaterVolumeML: req.DefaultWaterVolumeML,
	}
	if req.PlantedDate != "" {
		planted, err := time.Parse(time.RFC3339, req.PlantedDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "planted_date must be RFC3339"})
			return
		}
		params.PlantedDate = planted
	}

	p, err := s.mgr.CreatePlant(params)
	if err != nil {
		writeError(w, err)
		return
	}
	s.syncEntities()
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListPlants(w http.ResponseWriter, r *http.Request) {
	plants, err := s.mgr.Plants()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plants)
}

func (s *Server) handleGetPlant(w http.ResponseWriter, r *http.Request) {
	p, err := s.mgr.Plant(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePlant(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.DeletePlant(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	s.syncEntities()
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleChangePhase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phase string `json:"phase"`
		Note  string `json:"note,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Phase == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phase is required"})
		return
	}

	err := s.invoker.Invoke(r.Context(), actions.ActionChangePhase, map[string]any{
		"plant_id": r.PathValue("id"),
		"phase":    req.Phase,
		"note":     req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogWatering(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VolumeML int    `json:"volume_ml"`
		Note     string `json:"note,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.invoker.Invoke(r.Context(), actions.ActionWaterPlant, map[string]any{
		"plant_id":  r.PathValue("id"),
		"volume_ml": req.VolumeML,
		"note":      req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuickWater(w http.ResponseWriter, r *http.Request) {
	err := s.invoker.Invoke(r.Context(), actions.ActionWaterPlantQuick, map[string]any{
		"plant_id": r.PathValue("id"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Note == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "note is required"})
		return
	}

	err := s.invoker.Invoke(r.Context(), actions.ActionAddNote, map[string]any{
		"plant_id": r.PathValue("id"),
		"note":     req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetDefaultVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VolumeML int `json:"volume_ml"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.mgr.SetDefaultWaterVolume(r.PathValue("id"), req.VolumeML); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePlantMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.mgr.PlantMetrics(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handlePlantEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := s.events.GetByPlant(r.PathValue("id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type createGrowboxRequest struct {
	ID                string  `json:"id,omitempty"`
	Name              string  `json:"name"`
	TemperatureSensor string  `json:"temperature_sensor,omitempty"`
	HumiditySensor    string  `json:"humidity_sensor,omitempty"`
	TargetVPD         float64 `json:"target_vpd,omitempty"`
}

func (s *Server) handleCreateGrowbox(w http.ResponseWriter, r *http.Request) {
	var req createGrowboxRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	g, err := s.mgr.CreateGrowbox(manager.CreateGrowboxParams{
		ID:                req.ID,
		Name:              req.Name,
		TemperatureSensor: req.TemperatureSensor,
		HumiditySensor:    req.HumiditySensor,
		TargetVPD:         req.TargetVPD,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.syncEntities()
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleListGrowboxes(w http.ResponseWriter, r *http.Request) {
	growboxes, err := s.mgr.Growboxes()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, growboxes)
}

func (s *Server) handleGetGrowbox(w http.ResponseWriter, r *http.Request) {
	g, err := s.mgr.Growbox(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGrowbox(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.DeleteGrowbox(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	s.syncEntities()
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSetTargetVPD(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetVPD float64 `json:"target_vpd"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TargetVPD <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target_vpd must be positive"})
		return
	}

	if err := s.mgr.SetTargetVPD(r.PathValue("id"), req.TargetVPD); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGrowboxMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.mgr.GrowboxMetrics(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleIngestSensor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sensor string   `json:"sensor"`
		Value  *float64 `json:"value"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Sensor == "" || req.Value == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sensor and value are required"})
		return
	}

	if s.readings != nil {
		if err := s.readings.Record(req.Sensor, *req.Value); err != nil {
			writeError(w, err)
			return
		}
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventTypeSensorReading,
			Data: map[string]any{"sensor": req.Sensor, "value": *req.Value},
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	if s.entities == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.entities.Values())
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.entities == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entity not found"})
		return
	}
	e, ok := s.entities.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entity not found"})
		return
	}
	value, err := e.Value()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "value": value})
}

// syncEntities reconciles the entity registry after a plant or growbox is
// created or removed.
func (s *Server) syncEntities() {
	if s.entities == nil {
		return
	}
	if err := entity.Sync(s.entities, s.mgr); err != nil {
		log.Error().Err(err).Msg("Failed to sync entities")
	}
}

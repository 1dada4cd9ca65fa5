package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"socdash/internal/alerts"
	"socdash/internal/dataset"
	"socdash/internal/logger"
	"socdash/internal/output/csvexport"
	"socdash/pkg/models"
)

var countFields = map[string]struct{}{
	models.FieldEvent:     {},
	models.FieldCountry:   {},
	models.FieldRiskLevel: {},
	models.FieldDevice:    {},
	models.FieldPackage:   {},
}

type alertsResponse struct {
	Rule          string         `json:"rule"`
	Scope         string         `json:"scope"`
	Trigger       string         `json:"trigger"`
	WindowMinutes int            `json:"window_minutes"`
	Threshold     int            `json:"threshold"`
	Groups        int            `json:"groups"`
	SkippedGroups int            `json:"skipped_groups"`
	Alerts        []models.Alert `json:"alerts"`
}

type levelRange struct {
	Level models.RiskLevel `json:"level"`
	Min   int              `json:"min"`
	Max   int              `json:"max"`
}

type optionsResponse struct {
	From      string              `json:"from,omitempty"`
	To        string              `json:"to,omitempty"`
	Levels    []levelRange        `json:"levels"`
	Values    map[string][]string `json:"values"`
	Malformed int                 `json:"malformed_rows"`
}

var optionFields = []string{
	models.FieldEvent,
	models.FieldCountry,
	models.FieldPackage,
	models.FieldAppVersion,
	models.FieldBuildNumber,
	models.FieldEnvironment,
	models.FieldSessionID,
}

// handleOptions describes the unfiltered dataset so a client can build its
// filter controls.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	resp := optionsResponse{
		Values:    make(map[string][]string, len(optionFields)),
		Malformed: len(s.data.Failures()),
	}
	if first, last, ok := s.data.DateBounds(); ok {
		resp.From = first.Format(dateLayout)
		resp.To = last.Format(dateLayout)
	}
	for _, level := range models.RiskLevels() {
		lo, hi := s.scorer.Range(level)
		resp.Levels = append(resp.Levels, levelRange{Level: level, Min: lo, Max: hi})
	}
	for _, field := range optionFields {
		resp.Values[field] = orEmpty(s.data.Distinct(field))
	}
	writeJSON(w, http.StatusOK, resp)
}

// filtered returns the dataset view selected by the request, or writes a
// 400 and returns nil.
func (s *Server) filtered(w http.ResponseWriter, r *http.Request) *dataset.Dataset {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	return s.data.Filter(f)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds := s.filtered(w, r)
	if ds == nil {
		return
	}
	writeJSON(w, http.StatusOK, ds.Summary())
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	if _, ok := countFields[field]; !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported count field %q", field))
		return
	}
	ds := s.filtered(w, r)
	if ds == nil {
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(ds.CountsBy(field)))
}

func (s *Server) handleGeo(w http.ResponseWriter, r *http.Request) {
	ds := s.filtered(w, r)
	if ds == nil {
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(ds.Geo()))
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	ds := s.filtered(w, r)
	if ds == nil {
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(ds.TimeSeries()))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ds := s.filtered(w, r)
	if ds == nil {
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(ds.Events()))
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	ds := s.filtered(w, r)
	if ds == nil {
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(ds.Devices()))
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	ds := s.filtered(w, r)
	if ds == nil {
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(ds.DeviceEvents(chi.URLParam(r, "device")).Events()))
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	cfg, err := alertOverrides(r.URL.Query(), s.alerts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	detector, err := alerts.NewDetector(cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds := s.filtered(w, r)
	if ds == nil {
		return
	}

	res := detector.Run(ds.Events())
	eff := detector.Config()
	writeJSON(w, http.StatusOK, alertsResponse{
		Rule:          detector.Rule(),
		Scope:         eff.GroupBy,
		Trigger:       eff.TriggerEvent,
		WindowMinutes: int(eff.Window.Minutes()),
		Threshold:     eff.Threshold,
		Groups:        res.Groups,
		SkippedGroups: res.SkippedGroups,
		Alerts:        orEmpty(res.Alerts),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ds := s.filtered(w, r)
	if ds == nil {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvexport.DefaultFileName))
	if err := csvexport.Write(w, ds.Events()); err != nil {
		logger.Errorf("CSV export failed: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func orEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/analyzer"
	"github.com/portops/triage-cli/internal/docparse"
	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/monitoring"
	"github.com/portops/triage-cli/internal/store"
	"github.com/portops/triage-cli/internal/ticketing"
)

// maxImportBytes caps the document body accepted by the knowledge import
// endpoint.
const maxImportBytes = 10 << 20

const defaultListLimit = 50

// api bundles the collaborators behind the HTTP surface. The router is
// assembled separately from the serve command so handler tests can drive
// it without a listener.
type api struct {
	store    store.Store
	triage   *analyzer.Analyzer
	tickets  *ticketing.Service
	metrics  *monitoring.Collector
	lookback int
}

func newAPI(st store.Store, an *analyzer.Analyzer, tickets *ticketing.Service, lookbackHours int) *api {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	return &api{
		store:    st,
		triage:   an,
		tickets:  tickets,
		metrics:  monitoring.NewCollector(st),
		lookback: lookbackHours,
	}
}

// router assembles the versioned API. origins configures CORS; empty
// means allow all, matching the default the reporting front ends expect.
func (a *api) router(origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", a.handleAnalyze)
		r.Get("/metrics", a.handleMetrics)

		r.Route("/incidents", func(r chi.Router) {
			r.Get("/", a.handleListIncidents)
			r.Get("/{id}", a.handleGetIncident)
			r.Post("/{id}/escalate", a.handleEscalateIncident)
			r.Post("/{id}/ticket", a.handleTicketIncident)
		})

		r.Route("/training", func(r chi.Router) {
			r.Get("/", a.handleListTraining)
			r.Post("/", a.handleCreateTraining)
			r.Put("/{id}", a.handleUpdateTraining)
			r.Delete("/{id}", a.handleDeleteTraining)
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/", a.handleListKnowledge)
			r.Post("/", a.handleCreateKnowledge)
			r.Post("/import", a.handleImportKnowledge)
			r.Put("/{id}", a.handleUpdateKnowledge)
			r.Delete("/{id}", a.handleDeleteKnowledge)
		})
	})

	return r
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
		Reporter    string `json:"reporter"`
		Plan        bool   `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	// Provider failures degrade to the rule-based analysis inside
	// Analyze; the request still succeeds.
	analysis, err := a.triage.Analyze(r.Context(), description)
	if err != nil {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	incident, err := a.store.CreateIncident(r.Context(), model.Incident{
		Description: description,
		Source:      model.SourceAPI,
		Reporter:    req.Reporter,
		Analysis:    analysis,
	})
	if err != nil {
		zap.L().Error("api: persist incident failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "persist incident failed")
		return
	}

	resp := struct {
		Incident model.Incident        `json:"incident"`
		Plan     *model.ResolutionPlan `json:"plan,omitempty"`
	}{Incident: *incident}

	if req.Plan {
		plan := a.triage.GenerateResolutionPlan(r.Context(), description, analysis)
		resp.Plan = &plan
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	filter := store.IncidentFilter{
		Status: model.IncidentStatus(r.URL.Query().Get("status")),
		Source: model.IncidentSource(r.URL.Query().Get("source")),
		Limit:  intQuery(r, "limit", defaultListLimit),
		Offset: intQuery(r, "offset", 0),
	}

	incidents, err := a.store.ListIncidents(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list incidents failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list incidents failed")
		return
	}
	if incidents == nil {
		incidents = []model.Incident{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"incidents": incidents,
		"count":     len(incidents),
	})
}

func (a *api) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	incident, ok := a.loadIncident(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incident": incident})
}

func (a *api) handleEscalateIncident(w http.ResponseWriter, r *http.Request) {
	incident, ok := a.loadIncident(w, r)
	if !ok {
		return
	}

	summary := a.triage.GenerateEscalationSummary(r.Context(), *incident)

	if err := a.store.UpdateIncidentStatus(r.Context(), incident.ID, model.IncidentEscalated); err != nil {
		zap.L().Error("api: escalate incident failed", zap.String("incident", incident.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update incident status failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"incident_id": incident.ID,
		"reference":   incident.Reference,
		"status":      model.IncidentEscalated,
		"summary":     summary,
	})
}

func (a *api) handleTicketIncident(w http.ResponseWriter, r *http.Request) {
	incident, ok := a.loadIncident(w, r)
	if !ok {
		return
	}

	key, err := a.tickets.CreateTicket(r.Context(), *incident)
	if err != nil {
		zap.L().Error("api: ticket creation failed",
			zap.String("incident", incident.ID),
			zap.String("backend", a.tickets.Backend()),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "ticket creation failed")
		return
	}

	if err := a.store.SetIncidentTicket(r.Context(), incident.ID, key); err != nil {
		zap.L().Error("api: record ticket key failed", zap.String("incident", incident.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "record ticket key failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"incident_id": incident.ID,
		"reference":   incident.Reference,
		"ticket_key":  key,
		"backend":     a.tickets.Backend(),
	})
}

func (a *api) handleListTraining(w http.ResponseWriter, r *http.Request) {
	filter := store.TrainingFilter{
		Category: r.URL.Query().Get("category"),
		Limit:    intQuery(r, "limit", defaultListLimit),
		Offset:   intQuery(r, "offset", 0),
	}

	examples, err := a.store.ListTraining(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list training failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list training failed")
		return
	}
	if examples == nil {
		examples = []model.TrainingExample{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"training": examples,
		"count":    len(examples),
	})
}

func (a *api) handleCreateTraining(w http.ResponseWriter, r *http.Request) {
	var example model.TrainingExample
	if err := json.NewDecoder(r.Body).Decode(&example); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(example.Description) == "" || strings.TrimSpace(example.IncidentType) == "" {
		writeError(w, http.StatusBadRequest, "description and incident_type are required")
		return
	}

	created, err := a.store.CreateTraining(r.Context(), example)
	if err != nil {
		zap.L().Error("api: create training failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create training failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"training": created})
}

func (a *api) handleUpdateTraining(w http.ResponseWriter, r *http.Request) {
	var example model.TrainingExample
	if err := json.NewDecoder(r.Body).Decode(&example); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	example.ID = chi.URLParam(r, "id")

	if err := a.store.UpdateTraining(r.Context(), example); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "training example not found")
			return
		}
		zap.L().Error("api: update training failed", zap.String("id", example.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update training failed")
		return
	}

	updated, err := a.store.GetTraining(r.Context(), example.ID)
	if err != nil {
		zap.L().Error("api: reload training failed", zap.String("id", example.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update training failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"training": updated})
}

func (a *api) handleDeleteTraining(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.store.DeleteTraining(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "training example not found")
			return
		}
		zap.L().Error("api: delete training failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "delete training failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleListKnowledge(w http.ResponseWriter, r *http.Request) {
	filter := store.KnowledgeFilter{
		Status:   model.KnowledgeStatus(r.URL.Query().Get("status")),
		Category: r.URL.Query().Get("category"),
		Limit:    intQuery(r, "limit", defaultListLimit),
		Offset:   intQuery(r, "offset", 0),
	}

	entries, err := a.store.ListKnowledge(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list knowledge failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list knowledge failed")
		return
	}
	if entries == nil {
		entries = []model.KnowledgeEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"knowledge": entries,
		"count":     len(entries),
	})
}

func (a *api) handleCreateKnowledge(w http.ResponseWriter, r *http.Request) {
	var entry model.KnowledgeEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(entry.Title) == "" || strings.TrimSpace(entry.Content) == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	created, err := a.store.CreateKnowledge(r.Context(), entry)
	if err != nil {
		zap.L().Error("api: create knowledge failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create knowledge failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"knowledge": created})
}

func (a *api) handleUpdateKnowledge(w http.ResponseWriter, r *http.Request) {
	var entry model.KnowledgeEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry.ID = chi.URLParam(r, "id")

	if err := a.store.UpdateKnowledge(r.Context(), entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "knowledge entry not found")
			return
		}
		zap.L().Error("api: update knowledge failed", zap.String("id", entry.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update knowledge failed")
		return
	}

	updated, err := a.store.GetKnowledge(r.Context(), entry.ID)
	if err != nil {
		zap.L().Error("api: reload knowledge failed", zap.String("id", entry.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update knowledge failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"knowledge": updated})
}

func (a *api) handleDeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.store.DeleteKnowledge(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "knowledge entry not found")
			return
		}
		zap.L().Error("api: delete knowledge failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "delete knowledge failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportKnowledge accepts a raw document body, splits it into
// knowledge drafts, and persists each one. The filename query parameter
// names the upload for the parser's format detection.
func (a *api) handleImportKnowledge(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "upload.txt"
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body failed")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "request body is empty")
		return
	}

	var entries []model.KnowledgeEntry
	for _, draft := range docparse.ParseDocument(filename, data) {
		created, err := a.store.CreateKnowledge(r.Context(), draft.Entry())
		if err != nil {
			zap.L().Error("api: import knowledge entry failed", zap.String("title", draft.Title), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "import knowledge failed")
			return
		}
		entries = append(entries, *created)
	}
	if entries == nil {
		entries = []model.KnowledgeEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"knowledge": entries,
		"count":     len(entries),
	})
}

func (a *api) handleMetrics(w http.ResponseWriter, r *http.Request) {
	hours := intQuery(r, "hours", a.lookback)

	snap, err := a.metrics.Collect(r.Context(), hours)
	if err != nil {
		zap.L().Error("api: collect metrics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "collect metrics failed")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// loadIncident resolves the {id} path parameter, which may be a row id or
// an INC reference, writing the error response itself on failure.
func (a *api) loadIncident(w http.ResponseWriter, r *http.Request) (*model.Incident, bool) {
	key := chi.URLParam(r, "id")

	incident, err := a.store.GetIncident(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "incident not found")
			return nil, false
		}
		zap.L().Error("api: load incident failed", zap.String("incident", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "load incident failed")
		return nil, false
	}
	return incident, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

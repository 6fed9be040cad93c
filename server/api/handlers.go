package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoCodeAlone/docket/catalog"
	"github.com/GoCodeAlone/docket/comms"
	"github.com/GoCodeAlone/docket/deadline"
	"github.com/GoCodeAlone/docket/engine"
	"github.com/GoCodeAlone/docket/lawcase"
	"github.com/GoCodeAlone/docket/matrix"
	"github.com/GoCodeAlone/docket/task"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Service *engine.Service
	Bus     comms.Bus
	Logger  *slog.Logger
	Version string
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks", h.listTasks)
	mux.HandleFunc("POST /api/tasks", h.createTask)
	mux.HandleFunc("GET /api/tasks/{id}", h.getTask)
	mux.HandleFunc("PATCH /api/tasks/{id}", h.updateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.deleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/assign", h.assignTask)
	mux.HandleFunc("POST /api/tasks/{id}/complete", h.completeTask)
	mux.HandleFunc("POST /api/tasks/{id}/cycle", h.cycleTask)

	mux.HandleFunc("POST /api/cases/{id}/generate", h.generate)

	mux.HandleFunc("GET /api/templates", h.listTemplates)
	mux.HandleFunc("GET /api/templates/{stage}", h.stageTemplate)

	mux.HandleFunc("GET /api/alerts/sol", h.solAlerts)
	mux.HandleFunc("GET /api/alerts/ante-litem", h.anteLitemAlerts)
	mux.HandleFunc("GET /api/matrix", h.matrix)

	mux.HandleFunc("GET /api/activity", h.activity)

	mux.HandleFunc("GET /api/me", h.me)
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/version", h.version)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps an engine error onto an HTTP status.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, task.ErrNotFound),
		errors.Is(err, lawcase.ErrNotFound),
		errors.Is(err, catalog.ErrTemplateNotFound),
		errors.Is(err, catalog.ErrNoActiveTemplate):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, task.ErrInvalidTransition),
		errors.Is(err, engine.ErrAlreadyGenerated):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, task.ErrValidation),
		errors.Is(err, catalog.ErrInvalidTemplate):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger().Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// --- Task handlers ---

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	q := r.URL.Query()
	filter := task.Filter{
		CaseID:     q.Get("case_id"),
		AssignedTo: q.Get("assigned_to"),
		Stage:      lawcase.Stage(q.Get("stage")),
		TemplateID: q.Get("template_id"),
	}
	if s := q.Get("status"); s != "" {
		st := task.Status(s)
		filter.Status = &st
	}

	views := h.Service.Search(filter, actor)
	if views == nil {
		views = []task.View{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var t task.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	created, err := h.Service.Create(r.Context(), actor, t)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	v, err := h.Service.Task(r.PathValue("id"), actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var p task.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	t, err := h.Service.Update(r.Context(), actor, r.PathValue("id"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	if err := h.Service.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) assignTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var a task.Assignee
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	t, err := h.Service.Assign(r.Context(), actor, r.PathValue("id"), a)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) completeTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	t, err := h.Service.Complete(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) cycleTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	t, err := h.Service.Cycle(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- Generation ---

type generateRequest struct {
	Stage lawcase.Stage `json:"stage,omitempty"` // empty: the case's current stage
}

func (h *Handlers) generate(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	created, err := h.Service.Generate(r.Context(), actor, r.PathValue("id"), req.Stage)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// --- Templates ---

func (h *Handlers) listTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Catalog().Templates())
}

func (h *Handlers) stageTemplate(w http.ResponseWriter, r *http.Request) {
	stage := lawcase.Stage(r.PathValue("stage"))
	if !stage.Valid() {
		writeError(w, http.StatusBadRequest, "unknown stage "+string(stage))
		return
	}
	tpl, err := h.Service.Catalog().TemplateForStage(stage)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// --- Deadlines and dashboard ---

// AlertsResponse is the body of the deadline alert endpoints.
type AlertsResponse struct {
	Entries []deadline.Entry `json:"entries"`
	Summary deadline.Summary `json:"summary"`
}

func (h *Handlers) solAlerts(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.SOLAlerts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeAlerts(w, entries)
}

func (h *Handlers) anteLitemAlerts(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.AnteLitemAlerts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeAlerts(w, entries)
}

func writeAlerts(w http.ResponseWriter, entries []deadline.Entry) {
	if entries == nil {
		entries = []deadline.Entry{}
	}
	writeJSON(w, http.StatusOK, AlertsResponse{Entries: entries, Summary: deadline.Summarize(entries)})
}

// MatrixResponse is the body of GET /api/matrix.
type MatrixResponse struct {
	Columns []string     `json:"columns"`
	Rows    []matrix.Row `json:"rows"`
	Totals  matrix.Stats `json:"totals"`
}

func (h *Handlers) matrix(w http.ResponseWriter, r *http.Request) {
	m, err := h.Service.Matrix(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows := m.Rows
	if rows == nil {
		rows = []matrix.Row{}
	}
	writeJSON(w, http.StatusOK, MatrixResponse{Columns: m.Columns, Rows: rows, Totals: m.Totals()})
}

// --- Activity ---

func (h *Handlers) activity(w http.ResponseWriter, r *http.Request) {
	if h.Bus == nil {
		writeJSON(w, http.StatusOK, []*comms.Event{})
		return
	}
	caseID := r.URL.Query().Get("case_id")
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}

	actor, _ := ActorFrom(r.Context())
	history, err := h.Bus.History(caseID, 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Service.Activity(history, caseID, actor, limit))
}

// --- Identity / status / version ---

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no actor")
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.Version,
	})
}

// StatusHandler returns the status handler function for external registration.
func (h *Handlers) StatusHandler() http.HandlerFunc {
	return h.status
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
	})
}

package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fieldreg/internal/diff"
	"fieldreg/internal/platform/metrics"
	"fieldreg/internal/platform/middleware"
	"fieldreg/internal/records"
	"fieldreg/internal/registration"
	"fieldreg/internal/session"
	"fieldreg/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/registration-mocks.go -package=mocks Service

// Service is the registration workflow as seen by the HTTP layer.
type Service interface {
	Login(ctx context.Context, document string) (registration.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Me(ctx context.Context, sessionID string) (session.Actor, error)
	Summary(ctx context.Context, sessionID string) (registration.Summary, error)
	OpenForm(ctx context.Context, sessionID string, req registration.OpenRequest) (registration.FormState, error)
	Form(ctx context.Context, sessionID, formID string) (registration.FormState, error)
	Await(ctx context.Context, sessionID, formID string) (registration.FormState, error)
	SetField(ctx context.Context, sessionID, formID, key, value string) (registration.FieldResult, error)
	ReloadOptions(ctx context.Context, sessionID, formID, level string) (registration.FormState, error)
	Preview(ctx context.Context, sessionID, formID string) (diff.Payload, error)
	Submit(ctx context.Context, sessionID, formID string) (registration.SubmitResult, error)
	CloseForm(ctx context.Context, sessionID, formID string) error
	Replicas(ctx context.Context, sessionID string, p records.Page) (records.PageResult[records.Replica], error)
	Registrations(ctx context.Context, sessionID string, replicaID int64, p records.Page) (records.PageResult[records.Registration], error)
}

// Handler serves the registration API.
type Handler struct {
	service  Service
	sessions middleware.SessionValidator
	logger   *slog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// New creates a Handler. sessions resolves the X-Session-ID header.
func New(service Service, sessions middleware.SessionValidator, logger *slog.Logger, m *metrics.Metrics, timeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		service:  service,
		sessions: sessions,
		logger:   logger,
		metrics:  m,
		timeout:  timeout,
	}
}

// Register mounts the API routes under /v1.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Recovery(h.logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.ClientMetadata)
	api.Use(middleware.Logger(h.logger))
	api.Use(middleware.Timeout(h.timeout))
	api.Use(middleware.ContentTypeJSON)
	api.Use(middleware.LatencyMiddleware(h.metrics))

	api.Post("/session", h.handleLogin)

	// The ambassador signup form is opened before any session exists.
	api.Group(func(r chi.Router) {
		r.Use(middleware.OptionalSession(h.sessions, h.logger))
		r.Post("/forms", h.handleOpenForm)
		r.Route("/forms/{formID}", func(r chi.Router) {
			r.Get("/", h.handleGetForm)
			r.Delete("/", h.handleCloseForm)
			r.Put("/fields/{key}", h.handleSetField)
			r.Post("/options/{level}/reload", h.handleReloadOptions)
			r.Get("/payload", h.handlePreview)
			r.Post("/submit", h.handleSubmit)
		})
	})

	api.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(h.sessions, h.logger))
		r.Delete("/session", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.Get("/me/summary", h.handleSummary)
		r.Get("/replicas", h.handleReplicas)
		r.Get("/replicas/{replicaID}/registrations", h.handleReplicaRegistrations)
		r.Get("/registrations", h.handleRegistrations)
	})

	r.Mount("/v1", api)
}

type loginRequest struct {
	Document string `json:"document"`
}

type fieldRequest struct {
	Value string `json:"value"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.Login(ctx, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "ambassador logged in",
		"request_id", middleware.GetRequestID(ctx),
		"ambassador_id", res.Actor.Ambassador.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Logout(ctx, middleware.GetSessionID(ctx)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := h.service.Me(ctx, middleware.GetSessionID(ctx))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, actor)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sum, err := h.service.Summary(ctx, middleware.GetSessionID(ctx))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sum)
}

func (h *Handler) handleOpenForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registration.OpenRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, err := h.service.OpenForm(ctx, middleware.GetSessionID(ctx), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, st)
}

// handleGetForm returns the form state. With ?settle=true it first waits for
// pending option loads and code lookups.
func (h *Handler) handleGetForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, formID := middleware.GetSessionID(ctx), chi.URLParam(r, "formID")

	var (
		st  registration.FormState
		err error
	)
	if settle, _ := strconv.ParseBool(r.URL.Query().Get("settle")); settle {
		st, err = h.service.Await(ctx, sessionID, formID)
	} else {
		st, err = h.service.Form(ctx, sessionID, formID)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handleCloseForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.CloseForm(ctx, middleware.GetSessionID(ctx), chi.URLParam(r, "formID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req fieldRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.SetField(ctx, middleware.GetSessionID(ctx), chi.URLParam(r, "formID"), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleReloadOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := h.service.ReloadOptions(ctx, middleware.GetSessionID(ctx), chi.URLParam(r, "formID"), chi.URLParam(r, "level"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, err := h.service.Preview(ctx, middleware.GetSessionID(ctx), chi.URLParam(r, "formID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"payload": payload})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.service.Submit(ctx, middleware.GetSessionID(ctx), chi.URLParam(r, "formID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Payload == nil {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, res)
}

func (h *Handler) handleReplicas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	res, err := h.service.Replicas(ctx, middleware.GetSessionID(ctx), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleReplicaRegistrations(w http.ResponseWriter, r *http.Request) {
	replicaID, err := strconv.ParseInt(chi.URLParam(r, "replicaID"), 10, 64)
	if err != nil || replicaID <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error:       "bad_request",
			Description: "replica id must be a positive integer",
		})
		return
	}
	h.registrations(w, r, replicaID)
}

func (h *Handler) handleRegistrations(w http.ResponseWriter, r *http.Request) {
	h.registrations(w, r, 0)
}

func (h *Handler) registrations(w http.ResponseWriter, r *http.Request, replicaID int64) {
	ctx := r.Context()
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	res, err := h.service.Registrations(ctx, middleware.GetSessionID(ctx), replicaID, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error:       "bad_request",
			Description: "invalid request body",
		})
		return false
	}
	return true
}

// page reads ?limit= and ?skip=.
func (h *Handler) page(w http.ResponseWriter, r *http.Request) (records.Page, bool) {
	var p records.Page
	q := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &p.Limit, "skip": &p.Skip} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, http.StatusBadRequest, httputil.ErrorResponse{
				Error:       "bad_request",
				Description: name + " must be a non-negative integer",
			})
			return records.Page{}, false
		}
		*dst = n
	}
	return p, true
}

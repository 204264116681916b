package groupshandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	groupsservice "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/application"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/groupconfig"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability/attr"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/jwt"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

const (
	maxDocumentBytes = 32 << 20
	defaultRunsLimit = 20
	maxRunsLimit     = 200
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Enqueuer schedules a generation in the background and returns the job id.
type Enqueuer interface {
	EnqueueGeneration(ctx context.Context, req groupsservice.GenerateRequest) (int64, error)
}

// HTTPHandlers serves the competitions API.
type HTTPHandlers struct {
	service  groupsservice.Service
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewHTTPHandlers creates the API handlers. A nil enqueuer disables
// asynchronous generation.
func NewHTTPHandlers(service groupsservice.Service, enqueuer Enqueuer, logger *slog.Logger) *HTTPHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandlers{service: service, enqueuer: enqueuer, logger: logger}
}

// RouteOptions configures the middleware stack of Routes.
type RouteOptions struct {
	AllowedOrigins []string
	// Limiter caps all requests per client address.
	Limiter *RateLimiter
	// EngineLimiter caps preview, generate, materialize and export per
	// competition and caller.
	EngineLimiter *RateLimiter
	// Tokens enables bearer authentication when set.
	Tokens jwt.Service
}

// Routes mounts the API under /api/competitions.
func Routes(r chi.Router, h *HTTPHandlers, opts RouteOptions) {
	r.Route("/api/competitions", func(r chi.Router) {
		r.Use(CORSMiddleware(opts.AllowedOrigins))
		if opts.Limiter != nil {
			r.Use(RateLimitMiddleware(opts.Limiter, ClientAddress))
		}
		if opts.Tokens != nil {
			r.Use(BearerAuthMiddleware(opts.Tokens))
		}

		r.Post("/", h.ImportCompetition)

		r.Route("/{competitionID}", func(r chi.Router) {
			r.Use(CompetitionAccessMiddleware)
			r.Get("/", h.GetCompetition)
			r.Get("/runs", h.ListGenerationRuns)

			r.Route("/rounds/{roundCode}", func(r chi.Router) {
				r.Put("/config", h.ConfigureGroups)
				r.Group(func(r chi.Router) {
					if opts.EngineLimiter != nil {
						r.Use(RateLimitMiddleware(opts.EngineLimiter, CompetitionCaller))
					}
					r.Post("/groups", h.MaterializeGroups)
					r.Post("/preview", h.PreviewAssignments)
					r.Post("/assignments", h.GenerateAssignments)
					r.Get("/export", h.ExportAssignments)
				})
			})
		})
	})
}

// generateBody is the optional body of preview and generate requests.
type generateBody struct {
	Options         *generators.Options `json:"options,omitempty"`
	ExpectedVersion int64               `json:"expectedVersion,omitempty"`
}

type enqueuedResponse struct {
	JobID         int64  `json:"jobId"`
	CompetitionID string `json:"competitionId"`
	RoundCode     string `json:"roundCode"`
}

// ImportCompetition stores a WCIF document.
func (h *HTTPHandlers) ImportCompetition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var doc wcif.Competition
	if err := decodeBody(w, r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if claims, ok := ClaimsFromContext(ctx); ok && (!claims.CanAccess(doc.ID) || !claims.CanWrite()) {
		writeError(w, http.StatusForbidden, "competition not covered by token")
		return
	}

	info, err := h.service.ImportCompetition(ctx, &doc)
	if err != nil {
		h.fail(ctx, w, "ImportCompetition", err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// GetCompetition returns a stored document with its version.
func (h *HTTPHandlers) GetCompetition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	info, err := h.service.GetCompetition(ctx, chi.URLParam(r, "competitionID"))
	if err != nil {
		h.fail(ctx, w, "GetCompetition", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(info.Version, 10)))
	writeJSON(w, http.StatusOK, info)
}

// ConfigureGroups writes the group configuration of a round.
func (h *HTTPHandlers) ConfigureGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var cfg groupconfig.Config
	if err := decodeBody(w, r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	info, err := h.service.ConfigureGroups(ctx, chi.URLParam(r, "competitionID"), chi.URLParam(r, "roundCode"), cfg)
	if err != nil {
		h.fail(ctx, w, "ConfigureGroups", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// MaterializeGroups creates the group activities of a round.
func (h *HTTPHandlers) MaterializeGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.service.MaterializeGroups(ctx, chi.URLParam(r, "competitionID"), chi.URLParam(r, "roundCode"))
	if err != nil {
		h.fail(ctx, w, "MaterializeGroups", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// PreviewAssignments runs the generators without storing the result.
func (h *HTTPHandlers) PreviewAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body generateBody
	if err := decodeOptionalBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.service.PreviewAssignments(ctx, chi.URLParam(r, "competitionID"), chi.URLParam(r, "roundCode"), body.Options)
	if err != nil {
		h.fail(ctx, w, "PreviewAssignments", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GenerateAssignments generates and stores a round's assignments. With
// ?async=true the work is queued and the job id returned.
func (h *HTTPHandlers) GenerateAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body generateBody
	if err := decodeOptionalBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := groupsservice.GenerateRequest{
		CompetitionID:   chi.URLParam(r, "competitionID"),
		RoundCode:       chi.URLParam(r, "roundCode"),
		Options:         body.Options,
		ExpectedVersion: body.ExpectedVersion,
		Trigger:         groupsservice.TriggerHTTP,
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		if h.enqueuer == nil {
			writeError(w, http.StatusNotImplemented, "background generation is not configured")
			return
		}
		req.Trigger = groupsservice.TriggerQueue
		jobID, err := h.enqueuer.EnqueueGeneration(ctx, req)
		if err != nil {
			h.fail(ctx, w, "EnqueueGeneration", err)
			return
		}
		writeJSON(w, http.StatusAccepted, enqueuedResponse{JobID: jobID, CompetitionID: req.CompetitionID, RoundCode: req.RoundCode})
		return
	}

	out, err := h.service.GenerateAssignments(ctx, req)
	if err != nil {
		h.fail(ctx, w, "GenerateAssignments", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ExportAssignments downloads the round's assignments as a workbook.
func (h *HTTPHandlers) ExportAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, roundCode := chi.URLParam(r, "competitionID"), chi.URLParam(r, "roundCode")
	data, err := h.service.ExportAssignments(ctx, id, roundCode)
	if err != nil {
		h.fail(ctx, w, "ExportAssignments", err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"-"+roundCode+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ListGenerationRuns returns recent generation runs, newest first.
func (h *HTTPHandlers) ListGenerationRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}
	runs, err := h.service.ListGenerationRuns(ctx, chi.URLParam(r, "competitionID"), limit)
	if err != nil {
		h.fail(ctx, w, "ListGenerationRuns", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// fail maps service errors to status codes. Infrastructure errors are logged
// and hidden from the client.
func (h *HTTPHandlers) fail(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "HTTP request failed",
			attr.String("operation", operation),
			attr.Error(err),
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, groupsservice.ErrCompetitionNotFound),
		errors.Is(err, groupsservice.ErrRoundNotFound),
		errors.Is(err, generators.ErrRoundNotFound),
		errors.Is(err, generators.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, groupsservice.ErrVersionConflict),
		errors.Is(err, groupsservice.ErrGroupsAlreadyExist):
		return http.StatusConflict
	case errors.Is(err, groupsservice.ErrInvalidRoundCode),
		errors.Is(err, groupsservice.ErrInvalidCompetition),
		errors.Is(err, groupconfig.ErrInvalidConfig):
		return http.StatusBadRequest
	case groupsservice.IsFailure(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// decodeOptionalBody accepts an empty body.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

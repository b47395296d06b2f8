package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyhub/internal/agency/models"
	"agencyhub/internal/agency/service"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/audit"
	"agencyhub/pkg/platform/httputil"
	"agencyhub/pkg/requestcontext"
)

// Service is the registry surface the handler drives.
type Service interface {
	CreateAgency(ctx context.Context, actorID id.RecruiterID, req service.CreateRequest) (*models.Agency, error)
	AdminCreateAgency(ctx context.Context, ownerID id.RecruiterID, req service.CreateRequest) (*models.Agency, error)
	GetAgency(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) (*models.Agency, error)
	GetAgencyBySlug(ctx context.Context, actorID id.RecruiterID, slug string) (*models.Agency, error)
	UpdateAgency(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, update models.Update) (*models.Agency, error)
	DeleteAgency(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) error
	AdminDeleteAgency(ctx context.Context, agencyID id.AgencyID) error
	ListAuditTrail(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) ([]audit.Event, error)
	ListDiscoverable(ctx context.Context) ([]models.Listing, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated agency routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/agencies", h.HandleCreate)
	r.Get("/agencies/by-slug/{slug}", h.HandleGetBySlug)
	r.Get("/agencies/{agencyID}", h.HandleGet)
	r.Patch("/agencies/{agencyID}", h.HandleUpdate)
	r.Delete("/agencies/{agencyID}", h.HandleDelete)
	r.Get("/agencies/{agencyID}/audit", h.HandleAuditTrail)
}

// RegisterPublic mounts routes that need no principal.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/discovery/agencies", h.HandleDiscovery)
}

// RegisterAdmin mounts platform-admin routes; the caller applies the admin
// token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/agencies", h.HandleAdminCreate)
	r.Delete("/admin/agencies/{agencyID}", h.HandleAdminDelete)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actorID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateAgencyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	agency, err := h.service.CreateAgency(ctx, actorID, req.toCreate())
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "create agency failed", err, "actor_id", actorID.String())
		return
	}
	h.logger.InfoContext(ctx, "agency created",
		"request_id", requestID,
		"agency_id", agency.ID.String(),
		"slug", agency.Slug,
	)
	httputil.WriteJSON(w, http.StatusCreated, agency)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	agencyID, ok := httputil.PathID(w, r, "agencyID", id.ParseAgencyID)
	if !ok {
		return
	}
	agency, err := h.service.GetAgency(ctx, actorID, agencyID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "get agency failed", err, "agency_id", agencyID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, agency)
}

func (h *Handler) HandleGetBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")
	agency, err := h.service.GetAgencyBySlug(ctx, actorID, slug)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "get agency by slug failed", err, "slug", slug)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, agency)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actorID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	agencyID, ok := httputil.PathID(w, r, "agencyID", id.ParseAgencyID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateAgencyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	agency, err := h.service.UpdateAgency(ctx, actorID, agencyID, req.toUpdate())
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "update agency failed", err, "agency_id", agencyID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, agency)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	agencyID, ok := httputil.PathID(w, r, "agencyID", id.ParseAgencyID)
	if !ok {
		return
	}
	if err := h.service.DeleteAgency(ctx, actorID, agencyID); err != nil {
		httputil.Fail(ctx, w, h.logger, "delete agency failed", err, "agency_id", agencyID.String())
		return
	}
	h.logger.InfoContext(ctx, "agency deleted",
		"request_id", requestcontext.RequestID(ctx),
		"agency_id", agencyID.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	agencyID, ok := httputil.PathID(w, r, "agencyID", id.ParseAgencyID)
	if !ok {
		return
	}
	events, err := h.service.ListAuditTrail(ctx, actorID, agencyID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "list audit trail failed", err, "agency_id", agencyID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditResponse(events))
}

func (h *Handler) HandleDiscovery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listings, err := h.service.ListDiscoverable(ctx)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "discovery listing failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"agencies": listings})
}

func (h *Handler) HandleAdminCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[AdminCreateAgencyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	agency, err := h.service.AdminCreateAgency(ctx, req.ownerID, req.toCreate())
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "admin create agency failed", err, "owner_id", req.OwnerID)
		return
	}
	h.logger.InfoContext(ctx, "agency created by platform admin",
		"request_id", requestID,
		"agency_id", agency.ID.String(),
		"owner_id", req.OwnerID,
	)
	httputil.WriteJSON(w, http.StatusCreated, agency)
}

func (h *Handler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agencyID, ok := httputil.PathID(w, r, "agencyID", id.ParseAgencyID)
	if !ok {
		return
	}
	if err := h.service.AdminDeleteAgency(ctx, agencyID); err != nil {
		httputil.Fail(ctx, w, h.logger, "admin delete agency failed", err, "agency_id", agencyID.String())
		return
	}
	h.logger.InfoContext(ctx, "agency deleted by platform admin",
		"request_id", requestcontext.RequestID(ctx),
		"agency_id", agencyID.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

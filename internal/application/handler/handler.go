package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyhub/internal/application/models"
	membershipmodels "agencyhub/internal/membership/models"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/httputil"
	"agencyhub/pkg/requestcontext"
)

type Service interface {
	Apply(ctx context.Context, recruiterID id.RecruiterID, agencyID id.AgencyID, message string) (*models.Application, error)
	ListPending(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) ([]models.PendingItem, error)
	Accept(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, applicationID id.ApplicationID) (*models.Application, *membershipmodels.Membership, error)
	Decline(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, applicationID id.ApplicationID) (*models.Application, error)
	ListMine(ctx context.Context, recruiterID id.RecruiterID) ([]*models.Application, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/me/applications", h.HandleListMine)
	r.Get("/agencies/{agencyID}/applications", h.HandleListPending)
	r.Post("/agencies/{agencyID}/applications", h.HandleApply)
	r.Post("/agencies/{agencyID}/applications/{applicationID}/accept", h.HandleAccept)
	r.Post("/agencies/{agencyID}/applications/{applicationID}/decline", h.HandleDecline)
}

// ApplyRequest is the body of POST /agencies/{agencyID}/applications.
type ApplyRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

// AcceptResponse pairs the approved application with the new membership.
type AcceptResponse struct {
	Application *models.Application          `json:"application"`
	Membership  *membershipmodels.Membership `json:"membership"`
}

func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	recruiterID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	agencyID, ok := httputil.PathID(w, r, "agencyID", id.ParseAgencyID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApplyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	app, err := h.service.Apply(ctx, recruiterID, agencyID, req.Message)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "apply failed", err,
			"agency_id", agencyID.String(), "recruiter_id", recruiterID.String())
		return
	}
	h.logger.InfoContext(ctx, "application submitted",
		"request_id", requestID,
		"agency_id", agencyID.String(),
		"application_id", app.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	agencyID, ok := httputil.PathID(w, r, "agencyID", id.ParseAgencyID)
	if !ok {
		return
	}
	items, err := h.service.ListPending(ctx, actorID, agencyID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "list pending applications failed", err, "agency_id", agencyID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": items})
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recruiterID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	apps, err := h.service.ListMine(ctx, recruiterID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "list own applications failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, agencyID, applicationID, ok := h.target(w, r)
	if !ok {
		return
	}
	app, member, err := h.service.Accept(ctx, actorID, agencyID, applicationID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "accept application failed", err, "application_id", applicationID.String())
		return
	}
	h.logger.InfoContext(ctx, "application accepted",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", applicationID.String(),
		"membership_id", member.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, AcceptResponse{Application: app, Membership: member})
}

func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, agencyID, applicationID, ok := h.target(w, r)
	if !ok {
		return
	}
	app, err := h.service.Decline(ctx, actorID, agencyID, applicationID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "decline application failed", err, "application_id", applicationID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (id.RecruiterID, id.AgencyID, id.ApplicationID, bool) {
	actorID, ok := httputil.Principal(w, r.Context())
	if !ok {
		return actorID, id.AgencyID{}, id.ApplicationID{}, false
	}
	agencyID, ok := httputil.PathID(w, r, "agencyID", id.ParseAgencyID)
	if !ok {
		return actorID, agencyID, id.ApplicationID{}, false
	}
	applicationID, ok := httputil.PathID(w, r, "applicationID", id.ParseApplicationID)
	return actorID, agencyID, applicationID, ok
}

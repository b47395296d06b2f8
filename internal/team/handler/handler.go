package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyhub/internal/team/models"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/httputil"
	"agencyhub/pkg/requestcontext"
)

type Service interface {
	CreateTeam(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, name, specialization string) (*models.Team, error)
	DeleteTeam(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, teamID id.TeamID) error
	ListTeams(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) ([]*models.Team, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/agencies/{agencyID}/teams", h.HandleList)
	r.Post("/agencies/{agencyID}/teams", h.HandleCreate)
	r.Delete("/agencies/{agencyID}/teams/{teamID}", h.HandleDelete)
}

// CreateTeamRequest is the body of POST /agencies/{agencyID}/teams.
type CreateTeamRequest struct {
	Name           string `json:"name" validate:"required,max=64"`
	Specialization string `json:"specialization" validate:"max=64"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[CreateTeamRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	team, err := h.service.CreateTeam(ctx, actorID, agencyID, req.Name, req.Specialization)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "create team failed", err, "agency_id", agencyID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, team)
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
	teamID, ok := httputil.PathID(w, r, "teamID", id.ParseTeamID)
	if !ok {
		return
	}
	if err := h.service.DeleteTeam(ctx, actorID, agencyID, teamID); err != nil {
		httputil.Fail(ctx, w, h.logger, "delete team failed", err, "team_id", teamID.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	agencyID, ok := httputil.PathID(w, r, "agencyID", id.ParseAgencyID)
	if !ok {
		return
	}
	teams, err := h.service.ListTeams(ctx, actorID, agencyID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "list teams failed", err, "agency_id", agencyID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

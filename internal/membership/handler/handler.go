package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyhub/internal/membership/models"
	"agencyhub/internal/membership/service"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/httputil"
	"agencyhub/pkg/requestcontext"
)

// Service is the ledger surface the handler drives.
type Service interface {
	RequestJoin(ctx context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (*models.Membership, error)
	Invite(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, target service.InviteTarget) (*models.Membership, error)
	Approve(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, membershipID id.MembershipID) (*models.Membership, error)
	Reject(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, membershipID id.MembershipID) error
	Remove(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, membershipID id.MembershipID) error
	ChangeRole(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, membershipID id.MembershipID, role models.Role) (*models.Membership, error)
	AssignTeam(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, membershipID id.MembershipID, teamID *id.TeamID) (*models.Membership, error)
	ListMembers(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) ([]*models.Membership, error)
	ListForRecruiter(ctx context.Context, recruiterID id.RecruiterID) ([]*models.Membership, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/me/memberships", h.HandleListMine)
	r.Post("/agencies/{agencyID}/join", h.HandleRequestJoin)
	r.Get("/agencies/{agencyID}/members", h.HandleList)
	r.Post("/agencies/{agencyID}/members", h.HandleInvite)
	r.Post("/agencies/{agencyID}/members/{membershipID}/approve", h.HandleApprove)
	r.Post("/agencies/{agencyID}/members/{membershipID}/reject", h.HandleReject)
	r.Post("/agencies/{agencyID}/members/{membershipID}/remove", h.HandleRemove)
	r.Patch("/agencies/{agencyID}/members/{membershipID}", h.HandlePatch)
}

// target resolves the principal, agency and membership path ids.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (id.RecruiterID, id.AgencyID, id.MembershipID, bool) {
	actorID, ok := httputil.Principal(w, r.Context())
	if !ok {
		return actorID, id.AgencyID{}, id.MembershipID{}, false
	}
	agencyID, ok := httputil.PathID(w, r, "agencyID", id.ParseAgencyID)
	if !ok {
		return actorID, agencyID, id.MembershipID{}, false
	}
	membershipID, ok := httputil.PathID(w, r, "membershipID", id.ParseMembershipID)
	return actorID, agencyID, membershipID, ok
}

func (h *Handler) HandleRequestJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recruiterID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	agencyID, ok := httputil.PathID(w, r, "agencyID", id.ParseAgencyID)
	if !ok {
		return
	}
	m, err := h.service.RequestJoin(ctx, agencyID, recruiterID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "join request failed", err,
			"agency_id", agencyID.String(), "recruiter_id", recruiterID.String())
		return
	}
	h.logger.InfoContext(ctx, "join requested",
		"request_id", requestcontext.RequestID(ctx),
		"agency_id", agencyID.String(),
		"membership_id", m.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[InviteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	m, err := h.service.Invite(ctx, actorID, agencyID, req.target())
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "invite failed", err, "agency_id", agencyID.String())
		return
	}
	h.logger.InfoContext(ctx, "member invited",
		"request_id", requestID,
		"agency_id", agencyID.String(),
		"membership_id", m.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, m)
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
	members, err := h.service.ListMembers(ctx, actorID, agencyID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "list members failed", err, "agency_id", agencyID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recruiterID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	memberships, err := h.service.ListForRecruiter(ctx, recruiterID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "list own memberships failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"memberships": memberships})
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, agencyID, membershipID, ok := h.target(w, r)
	if !ok {
		return
	}
	m, err := h.service.Approve(ctx, actorID, agencyID, membershipID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "approve failed", err, "membership_id", membershipID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, agencyID, membershipID, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.Reject(ctx, actorID, agencyID, membershipID); err != nil {
		httputil.Fail(ctx, w, h.logger, "reject failed", err, "membership_id", membershipID.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, agencyID, membershipID, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(ctx, actorID, agencyID, membershipID); err != nil {
		httputil.Fail(ctx, w, h.logger, "remove failed", err, "membership_id", membershipID.String())
		return
	}
	h.logger.InfoContext(ctx, "member removed",
		"request_id", requestcontext.RequestID(ctx),
		"membership_id", membershipID.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandlePatch changes either the role or the team of a membership.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, agencyID, membershipID, ok := h.target(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PatchMemberRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	var (
		m   *models.Membership
		err error
	)
	if req.Role != nil {
		m, err = h.service.ChangeRole(ctx, actorID, agencyID, membershipID, req.role)
	} else {
		m, err = h.service.AssignTeam(ctx, actorID, agencyID, membershipID, req.teamID)
	}
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "update membership failed", err, "membership_id", membershipID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

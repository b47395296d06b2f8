package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyhub/internal/recruiter/models"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/httputil"
	"agencyhub/pkg/requestcontext"
)

type Service interface {
	Register(ctx context.Context, recruiterID id.RecruiterID, address, displayName string) (*models.Recruiter, error)
	UpdateProfile(ctx context.Context, recruiterID id.RecruiterID, update models.ProfileUpdate) (*models.Recruiter, error)
	FindByID(ctx context.Context, recruiterID id.RecruiterID) (*models.Recruiter, error)
	Delete(ctx context.Context, recruiterID id.RecruiterID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Put("/me", h.HandleRegister)
	r.Get("/me", h.HandleGet)
	r.Patch("/me", h.HandleUpdate)
	r.Delete("/me", h.HandleDelete)
}

// RegisterRequest is the body of PUT /me.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

// UpdateProfileRequest is the body of PATCH /me.
type UpdateProfileRequest struct {
	Email       *string `json:"email" validate:"omitempty,email,max=254"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	Available   *bool   `json:"available"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	recruiterID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	profile, err := h.service.Register(ctx, recruiterID, req.Email, req.DisplayName)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "register profile failed", err, "recruiter_id", recruiterID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recruiterID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	profile, err := h.service.FindByID(ctx, recruiterID)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "get profile failed", err, "recruiter_id", recruiterID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recruiterID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateProfileRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	profile, err := h.service.UpdateProfile(ctx, recruiterID, models.ProfileUpdate{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Available:   req.Available,
	})
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "update profile failed", err, "recruiter_id", recruiterID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recruiterID, ok := httputil.Principal(w, ctx)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, recruiterID); err != nil {
		httputil.Fail(ctx, w, h.logger, "delete profile failed", err, "recruiter_id", recruiterID.String())
		return
	}
	h.logger.InfoContext(ctx, "profile deleted",
		"request_id", requestcontext.RequestID(ctx),
		"recruiter_id", recruiterID.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

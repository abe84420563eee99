package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/gin-gonic/gin"
)

const authTimeout = 3 * time.Second

type AuthService interface {
	Login(ctx context.Context, identifier, password string) (service.LoginResult, error)
	Profile(ctx context.Context, id int64) (user.Profile, error)
	UpdateName(ctx context.Context, id int64, name string) (user.Profile, error)
	ChangePassword(ctx context.Context, id int64, current, next string) error
}

type AuthHandler struct {
	svc          AuthService
	log          *slog.Logger
	exposeErrors bool
}

func NewAuthHandler(svc AuthService, log *slog.Logger, exposeErrors bool) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		svc:          svc,
		log:          log,
		exposeErrors: exposeErrors,
	}
}

// LoginRequest takes either field as the identifier. Older clients post a
// user id in "email", so that field is not format-checked.
type LoginRequest struct {
	Email      string `json:"email" binding:"required_without=Identifier"`
	Identifier string `json:"identifier" binding:"required_without=Email"`
	Password   string `json:"password" binding:"required"`
}

func (r LoginRequest) identifier() string {
	if r.Identifier != "" {
		return r.Identifier
	}
	return r.Email
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ValidateTokenResponse struct {
	Valid     bool          `json:"valid"`
	User      auth.Identity `json:"user"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	res, err := h.svc.Login(cctx, req.identifier(), req.Password)
	if err != nil {
		h.respondServiceError(ctx, "login", err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}

// GET /api/auth/validate-token
func (h *AuthHandler) ValidateToken(ctx *gin.Context) {
	claims, ok := middlewares.ClaimsFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "missing_token", "Access token required")
		return
	}

	resp := ValidateTokenResponse{
		Valid: true,
		User:  claims.Identity(),
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}

	ctx.JSON(http.StatusOK, resp)
}

// GET /api/auth/profile
func (h *AuthHandler) Profile(ctx *gin.Context) {
	id, ok := callerID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	p, err := h.svc.Profile(cctx, id)
	if err != nil {
		h.respondServiceError(ctx, "profile", err)
		return
	}

	respondProfile(ctx, p, nil)
}

// PUT /api/auth/update-profile
func (h *AuthHandler) UpdateProfile(ctx *gin.Context) {
	id, ok := callerID(ctx)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	p, err := h.svc.UpdateName(cctx, id, req.Name)
	if err != nil {
		h.respondServiceError(ctx, "update_name", err)
		return
	}

	respondProfile(ctx, p, gin.H{"message": "Profile updated"})
}

// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	id, ok := callerID(ctx)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	if err := h.svc.ChangePassword(cctx, id, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondServiceError(ctx, "change_password", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password updated",
	})
}

// callerID reads the identity stored by RequireAuth. Routes are always mounted
// behind the guard, so a miss is answered like a missing token.
func callerID(ctx *gin.Context) (int64, bool) {
	claims, ok := middlewares.ClaimsFromContext(ctx)
	if !ok || claims.ID <= 0 {
		RespondUnauthorized(ctx, "missing_token", "Access token required")
		return 0, false
	}
	return claims.ID, true
}

func (h *AuthHandler) respondServiceError(ctx *gin.Context, op string, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		RespondError(ctx, http.StatusBadRequest, verr.Code, verr.Message, nil)
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		msg := "Invalid credentials"
		if op == "change_password" {
			msg = "Current password is incorrect"
		}
		RespondUnauthorized(ctx, "invalid_credentials", msg)
		return
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
		return
	}

	msg := "Internal server error"
	switch {
	case errors.Is(err, service.ErrStore):
		msg = "Could not reach the user store"
	case errors.Is(err, security.ErrHashing):
		msg = "Could not process credentials"
	case errors.Is(err, auth.ErrTokenSigning):
		msg = "Could not issue token"
	}

	h.log.ErrorContext(ctx.Request.Context(), "auth request failed",
		"op", op,
		"err", err,
		"request_id", requestIDFrom(ctx),
	)

	var details interface{}
	if h.exposeErrors {
		details = gin.H{"internal": err.Error()}
	}

	RespondInternal(ctx, msg, details)
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/handlers/middleware"
	"github.com/drasante/modamart/internal/handlers/render"
	"github.com/drasante/modamart/internal/handlers/reqctx"
	"github.com/drasante/modamart/internal/logger"
	"github.com/drasante/modamart/internal/models"
)

type authService interface {
	Signup(ctx context.Context, email string, password string, fullName string) (models.User, error)
	VerifyEmail(ctx context.Context, token string) (models.User, error)
	Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error)
	Refresh(ctx context.Context, raw string) (models.User, models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token string, newPassword string) error
	GetUser(ctx context.Context, userID uuid.UUID) (models.User, error)
}

type tokenTransport interface {
	SetTokenPair(w http.ResponseWriter, pair models.TokenPair)
	ClearTokens(w http.ResponseWriter)
	RefreshFromRequest(r *http.Request) (string, error)
}

type csrfIssuer interface {
	NewSecret() (string, error)
	Create(secret string) (string, error)
}

type UserResponse struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		LastLoginAt:   u.LastLoginAt,
	}
}

type AuthHandler struct {
	auth       authService
	transport  tokenTransport
	csrf       csrfIssuer
	production bool
	logger     logger.Logger
}

func NewAuth(auth authService, transport tokenTransport, csrf csrfIssuer, production bool, l logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		transport:  transport,
		csrf:       csrf,
		production: production,
		logger:     l,
	}
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	type SignupRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8,max=128"`
		FullName string `json:"full_name" validate:"required,min=1,max=100"`
	}
	type SignupResponse struct {
		Message string       `json:"message"`
		User    UserResponse `json:"user"`
	}

	data, err := render.BindAndValidate[SignupRequest](w, r)
	if err != nil {
		return
	}

	user, err := h.auth.Signup(r.Context(), data.Email, data.Password, data.FullName)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			h.logger.Error("signup failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSONWithStatus(w, SignupResponse{
		Message: "Account created, check your email to verify it",
		User:    toUserResponse(user),
	}, http.StatusCreated)
}

func (h *AuthHandler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	type VerifyRequest struct {
		Token string `json:"token" validate:"required"`
	}
	type VerifyResponse struct {
		Message string       `json:"message"`
		User    UserResponse `json:"user"`
	}

	data, err := render.BindAndValidate[VerifyRequest](w, r)
	if err != nil {
		return
	}

	user, err := h.auth.VerifyEmail(r.Context(), data.Token)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrVerificationTokenInvalid):
			render.ServiceError(w, "Verification token invalid or expired", http.StatusBadRequest)
		default:
			h.logger.Error("email verification failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, VerifyResponse{Message: "Email verified", User: toUserResponse(user)})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	type LoginResponse struct {
		Message string       `json:"message"`
		User    UserResponse `json:"user"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	user, pair, err := h.auth.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid email or password", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrEmailNotVerified):
			render.ServiceError(w, "Email not verified", http.StatusForbidden)
		default:
			h.logger.Error("login failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.transport.SetTokenPair(w, pair)
	render.JSON(w, LoginResponse{Message: "Logged in", User: toUserResponse(user)})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshResponse struct {
		Message string `json:"message"`
	}

	raw, err := h.transport.RefreshFromRequest(r)
	if err != nil {
		render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		return
	}

	_, pair, err := h.auth.Refresh(r.Context(), raw)
	if err != nil {
		// Whatever went wrong the old cookies are useless now
		h.transport.ClearTokens(w)
		switch {
		case errors.Is(err, apperrors.ErrTokenExpired):
			render.ServiceError(w, "Refresh token expired", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrTokenInvalid),
			errors.Is(err, apperrors.ErrTokenWrongType),
			errors.Is(err, apperrors.ErrRefreshTokenInvalid):
			render.ServiceError(w, "Refresh token invalid", http.StatusUnauthorized)
		default:
			h.logger.Error("token refresh failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.transport.SetTokenPair(w, pair)
	render.JSON(w, RefreshResponse{Message: "Tokens refreshed"})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	type LogoutResponse struct {
		Message string `json:"message"`
	}

	identity, ok := reqctx.IdentityFrom(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// The cookie may be gone already, logout still revokes server side
	raw, _ := h.transport.RefreshFromRequest(r)

	if err := h.auth.Logout(r.Context(), identity.UserID, raw); err != nil {
		h.logger.Error("logout failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.transport.ClearTokens(w)
	render.JSON(w, LogoutResponse{Message: "Logged out"})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	identity, ok := reqctx.IdentityFrom(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user, err := h.auth.GetUser(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			// The account was removed while the token still lived
			render.ServiceError(w, "Invalid token", http.StatusUnauthorized)
		default:
			h.logger.Error("loading current user failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, toUserResponse(user))
}

func (h *AuthHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	type ForgotRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
	type ForgotResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ForgotRequest](w, r)
	if err != nil {
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), data.Email); err != nil {
		h.logger.Error("forgot password failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Same answer whether the account exists or not
	render.JSON(w, ForgotResponse{Message: "If that email is registered a reset link was sent"})
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	type ResetRequest struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required,min=8,max=128"`
	}
	type ResetResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ResetRequest](w, r)
	if err != nil {
		return
	}

	if err := h.auth.ResetPassword(r.Context(), data.Token, data.Password); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrResetTokenInvalid):
			render.ServiceError(w, "Reset token invalid or expired", http.StatusBadRequest)
		default:
			h.logger.Error("password reset failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, ResetResponse{Message: "Password updated, log in with the new one"})
}

func (h *AuthHandler) csrfToken(w http.ResponseWriter, r *http.Request) {
	type CSRFResponse struct {
		Token string `json:"csrf_token"`
	}

	secret, err := h.csrf.NewSecret()
	if err != nil {
		h.logger.Error("csrf secret generation failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	token, err := h.csrf.Create(secret)
	if err != nil {
		h.logger.Error("csrf token generation failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	sameSite := http.SameSiteLaxMode
	if h.production {
		sameSite = http.SameSiteStrictMode
	}
	// The secret outlives login state, it protects anonymous flows too
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CSRFSecretCookie,
		Value:    secret,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   h.production,
		SameSite: sameSite,
	})

	render.JSON(w, CSRFResponse{Token: token})
}

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pulseboard/realtime-backend/internal/auth"
	"github.com/pulseboard/realtime-backend/internal/core/domain"
	apperrors "github.com/pulseboard/realtime-backend/internal/core/errors"
	"github.com/pulseboard/realtime-backend/internal/core/ports"
)

// AuthHandler handles credential issuance over HTTP. The core service checks
// the credentials; minting tokens is adapter responsibility.
type AuthHandler struct {
	authService  ports.AuthService
	tokenManager *auth.TokenManager
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService ports.AuthService,
	tokenManager *auth.TokenManager,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenManager: tokenManager,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// RegisterRoutes registers the auth routes on a chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.HandleLogin)
	r.Post("/refresh", h.HandleRefresh)
}

// LoginRequest is the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse carries a freshly minted token pair
type TokenResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

// UserResponse is the account summary returned alongside tokens
type UserResponse struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// HandleLogin authenticates email/password credentials and returns a token pair
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	req.Email = strings.TrimSpace(req.Email)

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.writeTokens(w, r, user)
}

// HandleRefresh exchanges a valid refresh token for a new token pair. The
// account is re-checked so a deactivated user cannot keep rotating tokens.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	claims, err := h.tokenManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.ErrInvalidToken)
		return
	}

	user, err := h.authService.Refresh(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.writeTokens(w, r, user)
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, r *http.Request, user *domain.User) {
	identity := user.Identity()

	accessToken, err := h.tokenManager.GenerateAccessToken(identity)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	refreshToken, err := h.tokenManager.GenerateRefreshToken(identity)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: UserResponse{
			ID:       user.ID.String(),
			TenantID: user.TenantID.String(),
			Email:    user.Email,
			FullName: user.FullName,
			Role:     string(user.Role),
		},
	})
}

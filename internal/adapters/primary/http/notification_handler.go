package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pulseboard/realtime-backend/internal/adapters/primary/http/middleware"
	"github.com/pulseboard/realtime-backend/internal/core/domain"
	apperrors "github.com/pulseboard/realtime-backend/internal/core/errors"
	"github.com/pulseboard/realtime-backend/internal/core/ports"
)

// NotificationHandler exposes notification creation and listing. Creation is
// the persist-then-announce path: the record is stored first, then
// notification:new goes out over the socket.
type NotificationHandler struct {
	service      ports.NotificationService
	errorHandler *ErrorHandler
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service ports.NotificationService, errorHandler *ErrorHandler) *NotificationHandler {
	return &NotificationHandler{
		service:      service,
		errorHandler: errorHandler,
	}
}

// RegisterRoutes registers the notification routes on a chi router.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
}

// CreateNotificationRequest is the request body for creating a notification
type CreateNotificationRequest struct {
	UserID    string  `json:"userId"`
	ProjectID *string `json:"projectId,omitempty"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
}

// NotificationResponse is a notification as returned over HTTP
type NotificationResponse struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	ProjectID *string `json:"projectId"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"createdAt"`
}

// HandleCreate creates a notification for a user in the caller's tenant. The
// tenant always comes from the authenticated claims, never the body.
func (h *NotificationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	var req CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid user ID"))
		return
	}

	var projectID *uuid.UUID
	if req.ProjectID != nil {
		parsed, err := uuid.Parse(*req.ProjectID)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid project ID"))
			return
		}
		projectID = &parsed
	}

	notification, err := h.service.Create(r.Context(), ports.CreateNotificationParams{
		TenantID:  claims.TenantID,
		UserID:    userID,
		ProjectID: projectID,
		Title:     req.Title,
		Body:      req.Body,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, toNotificationResponse(notification))
}

// HandleList lists recent notifications for the authenticated user
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid limit"))
			return
		}
		limit = parsed
	}

	notifications, err := h.service.ListForUser(r.Context(), claims.TenantID, claims.UserID, limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	responses := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, toNotificationResponse(n))
	}

	WriteList(w, responses)
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	var projectID *string
	if n.ProjectID != nil {
		s := n.ProjectID.String()
		projectID = &s
	}
	return NotificationResponse{
		ID:        n.ID.String(),
		UserID:    n.UserID.String(),
		ProjectID: projectID,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

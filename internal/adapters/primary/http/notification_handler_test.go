package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/realtime-backend/internal/adapters/primary/http/middleware"
	"github.com/pulseboard/realtime-backend/internal/auth"
	"github.com/pulseboard/realtime-backend/internal/core/domain"
	"github.com/pulseboard/realtime-backend/internal/core/mocks"
	"github.com/pulseboard/realtime-backend/internal/core/ports"
)

func authedRequest(method, target string, body []byte, claims *auth.Claims) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.ClaimsKey, claims)
	return req.WithContext(ctx)
}

func memberClaims(tenantID, userID uuid.UUID) *auth.Claims {
	return &auth.Claims{TenantID: tenantID, UserID: userID, Role: domain.RoleMember}
}

func TestNotificationHandler_HandleCreate(t *testing.T) {
	tenantID := uuid.New()
	callerID := uuid.New()
	targetID := uuid.New()

	t.Run("stores the notification under the caller's tenant", func(t *testing.T) {
		svc := mocks.NewMockNotificationService()
		handler := NewNotificationHandler(svc, NewErrorHandler(testLogger()))

		created := &domain.Notification{
			ID:        uuid.New(),
			TenantID:  tenantID,
			UserID:    targetID,
			Title:     "Task assigned",
			Body:      "You were assigned to a task",
			CreatedAt: time.Now(),
		}
		svc.On("Create", mock.Anything, ports.CreateNotificationParams{
			TenantID: tenantID,
			UserID:   targetID,
			Title:    "Task assigned",
			Body:     "You were assigned to a task",
		}).Return(created, nil)

		body, _ := json.Marshal(CreateNotificationRequest{
			UserID: targetID.String(),
			Title:  "Task assigned",
			Body:   "You were assigned to a task",
		})
		req := authedRequest("POST", "/api/v1/notifications", body, memberClaims(tenantID, callerID))
		rec := httptest.NewRecorder()

		handler.HandleCreate(rec, req)

		require.Equal(t, 201, rec.Code)
		var resp NotificationResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, created.ID.String(), resp.ID)
		assert.Equal(t, targetID.String(), resp.UserID)
		svc.AssertExpectations(t)
	})

	t.Run("tenant in the body is ignored in favor of claims", func(t *testing.T) {
		svc := mocks.NewMockNotificationService()
		handler := NewNotificationHandler(svc, NewErrorHandler(testLogger()))

		svc.On("Create", mock.Anything, mock.MatchedBy(func(p ports.CreateNotificationParams) bool {
			return p.TenantID == tenantID
		})).Return(&domain.Notification{ID: uuid.New(), TenantID: tenantID, UserID: targetID, CreatedAt: time.Now()}, nil)

		// A tenantId field in the body is simply not part of the request shape.
		body := []byte(`{"userId":"` + targetID.String() + `","tenantId":"` + uuid.New().String() + `","title":"t","body":"b"}`)
		req := authedRequest("POST", "/api/v1/notifications", body, memberClaims(tenantID, callerID))
		rec := httptest.NewRecorder()

		handler.HandleCreate(rec, req)

		require.Equal(t, 201, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("missing claims get 401", func(t *testing.T) {
		svc := mocks.NewMockNotificationService()
		handler := NewNotificationHandler(svc, NewErrorHandler(testLogger()))

		body, _ := json.Marshal(CreateNotificationRequest{UserID: targetID.String(), Title: "t", Body: "b"})
		req := httptest.NewRequest("POST", "/api/v1/notifications", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandleCreate(rec, req)

		assert.Equal(t, 401, rec.Code)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("malformed user ID gets 400", func(t *testing.T) {
		svc := mocks.NewMockNotificationService()
		handler := NewNotificationHandler(svc, NewErrorHandler(testLogger()))

		body, _ := json.Marshal(CreateNotificationRequest{UserID: "not-a-uuid", Title: "t", Body: "b"})
		req := authedRequest("POST", "/api/v1/notifications", body, memberClaims(tenantID, callerID))
		rec := httptest.NewRecorder()

		handler.HandleCreate(rec, req)

		assert.Equal(t, 400, rec.Code)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestNotificationHandler_HandleList(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()

	t.Run("lists the caller's notifications", func(t *testing.T) {
		svc := mocks.NewMockNotificationService()
		handler := NewNotificationHandler(svc, NewErrorHandler(testLogger()))

		projectID := uuid.New()
		items := []*domain.Notification{
			{ID: uuid.New(), TenantID: tenantID, UserID: userID, ProjectID: &projectID, Title: "second", CreatedAt: time.Now()},
			{ID: uuid.New(), TenantID: tenantID, UserID: userID, Title: "first", CreatedAt: time.Now().Add(-time.Minute)},
		}
		svc.On("ListForUser", mock.Anything, tenantID, userID, 0).Return(items, nil)

		req := authedRequest("GET", "/api/v1/notifications", nil, memberClaims(tenantID, userID))
		rec := httptest.NewRecorder()

		handler.HandleList(rec, req)

		require.Equal(t, 200, rec.Code)
		var resp struct {
			Data []NotificationResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "second", resp.Data[0].Title)
		require.NotNil(t, resp.Data[0].ProjectID)
		assert.Equal(t, projectID.String(), *resp.Data[0].ProjectID)
		assert.Nil(t, resp.Data[1].ProjectID)
	})

	t.Run("limit query parameter is forwarded", func(t *testing.T) {
		svc := mocks.NewMockNotificationService()
		handler := NewNotificationHandler(svc, NewErrorHandler(testLogger()))

		svc.On("ListForUser", mock.Anything, tenantID, userID, 5).Return([]*domain.Notification{}, nil)

		req := authedRequest("GET", "/api/v1/notifications?limit=5", nil, memberClaims(tenantID, userID))
		rec := httptest.NewRecorder()

		handler.HandleList(rec, req)

		require.Equal(t, 200, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("non-numeric limit gets 400", func(t *testing.T) {
		svc := mocks.NewMockNotificationService()
		handler := NewNotificationHandler(svc, NewErrorHandler(testLogger()))

		req := authedRequest("GET", "/api/v1/notifications?limit=lots", nil, memberClaims(tenantID, userID))
		rec := httptest.NewRecorder()

		handler.HandleList(rec, req)

		assert.Equal(t, 400, rec.Code)
		svc.AssertNotCalled(t, "ListForUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

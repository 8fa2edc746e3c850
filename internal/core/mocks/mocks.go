package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
	"github.com/pulseboard/realtime-backend/internal/core/ports"
)

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockMembershipStore is a mock implementation of ports.MembershipStore
type MockMembershipStore struct {
	mock.Mock
}

func NewMockMembershipStore() *MockMembershipStore {
	return &MockMembershipStore{}
}

func (m *MockMembershipStore) IsMember(ctx context.Context, tenantID, userID, projectID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, userID, projectID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipStore) ProjectExists(ctx context.Context, tenantID, projectID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, projectID)
	return args.Bool(0), args.Error(1)
}

// MockNotificationStore is a mock implementation of ports.NotificationStore
type MockNotificationStore struct {
	mock.Mock
}

func NewMockNotificationStore() *MockNotificationStore {
	return &MockNotificationStore{}
}

func (m *MockNotificationStore) Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	args := m.Called(ctx, notification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationStore) ListForUser(ctx context.Context, tenantID, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	args := m.Called(ctx, tenantID, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

// MockAuthService is a mock implementation of ports.AuthService
type MockAuthService struct {
	mock.Mock
}

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockNotificationService is a mock implementation of ports.NotificationService
type MockNotificationService struct {
	mock.Mock
}

func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

func (m *MockNotificationService) Create(ctx context.Context, params ports.CreateNotificationParams) (*domain.Notification, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationService) ListForUser(ctx context.Context, tenantID, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	args := m.Called(ctx, tenantID, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

// MockBroadcaster is a mock implementation of ports.Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) Emit(event domain.Event) {
	m.Called(event)
}

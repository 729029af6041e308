package usersync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindUserByPlatformUID(ctx context.Context, platformUID string) (*models.User, bool, error) {
	args := m.Called(ctx, platformUID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockRepository) CreateUser(ctx context.Context, platformUID, username, wallet, role string) (*models.User, error) {
	args := m.Called(ctx, platformUID, username, wallet, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestService_Sync(t *testing.T) {
	existing := &models.User{ID: "u1", PlatformUID: "pi-uid-1", Username: "alice", Role: models.RoleStudent}

	tests := []struct {
		name          string
		platformUID   string
		username      string
		wallet        string
		setupMocks    func(*MockRepository)
		expectedUser  *models.User
		expectedError bool
		errorMessage  string
	}{
		{
			name:        "existing user returned without create",
			platformUID: "pi-uid-1",
			username:    "alice",
			setupMocks: func(r *MockRepository) {
				r.On("FindUserByPlatformUID", mock.Anything, "pi-uid-1").Return(existing, true, nil).Once()
			},
			expectedUser: existing,
		},
		{
			name:        "new user created with student role",
			platformUID: "pi-uid-2",
			username:    "bob",
			wallet:      "wallet-bob",
			setupMocks: func(r *MockRepository) {
				created := &models.User{ID: "u2", PlatformUID: "pi-uid-2", Username: "bob", WalletAddress: "wallet-bob", Role: models.RoleStudent}
				r.On("FindUserByPlatformUID", mock.Anything, "pi-uid-2").Return(nil, false, nil).Once()
				r.On("CreateUser", mock.Anything, "pi-uid-2", "bob", "wallet-bob", models.RoleStudent).Return(created, nil).Once()
			},
			expectedUser: &models.User{ID: "u2", PlatformUID: "pi-uid-2", Username: "bob", WalletAddress: "wallet-bob", Role: models.RoleStudent},
		},
		{
			name:        "find error",
			platformUID: "pi-uid-3",
			setupMocks: func(r *MockRepository) {
				r.On("FindUserByPlatformUID", mock.Anything, "pi-uid-3").Return(nil, false, errors.New("db error")).Once()
			},
			expectedError: true,
			errorMessage:  "db error",
		},
		{
			name:        "create error",
			platformUID: "pi-uid-4",
			username:    "carol",
			setupMocks: func(r *MockRepository) {
				r.On("FindUserByPlatformUID", mock.Anything, "pi-uid-4").Return(nil, false, nil).Once()
				r.On("CreateUser", mock.Anything, "pi-uid-4", "carol", "", models.RoleStudent).Return(nil, errors.New("insert error")).Once()
			},
			expectedError: true,
			errorMessage:  "insert error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			service := New(repo, newNoopLogger())

			tt.setupMocks(repo)

			user, err := service.Sync(context.Background(), tt.platformUID, tt.username, tt.wallet)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedUser, user)
			}

			repo.AssertExpectations(t)
		})
	}
}

// Повторный Sync с тем же идентификатором платформы не создаёт дубликат.
func TestService_Sync_Idempotent(t *testing.T) {
	repo := new(MockRepository)
	service := New(repo, newNoopLogger())

	created := &models.User{ID: "u1", PlatformUID: "pi-uid-1", Username: "alice", Role: models.RoleStudent}

	repo.On("FindUserByPlatformUID", mock.Anything, "pi-uid-1").Return(nil, false, nil).Once()
	repo.On("CreateUser", mock.Anything, "pi-uid-1", "alice", "", models.RoleStudent).Return(created, nil).Once()
	repo.On("FindUserByPlatformUID", mock.Anything, "pi-uid-1").Return(created, true, nil).Once()

	first, err := service.Sync(context.Background(), "pi-uid-1", "alice", "")
	assert.NoError(t, err)

	second, err := service.Sync(context.Background(), "pi-uid-1", "alice", "")
	assert.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "CreateUser", 1)
}

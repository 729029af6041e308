package sync

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
)

// MockService реализует интерфейс sync.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Sync(ctx context.Context, platformUID, username, wallet string) (*models.User, error) {
	args := m.Called(ctx, platformUID, username, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestSyncHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная синхронизация",
			body: `{"uid":"pi-uid-1","username":"alice","wallet":"wallet-alice"}`,
			setupMock: func(m *MockService) {
				m.On("Sync", mock.Anything, "pi-uid-1", "alice", "wallet-alice").
					Return(&models.User{ID: "u1", PlatformUID: "pi-uid-1", Username: "alice", Role: models.RoleStudent}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name:           "отсутствует uid",
			body:           `{"username":"alice"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field UID is a required field`,
		},
		{
			name: "ошибка сервиса",
			body: `{"uid":"pi-uid-1","username":"alice"}`,
			setupMock: func(m *MockService) {
				m.On("Sync", mock.Anything, "pi-uid-1", "alice", "").
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not sync user`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/users/sync", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}

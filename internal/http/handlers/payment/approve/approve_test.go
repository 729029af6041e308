package approve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
	"github.com/magabrotheeeer/escrow-marketplace/internal/services/lifecycle"
)

// MockService реализует интерфейс approve.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Approve(ctx context.Context, req models.ApprovePaymentRequest) (*models.Payment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func TestApproveHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	validBody := `{
		"payment_id": "pi-pay-1",
		"student_id": "11111111-1111-1111-1111-111111111111",
		"teacher_id": "22222222-2222-2222-2222-222222222222",
		"amount": 10
	}`

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное одобрение",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("Approve", mock.Anything, mock.AnythingOfType("models.ApprovePaymentRequest")).
					Return(&models.Payment{ID: "p1", PiPaymentID: "pi-pay-1", Status: models.PaymentStatusPending}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name:           "некорректный json",
			body:           `{not json`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "невалидный student_id",
			body:           `{"payment_id":"pi-pay-1","student_id":"not-a-uuid","teacher_id":"22222222-2222-2222-2222-222222222222","amount":10}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field StudentID can contain only uuid`,
		},
		{
			name:           "нулевая сумма",
			body:           `{"payment_id":"pi-pay-1","student_id":"11111111-1111-1111-1111-111111111111","teacher_id":"22222222-2222-2222-2222-222222222222","amount":0}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `required field`,
		},
		{
			name: "сторона не найдена",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("Approve", mock.Anything, mock.AnythingOfType("models.ApprovePaymentRequest")).
					Return(nil, fmt.Errorf("lifecycle.Approve: %w", lifecycle.ErrUserNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `payer or payee not found`,
		},
		{
			name: "шлюз отклонил платёж",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("Approve", mock.Anything, mock.AnythingOfType("models.ApprovePaymentRequest")).
					Return(nil, fmt.Errorf("lifecycle.Approve: %w: %w", lifecycle.ErrGatewayRejected, errors.New("402")))
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `payment gateway rejected approval`,
		},
		{
			name: "ошибка сервиса",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("Approve", mock.Anything, mock.AnythingOfType("models.ApprovePaymentRequest")).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not approve payment`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/payments/approve", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}

// Невалидный запрос не должен доходить до сервиса.
func TestApproveHandler_ValidationShortCircuits(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mockService := new(MockService)
	handler := New(logger, mockService)

	req := httptest.NewRequest(http.MethodPost, "/payments/approve", strings.NewReader(`{"payment_id":""}`))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything)
}

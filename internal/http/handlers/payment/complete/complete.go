// Package complete реализует HTTP-обработчик завершения эскроу-платежа:
// подтверждение расчёта на шлюзе, создание подписки и релиз платежа.
package complete

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/escrow-marketplace/internal/http/response"
	"github.com/magabrotheeeer/escrow-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
	"github.com/magabrotheeeer/escrow-marketplace/internal/services/lifecycle"
)

// Service описывает интерфейс бизнес-логики завершения платежа.
type Service interface {
	Complete(ctx context.Context, req models.CompletePaymentRequest) (*lifecycle.CompleteResult, error)
}

// Handler управляет HTTP-запросами на завершение платежей.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Завершить эскроу-платёж
// @Description Подтверждает расчёт на шлюзе, создаёт подписку и переводит платёж в released.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body models.CompletePaymentRequest true "Данные завершения"
// @Success 200 {object} map[string]any "Платёж завершён"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Платёж или услуга не найдены"
// @Failure 409 {object} response.ErrorResponse "Платёж уже в терминальном статусе"
// @Failure 502 {object} response.ErrorResponse "Шлюз отклонил завершение"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments/complete [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.complete"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CompletePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	result, err := h.service.Complete(r.Context(), req)
	if err != nil {
		log.Error("failed to complete payment", sl.Err(err))
		switch {
		case errors.Is(err, lifecycle.ErrPaymentNotFound),
			errors.Is(err, lifecycle.ErrServiceNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("payment or service not found"))
		case errors.Is(err, lifecycle.ErrAlreadyTerminal):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("payment is not awaiting completion"))
		case errors.Is(err, lifecycle.ErrGatewayRejected):
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("payment gateway rejected completion"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not complete payment"))
		}
		return
	}

	log.Info("payment completed",
		slog.String("payment_id", req.PaymentID),
		slog.String("subscription_id", result.Subscription.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment":      result.Payment,
		"subscription": result.Subscription,
	}))
}

// Package refund реализует HTTP-обработчик возврата эскроу-платежа.
package refund

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

// Service описывает интерфейс бизнес-логики возврата платежа.
type Service interface {
	Refund(ctx context.Context, req models.RefundPaymentRequest) (*lifecycle.RefundResult, error)
}

// Handler управляет HTTP-запросами на возврат платежей.
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
// @Summary Вернуть эскроу-платёж
// @Description Запрашивает возврат на шлюзе, переводит платёж в refunded и отменяет подписку.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body models.RefundPaymentRequest true "Данные возврата"
// @Success 200 {object} map[string]any "Платёж возвращён"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Failure 409 {object} response.ErrorResponse "Платёж уже в терминальном статусе"
// @Failure 502 {object} response.ErrorResponse "Шлюз отклонил возврат"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments/refund [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.refund"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.RefundPaymentRequest
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

	result, err := h.service.Refund(r.Context(), req)
	if err != nil {
		log.Error("failed to refund payment", sl.Err(err))
		switch {
		case errors.Is(err, lifecycle.ErrPaymentNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("payment not found"))
		case errors.Is(err, lifecycle.ErrAlreadyTerminal):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("payment already refunded or completed"))
		case errors.Is(err, lifecycle.ErrGatewayRejected):
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("payment gateway rejected refund"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not refund payment"))
		}
		return
	}

	log.Info("payment refunded", slog.String("payment_id", req.PaymentID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment": result.Payment,
	}))
}

// Package approve реализует HTTP-обработчик одобрения эскроу-платежа.
//
// Handler принимает JSON-запрос с идентификатором платежа, сторонами и
// суммой, валидирует его и передаёт платёжному циклу. Запись в хранилище
// появляется только после успеха шлюза.
package approve

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

// Service описывает интерфейс бизнес-логики одобрения платежа.
type Service interface {
	Approve(ctx context.Context, req models.ApprovePaymentRequest) (*models.Payment, error)
}

// Handler управляет HTTP-запросами на одобрение платежей.
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
// @Summary Одобрить эскроу-платёж
// @Description Одобряет платёж на платёжном шлюзе и создаёт pending-запись платежа.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body models.ApprovePaymentRequest true "Данные платежа"
// @Success 200 {object} map[string]any "Платёж одобрен"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Сторона платежа не найдена"
// @Failure 502 {object} response.ErrorResponse "Шлюз отклонил платёж"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments/approve [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.approve"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.ApprovePaymentRequest
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

	payment, err := h.service.Approve(r.Context(), req)
	if err != nil {
		log.Error("failed to approve payment", sl.Err(err))
		switch {
		case errors.Is(err, lifecycle.ErrUserNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("payer or payee not found"))
		case errors.Is(err, lifecycle.ErrGatewayRejected):
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("payment gateway rejected approval"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not approve payment"))
		}
		return
	}

	log.Info("payment approved", slog.String("payment_id", payment.PiPaymentID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment": payment,
	}))
}

// Package activate реализует HTTP-обработчик активации подписки с релизом
// всех её эскроу-платежей. Повторная активация — no-op.
package activate

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

// Service описывает интерфейс бизнес-логики активации подписки.
type Service interface {
	Activate(ctx context.Context, subscriptionID, teacherWallet string) (*lifecycle.ActivateResult, error)
}

// Handler управляет HTTP-запросами на активацию подписок.
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
// @Summary Активировать подписку
// @Description Переводит подписку в active и отпускает её платежи из эскроу преподавателю.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.ActivateSubscriptionRequest true "Данные активации"
// @Success 200 {object} map[string]any "Подписка активирована"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Подписка отменена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/activate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.activate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.ActivateSubscriptionRequest
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

	result, err := h.service.Activate(r.Context(), req.SubscriptionID, req.TeacherWallet)
	if err != nil {
		log.Error("failed to activate subscription", sl.Err(err))
		switch {
		case errors.Is(err, lifecycle.ErrSubscriptionNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("subscription not found"))
		case errors.Is(err, lifecycle.ErrAlreadyTerminal):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("subscription is cancelled"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not activate subscription"))
		}
		return
	}

	log.Info("subscription activated",
		slog.String("subscription_id", req.SubscriptionID),
		slog.Int("payments", len(result.Payments)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": result.Subscription,
		"payments":     result.Payments,
	}))
}

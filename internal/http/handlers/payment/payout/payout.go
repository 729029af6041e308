// Package payout реализует HTTP-обработчик ручного запуска выплат.
// Тот же проход периодически выполняет отдельный процесс-свипер.
package payout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/escrow-marketplace/internal/http/response"
	"github.com/magabrotheeeer/escrow-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
)

// Service описывает интерфейс сервиса выплат.
type Service interface {
	SweepPending(ctx context.Context) ([]models.PayoutResult, error)
}

// Handler управляет HTTP-запросами на запуск выплат.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Выплатить отпущенные платежи
// @Description Обходит released-платежи без отметки о выплате и переводит средства получателям.
// @Tags Payments
// @Produce  json
// @Success 200 {object} map[string]any "Результаты по каждому платежу"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments/payout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.payout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	results, err := h.service.SweepPending(r.Context())
	if err != nil {
		log.Error("failed to sweep pending payouts", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not run payout sweep"))
		return
	}

	log.Info("payout sweep finished", slog.Int("count", len(results)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payouts": results,
	}))
}

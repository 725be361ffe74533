// Package paymentwebhook реализует HTTP-обработчик уведомлений платежного
// шлюза. Протокол провайдера остается снаружи: сюда приходит только итог
// оплаты, который делает счет действительным или недействительным и
// немедленно влечет пересчет прав владельца.
package paymentwebhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/membership-ledger/internal/http/response"
	"github.com/magabrotheeeer/membership-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

// Handler управляет HTTP-запросами платежного шлюза.
type Handler struct {
	log      *slog.Logger
	service  Service
	secret   string
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики обработки оплаты.
type Service interface {
	HandlePaymentNotification(ctx context.Context, notif models.PaymentNotification) error
}

// New создает новый Handler с переданными логгером, сервисом и секретом вебхука.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		secret:   secret,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вебхук платежного шлюза
// @Description Принимает итог оплаты и выставляет флаг действительности счета.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body models.PaymentNotification true "Уведомление об оплате"
// @Success 200 {object} map[string]any "Уведомление обработано"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверный секрет вебхука"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.paymentwebhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	got := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		log.Error("invalid webhook secret")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var notif models.PaymentNotification
	if err := json.NewDecoder(r.Body).Decode(&notif); err != nil {
		log.Error("failed to decode notification", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(notif); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.HandlePaymentNotification(r.Context(), notif); err != nil {
		log.Error("failed to handle payment notification", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not handle notification"))
		return
	}

	log.Info("payment notification handled",
		slog.Int("invoice_id", notif.InvoiceID),
		slog.String("status", notif.Status))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"invoice_id": notif.InvoiceID,
	}))
}

// Package reconcile реализует HTTP-обработчик принудительного пересчета прав
// пользователя из полного журнала его оплаченных покупок.
package reconcile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-ledger/internal/http/response"
	"github.com/magabrotheeeer/membership-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

// Handler управляет HTTP-запросами пересчета прав.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики пересчета прав.
type Service interface {
	Reconcile(ctx context.Context, username string) (*models.EntitlementState, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Пересчет прав пользователя
// @Description Заново сворачивает журнал оплаченных покупок и возвращает свежее состояние.
// @Tags Membership
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} map[string]any "Свежее состояние прав"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /membership/reconcile [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.reconcile"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	username, ok := r.Context().Value(middlewarectx.User).(string)
	if !ok || username == "" {
		log.Error("failed to get username from context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	state, err := h.service.Reconcile(r.Context(), username)
	if err != nil {
		log.Error("failed to reconcile entitlements", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not reconcile entitlements"))
		return
	}

	log.Info("entitlements reconciled", slog.String("username", username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"username":        state.Username,
		"membership_end":  state.MembershipEnd,
		"connection_end":  state.ConnectionEnd,
		"recalculated_at": state.RecalculatedAt,
	}))
}

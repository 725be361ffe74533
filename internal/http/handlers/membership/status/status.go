// Package status реализует HTTP-обработчик чтения текущего состояния прав
// пользователя: границ членства и доступа к сети.
package status

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-ledger/internal/http/response"
	"github.com/magabrotheeeer/membership-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

// Handler управляет HTTP-запросами состояния прав.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения состояния прав.
type Service interface {
	State(ctx context.Context, username string) (*models.EntitlementState, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Состояние прав пользователя
// @Description Возвращает границы членства и сетевого доступа вместе с флагами активности.
// @Tags Membership
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} map[string]any "Состояние прав"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /membership/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.status"
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

	state, err := h.service.State(r.Context(), username)
	if err != nil {
		log.Error("failed to read entitlement state", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read entitlement state"))
		return
	}

	now := time.Now()
	log.Info("entitlement state read", slog.String("username", username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"username":              state.Username,
		"membership_end":        state.MembershipEnd,
		"connection_end":        state.ConnectionEnd,
		"has_active_membership": activeAt(state.MembershipEnd, now),
		"has_network_access":    activeAt(state.ConnectionEnd, now),
		"recalculated_at":       state.RecalculatedAt,
	}))
}

func activeAt(end *time.Time, at time.Time) bool {
	return end != nil && at.Before(*end)
}

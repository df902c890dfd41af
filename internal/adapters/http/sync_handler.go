package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/protodo/core/internal/application/services"
	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
)

// SyncHandler handles user-triggered cloud sync requests
type SyncHandler struct {
	syncService *services.SyncService
	logger      *logger.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncService *services.SyncService, appLogger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      appLogger,
	}
}

// Push uploads the local collection for a user
func (h *SyncHandler) Push(c echo.Context) error {
	results, err := h.syncService.PushAll(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return syncError(h.logger, "Push", err)
	}

	return c.JSON(http.StatusOK, results)
}

// Pull replaces the local collection with the user's remote one
func (h *SyncHandler) Pull(c echo.Context) error {
	count, err := h.syncService.PullReplace(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return syncError(h.logger, "Pull", err)
	}

	return c.JSON(http.StatusOK, map[string]int{"pulled": count})
}

func syncError(appLogger *logger.Logger, op string, err error) error {
	if errors.Is(err, entities.ErrSyncInFlight) {
		return echo.NewHTTPError(http.StatusConflict, "A sync operation is already in progress")
	}
	appLogger.Error(op+" failed", "error", err)
	return echo.NewHTTPError(http.StatusBadGateway, op+" failed")
}

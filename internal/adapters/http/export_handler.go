package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/protodo/core/internal/application/services"
	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
)

// ExportHandler handles backup export and import requests
type ExportHandler struct {
	exportService *services.ExportService
	logger        *logger.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportService *services.ExportService, appLogger *logger.Logger) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		logger:        appLogger,
	}
}

// ExportJSON streams the version-2 JSON backup payload
func (h *ExportHandler) ExportJSON(c echo.Context) error {
	data, err := h.exportService.ExportJSON()
	if err != nil {
		h.logger.Error("JSON export failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Export failed")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="todo-export.json"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

// ExportCSV streams the CSV backup payload
func (h *ExportHandler) ExportCSV(c echo.Context) error {
	data, err := h.exportService.ExportCSV()
	if err != nil {
		h.logger.Error("CSV export failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Export failed")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="todo-export.csv"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}

// ImportJSON replaces the store content from an uploaded backup payload
func (h *ExportHandler) ImportJSON(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	count, err := h.exportService.ImportJSON(c.Request().Context(), data)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidImport) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.Error("Import failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Import failed")
	}

	return c.JSON(http.StatusOK, map[string]int{"imported": count})
}

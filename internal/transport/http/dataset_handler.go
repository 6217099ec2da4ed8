package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"hpipulse/internal/dataset"
	"hpipulse/internal/exporter"
	apierrors "hpipulse/internal/errors"
	hpimw "hpipulse/internal/middleware"
	"hpipulse/internal/services"
)

// Output formats for long tables.
const (
	FormatJSON = string(exporter.FormatJSON)
	FormatCSV  = string(exporter.FormatCSV)
)

const maxHeadRows = 1000

var formats = []string{FormatJSON, FormatCSV}

// DatasetHandler serves the merged dataset, its regions and its melted views
type DatasetHandler struct {
	service      DatasetServiceInterface
	validator    *hpimw.RequestValidator
	query        *hpimw.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	headRows     int
	logger       *slog.Logger
}

// NewDatasetHandler creates a dataset handler. headRows is the default
// number of rows previewed by GET /dataset.
func NewDatasetHandler(service DatasetServiceInterface, headRows int, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	if headRows <= 0 {
		headRows = 5
	}
	return &DatasetHandler{
		service:      service,
		validator:    hpimw.NewRequestValidator(logger),
		query:        hpimw.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		headRows:     headRows,
		logger:       logger.With(slog.String("component", "dataset_handler")),
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetOverview)
	r.Get("/status", h.GetStatus)
	r.Post("/refresh", h.Refresh)
	r.Get("/regions", h.GetRegions)
	r.Get("/regions/{region}/summary", h.GetRegionSummary)
	r.Get("/views", h.GetViews)
	r.Get("/views/{view}", h.GetView)

	r.With(hpimw.ContentTypeValidator(h.errorHandler, "application/json")).
		Post("/melt", h.Melt)

	return r
}

// GetOverview handles GET /api/dataset
func (h *DatasetHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	head, ok := h.query.ValidateInt(w, r, "head", 0, maxHeadRows, h.headRows)
	if !ok {
		return
	}

	overview, err := h.service.Overview(r.Context(), head)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, overview)
}

// GetStatus handles GET /api/dataset/status
func (h *DatasetHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status())
}

// Refresh handles POST /api/dataset/refresh
func (h *DatasetHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "dataset refresh requested",
		slog.String("request_id", middleware.GetReqID(r.Context())))

	if _, err := h.service.Refresh(r.Context()); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, h.service.Status())
}

// GetRegions handles GET /api/dataset/regions
func (h *DatasetHandler) GetRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.service.Regions(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"regions": regions,
		"count":   len(regions),
	})
}

// GetRegionSummary handles GET /api/dataset/regions/{region}/summary
func (h *DatasetHandler) GetRegionSummary(w http.ResponseWriter, r *http.Request) {
	region := urlParam(r, "region")

	summary, err := h.service.RegionSummary(r.Context(), region)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.mapError(err))
		return
	}
	render.JSON(w, r, summary)
}

// GetViews handles GET /api/dataset/views
func (h *DatasetHandler) GetViews(w http.ResponseWriter, r *http.Request) {
	views := h.service.Views()
	render.JSON(w, r, map[string]interface{}{
		"views": views,
		"count": len(views),
	})
}

// GetView handles GET /api/dataset/views/{view}?region=&format=
func (h *DatasetHandler) GetView(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format", formats, FormatJSON)
	if !ok {
		return
	}
	viewID := urlParam(r, "view")

	result, err := h.service.View(r.Context(), viewID, r.URL.Query().Get("region"))
	if err != nil {
		h.errorHandler.HandleError(w, r, h.mapError(err))
		return
	}

	if format == FormatCSV {
		h.writeCSV(w, r, viewFilename(result.View.ID, result.Region), result.Table)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"view":    result.View,
		"region":  result.Region,
		"columns": result.Table.Header(),
		"rows":    result.Table.Records(),
		"count":   len(result.Table.Rows),
	})
}

// Melt handles POST /api/dataset/melt?format=
func (h *DatasetHandler) Melt(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format", formats, FormatJSON)
	if !ok {
		return
	}

	var req services.MeltRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	long, err := h.service.Melt(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.mapError(err))
		return
	}

	if format == FormatCSV {
		h.writeCSV(w, r, "melt.csv", long)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"columns": long.Header(),
		"rows":    long.Records(),
		"count":   len(long.Rows),
	})
}

// writeCSV streams a long table. Once the header is written the status is
// committed, so later failures can only be logged.
func (h *DatasetHandler) writeCSV(w http.ResponseWriter, r *http.Request, filename string, long *dataset.LongTable) {
	w.Header().Set("Content-Type", exporter.FormatCSV.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if err := exporter.WriteLong(w, exporter.FormatCSV, long, exporter.Options{}); err != nil {
		h.logCSVError(r, err)
	}
}

func (h *DatasetHandler) logCSVError(r *http.Request, err error) {
	h.logger.WarnContext(r.Context(), "csv stream aborted",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())))
}

// mapError turns service lookup failures into 404s. Dataset errors are
// mapped by the error handler itself.
func (h *DatasetHandler) mapError(err error) error {
	switch {
	case errors.Is(err, services.ErrRegionNotFound):
		return apierrors.NotFoundError("region", err)
	case errors.Is(err, services.ErrViewNotFound):
		return apierrors.NotFoundError("view", err)
	}
	return err
}

func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func viewFilename(viewID, region string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(region), "-"))
	return fmt.Sprintf("%s-%s.csv", viewID, slug)
}

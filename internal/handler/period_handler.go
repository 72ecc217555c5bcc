package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uniflow-academic-api/internal/models"
	"github.com/noah-isme/uniflow-academic-api/internal/service"
	appErrors "github.com/noah-isme/uniflow-academic-api/pkg/errors"
	"github.com/noah-isme/uniflow-academic-api/pkg/response"
)

type periodService interface {
	Create(ctx context.Context, studentID string, req service.CreatePeriodRequest) (*models.Period, error)
	Update(ctx context.Context, studentID, id string, req service.UpdatePeriodRequest) (*models.Period, error)
	Delete(ctx context.Context, studentID, id string) error
	Get(ctx context.Context, studentID, id string) (*models.Period, error)
	GetCurrent(ctx context.Context, studentID string) (*models.Period, error)
	Activate(ctx context.Context, studentID, id string) (*models.Period, error)
	List(ctx context.Context, studentID string, params models.PaginationParams, filter models.PeriodFilter) (*models.PeriodPage, error)
	Statistics(ctx context.Context, studentID string) (*models.PeriodStatistics, error)
	Export(ctx context.Context, studentID string, filter models.PeriodFilter, format string) (*service.ExportFile, error)
}

// PeriodHandler exposes the student's academic periods.
type PeriodHandler struct {
	service periodService
}

// NewPeriodHandler constructs a period handler.
func NewPeriodHandler(svc periodService) *PeriodHandler {
	return &PeriodHandler{service: svc}
}

// Register mounts the period routes on an authenticated group.
func (h *PeriodHandler) Register(rg *gin.RouterGroup) {
	periods := rg.Group("/periods")
	periods.POST("", h.Create)
	periods.GET("", h.List)
	periods.GET("/current", h.Current)
	periods.GET("/stats", h.Statistics)
	periods.GET("/export", h.Export)
	periods.GET("/:id", h.Get)
	periods.PUT("/:id", h.Update)
	periods.DELETE("/:id", h.Delete)
	periods.PATCH("/:id/activate", h.Activate)
}

// Create godoc
// @Summary Create period
// @Tags Periods
// @Accept json
// @Produce json
// @Param payload body service.CreatePeriodRequest true "Period payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /periods [post]
func (h *PeriodHandler) Create(c *gin.Context) {
	studentID, err := studentIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidPeriod.Code, appErrors.ErrInvalidPeriod.Status, "invalid payload"))
		return
	}
	period, err := h.service.Create(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// List godoc
// @Summary List periods
// @Description Periods of the authenticated student, newest start date first
// @Tags Periods
// @Produce json
// @Param type query string false "first-semester, second-semester, summer or special"
// @Param year query int false "Filter by year"
// @Param isActive query bool false "Filter by active flag"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (1-100, default 10)"
// @Success 200 {object} response.Envelope
// @Router /periods [get]
func (h *PeriodHandler) List(c *gin.Context) {
	studentID, err := studentIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := parsePeriodFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.service.List(c.Request.Context(), studentID, parsePagination(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Data, &page.Pagination)
}

// Current godoc
// @Summary Get active period
// @Tags Periods
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /periods/current [get]
func (h *PeriodHandler) Current(c *gin.Context) {
	studentID, err := studentIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	period, err := h.service.GetCurrent(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, period)
}

// Statistics godoc
// @Summary Period statistics
// @Tags Periods
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /periods/stats [get]
func (h *PeriodHandler) Statistics(c *gin.Context) {
	studentID, err := studentIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.service.Statistics(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Export godoc
// @Summary Export periods
// @Tags Periods
// @Produce text/csv,application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param type query string false "Filter by type"
// @Param year query int false "Filter by year"
// @Param isActive query bool false "Filter by active flag"
// @Success 200 {file} file
// @Router /periods/export [get]
func (h *PeriodHandler) Export(c *gin.Context) {
	studentID, err := studentIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := parsePeriodFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Export(c.Request.Context(), studentID, filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Get godoc
// @Summary Get period
// @Tags Periods
// @Produce json
// @Param id path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /periods/{id} [get]
func (h *PeriodHandler) Get(c *gin.Context) {
	studentID, err := studentIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	period, err := h.service.Get(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, period)
}

// Update godoc
// @Summary Update period
// @Description Partial update; omitted fields keep their value
// @Tags Periods
// @Accept json
// @Produce json
// @Param id path string true "Period ID"
// @Param payload body service.UpdatePeriodRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /periods/{id} [put]
func (h *PeriodHandler) Update(c *gin.Context) {
	studentID, err := studentIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidPeriod.Code, appErrors.ErrInvalidPeriod.Status, "invalid payload"))
		return
	}
	period, err := h.service.Update(c.Request.Context(), studentID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, period)
}

// Delete godoc
// @Summary Delete period
// @Tags Periods
// @Param id path string true "Period ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /periods/{id} [delete]
func (h *PeriodHandler) Delete(c *gin.Context) {
	studentID, err := studentIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), studentID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Activate godoc
// @Summary Activate period
// @Description Marks the period active and deactivates every other period of the student
// @Tags Periods
// @Produce json
// @Param id path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /periods/{id}/activate [patch]
func (h *PeriodHandler) Activate(c *gin.Context) {
	studentID, err := studentIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	period, err := h.service.Activate(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, period)
}

// parsePagination ignores malformed numbers; range clamping happens downstream.
func parsePagination(c *gin.Context) models.PaginationParams {
	var params models.PaginationParams
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		params.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		params.Limit = limit
	}
	return params
}

func parsePeriodFilter(c *gin.Context) (models.PeriodFilter, error) {
	var filter models.PeriodFilter
	if raw := c.Query("type"); raw != "" {
		periodType, err := models.ParsePeriodType(raw)
		if err != nil {
			return filter, err
		}
		filter.Type = &periodType
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "year must be an integer")
		}
		filter.Year = &year
	}
	if raw := c.Query("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "isActive must be a boolean")
		}
		filter.IsActive = &active
	}
	return filter, nil
}

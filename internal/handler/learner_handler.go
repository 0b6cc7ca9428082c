package handler

import (
	"context"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/learner-records-api/internal/models"
	"github.com/noah-isme/learner-records-api/internal/service"
	appErrors "github.com/noah-isme/learner-records-api/pkg/errors"
	"github.com/noah-isme/learner-records-api/pkg/response"
)

var numericID = regexp.MustCompile(`^\d+$`)

type learnerService interface {
	List(ctx context.Context) ([]models.LearnerDetail, error)
	Get(ctx context.Context, id string) (*models.LearnerDetail, error)
	Search(ctx context.Context, cond models.LearnerSearchCondition) ([]models.LearnerDetail, error)
	Register(ctx context.Context, detail *models.LearnerDetail) (*models.LearnerDetail, error)
	Update(ctx context.Context, detail *models.LearnerDetail) error
}

type learnerExporter interface {
	Export(ctx context.Context, format string) (*service.ExportResult, error)
}

// LearnerHandler exposes learner record endpoints.
type LearnerHandler struct {
	learners  learnerService
	exporter  learnerExporter
	validator *validator.Validate
}

// NewLearnerHandler constructs LearnerHandler.
func NewLearnerHandler(learners learnerService, exporter learnerExporter, validate *validator.Validate) *LearnerHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &LearnerHandler{learners: learners, exporter: exporter, validator: validate}
}

// List godoc
// @Summary List learner details
// @Tags Learners
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /learners [get]
func (h *LearnerHandler) List(c *gin.Context) {
	details, err := h.learners.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details)
}

// Get godoc
// @Summary Get learner detail
// @Tags Learners
// @Produce json
// @Param id path string true "Learner ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learners/{id} [get]
func (h *LearnerHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !numericID.MatchString(id) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "learner id must be numeric"))
		return
	}
	detail, err := h.learners.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Search godoc
// @Summary Search learner details by condition
// @Tags Learners
// @Accept json
// @Produce json
// @Param payload body models.LearnerSearchCondition true "Search condition"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learners/search [post]
func (h *LearnerHandler) Search(c *gin.Context) {
	var cond models.LearnerSearchCondition
	if err := c.ShouldBindJSON(&cond); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.validator.Struct(cond); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid search condition"))
		return
	}
	if cond.MinAge != nil && cond.MaxAge != nil && *cond.MinAge > *cond.MaxAge {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "min_age must not exceed max_age"))
		return
	}
	details, err := h.learners.Search(c.Request.Context(), cond)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details)
}

// Register godoc
// @Summary Register learner with enrollments
// @Tags Learners
// @Accept json
// @Produce json
// @Param payload body models.LearnerDetail true "Learner detail"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /learners [post]
func (h *LearnerHandler) Register(c *gin.Context) {
	detail, ok := h.bindDetail(c)
	if !ok {
		return
	}
	if detail.Learner.ID != "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "learner id is assigned on registration"))
		return
	}
	registered, err := h.learners.Register(c.Request.Context(), detail)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registered)
}

// Update godoc
// @Summary Update learner with enrollments and statuses
// @Tags Learners
// @Accept json
// @Produce json
// @Param payload body models.LearnerDetail true "Learner detail"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /learners [put]
func (h *LearnerHandler) Update(c *gin.Context) {
	detail, ok := h.bindDetail(c)
	if !ok {
		return
	}
	if detail.Learner.ID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "learner id is required"))
		return
	}
	if err := h.learners.Update(c.Request.Context(), detail); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "learner updated"})
}

// Export godoc
// @Summary Export learner roster
// @Tags Learners
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /learners/export [get]
func (h *LearnerHandler) Export(c *gin.Context) {
	result, err := h.exporter.Export(c.Request.Context(), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.FileName, result.ContentType, result.Content)
}

// Retired answers requests to endpoints that were withdrawn.
func (h *LearnerHandler) Retired(c *gin.Context) {
	response.Error(c, appErrors.ErrRetired)
}

func (h *LearnerHandler) bindDetail(c *gin.Context) (*models.LearnerDetail, bool) {
	var detail models.LearnerDetail
	if err := c.ShouldBindJSON(&detail); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return nil, false
	}
	if err := h.validator.Struct(detail); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid learner detail"))
		return nil, false
	}
	return &detail, true
}

package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cvforge-backend/internal/apperr"
	"github.com/yungbote/cvforge-backend/internal/logger"
	"github.com/yungbote/cvforge-backend/internal/services"
)

type GenerationHandler struct {
	log               *logger.Logger
	generationService services.GenerationService
}

func NewGenerationHandler(log *logger.Logger, generationService services.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		log:               log.With("handler", "GenerationHandler"),
		generationService: generationService,
	}
}

func generationResponse(result *services.GenerationResult) gin.H {
	resp := gin.H{
		"success":     result.Success,
		"cv_latex":    result.CvLatex,
		"cover_latex": result.CoverLatex,
	}
	if result.PartialSuccess {
		// LaTeX is usable, PDF is not: the caller gets the sources and a
		// message, and may retry or let the user compile locally.
		resp["partial_success"] = true
		resp["error"] = result.Error
	}
	if result.Success {
		resp["cv_pdf_base64"] = base64.StdEncoding.EncodeToString(result.CvPdf)
		resp["cover_pdf_base64"] = base64.StdEncoding.EncodeToString(result.CoverPdf)
	}
	return resp
}

// POST /api/applications/:id/generate
func (gh *GenerationHandler) GenerateDocuments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid application id"})
		return
	}

	result, err := gh.generationService.GenerateDocuments(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, generationResponse(result))
}

// POST /api/applications/:id/regenerate
func (gh *GenerationHandler) RegenerateDocuments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid application id"})
		return
	}

	result, err := gh.generationService.RegenerateDocuments(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, generationResponse(result))
}

// GET /api/applications/:id/documents
func (gh *GenerationHandler) GetGeneratedDocuments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid application id"})
		return
	}

	cvPdf, coverPdf, err := gh.generationService.GetGeneratedDocuments(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"cv_pdf_base64":    base64.StdEncoding.EncodeToString(cvPdf),
		"cover_pdf_base64": base64.StdEncoding.EncodeToString(coverPdf),
	})
}

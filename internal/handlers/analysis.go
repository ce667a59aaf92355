package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cvforge-backend/internal/apperr"
	"github.com/yungbote/cvforge-backend/internal/logger"
	"github.com/yungbote/cvforge-backend/internal/services"
)

type AnalysisHandler struct {
	log             *logger.Logger
	analysisService services.AnalysisService
}

func NewAnalysisHandler(log *logger.Logger, analysisService services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		log:             log.With("handler", "AnalysisHandler"),
		analysisService: analysisService,
	}
}

// POST /api/applications/analyze
func (ah *AnalysisHandler) AnalyzeOffer(c *gin.Context) {
	var req struct {
		ProfileID      uuid.UUID `json:"profile_id"`
		JobDescription string    `json:"job_description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, err := ah.analysisService.AnalyzeOffer(c.Request.Context(), req.ProfileID, req.JobDescription)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"job_offer_id":   result.JobOfferID,
		"application_id": result.ApplicationID,
		"analysis":       result.Analysis,
	})
}

// GET /api/applications/:id/analysis
func (ah *AnalysisHandler) GetAnalysis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid application id"})
		return
	}

	view, err := ah.analysisService.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"application": view.Application,
		"job_offer":   view.JobOffer,
		"profile":     view.Profile,
	})
}

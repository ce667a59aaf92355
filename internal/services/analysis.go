package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cvforge-backend/internal/apperr"
	"github.com/yungbote/cvforge-backend/internal/logger"
	"github.com/yungbote/cvforge-backend/internal/repos"
	"github.com/yungbote/cvforge-backend/internal/types"
)

type AnalyzeOfferResult struct {
	JobOfferID    uuid.UUID            `json:"job_offer_id"`
	ApplicationID uuid.UUID            `json:"application_id"`
	Analysis      types.AnalysisResult `json:"analysis"`
}

// AnalysisView is the full analysis page payload: application progress,
// offer analysis and the profile it was scored against.
type AnalysisView struct {
	Application struct {
		ID            uuid.UUID               `json:"id"`
		Status        string                  `json:"status"`
		ChatHistory   []types.ChatMessage     `json:"chat_history"`
		Strategies    map[string]types.Strategy `json:"strategies"`
		GapsAddressed int                     `json:"gaps_addressed"`
		TotalGaps     int                     `json:"total_gaps"`
	} `json:"application"`
	JobOffer struct {
		ID       uuid.UUID            `json:"id"`
		Title    string               `json:"title"`
		Company  string               `json:"company"`
		Analysis types.AnalysisResult `json:"analysis"`
	} `json:"job_offer"`
	Profile struct {
		ID     uuid.UUID    `json:"id"`
		CVData types.CVData `json:"cv_data"`
	} `json:"profile"`
}

type AnalysisService interface {
	// AnalyzeOffer scores a job description against a profile, persists the
	// offer with its capped analysis and seeds the application record the
	// chat engine will drive. A failed completion writes nothing.
	AnalyzeOffer(ctx context.Context, profileID uuid.UUID, jobDescription string) (*AnalyzeOfferResult, error)
	GetAnalysis(ctx context.Context, applicationID uuid.UUID) (*AnalysisView, error)
}

type analysisService struct {
	db          *gorm.DB
	log         *logger.Logger
	profileRepo repos.ProfileRepo
	offerRepo   repos.JobOfferRepo
	appRepo     repos.ApplicationRepo
	completion  CompletionClient
}

func NewAnalysisService(
	db *gorm.DB,
	baseLog *logger.Logger,
	profileRepo repos.ProfileRepo,
	offerRepo repos.JobOfferRepo,
	appRepo repos.ApplicationRepo,
	completion CompletionClient,
) AnalysisService {
	return &analysisService{
		db:          db,
		log:         baseLog.With("service", "AnalysisService"),
		profileRepo: profileRepo,
		offerRepo:   offerRepo,
		appRepo:     appRepo,
		completion:  completion,
	}
}

func (as *analysisService) AnalyzeOffer(ctx context.Context, profileID uuid.UUID, jobDescription string) (*AnalyzeOfferResult, error) {
	if len(jobDescription) == 0 {
		return nil, apperr.InvalidInput("job description is empty")
	}

	profile, err := as.profileRepo.GetByID(ctx, nil, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("profile %s not found", profileID)
		}
		return nil, err
	}
	cv, err := profile.CVData()
	if err != nil {
		return nil, fmt.Errorf("decode profile data: %w", err)
	}

	var analysis types.AnalysisResult
	if err := as.completion.GenerateJSON(ctx, jobAnalysisPrompt(cv, jobDescription), &analysis); err != nil {
		as.log.Error("Offer analysis failed", "profile_id", profileID, "error", err)
		return nil, err
	}

	// The prompt asks for at most three gaps ranked by severity; cap
	// regardless of what came back.
	if len(analysis.Gaps) > types.MaxGaps {
		analysis.Gaps = analysis.Gaps[:types.MaxGaps]
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	keywordsJSON, err := json.Marshal(analysis.Keywords)
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}

	offer := &types.JobOffer{
		ID:              uuid.New(),
		MasterProfileID: profile.ID,
		RawText:         jobDescription,
		Title:           analysis.JobTitle,
		Company:         analysis.Company,
		RequiredSkills:  keywordsJSON,
		AnalysisResult:  analysisJSON,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	app := &types.Application{
		ID:            uuid.New(),
		JobOfferID:    offer.ID,
		Status:        types.StatusAnalyzed,
		ChatHistory:   []byte("[]"),
		Strategies:    []byte("{}"),
		GapsAddressed: 0,
		GapStartIndex: 0,
		TotalGaps:     len(analysis.Gaps),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := as.offerRepo.Create(ctx, tx, offer); err != nil {
			return fmt.Errorf("create job offer: %w", err)
		}
		if _, err := as.appRepo.Create(ctx, tx, app); err != nil {
			return fmt.Errorf("create application: %w", err)
		}
		return nil
	})
	if err != nil {
		as.log.Error("Analysis persistence failed", "profile_id", profileID, "error", err)
		return nil, err
	}

	as.log.Info("Offer analyzed",
		"profile_id", profileID,
		"job_offer_id", offer.ID,
		"application_id", app.ID,
		"score", analysis.Score,
		"gaps", len(analysis.Gaps),
	)

	return &AnalyzeOfferResult{
		JobOfferID:    offer.ID,
		ApplicationID: app.ID,
		Analysis:      analysis,
	}, nil
}

func (as *analysisService) GetAnalysis(ctx context.Context, applicationID uuid.UUID) (*AnalysisView, error) {
	app, err := as.appRepo.GetByID(ctx, nil, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("application %s not found", applicationID)
		}
		return nil, err
	}
	if app.JobOffer == nil || app.JobOffer.MasterProfile == nil {
		return nil, fmt.Errorf("application %s is missing its job offer or profile", applicationID)
	}

	analysis, err := app.JobOffer.Analysis()
	if err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	cv, err := app.JobOffer.MasterProfile.CVData()
	if err != nil {
		return nil, fmt.Errorf("decode profile data: %w", err)
	}
	history, err := app.History()
	if err != nil {
		return nil, fmt.Errorf("decode chat history: %w", err)
	}
	strategies, err := app.StrategyMap()
	if err != nil {
		return nil, fmt.Errorf("decode strategies: %w", err)
	}

	var view AnalysisView
	view.Application.ID = app.ID
	view.Application.Status = app.Status
	view.Application.ChatHistory = history
	view.Application.Strategies = strategies
	view.Application.GapsAddressed = app.GapsAddressed
	view.Application.TotalGaps = app.TotalGaps
	view.JobOffer.ID = app.JobOffer.ID
	view.JobOffer.Title = app.JobOffer.Title
	view.JobOffer.Company = app.JobOffer.Company
	view.JobOffer.Analysis = analysis
	view.Profile.ID = app.JobOffer.MasterProfile.ID
	view.Profile.CVData = cv
	return &view, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/cvforge-backend/internal/apperr"
	"github.com/yungbote/cvforge-backend/internal/logger"
	"github.com/yungbote/cvforge-backend/internal/repos"
	"github.com/yungbote/cvforge-backend/internal/types"
)

// GenerationResult distinguishes three outcomes: full success (both PDFs),
// partial success (LaTeX generated and saved, compilation failed — the
// sources are still delivered so the user can compile locally), and hard
// failure (returned as an error instead).
type GenerationResult struct {
	Success        bool   `json:"success"`
	PartialSuccess bool   `json:"partial_success,omitempty"`
	CvPdf          []byte `json:"-"`
	CoverPdf       []byte `json:"-"`
	CvLatex        string `json:"cv_latex,omitempty"`
	CoverLatex     string `json:"cover_latex,omitempty"`
	Error          string `json:"error,omitempty"`
}

type GenerationService interface {
	// GenerateDocuments runs the two-stage pipeline: generate both LaTeX
	// sources, persist them unconditionally, then try to compile. The
	// first persistence means a compiler outage never loses generated
	// content.
	GenerateDocuments(ctx context.Context, applicationID uuid.UUID) (*GenerationResult, error)
	// RegenerateDocuments clears prior artifacts and runs a fresh
	// generation attempt.
	RegenerateDocuments(ctx context.Context, applicationID uuid.UUID) (*GenerationResult, error)
	GetGeneratedDocuments(ctx context.Context, applicationID uuid.UUID) (cvPdf, coverPdf []byte, err error)
}

type generationService struct {
	db         *gorm.DB
	log        *logger.Logger
	appRepo    repos.ApplicationRepo
	completion CompletionClient
	latex      LatexClient
}

func NewGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	appRepo repos.ApplicationRepo,
	completion CompletionClient,
	latex LatexClient,
) GenerationService {
	return &generationService{
		db:         db,
		log:        baseLog.With("service", "GenerationService"),
		appRepo:    appRepo,
		completion: completion,
		latex:      latex,
	}
}

func (gs *generationService) loadApplication(ctx context.Context, applicationID uuid.UUID) (*types.Application, error) {
	app, err := gs.appRepo.GetByID(ctx, nil, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("application %s not found", applicationID)
		}
		return nil, err
	}
	if app.JobOffer == nil || app.JobOffer.MasterProfile == nil {
		return nil, fmt.Errorf("application %s is missing its job offer or profile", applicationID)
	}
	return app, nil
}

func (gs *generationService) GenerateDocuments(ctx context.Context, applicationID uuid.UUID) (*GenerationResult, error) {
	app, err := gs.loadApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if app.Status != types.StatusStrategiesComplete {
		return nil, apperr.PreconditionFailed("strategies must be complete before generating documents (status is %q)", app.Status)
	}

	cv, err := app.JobOffer.MasterProfile.CVData()
	if err != nil {
		return nil, fmt.Errorf("decode profile data: %w", err)
	}
	analysis, err := app.JobOffer.Analysis()
	if err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	strategyMap, err := app.StrategyMap()
	if err != nil {
		return nil, fmt.Errorf("decode strategies: %w", err)
	}

	var strategies []types.Strategy
	for _, s := range strategyMap {
		if s.Validated {
			strategies = append(strategies, s)
		}
	}

	prompt := documentGenerationPrompt(cv, analysis, strategies, app.JobOffer.RawText)
	cvLatex, coverLatex, err := gs.completion.GenerateDocumentPair(ctx, prompt)
	if err != nil {
		gs.log.Error("Document generation failed", "application_id", applicationID, "error", err)
		return nil, err
	}

	// Persist the sources before touching the compiler, so the generation
	// result survives any downstream failure.
	err = gs.appRepo.Update(ctx, nil, applicationID, map[string]interface{}{
		"final_cv_latex":    cvLatex,
		"final_cover_latex": coverLatex,
		"status":            types.StatusLatexGenerated,
		"updated_at":        time.Now(),
	})
	if err != nil {
		return nil, err
	}
	gs.log.Info("LaTeX sources saved", "application_id", applicationID, "cv_len", len(cvLatex), "cover_len", len(coverLatex))

	// The two documents are independent; compile them concurrently.
	var cvPdf, coverPdf []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pdf, err := gs.latex.Compile(gctx, cvLatex)
		if err != nil {
			return fmt.Errorf("cv: %w", err)
		}
		cvPdf = pdf
		return nil
	})
	g.Go(func() error {
		pdf, err := gs.latex.Compile(gctx, coverLatex)
		if err != nil {
			return fmt.Errorf("cover letter: %w", err)
		}
		coverPdf = pdf
		return nil
	})

	if err := g.Wait(); err != nil {
		gs.log.Warn("PDF compilation failed, LaTeX was saved", "application_id", applicationID, "error", err)
		return &GenerationResult{
			PartialSuccess: true,
			CvLatex:        cvLatex,
			CoverLatex:     coverLatex,
			Error:          fmt.Sprintf("PDF compilation failed: %v", err),
		}, nil
	}

	err = gs.appRepo.Update(ctx, nil, applicationID, map[string]interface{}{
		"final_cv_pdf":    cvPdf,
		"final_cover_pdf": coverPdf,
		"status":          types.StatusCompleted,
		"updated_at":      time.Now(),
	})
	if err != nil {
		return nil, err
	}

	gs.log.Info("Documents generated", "application_id", applicationID)
	return &GenerationResult{
		Success:    true,
		CvPdf:      cvPdf,
		CoverPdf:   coverPdf,
		CvLatex:    cvLatex,
		CoverLatex: coverLatex,
	}, nil
}

func (gs *generationService) RegenerateDocuments(ctx context.Context, applicationID uuid.UUID) (*GenerationResult, error) {
	app, err := gs.loadApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	switch app.Status {
	case types.StatusStrategiesComplete, types.StatusLatexGenerated, types.StatusCompleted:
	default:
		return nil, apperr.PreconditionFailed("cannot regenerate before strategies are complete (status is %q)", app.Status)
	}

	err = gs.appRepo.Update(ctx, nil, applicationID, map[string]interface{}{
		"status":            types.StatusStrategiesComplete,
		"final_cv_latex":    "",
		"final_cover_latex": "",
		"final_cv_pdf":      nil,
		"final_cover_pdf":   nil,
		"updated_at":        time.Now(),
	})
	if err != nil {
		return nil, err
	}

	return gs.GenerateDocuments(ctx, applicationID)
}

func (gs *generationService) GetGeneratedDocuments(ctx context.Context, applicationID uuid.UUID) ([]byte, []byte, error) {
	app, err := gs.loadApplication(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	if len(app.FinalCvPdf) == 0 || len(app.FinalCoverPdf) == 0 {
		return nil, nil, apperr.NotFound("documents not generated yet for application %s", applicationID)
	}
	return app.FinalCvPdf, app.FinalCoverPdf, nil
}

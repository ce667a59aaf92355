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

// minCVTextLen guards against scanned/image-only PDFs: below this much
// extracted text the upload is rejected instead of feeding garbage to the
// extraction prompt.
const minCVTextLen = 100

type ProfileService interface {
	// UploadCV extracts text from a CV PDF, structures it through the
	// completion gateway and persists the resulting profile. Profiles are
	// write-once; a new upload is a new profile.
	UploadCV(ctx context.Context, mimeType string, data []byte) (*types.MasterProfile, types.CVData, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*types.MasterProfile, types.CVData, error)
}

type profileService struct {
	db          *gorm.DB
	log         *logger.Logger
	profileRepo repos.ProfileRepo
	completion  CompletionClient
}

func NewProfileService(db *gorm.DB, baseLog *logger.Logger, profileRepo repos.ProfileRepo, completion CompletionClient) ProfileService {
	return &profileService{
		db:          db,
		log:         baseLog.With("service", "ProfileService"),
		profileRepo: profileRepo,
		completion:  completion,
	}
}

func (ps *profileService) UploadCV(ctx context.Context, mimeType string, data []byte) (*types.MasterProfile, types.CVData, error) {
	var cv types.CVData

	if mimeType != "application/pdf" {
		return nil, cv, apperr.InvalidInput("only PDF files are accepted, got %q", mimeType)
	}

	rawText, err := ExtractCVText(data)
	if err != nil {
		ps.log.Error("CV text extraction failed", "error", err)
		return nil, cv, apperr.InvalidInput("could not read PDF: %v", err)
	}
	if len(rawText) < minCVTextLen {
		return nil, cv, apperr.InvalidInput("PDF looks empty or unreadable (%d chars extracted)", len(rawText))
	}

	if err := ps.completion.GenerateJSON(ctx, cvExtractionPrompt(rawText), &cv); err != nil {
		ps.log.Error("CV structuring failed", "error", err)
		return nil, cv, err
	}

	structured, err := json.Marshal(cv)
	if err != nil {
		return nil, cv, fmt.Errorf("marshal cv data: %w", err)
	}

	profile := &types.MasterProfile{
		ID:             uuid.New(),
		RawText:        rawText,
		StructuredData: structured,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if _, err := ps.profileRepo.Create(ctx, nil, profile); err != nil {
		ps.log.Error("Profile create failed", "error", err)
		return nil, cv, fmt.Errorf("create profile: %w", err)
	}

	ps.log.Info("Profile created", "profile_id", profile.ID, "raw_text_len", len(rawText))
	return profile, cv, nil
}

func (ps *profileService) GetProfile(ctx context.Context, id uuid.UUID) (*types.MasterProfile, types.CVData, error) {
	var cv types.CVData

	profile, err := ps.profileRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cv, apperr.NotFound("profile %s not found", id)
		}
		return nil, cv, err
	}

	cv, err = profile.CVData()
	if err != nil {
		return nil, cv, fmt.Errorf("decode profile data: %w", err)
	}
	return profile, cv, nil
}

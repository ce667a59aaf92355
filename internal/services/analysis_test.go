package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/cvforge-backend/internal/apperr"
	"github.com/yungbote/cvforge-backend/internal/repos"
	"github.com/yungbote/cvforge-backend/internal/types"
)

func TestAnalyzeOffer_PersistsOfferAndApplication(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	profile := seedProfile(t, db)

	completion := `{"score":55,"gaps":[{"skill":"Docker","severity":"critical","category":"tools","suggestion":"Conteneuriser un projet"}],"keywords":["docker","react"],"matchedSkills":["React"],"jobTitle":"Ingénieur Logiciel","company":"Globex"}`
	fake := &fakeCompletion{jsonReplies: []string{completion}}
	svc := NewAnalysisService(db, log,
		repos.NewProfileRepo(db, log),
		repos.NewJobOfferRepo(db, log),
		repos.NewApplicationRepo(db, log),
		fake,
	)

	res, err := svc.AnalyzeOffer(context.Background(), profile.ID, "Offre: ingénieur logiciel, Docker exigé")
	require.NoError(t, err)
	require.Equal(t, 55, res.Analysis.Score)
	require.Len(t, res.Analysis.Gaps, 1)

	var offer types.JobOffer
	require.NoError(t, db.First(&offer, "id = ?", res.JobOfferID).Error)
	require.Equal(t, profile.ID, offer.MasterProfileID)
	require.Equal(t, "Ingénieur Logiciel", offer.Title)
	require.Equal(t, "Globex", offer.Company)

	app := reloadApplication(t, db, res.ApplicationID)
	require.Equal(t, types.StatusAnalyzed, app.Status)
	require.Equal(t, 1, app.TotalGaps)
	require.Equal(t, 0, app.GapsAddressed)

	history, err := app.History()
	require.NoError(t, err)
	require.Empty(t, history)
	strategies, err := app.StrategyMap()
	require.NoError(t, err)
	require.Empty(t, strategies)
}

func TestAnalyzeOffer_CapsGapsAtThree(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	profile := seedProfile(t, db)

	var gaps string
	for i := 0; i < 5; i++ {
		if i > 0 {
			gaps += ","
		}
		gaps += fmt.Sprintf(`{"skill":"Skill%d","severity":"minor","category":"tools","suggestion":"s"}`, i)
	}
	completion := fmt.Sprintf(`{"score":40,"gaps":[%s],"keywords":[],"matchedSkills":[],"jobTitle":"Dev","company":"Acme"}`, gaps)

	fake := &fakeCompletion{jsonReplies: []string{completion}}
	svc := NewAnalysisService(db, log,
		repos.NewProfileRepo(db, log),
		repos.NewJobOfferRepo(db, log),
		repos.NewApplicationRepo(db, log),
		fake,
	)

	res, err := svc.AnalyzeOffer(context.Background(), profile.ID, "offre")
	require.NoError(t, err)
	require.Len(t, res.Analysis.Gaps, types.MaxGaps)

	// The cap survives persistence too.
	var offer types.JobOffer
	require.NoError(t, db.First(&offer, "id = ?", res.JobOfferID).Error)
	stored, err := offer.Analysis()
	require.NoError(t, err)
	require.Len(t, stored.Gaps, types.MaxGaps)

	app := reloadApplication(t, db, res.ApplicationID)
	require.Equal(t, types.MaxGaps, app.TotalGaps)
}

func TestAnalyzeOffer_CompletionFailureWritesNothing(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	profile := seedProfile(t, db)

	fake := &fakeCompletion{err: fmt.Errorf("model unavailable")}
	svc := NewAnalysisService(db, log,
		repos.NewProfileRepo(db, log),
		repos.NewJobOfferRepo(db, log),
		repos.NewApplicationRepo(db, log),
		fake,
	)

	_, err := svc.AnalyzeOffer(context.Background(), profile.ID, "offre")
	require.Error(t, err)

	var offers, apps int64
	require.NoError(t, db.Model(&types.JobOffer{}).Count(&offers).Error)
	require.NoError(t, db.Model(&types.Application{}).Count(&apps).Error)
	require.Zero(t, offers)
	require.Zero(t, apps)
}

func TestAnalyzeOffer_InputValidation(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)

	fake := &fakeCompletion{}
	svc := NewAnalysisService(db, log,
		repos.NewProfileRepo(db, log),
		repos.NewJobOfferRepo(db, log),
		repos.NewApplicationRepo(db, log),
		fake,
	)

	_, err := svc.AnalyzeOffer(context.Background(), uuid.New(), "")
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidInput))

	_, err = svc.AnalyzeOffer(context.Background(), uuid.New(), "offre")
	require.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestGetAnalysis(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	app := seedApplication(t, db, types.StatusAnalyzed, dockerGap())

	fake := &fakeCompletion{}
	svc := NewAnalysisService(db, log,
		repos.NewProfileRepo(db, log),
		repos.NewJobOfferRepo(db, log),
		repos.NewApplicationRepo(db, log),
		fake,
	)

	view, err := svc.GetAnalysis(context.Background(), app.ID)
	require.NoError(t, err)
	require.Equal(t, app.ID, view.Application.ID)
	require.Equal(t, types.StatusAnalyzed, view.Application.Status)
	require.Equal(t, 1, view.Application.TotalGaps)
	require.Equal(t, "Ingénieur Logiciel", view.JobOffer.Title)
	require.Len(t, view.JobOffer.Analysis.Gaps, 1)
	require.Equal(t, "Marie Dupont", view.Profile.CVData.PersonalInfo.FullName)

	_, err = svc.GetAnalysis(context.Background(), uuid.New())
	require.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/cvforge-backend/internal/apperr"
	"github.com/yungbote/cvforge-backend/internal/repos"
	"github.com/yungbote/cvforge-backend/internal/types"
)

const testPairCompletion = "===CV_START===\n" +
	"\\documentclass{article}\\begin{document}CV de Marie\\end{document}\n" +
	"===CV_END===\n" +
	"===COVER_START===\n" +
	"\\documentclass{letter}\\begin{document}Lettre de motivation\\end{document}\n" +
	"===COVER_END==="

func TestGenerateDocuments_Success(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	app := seedApplication(t, db, types.StatusStrategiesComplete, dockerGap())

	strategies := map[string]types.Strategy{
		"Docker": {GapSkill: "Docker", Approach: types.ApproachFastLearner, Details: "Apprentissage rapide", Validated: true},
	}
	require.NoError(t, db.Model(&types.Application{}).Where("id = ?", app.ID).
		Update("strategies", mustJSON(t, strategies)).Error)

	fake := &fakeCompletion{pairReply: testPairCompletion}
	latex := &fakeLatex{pdf: []byte("%PDF-1.5 ok")}
	svc := NewGenerationService(db, log, repos.NewApplicationRepo(db, log), fake, latex)

	res, err := svc.GenerateDocuments(context.Background(), app.ID)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.False(t, res.PartialSuccess)
	require.Equal(t, []byte("%PDF-1.5 ok"), res.CvPdf)
	require.Equal(t, []byte("%PDF-1.5 ok"), res.CoverPdf)
	require.Contains(t, res.CvLatex, "CV de Marie")
	require.Contains(t, res.CoverLatex, "Lettre de motivation")
	require.Equal(t, 2, latex.calls)

	stored := reloadApplication(t, db, app.ID)
	require.Equal(t, types.StatusCompleted, stored.Status)
	require.NotEmpty(t, stored.FinalCvLatex)
	require.NotEmpty(t, stored.FinalCoverLatex)
	require.NotEmpty(t, stored.FinalCvPdf)
	require.NotEmpty(t, stored.FinalCoverPdf)

	cvPdf, coverPdf, err := svc.GetGeneratedDocuments(context.Background(), app.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.5 ok"), cvPdf)
	require.Equal(t, []byte("%PDF-1.5 ok"), coverPdf)
}

func TestGenerateDocuments_CompileFailureKeepsLatex(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	app := seedApplication(t, db, types.StatusStrategiesComplete, dockerGap())

	fake := &fakeCompletion{pairReply: testPairCompletion}
	latex := &fakeLatex{err: apperr.CompilationRejected("latex compilation failed: 422")}
	svc := NewGenerationService(db, log, repos.NewApplicationRepo(db, log), fake, latex)

	res, err := svc.GenerateDocuments(context.Background(), app.ID)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.True(t, res.PartialSuccess)
	require.Contains(t, res.CvLatex, "CV de Marie")
	require.NotEmpty(t, res.Error)

	// The sources were persisted before compilation was attempted.
	stored := reloadApplication(t, db, app.ID)
	require.Equal(t, types.StatusLatexGenerated, stored.Status)
	require.NotEmpty(t, stored.FinalCvLatex)
	require.NotEmpty(t, stored.FinalCoverLatex)
	require.Empty(t, stored.FinalCvPdf)
	require.Empty(t, stored.FinalCoverPdf)

	_, _, err = svc.GetGeneratedDocuments(context.Background(), app.ID)
	require.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestGenerateDocuments_RequiresCompletedStrategies(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	app := seedApplication(t, db, types.StatusChatting, dockerGap())

	fake := &fakeCompletion{pairReply: testPairCompletion}
	latex := &fakeLatex{pdf: []byte("%PDF")}
	svc := NewGenerationService(db, log, repos.NewApplicationRepo(db, log), fake, latex)

	_, err := svc.GenerateDocuments(context.Background(), app.ID)
	require.True(t, apperr.HasCode(err, apperr.CodePreconditionFailed))
	require.Equal(t, 0, fake.pairCalls)

	_, err = svc.GenerateDocuments(context.Background(), uuid.New())
	require.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestRegenerateDocuments_ResetsArtifacts(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	app := seedApplication(t, db, types.StatusStrategiesComplete, dockerGap())

	fake := &fakeCompletion{pairReply: testPairCompletion}
	latex := &fakeLatex{pdf: []byte("%PDF-first")}
	svc := NewGenerationService(db, log, repos.NewApplicationRepo(db, log), fake, latex)

	_, err := svc.GenerateDocuments(context.Background(), app.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusCompleted, reloadApplication(t, db, app.ID).Status)

	latex.mu.Lock()
	latex.pdf = []byte("%PDF-second")
	latex.mu.Unlock()

	res, err := svc.RegenerateDocuments(context.Background(), app.ID)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []byte("%PDF-second"), res.CvPdf)

	stored := reloadApplication(t, db, app.ID)
	require.Equal(t, types.StatusCompleted, stored.Status)
	require.Equal(t, []byte("%PDF-second"), []byte(stored.FinalCvPdf))
	require.Equal(t, 2, fake.pairCalls)
}

func TestRegenerateDocuments_RequiresCompletedStrategies(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	app := seedApplication(t, db, types.StatusAnalyzed, dockerGap())

	fake := &fakeCompletion{pairReply: testPairCompletion}
	latex := &fakeLatex{pdf: []byte("%PDF")}
	svc := NewGenerationService(db, log, repos.NewApplicationRepo(db, log), fake, latex)

	_, err := svc.RegenerateDocuments(context.Background(), app.ID)
	require.True(t, apperr.HasCode(err, apperr.CodePreconditionFailed))
}

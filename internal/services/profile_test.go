package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/cvforge-backend/internal/apperr"
	"github.com/yungbote/cvforge-backend/internal/repos"
)

func TestUploadCV_RejectsNonPDFMimeType(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)

	fake := &fakeCompletion{}
	svc := NewProfileService(db, log, repos.NewProfileRepo(db, log), fake)

	_, _, err := svc.UploadCV(context.Background(), "image/png", []byte("not a pdf"))
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidInput))
	require.Equal(t, 0, fake.jsonCalls)
}

func TestUploadCV_RejectsBytesWithoutPDFHeader(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)

	fake := &fakeCompletion{}
	svc := NewProfileService(db, log, repos.NewProfileRepo(db, log), fake)

	_, _, err := svc.UploadCV(context.Background(), "application/pdf", []byte("plain text pretending"))
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidInput))
}

func TestGetProfile(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	seeded := seedProfile(t, db)

	fake := &fakeCompletion{}
	svc := NewProfileService(db, log, repos.NewProfileRepo(db, log), fake)

	profile, cv, err := svc.GetProfile(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Equal(t, seeded.ID, profile.ID)
	require.Equal(t, "Marie Dupont", cv.PersonalInfo.FullName)
	require.NotEmpty(t, cv.Experiences)

	_, _, err = svc.GetProfile(context.Background(), uuid.New())
	require.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

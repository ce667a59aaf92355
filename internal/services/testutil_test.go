package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/cvforge-backend/internal/logger"
	"github.com/yungbote/cvforge-backend/internal/types"
)

// testDB opens a private in-memory database and migrates the full schema.
// Each call gets its own database, so tests never share state.
func testDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&types.MasterProfile{},
		&types.JobOffer{},
		&types.Application{},
	)
	if err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

func testCV() types.CVData {
	return types.CVData{
		PersonalInfo: types.PersonalInfo{
			FullName: "Marie Dupont",
			Email:    "marie.dupont@example.com",
			Location: "Paris, France",
		},
		Experiences: []types.Experience{
			{
				Title:     "Développeuse Full Stack",
				Company:   "Acme SAS",
				StartDate: "2022-01",
				EndDate:   "2024-06",
				Bullets:   []string{"Built internal tools with React and Node.js"},
			},
		},
		Skills: types.Skills{
			Languages:  []string{"TypeScript", "Python"},
			Frameworks: []string{"React", "Node.js"},
		},
	}
}

func testAnalysis(gaps ...types.GapAnalysis) types.AnalysisResult {
	return types.AnalysisResult{
		Score:         60,
		Gaps:          gaps,
		Keywords:      []string{"react", "docker"},
		MatchedSkills: []string{"React"},
		JobTitle:      "Ingénieur Logiciel",
		Company:       "Globex",
	}
}

func mustJSON(tb testing.TB, v interface{}) []byte {
	tb.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal fixture: %v", err)
	}
	return b
}

// seedProfile inserts a profile carrying testCV as its structured data.
func seedProfile(tb testing.TB, db *gorm.DB) *types.MasterProfile {
	tb.Helper()
	p := &types.MasterProfile{
		ID:             uuid.New(),
		RawText:        "Marie Dupont. Développeuse full stack, React et Node.js.",
		StructuredData: mustJSON(tb, testCV()),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

// seedApplication inserts a profile, an analyzed offer carrying the given
// gaps and an application in the given status, chained together.
func seedApplication(tb testing.TB, db *gorm.DB, status string, gaps ...types.GapAnalysis) *types.Application {
	tb.Helper()

	profile := seedProfile(tb, db)
	offer := &types.JobOffer{
		ID:              uuid.New(),
		MasterProfileID: profile.ID,
		RawText:         "On recherche un ingénieur logiciel. Docker et Kubernetes exigés.",
		Title:           "Ingénieur Logiciel",
		Company:         "Globex",
		RequiredSkills:  mustJSON(tb, []string{"react", "docker"}),
		AnalysisResult:  mustJSON(tb, testAnalysis(gaps...)),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := db.Create(offer).Error; err != nil {
		tb.Fatalf("seed job offer: %v", err)
	}

	app := &types.Application{
		ID:          uuid.New(),
		JobOfferID:  offer.ID,
		Status:      status,
		ChatHistory: []byte("[]"),
		Strategies:  []byte("{}"),
		TotalGaps:   len(gaps),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := db.Create(app).Error; err != nil {
		tb.Fatalf("seed application: %v", err)
	}
	return app
}

func reloadApplication(tb testing.TB, db *gorm.DB, id uuid.UUID) *types.Application {
	tb.Helper()
	var app types.Application
	if err := db.First(&app, "id = ?", id).Error; err != nil {
		tb.Fatalf("reload application: %v", err)
	}
	return &app
}

// fakeCompletion replays scripted completions in order, one queue per
// method. GenerateJSON routes raw text through the real completion parser
// so fences and malformed payloads behave exactly as in production.
type fakeCompletion struct {
	mu sync.Mutex

	textReplies []string
	jsonReplies []string
	pairReply   string

	err error

	textCalls int
	jsonCalls int
	pairCalls int
}

func (f *fakeCompletion) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.textReplies) == 0 {
		return "", fmt.Errorf("fake completion: text queue empty")
	}
	reply := f.textReplies[0]
	f.textReplies = f.textReplies[1:]
	return reply, nil
}

func (f *fakeCompletion) GenerateJSON(ctx context.Context, prompt string, out interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jsonCalls++
	if f.err != nil {
		return f.err
	}
	if len(f.jsonReplies) == 0 {
		return fmt.Errorf("fake completion: json queue empty")
	}
	reply := f.jsonReplies[0]
	f.jsonReplies = f.jsonReplies[1:]
	return parseCompletionJSON(reply, out)
}

func (f *fakeCompletion) GenerateDocumentPair(ctx context.Context, prompt string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairCalls++
	if f.err != nil {
		return "", "", f.err
	}
	return extractDocumentPair(f.pairReply)
}

// fakeLatex returns a fixed PDF or error. Safe for the concurrent compile
// the generator runs.
type fakeLatex struct {
	mu    sync.Mutex
	pdf   []byte
	err   error
	calls int
}

func (f *fakeLatex) Compile(ctx context.Context, source string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pdf, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/cvforge-backend/internal/apperr"
	"github.com/yungbote/cvforge-backend/internal/logger"
	"github.com/yungbote/cvforge-backend/internal/repos"
	"github.com/yungbote/cvforge-backend/internal/types"
	"github.com/yungbote/cvforge-backend/internal/utils"
)

// defaultMaxExchanges is the hard cap of user turns per gap. Without it a
// model that never emits moveToNextGap could stall the conversation
// forever; with it the worst case is maxExchanges * totalGaps turns.
const defaultMaxExchanges = 3

// chatCompletion is the structured shape the strategist prompt requests.
type chatCompletion struct {
	Message       string          `json:"message"`
	Strategy      *types.Strategy `json:"strategy"`
	MoveToNextGap bool            `json:"moveToNextGap"`
}

type ChatTurnResult struct {
	AIMessage   *types.ChatMessage `json:"ai_message,omitempty"`
	Strategy    *types.Strategy    `json:"strategy,omitempty"`
	IsComplete  bool               `json:"is_complete"`
	NewGapIndex int                `json:"new_gap_index"`
}

type ChatState struct {
	History         []types.ChatMessage       `json:"history"`
	Strategies      map[string]types.Strategy `json:"strategies"`
	CurrentGapIndex int                       `json:"current_gap_index"`
	TotalGaps       int                       `json:"total_gaps"`
	Gaps            []types.GapAnalysis       `json:"gaps"`
	IsComplete      bool                      `json:"is_complete"`
}

// ChatService drives the per-gap clarification dialogue. It keeps no state
// between calls: everything is derived from the Application record on each
// invocation and committed back in a single write, so a failed turn leaves
// the record exactly as it was.
type ChatService interface {
	// InitializeChat seeds the conversation with one assistant message.
	// Idempotent: a chat that already has history is left untouched.
	InitializeChat(ctx context.Context, applicationID uuid.UUID) (*types.ChatMessage, error)
	// SendMessage records one user turn, asks the strategist for its
	// structured reply and advances the gap pointer when warranted.
	SendMessage(ctx context.Context, applicationID uuid.UUID, userMessage string) (*ChatTurnResult, error)
	GetChatState(ctx context.Context, applicationID uuid.UUID) (*ChatState, error)
}

type chatService struct {
	db         *gorm.DB
	log        *logger.Logger
	appRepo    repos.ApplicationRepo
	completion CompletionClient
	sentiment  SentimentClassifier

	maxExchanges int

	// The store has no version column, so two in-flight turns against the
	// same application would silently clobber each other's read-modify-write.
	// Serialize per application inside this process instead.
	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

func NewChatService(
	db *gorm.DB,
	baseLog *logger.Logger,
	appRepo repos.ApplicationRepo,
	completion CompletionClient,
	sentiment SentimentClassifier,
) ChatService {
	return &chatService{
		db:           db,
		log:          baseLog.With("service", "ChatService"),
		appRepo:      appRepo,
		completion:   completion,
		sentiment:    sentiment,
		maxExchanges: utils.GetEnvAsInt("CHAT_MAX_EXCHANGES", defaultMaxExchanges, baseLog),
		locks:        map[uuid.UUID]*sync.Mutex{},
	}
}

func (cs *chatService) lockFor(id uuid.UUID) *sync.Mutex {
	cs.locksMu.Lock()
	defer cs.locksMu.Unlock()
	l, ok := cs.locks[id]
	if !ok {
		l = &sync.Mutex{}
		cs.locks[id] = l
	}
	return l
}

// chatContext is everything one turn needs, decoded from the application
// record and its preloaded offer and profile.
type chatContext struct {
	app        *types.Application
	cv         types.CVData
	analysis   types.AnalysisResult
	history    []types.ChatMessage
	strategies map[string]types.Strategy
}

func (cs *chatService) loadContext(ctx context.Context, applicationID uuid.UUID) (*chatContext, error) {
	app, err := cs.appRepo.GetByID(ctx, nil, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("application %s not found", applicationID)
		}
		return nil, err
	}
	if app.JobOffer == nil || app.JobOffer.MasterProfile == nil {
		return nil, fmt.Errorf("application %s is missing its job offer or profile", applicationID)
	}

	cv, err := app.JobOffer.MasterProfile.CVData()
	if err != nil {
		return nil, fmt.Errorf("decode profile data: %w", err)
	}
	analysis, err := app.JobOffer.Analysis()
	if err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	history, err := app.History()
	if err != nil {
		return nil, fmt.Errorf("decode chat history: %w", err)
	}
	strategies, err := app.StrategyMap()
	if err != nil {
		return nil, fmt.Errorf("decode strategies: %w", err)
	}

	return &chatContext{
		app:        app,
		cv:         cv,
		analysis:   analysis,
		history:    history,
		strategies: strategies,
	}, nil
}

func newChatMessage(role, content string) types.ChatMessage {
	return types.ChatMessage{
		ID:        fmt.Sprintf("%s-%s", role, uuid.New()),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

func (cs *chatService) InitializeChat(ctx context.Context, applicationID uuid.UUID) (*types.ChatMessage, error) {
	lock := cs.lockFor(applicationID)
	lock.Lock()
	defer lock.Unlock()

	cc, err := cs.loadContext(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	// Already initialized: success, nothing appended.
	if len(cc.history) > 0 {
		return nil, nil
	}

	// An analysis without gaps leaves nothing to discuss.
	if len(cc.analysis.Gaps) == 0 {
		err := cs.appRepo.Update(ctx, nil, applicationID, map[string]interface{}{
			"status":     types.StatusStrategiesComplete,
			"updated_at": time.Now(),
		})
		return nil, err
	}

	var strategyList []types.Strategy
	for _, s := range cc.strategies {
		strategyList = append(strategyList, s)
	}

	prompt := strategistSystemPrompt(cc.cv, cc.analysis, 0, strategyList)
	content, err := cs.completion.GenerateText(ctx, prompt)
	if err != nil {
		cs.log.Error("Chat initialization completion failed", "application_id", applicationID, "error", err)
		return nil, err
	}

	msg := newChatMessage("assistant", content)
	historyJSON, err := json.Marshal([]types.ChatMessage{msg})
	if err != nil {
		return nil, fmt.Errorf("marshal chat history: %w", err)
	}

	err = cs.appRepo.Update(ctx, nil, applicationID, map[string]interface{}{
		"chat_history": datatypes.JSON(historyJSON),
		"status":       types.StatusChatting,
		"updated_at":   time.Now(),
	})
	if err != nil {
		return nil, err
	}

	cs.log.Info("Chat initialized", "application_id", applicationID, "gaps", len(cc.analysis.Gaps))
	return &msg, nil
}

func (cs *chatService) SendMessage(ctx context.Context, applicationID uuid.UUID, userMessage string) (*ChatTurnResult, error) {
	lock := cs.lockFor(applicationID)
	lock.Lock()
	defer lock.Unlock()

	cc, err := cs.loadContext(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	currentGapIndex := cc.app.GapsAddressed
	if currentGapIndex >= len(cc.analysis.Gaps) {
		return &ChatTurnResult{IsComplete: true, NewGapIndex: currentGapIndex}, nil
	}
	currentGap := cc.analysis.Gaps[currentGapIndex]

	// The transcript is the only exchange counter: count user messages in
	// the current gap's window. This turn will be exchange number
	// exchangesForCurrentGap+1.
	gapStartIndex := cc.app.GapStartIndex
	if gapStartIndex > len(cc.history) {
		gapStartIndex = len(cc.history)
	}
	exchangesForCurrentGap := 0
	for _, msg := range cc.history[gapStartIndex:] {
		if msg.Role == "user" {
			exchangesForCurrentGap++
		}
	}
	exchangeNumber := exchangesForCurrentGap + 1

	hasRelatedExperience := cs.sentiment.HasRelatedExperience(userMessage)

	nextGapSkill := ""
	if currentGapIndex+1 < len(cc.analysis.Gaps) {
		nextGapSkill = cc.analysis.Gaps[currentGapIndex+1].Skill
	}

	prompt := strategistResponsePrompt(userMessage, currentGap.Skill, hasRelatedExperience, exchangeNumber, nextGapSkill, cc.cv)

	// No state is persisted until the completion both arrives and parses;
	// a malformed turn leaves the application untouched.
	var resp chatCompletion
	if err := cs.completion.GenerateJSON(ctx, prompt, &resp); err != nil {
		cs.log.Error("Chat completion failed", "application_id", applicationID, "gap", currentGap.Skill, "error", err)
		return nil, err
	}

	// Liveness: the model cannot hold a candidate on one gap past the cap.
	forced := exchangeNumber >= cs.maxExchanges && !resp.MoveToNextGap
	if forced {
		cs.log.Warn("Forcing advance to next gap",
			"application_id", applicationID,
			"gap", currentGap.Skill,
			"exchange", exchangeNumber,
		)
	}

	userMsg := newChatMessage("user", userMessage)
	aiMsg := newChatMessage("assistant", resp.Message)
	newHistory := append(cc.history, userMsg, aiMsg)

	// Only validated strategies land, keyed by the current gap's skill so
	// one gap can never overwrite another's entry.
	if resp.Strategy != nil && resp.Strategy.Validated {
		s := *resp.Strategy
		s.GapSkill = currentGap.Skill
		cc.strategies[currentGap.Skill] = s
		resp.Strategy = &s
	}

	// When forcing past a gap the model never closed out, the default
	// fast-learner strategy keeps "every gap ends with one validated
	// strategy" true even under model non-compliance.
	if forced {
		if _, exists := cc.strategies[currentGap.Skill]; !exists {
			fallback := types.Strategy{
				GapSkill:  currentGap.Skill,
				Approach:  types.ApproachFastLearner,
				Details:   "Capacité d'apprentissage rapide à mettre en avant",
				Validated: true,
			}
			cc.strategies[currentGap.Skill] = fallback
			resp.Strategy = &fallback
		}
	}

	shouldAdvance := resp.MoveToNextGap || forced
	newGapIndex := currentGapIndex
	newGapStartIndex := gapStartIndex
	if shouldAdvance {
		newGapIndex = currentGapIndex + 1
		// The next gap's exchange window starts empty, from here on.
		newGapStartIndex = len(newHistory)
	}
	isComplete := newGapIndex >= len(cc.analysis.Gaps)

	historyJSON, err := json.Marshal(newHistory)
	if err != nil {
		return nil, fmt.Errorf("marshal chat history: %w", err)
	}
	strategiesJSON, err := json.Marshal(cc.strategies)
	if err != nil {
		return nil, fmt.Errorf("marshal strategies: %w", err)
	}

	status := types.StatusChatting
	if isComplete {
		status = types.StatusStrategiesComplete
	}

	// Single commit point for the whole turn.
	err = cs.appRepo.Update(ctx, nil, applicationID, map[string]interface{}{
		"chat_history":    datatypes.JSON(historyJSON),
		"strategies":      datatypes.JSON(strategiesJSON),
		"gaps_addressed":  newGapIndex,
		"gap_start_index": newGapStartIndex,
		"status":          status,
		"updated_at":      time.Now(),
	})
	if err != nil {
		return nil, err
	}

	cs.log.Info("Chat turn recorded",
		"application_id", applicationID,
		"gap", currentGap.Skill,
		"exchange", exchangeNumber,
		"advanced", shouldAdvance,
		"forced", forced,
		"complete", isComplete,
	)

	return &ChatTurnResult{
		AIMessage:   &aiMsg,
		Strategy:    resp.Strategy,
		IsComplete:  isComplete,
		NewGapIndex: newGapIndex,
	}, nil
}

func (cs *chatService) GetChatState(ctx context.Context, applicationID uuid.UUID) (*ChatState, error) {
	cc, err := cs.loadContext(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return &ChatState{
		History:         cc.history,
		Strategies:      cc.strategies,
		CurrentGapIndex: cc.app.GapsAddressed,
		TotalGaps:       cc.app.TotalGaps,
		Gaps:            cc.analysis.Gaps,
		IsComplete:      cc.app.GapsAddressed >= len(cc.analysis.Gaps),
	}, nil
}

package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Application statuses. Transitions only move forward along
// analyzed -> chatting -> strategies_complete -> latex_generated -> completed;
// regeneration resets the tail back to strategies_complete.
const (
	StatusAnalyzed           = "analyzed"
	StatusChatting           = "chatting"
	StatusStrategiesComplete = "strategies_complete"
	StatusLatexGenerated     = "latex_generated"
	StatusCompleted          = "completed"
)

// Strategy approaches.
const (
	ApproachAddSkill     = "add_skill"
	ApproachTransferable = "transferable"
	ApproachFastLearner  = "fast_learner"
)

type ChatMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"` // "user" or "assistant"
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type Strategy struct {
	GapSkill  string `json:"gapSkill"`
	Approach  string `json:"approach"`
	Details   string `json:"details"`
	Validated bool   `json:"validated"`
}

// Application is the one mutable record in the system. All cross-call chat
// state lives here; the chat engine and the generator are its only writers.
type Application struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobOfferID uuid.UUID `gorm:"type:uuid;not null;index" json:"job_offer_id"`
	JobOffer   *JobOffer `gorm:"constraint:OnDelete:CASCADE;foreignKey:JobOfferID;references:ID" json:"job_offer,omitempty"`

	Status string `gorm:"column:status;not null;default:'analyzed'" json:"status"`

	// ChatHistory is an append-only []ChatMessage. GapStartIndex marks where
	// the current gap's exchange window begins inside it, so the transcript
	// itself is the only exchange counter.
	ChatHistory   datatypes.JSON `gorm:"column:chat_history;type:jsonb" json:"chat_history"`
	Strategies    datatypes.JSON `gorm:"column:strategies;type:jsonb" json:"strategies"`
	GapsAddressed int            `gorm:"column:gaps_addressed;not null;default:0" json:"gaps_addressed"`
	GapStartIndex int            `gorm:"column:gap_start_index;not null;default:0" json:"gap_start_index"`
	TotalGaps     int            `gorm:"column:total_gaps;not null;default:0" json:"total_gaps"`

	FinalCvLatex    string `gorm:"column:final_cv_latex;type:text" json:"final_cv_latex,omitempty"`
	FinalCoverLatex string `gorm:"column:final_cover_latex;type:text" json:"final_cover_latex,omitempty"`
	FinalCvPdf      []byte `gorm:"column:final_cv_pdf" json:"-"`
	FinalCoverPdf   []byte `gorm:"column:final_cover_pdf" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Application) TableName() string { return "application" }

func (a *Application) History() ([]ChatMessage, error) {
	if len(a.ChatHistory) == 0 {
		return []ChatMessage{}, nil
	}
	var msgs []ChatMessage
	if err := json.Unmarshal(a.ChatHistory, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// StrategyMap decodes the strategies column, keyed by gap skill.
func (a *Application) StrategyMap() (map[string]Strategy, error) {
	if len(a.Strategies) == 0 {
		return map[string]Strategy{}, nil
	}
	var m map[string]Strategy
	if err := json.Unmarshal(a.Strategies, &m); err != nil {
		return nil, err
	}
	return m, nil
}

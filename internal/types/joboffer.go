package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobOffer is one analyzed job description against one profile. Written
// once by the analyzer, immutable afterwards.
type JobOffer struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MasterProfileID uuid.UUID      `gorm:"type:uuid;not null;index" json:"master_profile_id"`
	MasterProfile   *MasterProfile `gorm:"constraint:OnDelete:CASCADE;foreignKey:MasterProfileID;references:ID" json:"master_profile,omitempty"`
	RawText         string         `gorm:"column:raw_text;type:text;not null" json:"raw_text"`
	Title           string         `gorm:"column:title" json:"title"`
	Company         string         `gorm:"column:company" json:"company"`
	RequiredSkills  datatypes.JSON `gorm:"column:required_skills;type:jsonb" json:"required_skills"`
	AnalysisResult  datatypes.JSON `gorm:"column:analysis_result;type:jsonb;not null" json:"analysis_result"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobOffer) TableName() string { return "job_offer" }

func (o *JobOffer) Analysis() (AnalysisResult, error) {
	var ar AnalysisResult
	err := json.Unmarshal(o.AnalysisResult, &ar)
	return ar, err
}

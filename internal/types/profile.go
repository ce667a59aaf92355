package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MasterProfile is the parsed candidate profile. Written once at CV upload,
// read by every downstream stage, never mutated.
type MasterProfile struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RawText        string         `gorm:"column:raw_text;type:text;not null" json:"raw_text"`
	StructuredData datatypes.JSON `gorm:"column:structured_data;type:jsonb;not null" json:"structured_data"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (MasterProfile) TableName() string { return "master_profile" }

func (p *MasterProfile) CVData() (CVData, error) {
	var cv CVData
	err := json.Unmarshal(p.StructuredData, &cv)
	return cv, err
}

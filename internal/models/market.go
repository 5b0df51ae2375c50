package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Market is a watchlist entry: a prediction market the pipeline monitors.
type Market struct {
	ID       string `gorm:"primaryKey;type:varchar(100)"`
	Name     string `gorm:"type:varchar(200);not null"`
	Slug     string `gorm:"type:varchar(200);index"`
	Category string `gorm:"type:varchar(50);not null;index"`

	YesDefinition string `gorm:"type:varchar(500)"`
	NoDefinition  string `gorm:"type:varchar(500)"`
	Description   string `gorm:"type:text"`

	Tags datatypes.JSON `gorm:"type:jsonb"`

	// EndDate is the market's scheduled close, when the venue publishes one.
	EndDate *time.Time `gorm:"type:timestamptz"`

	Active    bool      `gorm:"not null;default:true;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Market) TableName() string {
	return "markets"
}

// TagList decodes the jsonb tag column. Returns nil on malformed data.
func (m *Market) TagList() []string {
	if m == nil || len(m.Tags) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(m.Tags, &tags); err != nil {
		return nil
	}
	return tags
}

func (m *Market) Validate() error {
	if m == nil {
		return errors.New("market is nil")
	}
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("market id is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("market name is required")
	}
	if strings.TrimSpace(m.Category) == "" {
		return errors.New("market category is required")
	}
	if len(m.Name) > 200 {
		return errors.New("market name exceeds 200 characters")
	}
	if len(m.YesDefinition) > 500 || len(m.NoDefinition) > 500 {
		return errors.New("outcome definition exceeds 500 characters")
	}
	return nil
}

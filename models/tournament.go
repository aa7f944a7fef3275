package models

import (
	"strings"
	"time"
)

// Mode selects which progression engine owns a tournament.
type Mode string

const (
	ModeElimination Mode = "elimination"
	ModeSequential  Mode = "sequential"
)

// ParseMode trims the raw value and falls back to elimination when blank.
// ok is false for any other unknown value.
func ParseMode(raw string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeElimination, true
	case ModeElimination, ModeSequential:
		return m, true
	default:
		return "", false
	}
}

// Tournament is a single live event run by a host device.
type Tournament struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	BackgroundPath *string   `json:"background_path,omitempty"`
	Mode           Mode      `json:"mode" gorm:"type:varchar(16);not null;default:'elimination'"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Calculated fields (not stored in DB)
	HasBracket     bool `json:"has_bracket" gorm:"-"`
	HasPerformance bool `json:"has_performance" gorm:"-"`
}

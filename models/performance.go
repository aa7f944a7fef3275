package models

import "time"

// View is what the spectator screens show for a sequential tournament.
type View string

const (
	ViewOrder   View = "order"
	ViewWinners View = "winners"
)

// Performer is one entry of a sequential tournament's roster. OrderIndex is
// kept dense (0..n-1) by the performance service.
type Performer struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	TournamentID     string    `json:"tournament_id" gorm:"not null;index"`
	ParticipantID    *string   `json:"participant_id,omitempty" gorm:"index"`
	DisplayName      string    `json:"display_name"`
	OrderIndex       int       `json:"order_index" gorm:"not null"`
	TotalScore       float64   `json:"total_score" gorm:"not null;default:0"`
	IsSelectedWinner bool      `json:"is_selected_winner" gorm:"not null;default:false"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// PerformanceState is the per-tournament cursor and winners state.
type PerformanceState struct {
	TournamentID   string `json:"tournament_id" gorm:"primaryKey"`
	CurrentIndex   int    `json:"current_index" gorm:"not null;default:-1"`
	ShowView       View   `json:"show_view" gorm:"type:varchar(16);not null;default:'order'"`
	MaxWinners     int    `json:"max_winners" gorm:"not null;default:10"`
	ScoringEnabled bool   `json:"scoring_enabled" gorm:"not null;default:true"`
	Finalized      bool   `json:"finalized" gorm:"not null;default:false"`
}

// TableName keeps one state row per tournament under a singular table name.
func (PerformanceState) TableName() string {
	return "performance_state"
}

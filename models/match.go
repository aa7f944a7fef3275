package models

import "time"

// Participant is a named competitor shared by the matches of any tournament.
type Participant struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Match is one node of a single-elimination graph. NextMatchID/NextMatchSlot
// form the single outgoing edge; the final has neither.
type Match struct {
	ID             string  `json:"id" gorm:"primaryKey"`
	TournamentID   string  `json:"tournament_id" gorm:"not null;index"`
	Participant1ID *string `json:"participant1_id,omitempty" gorm:"column:participant1_id;index"`
	Participant2ID *string `json:"participant2_id,omitempty" gorm:"column:participant2_id;index"`
	WinnerID       *string `json:"winner_id,omitempty" gorm:"column:winner_id;index"`
	Score1         *int    `json:"score1,omitempty" gorm:"column:score1"`
	Score2         *int    `json:"score2,omitempty" gorm:"column:score2"`
	NextMatchID    *string `json:"next_match_id,omitempty" gorm:"column:next_match_id;index"`
	NextMatchSlot  *int    `json:"next_match_slot,omitempty" gorm:"column:next_match_slot"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// SlotColumn returns the participant column backing slot 1 or 2.
func SlotColumn(slot int) (string, bool) {
	switch slot {
	case 1:
		return "participant1_id", true
	case 2:
		return "participant2_id", true
	default:
		return "", false
	}
}

// Slot returns the occupant of slot 1 or 2.
func (m *Match) Slot(slot int) *string {
	if slot == 1 {
		return m.Participant1ID
	}
	return m.Participant2ID
}

// MatchRow is a match joined with its participant names, the flat input of
// bracket reconstruction.
type MatchRow struct {
	ID             string  `json:"id" gorm:"column:id"`
	TournamentID   string  `json:"tournament_id" gorm:"column:tournament_id"`
	Participant1ID *string `json:"participant1_id,omitempty" gorm:"column:participant1_id"`
	P1Name         *string `json:"p1_name,omitempty" gorm:"column:p1_name"`
	Participant2ID *string `json:"participant2_id,omitempty" gorm:"column:participant2_id"`
	P2Name         *string `json:"p2_name,omitempty" gorm:"column:p2_name"`
	WinnerID       *string `json:"winner_id,omitempty" gorm:"column:winner_id"`
	WinnerName     *string `json:"winner_name,omitempty" gorm:"column:winner_name"`
	Score1         *int    `json:"score1,omitempty" gorm:"column:score1"`
	Score2         *int    `json:"score2,omitempty" gorm:"column:score2"`
	NextMatchID    *string `json:"next_match_id,omitempty" gorm:"column:next_match_id"`
	NextMatchSlot  *int    `json:"next_match_slot,omitempty" gorm:"column:next_match_slot"`
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"eventflow/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BracketService owns the single-elimination match graph of each tournament.
type BracketService struct {
	DB  *gorm.DB
	Hub Broadcaster
}

func NewBracketService(db *gorm.DB, hub Broadcaster) *BracketService {
	return &BracketService{DB: db, Hub: hub}
}

// MatchSpec describes a match to insert. Nil fields stay empty.
type MatchSpec struct {
	TournamentID   string  `json:"tournament_id"`
	Participant1ID *string `json:"participant1_id"`
	Participant2ID *string `json:"participant2_id"`
	NextMatchID    *string `json:"next_match_id"`
	NextMatchSlot  *int    `json:"next_match_slot"`
}

// RecordResult writes the winner and scores onto the match and, when the
// match has an outgoing edge, places the winner into the target slot of the
// next match. Both writes commit together or not at all. Advancement is a
// single hop; matches further down the chain are untouched.
func (s *BracketService) RecordResult(ctx context.Context, matchID, winnerID string, score1, score2 *int) (*BracketView, error) {
	var state *EliminationState
	var tournamentID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		tournamentID = match.TournamentID

		if !occupies(match, winnerID) {
			return fmt.Errorf("%w: %s in match %s", ErrInvalidWinner, winnerID, matchID)
		}

		if err := tx.Model(&models.Match{}).Where("id = ?", match.ID).Updates(map[string]interface{}{
			"winner_id": winnerID,
			"score1":    score1,
			"score2":    score2,
		}).Error; err != nil {
			return storeErr(err, "record result")
		}

		if match.NextMatchID != nil {
			slot := 0
			if match.NextMatchSlot != nil {
				slot = *match.NextMatchSlot
			}
			if err := fillSlot(tx, match.TournamentID, *match.NextMatchID, slot, winnerID); err != nil {
				return err
			}
		}

		state, err = bracketState(tx, match.TournamentID)
		return err
	})
	if err != nil {
		log.Printf("❌ [BRACKET] Result for match %s failed: %v", matchID, err)
		return nil, err
	}

	log.Printf("✅ [BRACKET] Match %s won by %s", matchID, winnerID)
	s.Hub.Publish(tournamentID, EventBracket, state)
	return state.Bracket, nil
}

// AssignParticipant overrides a competitor slot directly (manual seeding or
// correction). A nil participant empties the slot. Nothing propagates.
func (s *BracketService) AssignParticipant(ctx context.Context, matchID string, slot int, participantID *string) (*BracketView, error) {
	column, ok := models.SlotColumn(slot)
	if !ok {
		return nil, ErrInvalidSlot
	}

	var state *EliminationState
	var tournamentID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		tournamentID = match.TournamentID

		if participantID != nil {
			if err := tx.First(&models.Participant{}, "id = ?", *participantID).Error; err != nil {
				return storeErr(err, "participant "+*participantID)
			}
			if other := match.Slot(3 - slot); other != nil && *other == *participantID {
				return fmt.Errorf("%w: %s in match %s", ErrDuplicateSlot, *participantID, matchID)
			}
		}

		if err := tx.Model(&models.Match{}).Where("id = ?", match.ID).Update(column, participantID).Error; err != nil {
			return storeErr(err, "assign slot")
		}

		state, err = bracketState(tx, match.TournamentID)
		return err
	})
	if err != nil {
		log.Printf("❌ [BRACKET] Assign slot %d of match %s failed: %v", slot, matchID, err)
		return nil, err
	}

	log.Printf("✅ [BRACKET] Slot %d of match %s set", slot, matchID)
	s.Hub.Publish(tournamentID, EventBracket, state)
	return state.Bracket, nil
}

// ClearMatches removes every match of the tournament.
func (s *BracketService) ClearMatches(ctx context.Context, tournamentID string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockTournament(tx, tournamentID, ""); err != nil {
			return err
		}
		return storeErr(tx.Where("tournament_id = ?", tournamentID).Delete(&models.Match{}).Error, "clear matches")
	})
	if err != nil {
		log.Printf("❌ [BRACKET] Clear %s failed: %v", tournamentID, err)
		return err
	}

	log.Printf("🧹 [BRACKET] Cleared matches of %s", tournamentID)
	s.Hub.Publish(tournamentID, EventBracket, emptyBracket(tournamentID))
	return nil
}

// CreateMatch inserts one match. The edge target must be a match of the same
// tournament and the two slots may not hold the same participant.
func (s *BracketService) CreateMatch(ctx context.Context, spec MatchSpec) (*models.Match, error) {
	if spec.Participant1ID != nil && spec.Participant2ID != nil && *spec.Participant1ID == *spec.Participant2ID {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSlot, *spec.Participant1ID)
	}
	if (spec.NextMatchID == nil) != (spec.NextMatchSlot == nil) {
		return nil, fmt.Errorf("%w: next_match_id and next_match_slot go together", ErrInvalidInput)
	}
	if spec.NextMatchSlot != nil {
		if _, ok := models.SlotColumn(*spec.NextMatchSlot); !ok {
			return nil, ErrInvalidSlot
		}
	}

	match := &models.Match{
		ID:             uuid.NewString(),
		TournamentID:   spec.TournamentID,
		Participant1ID: spec.Participant1ID,
		Participant2ID: spec.Participant2ID,
		NextMatchID:    spec.NextMatchID,
		NextMatchSlot:  spec.NextMatchSlot,
	}

	var state *EliminationState
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockTournament(tx, spec.TournamentID, models.ModeElimination); err != nil {
			return err
		}
		if spec.NextMatchID != nil {
			var next models.Match
			if err := tx.First(&next, "id = ? AND tournament_id = ?", *spec.NextMatchID, spec.TournamentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: next match %s is not in tournament %s", ErrInvalidGraph, *spec.NextMatchID, spec.TournamentID)
				}
				return storeErr(err, "next match")
			}
		}
		if err := tx.Create(match).Error; err != nil {
			return storeErr(err, "create match")
		}

		var err error
		state, err = bracketState(tx, spec.TournamentID)
		if errors.Is(err, ErrInvalidGraph) {
			// A bracket is built one match at a time, so intermediate
			// forests are expected; only report the final shape.
			state, err = nil, nil
		}
		return err
	})
	if err != nil {
		log.Printf("❌ [BRACKET] Create match in %s failed: %v", spec.TournamentID, err)
		return nil, err
	}

	if state != nil {
		s.Hub.Publish(spec.TournamentID, EventBracket, state)
	}
	return match, nil
}

// ListMatches returns the flat match rows of the tournament with participant
// names, in creation order.
func (s *BracketService) ListMatches(ctx context.Context, tournamentID string) ([]models.MatchRow, error) {
	return loadMatchRows(s.DB.WithContext(ctx), tournamentID)
}

// View reconstructs the bracket. ErrNoBracket means the tournament exists but
// has no matches.
func (s *BracketService) View(ctx context.Context, tournamentID string) (*BracketView, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findTournament(db, tournamentID, models.ModeElimination); err != nil {
		return nil, err
	}
	rows, err := loadMatchRows(db, tournamentID)
	if err != nil {
		return nil, err
	}
	return Reconstruct(tournamentID, rows)
}

// State is the spectator snapshot of an elimination tournament.
func (s *BracketService) State(ctx context.Context, tournamentID string) (*EliminationState, error) {
	return bracketState(s.DB.WithContext(ctx), tournamentID)
}

// Generate discards the current bracket and builds a fresh single-elimination
// graph for the entrants in the order given. Entrants are padded to the next
// power of two; leaves take two entrants while there are more entrants than
// leaves left, so empty slots land at the end and no leaf is empty.
func (s *BracketService) Generate(ctx context.Context, tournamentID string, names []string) (*BracketView, error) {
	var entrants []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			entrants = append(entrants, n)
		}
	}
	if len(entrants) < 2 {
		return nil, fmt.Errorf("%w: at least two entrants are required", ErrInvalidInput)
	}

	var state *EliminationState
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockTournament(tx, tournamentID, models.ModeElimination); err != nil {
			return err
		}
		if err := tx.Where("tournament_id = ?", tournamentID).Delete(&models.Match{}).Error; err != nil {
			return storeErr(err, "clear matches")
		}

		participants := make([]models.Participant, len(entrants))
		for i, name := range entrants {
			participants[i] = models.Participant{ID: uuid.NewString(), Name: name}
		}
		if err := tx.Create(&participants).Error; err != nil {
			return storeErr(err, "create participants")
		}

		matches := layoutBracket(tournamentID, participants)
		if err := tx.Create(&matches).Error; err != nil {
			return storeErr(err, "create matches")
		}

		var err error
		state, err = bracketState(tx, tournamentID)
		return err
	})
	if err != nil {
		log.Printf("❌ [BRACKET] Generate for %s failed: %v", tournamentID, err)
		return nil, err
	}

	log.Printf("🏗️  [BRACKET] Generated %d-entrant bracket for %s", len(entrants), tournamentID)
	s.Hub.Publish(tournamentID, EventBracket, state)
	return state.Bracket, nil
}

// layoutBracket builds the matches level by level from the final down.
// Match j of a level feeds match j/2 of the level above, slot j%2+1.
func layoutBracket(tournamentID string, entrants []models.Participant) []models.Match {
	size := nextPowerOfTwo(len(entrants))
	var matches []models.Match
	var above []string
	for width := 1; width <= size/2; width *= 2 {
		level := make([]string, width)
		for j := range level {
			m := models.Match{ID: uuid.NewString(), TournamentID: tournamentID}
			if above != nil {
				next, slot := above[j/2], j%2+1
				m.NextMatchID = &next
				m.NextMatchSlot = &slot
			}
			level[j] = m.ID
			matches = append(matches, m)
		}
		above = level
	}

	leaves := matches[len(matches)-size/2:]
	e := 0
	for j := range leaves {
		remainingLeaves := len(leaves) - j
		id := entrants[e].ID
		leaves[j].Participant1ID = &id
		e++
		if len(entrants)-e >= remainingLeaves {
			id2 := entrants[e].ID
			leaves[j].Participant2ID = &id2
			e++
		}
	}
	return matches
}

// AddParticipant registers a named competitor.
func (s *BracketService) AddParticipant(ctx context.Context, name string) (*models.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	p := &models.Participant{ID: uuid.NewString(), Name: name}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, storeErr(err, "create participant")
	}
	return p, nil
}

func (s *BracketService) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	var participants []models.Participant
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&participants).Error; err != nil {
		return nil, storeErr(err, "list participants")
	}
	return participants, nil
}

// DeleteParticipant removes a participant and nulls every reference to it;
// matches and performers survive.
func (s *BracketService) DeleteParticipant(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Participant{}, "id = ?", id).Error; err != nil {
			return storeErr(err, "participant "+id)
		}
		for _, column := range []string{"participant1_id", "participant2_id", "winner_id"} {
			if err := tx.Model(&models.Match{}).Where(column+" = ?", id).Update(column, nil).Error; err != nil {
				return storeErr(err, "unlink participant")
			}
		}
		if err := tx.Model(&models.Performer{}).Where("participant_id = ?", id).Update("participant_id", nil).Error; err != nil {
			return storeErr(err, "unlink performer")
		}
		return storeErr(tx.Delete(&models.Participant{}, "id = ?", id).Error, "delete participant")
	})
}

// lockMatch loads the match and row-locks its tournament, then reloads the
// match so the edge is read under the lock.
func lockMatch(tx *gorm.DB, matchID string) (*models.Match, error) {
	var match models.Match
	if err := tx.First(&match, "id = ?", matchID).Error; err != nil {
		return nil, storeErr(err, "match "+matchID)
	}
	if _, err := lockTournament(tx, match.TournamentID, models.ModeElimination); err != nil {
		return nil, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&match, "id = ?", matchID).Error; err != nil {
		return nil, storeErr(err, "match "+matchID)
	}
	return &match, nil
}

// fillSlot writes a participant into slot 1 or 2 of the target match.
func fillSlot(tx *gorm.DB, tournamentID, matchID string, slot int, participantID string) error {
	column, ok := models.SlotColumn(slot)
	if !ok {
		return fmt.Errorf("%w: edge into match %s has slot %d", ErrInvalidGraph, matchID, slot)
	}

	var next models.Match
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&next, "id = ? AND tournament_id = ?", matchID, tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: edge points at missing match %s", ErrInvalidGraph, matchID)
		}
		return storeErr(err, "next match")
	}
	if other := next.Slot(3 - slot); other != nil && *other == participantID {
		return fmt.Errorf("%w: %s in match %s", ErrDuplicateSlot, participantID, matchID)
	}

	return storeErr(tx.Model(&models.Match{}).Where("id = ?", next.ID).Update(column, participantID).Error, "advance winner")
}

func occupies(m *models.Match, participantID string) bool {
	return (m.Participant1ID != nil && *m.Participant1ID == participantID) ||
		(m.Participant2ID != nil && *m.Participant2ID == participantID)
}

func loadMatchRows(db *gorm.DB, tournamentID string) ([]models.MatchRow, error) {
	var rows []models.MatchRow
	err := db.Table("matches AS m").
		Select(`m.id, m.tournament_id,
			m.participant1_id, p1.name AS p1_name,
			m.participant2_id, p2.name AS p2_name,
			m.winner_id, w.name AS winner_name,
			m.score1, m.score2,
			m.next_match_id, m.next_match_slot`).
		Joins("LEFT JOIN participants p1 ON p1.id = m.participant1_id").
		Joins("LEFT JOIN participants p2 ON p2.id = m.participant2_id").
		Joins("LEFT JOIN participants w ON w.id = m.winner_id").
		Where("m.tournament_id = ?", tournamentID).
		Order("m.created_at ASC, m.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr(err, "load matches")
	}
	return rows, nil
}

func bracketState(db *gorm.DB, tournamentID string) (*EliminationState, error) {
	rows, err := loadMatchRows(db, tournamentID)
	if err != nil {
		return nil, err
	}
	view, err := Reconstruct(tournamentID, rows)
	if errors.Is(err, ErrNoBracket) {
		return emptyBracket(tournamentID), nil
	}
	if err != nil {
		return nil, err
	}
	return &EliminationState{TournamentID: tournamentID, Mode: models.ModeElimination, Bracket: view}, nil
}

func emptyBracket(tournamentID string) *EliminationState {
	return &EliminationState{TournamentID: tournamentID, Mode: models.ModeElimination, Empty: true}
}

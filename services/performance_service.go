package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"eventflow/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxAutoWinners caps how many performers a score-based finalize selects.
const MaxAutoWinners = 10

// Finalize sources.
const (
	FinalizeManual = "manual"
	FinalizeScore  = "score"
)

// PerformanceSnapshot is the whole sequential-mode state of a tournament.
// Every mutation returns a fresh one so callers broadcast a consistent whole.
type PerformanceSnapshot struct {
	TournamentID   string             `json:"tournament_id"`
	TournamentName string             `json:"tournament_name"`
	Mode           models.Mode        `json:"mode"`
	MaxWinners     int                `json:"max_winners"`
	ShowView       models.View        `json:"show_view"`
	CurrentIndex   int                `json:"current_index"`
	ScoringEnabled bool               `json:"scoring_enabled"`
	Finalized      bool               `json:"finalized"`
	Performers     []models.Performer `json:"performers"`
	Winners        []string           `json:"winners"`
}

// PerformanceService runs the ordered roster of a sequential tournament.
type PerformanceService struct {
	DB  *gorm.DB
	Hub Broadcaster
}

func NewPerformanceService(db *gorm.DB, hub Broadcaster) *PerformanceService {
	return &PerformanceService{DB: db, Hub: hub}
}

// Get returns the snapshot, creating the state row on first access.
func (s *PerformanceService) Get(ctx context.Context, tournamentID string) (*PerformanceSnapshot, error) {
	var snap *PerformanceSnapshot
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := findTournament(tx, tournamentID, models.ModeSequential)
		if err != nil {
			return err
		}
		if err := ensureState(tx, tournamentID); err != nil {
			return err
		}
		snap, err = snapshot(tx, t)
		return err
	})
	return snap, err
}

// ReplaceRoster wipes the roster and inserts one performer per non-blank
// name, in input order.
func (s *PerformanceService) ReplaceRoster(ctx context.Context, tournamentID string, names []string) (*PerformanceSnapshot, error) {
	return s.mutate(ctx, tournamentID, "replace roster", func(tx *gorm.DB) error {
		if err := tx.Where("tournament_id = ?", tournamentID).Delete(&models.Performer{}).Error; err != nil {
			return storeErr(err, "delete performers")
		}
		var roster []models.Performer
		for _, raw := range names {
			name := strings.TrimSpace(raw)
			if name == "" {
				continue
			}
			roster = append(roster, models.Performer{
				ID:           uuid.NewString(),
				TournamentID: tournamentID,
				DisplayName:  name,
				OrderIndex:   len(roster),
			})
		}
		if len(roster) == 0 {
			return nil
		}
		return storeErr(tx.Create(&roster).Error, "insert performers")
	})
}

// Append adds a performer after the current last one.
func (s *PerformanceService) Append(ctx context.Context, tournamentID, name string) (*PerformanceSnapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return s.mutate(ctx, tournamentID, "append", func(tx *gorm.DB) error {
		var maxIndex int
		if err := tx.Model(&models.Performer{}).
			Where("tournament_id = ?", tournamentID).
			Select("COALESCE(MAX(order_index), -1)").
			Scan(&maxIndex).Error; err != nil {
			return storeErr(err, "max order index")
		}
		p := models.Performer{
			ID:           uuid.NewString(),
			TournamentID: tournamentID,
			DisplayName:  name,
			OrderIndex:   maxIndex + 1,
		}
		return storeErr(tx.Create(&p).Error, "insert performer")
	})
}

// Reorder moves the performer at from to position to and re-packs the whole
// roster. Out-of-range or equal indices leave the roster untouched.
func (s *PerformanceService) Reorder(ctx context.Context, tournamentID string, from, to int) (*PerformanceSnapshot, error) {
	return s.mutate(ctx, tournamentID, "reorder", func(tx *gorm.DB) error {
		if from == to {
			return nil
		}
		roster, err := orderedRoster(tx, tournamentID)
		if err != nil {
			return err
		}
		if from < 0 || to < 0 || from >= len(roster) || to >= len(roster) {
			return nil
		}
		moved := roster[from]
		roster = append(roster[:from], roster[from+1:]...)
		roster = append(roster[:to], append([]models.Performer{moved}, roster[to:]...)...)
		return repack(tx, roster)
	})
}

// Remove deletes a performer and closes the gap it leaves.
func (s *PerformanceService) Remove(ctx context.Context, tournamentID, performerID string) (*PerformanceSnapshot, error) {
	return s.mutate(ctx, tournamentID, "remove", func(tx *gorm.DB) error {
		res := tx.Where("tournament_id = ? AND id = ?", tournamentID, performerID).Delete(&models.Performer{})
		if res.Error != nil {
			return storeErr(res.Error, "delete performer")
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("performer %s: %w", performerID, ErrNotFound)
		}
		roster, err := orderedRoster(tx, tournamentID)
		if err != nil {
			return err
		}
		return repack(tx, roster)
	})
}

// SetCursor points the "now performing" cursor at index. The index is not
// checked against the roster size; -1 means not started.
func (s *PerformanceService) SetCursor(ctx context.Context, tournamentID string, index int) (*PerformanceSnapshot, error) {
	return s.mutate(ctx, tournamentID, "set cursor", func(tx *gorm.DB) error {
		return updateState(tx, tournamentID, map[string]interface{}{"current_index": index})
	})
}

// SetScore overwrites a performer's score.
func (s *PerformanceService) SetScore(ctx context.Context, tournamentID, performerID string, score float64) (*PerformanceSnapshot, error) {
	return s.mutate(ctx, tournamentID, "set score", func(tx *gorm.DB) error {
		if err := tx.First(&models.Performer{}, "tournament_id = ? AND id = ?", tournamentID, performerID).Error; err != nil {
			return storeErr(err, "performer "+performerID)
		}
		return storeErr(tx.Model(&models.Performer{}).
			Where("tournament_id = ? AND id = ?", tournamentID, performerID).
			Update("total_score", score).Error, "set score")
	})
}

// SelectWinners flags exactly the given performers. Ids outside the
// tournament are ignored.
func (s *PerformanceService) SelectWinners(ctx context.Context, tournamentID string, performerIDs []string) (*PerformanceSnapshot, error) {
	return s.mutate(ctx, tournamentID, "select winners", func(tx *gorm.DB) error {
		return selectWinners(tx, tournamentID, performerIDs)
	})
}

// Finalize locks in the winners and switches spectators to the winners view.
// With source "score" the top MaxAutoWinners by score (ties keep the earlier
// performer) replace any manual selection.
func (s *PerformanceService) Finalize(ctx context.Context, tournamentID, source string) (*PerformanceSnapshot, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if source != "" && source != FinalizeManual && source != FinalizeScore {
		return nil, fmt.Errorf("%w: unknown finalize source %q", ErrInvalidInput, source)
	}
	return s.mutate(ctx, tournamentID, "finalize", func(tx *gorm.DB) error {
		if source == FinalizeScore {
			var ids []string
			if err := tx.Model(&models.Performer{}).
				Where("tournament_id = ?", tournamentID).
				Order("total_score DESC").
				Order("order_index ASC").
				Limit(MaxAutoWinners).
				Pluck("id", &ids).Error; err != nil {
				return storeErr(err, "rank performers")
			}
			if err := selectWinners(tx, tournamentID, ids); err != nil {
				return err
			}
		}
		return updateState(tx, tournamentID, map[string]interface{}{
			"finalized": true,
			"show_view": models.ViewWinners,
		})
	})
}

// SetView switches what spectators see.
func (s *PerformanceService) SetView(ctx context.Context, tournamentID string, view models.View) (*PerformanceSnapshot, error) {
	if view != models.ViewOrder && view != models.ViewWinners {
		return nil, fmt.Errorf("%w: unknown view %q", ErrInvalidInput, view)
	}
	return s.mutate(ctx, tournamentID, "set view", func(tx *gorm.DB) error {
		return updateState(tx, tournamentID, map[string]interface{}{"show_view": view})
	})
}

// Clear drops the roster and resets the state row to its initial values.
func (s *PerformanceService) Clear(ctx context.Context, tournamentID string) (*PerformanceSnapshot, error) {
	return s.mutate(ctx, tournamentID, "clear", func(tx *gorm.DB) error {
		if err := tx.Where("tournament_id = ?", tournamentID).Delete(&models.Performer{}).Error; err != nil {
			return storeErr(err, "delete performers")
		}
		return updateState(tx, tournamentID, map[string]interface{}{
			"current_index": -1,
			"show_view":     models.ViewOrder,
			"finalized":     false,
		})
	})
}

// mutate runs fn under the tournament row lock, then snapshots and
// broadcasts. Nothing is broadcast when fn or the commit fails.
func (s *PerformanceService) mutate(ctx context.Context, tournamentID, op string, fn func(tx *gorm.DB) error) (*PerformanceSnapshot, error) {
	var snap *PerformanceSnapshot
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := lockTournament(tx, tournamentID, models.ModeSequential)
		if err != nil {
			return err
		}
		if err := ensureState(tx, tournamentID); err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
		snap, err = snapshot(tx, t)
		return err
	})
	if err != nil {
		log.Printf("❌ [PERFORMANCE] %s on %s failed: %v", op, tournamentID, err)
		return nil, err
	}

	log.Printf("🎤 [PERFORMANCE] %s on %s (%d performers)", op, tournamentID, len(snap.Performers))
	s.Hub.Publish(tournamentID, EventPerformance, sequentialState(snap))
	return snap, nil
}

func ensureState(tx *gorm.DB, tournamentID string) error {
	state := models.PerformanceState{
		TournamentID:   tournamentID,
		CurrentIndex:   -1,
		ShowView:       models.ViewOrder,
		MaxWinners:     MaxAutoWinners,
		ScoringEnabled: true,
	}
	return storeErr(tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&state).Error, "ensure performance state")
}

func updateState(tx *gorm.DB, tournamentID string, fields map[string]interface{}) error {
	return storeErr(tx.Model(&models.PerformanceState{}).
		Where("tournament_id = ?", tournamentID).
		Updates(fields).Error, "update performance state")
}

func orderedRoster(tx *gorm.DB, tournamentID string) ([]models.Performer, error) {
	var roster []models.Performer
	if err := tx.Where("tournament_id = ?", tournamentID).
		Order("order_index ASC").
		Order("created_at ASC").
		Find(&roster).Error; err != nil {
		return nil, storeErr(err, "load performers")
	}
	return roster, nil
}

// repack rewrites every order index to match the slice position.
func repack(tx *gorm.DB, roster []models.Performer) error {
	for i := range roster {
		if err := tx.Model(&models.Performer{}).
			Where("id = ?", roster[i].ID).
			Update("order_index", i).Error; err != nil {
			return storeErr(err, "re-pack order index")
		}
	}
	return nil
}

func selectWinners(tx *gorm.DB, tournamentID string, ids []string) error {
	if err := tx.Model(&models.Performer{}).
		Where("tournament_id = ?", tournamentID).
		Update("is_selected_winner", false).Error; err != nil {
		return storeErr(err, "reset winners")
	}
	if len(ids) == 0 {
		return nil
	}
	return storeErr(tx.Model(&models.Performer{}).
		Where("tournament_id = ? AND id IN ?", tournamentID, ids).
		Update("is_selected_winner", true).Error, "select winners")
}

func snapshot(tx *gorm.DB, t *models.Tournament) (*PerformanceSnapshot, error) {
	var state models.PerformanceState
	if err := tx.First(&state, "tournament_id = ?", t.ID).Error; err != nil {
		return nil, storeErr(err, "performance state")
	}
	roster, err := orderedRoster(tx, t.ID)
	if err != nil {
		return nil, err
	}

	winners := []string{}
	for _, p := range roster {
		if p.IsSelectedWinner {
			winners = append(winners, p.ID)
		}
	}
	if roster == nil {
		roster = []models.Performer{}
	}
	return &PerformanceSnapshot{
		TournamentID:   t.ID,
		TournamentName: t.Name,
		Mode:           t.Mode,
		MaxWinners:     state.MaxWinners,
		ShowView:       state.ShowView,
		CurrentIndex:   state.CurrentIndex,
		ScoringEnabled: state.ScoringEnabled,
		Finalized:      state.Finalized,
		Performers:     roster,
		Winners:        winners,
	}, nil
}

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

// Broadcast event names.
const (
	EventBracket           = "bracket"
	EventPerformance       = "performance"
	EventTournamentDeleted = "tournament-deleted"
	EventAttendance        = "attendance"
)

// ProgressionState is the mode-tagged snapshot spectators render. It is
// either an *EliminationState or a *SequentialState.
type ProgressionState interface {
	ProgressionMode() models.Mode
}

// EliminationState carries the reconstructed bracket. Empty is set when the
// tournament has no matches yet.
type EliminationState struct {
	TournamentID string       `json:"tournament_id"`
	Mode         models.Mode  `json:"mode"`
	Empty        bool         `json:"empty"`
	Bracket      *BracketView `json:"bracket,omitempty"`
}

func (*EliminationState) ProgressionMode() models.Mode { return models.ModeElimination }

// SequentialState carries the performance roster snapshot.
type SequentialState struct {
	TournamentID string               `json:"tournament_id"`
	Mode         models.Mode          `json:"mode"`
	Performance  *PerformanceSnapshot `json:"performance"`
}

func (*SequentialState) ProgressionMode() models.Mode { return models.ModeSequential }

type TournamentService struct {
	DB          *gorm.DB
	Hub         Broadcaster
	Bracket     *BracketService
	Performance *PerformanceService
}

func NewTournamentService(db *gorm.DB, hub Broadcaster, bracket *BracketService, performance *PerformanceService) *TournamentService {
	return &TournamentService{DB: db, Hub: hub, Bracket: bracket, Performance: performance}
}

// Create adds a tournament; a blank mode means elimination.
func (s *TournamentService) Create(ctx context.Context, name string, backgroundPath *string, mode string) (*models.Tournament, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	m, ok := models.ParseMode(mode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}
	if backgroundPath != nil && strings.TrimSpace(*backgroundPath) == "" {
		backgroundPath = nil
	}

	t := &models.Tournament{
		ID:             uuid.NewString(),
		Name:           name,
		BackgroundPath: backgroundPath,
		Mode:           m,
	}
	if err := s.DB.WithContext(ctx).Create(t).Error; err != nil {
		return nil, storeErr(err, "create tournament")
	}
	log.Printf("🏆 [TOURNAMENT] Created %q (%s) as %s", t.Name, t.ID, t.Mode)
	return t, nil
}

// List returns every tournament, newest first, with bracket/performance flags.
func (s *TournamentService) List(ctx context.Context) ([]models.Tournament, error) {
	db := s.DB.WithContext(ctx)
	var tournaments []models.Tournament
	if err := db.Order("created_at DESC").Find(&tournaments).Error; err != nil {
		return nil, storeErr(err, "list tournaments")
	}

	type count struct {
		TournamentID string
		N            int64
	}
	var matchCounts, performerCounts []count
	if err := db.Model(&models.Match{}).
		Select("tournament_id, COUNT(*) AS n").
		Group("tournament_id").
		Scan(&matchCounts).Error; err != nil {
		return nil, storeErr(err, "count matches")
	}
	if err := db.Model(&models.Performer{}).
		Select("tournament_id, COUNT(*) AS n").
		Group("tournament_id").
		Scan(&performerCounts).Error; err != nil {
		return nil, storeErr(err, "count performers")
	}

	hasBracket := make(map[string]bool, len(matchCounts))
	for _, c := range matchCounts {
		hasBracket[c.TournamentID] = c.N > 0
	}
	hasPerformance := make(map[string]bool, len(performerCounts))
	for _, c := range performerCounts {
		hasPerformance[c.TournamentID] = c.N > 0
	}
	for i := range tournaments {
		tournaments[i].HasBracket = hasBracket[tournaments[i].ID]
		tournaments[i].HasPerformance = hasPerformance[tournaments[i].ID]
	}
	return tournaments, nil
}

func (s *TournamentService) Get(ctx context.Context, id string) (*models.Tournament, error) {
	db := s.DB.WithContext(ctx)
	var t models.Tournament
	if err := db.First(&t, "id = ?", id).Error; err != nil {
		return nil, storeErr(err, "tournament "+id)
	}

	var matches, performers int64
	if err := db.Model(&models.Match{}).Where("tournament_id = ?", id).Count(&matches).Error; err != nil {
		return nil, storeErr(err, "count matches")
	}
	if err := db.Model(&models.Performer{}).Where("tournament_id = ?", id).Count(&performers).Error; err != nil {
		return nil, storeErr(err, "count performers")
	}
	t.HasBracket = matches > 0
	t.HasPerformance = performers > 0
	return &t, nil
}

// Delete removes the tournament with its matches, performers and
// performance state in one transaction.
func (s *TournamentService) Delete(ctx context.Context, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockTournament(tx, id, ""); err != nil {
			return err
		}
		if err := tx.Where("tournament_id = ?", id).Delete(&models.Match{}).Error; err != nil {
			return storeErr(err, "delete matches")
		}
		if err := tx.Where("tournament_id = ?", id).Delete(&models.Performer{}).Error; err != nil {
			return storeErr(err, "delete performers")
		}
		if err := tx.Where("tournament_id = ?", id).Delete(&models.PerformanceState{}).Error; err != nil {
			return storeErr(err, "delete performance state")
		}
		if err := tx.Delete(&models.Tournament{}, "id = ?", id).Error; err != nil {
			return storeErr(err, "delete tournament")
		}
		return nil
	})
	if err != nil {
		log.Printf("❌ [TOURNAMENT] Delete %s failed: %v", id, err)
		return err
	}

	log.Printf("🗑️  [TOURNAMENT] Deleted %s", id)
	s.Hub.Publish(id, EventTournamentDeleted, map[string]string{"tournament_id": id})
	return nil
}

// State returns what a spectator should see for the tournament right now.
func (s *TournamentService) State(ctx context.Context, id string) (ProgressionState, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch t.Mode {
	case models.ModeSequential:
		snap, err := s.Performance.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return sequentialState(snap), nil
	default:
		return s.Bracket.State(ctx, id)
	}
}

// lockTournament takes a row lock on the tournament for the rest of tx,
// serialising every read-modify-write on its matches and roster. An empty
// mode skips the mode check.
func lockTournament(tx *gorm.DB, id string, mode models.Mode) (*models.Tournament, error) {
	return findTournament(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id, mode)
}

// findTournament loads the tournament without locking it. An empty mode
// accepts either.
func findTournament(db *gorm.DB, id string, mode models.Mode) (*models.Tournament, error) {
	var t models.Tournament
	if err := db.First(&t, "id = ?", id).Error; err != nil {
		return nil, storeErr(err, "tournament "+id)
	}
	if mode != "" && t.Mode != mode {
		return nil, fmt.Errorf("%w: tournament %s is %s", ErrWrongMode, id, t.Mode)
	}
	return &t, nil
}

func sequentialState(snap *PerformanceSnapshot) *SequentialState {
	return &SequentialState{TournamentID: snap.TournamentID, Mode: models.ModeSequential, Performance: snap}
}

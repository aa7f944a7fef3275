package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"eventflow/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB returns a migrated sqlite database in a temp dir. One open
// connection keeps transactions serialised the way row locks do on postgres.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

type published struct {
	Topic   string
	Event   string
	Payload interface{}
}

// recorder is a Broadcaster that keeps everything published.
type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(topic, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{Topic: topic, Event: event, Payload: payload})
}

func (r *recorder) all() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]published(nil), r.events...)
}

func (r *recorder) last() published {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return published{}
	}
	return r.events[len(r.events)-1]
}

type fixture struct {
	DB          *gorm.DB
	Hub         *recorder
	Bracket     *BracketService
	Performance *PerformanceService
	Tournaments *TournamentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	hub := &recorder{}
	bracket := NewBracketService(db, hub)
	performance := NewPerformanceService(db, hub)
	return &fixture{
		DB:          db,
		Hub:         hub,
		Bracket:     bracket,
		Performance: performance,
		Tournaments: NewTournamentService(db, hub, bracket, performance),
	}
}

func (f *fixture) tournament(t *testing.T, mode models.Mode) *models.Tournament {
	t.Helper()
	tour, err := f.Tournaments.Create(context.Background(), "Friday Cup", nil, string(mode))
	require.NoError(t, err)
	return tour
}

func (f *fixture) participant(t *testing.T, name string) string {
	t.Helper()
	p, err := f.Bracket.AddParticipant(context.Background(), name)
	require.NoError(t, err)
	return p.ID
}

func (f *fixture) match(t *testing.T, tournamentID string, p1, p2, next *string, slot int) string {
	t.Helper()
	spec := MatchSpec{TournamentID: tournamentID, Participant1ID: p1, Participant2ID: p2, NextMatchID: next}
	if next != nil {
		spec.NextMatchSlot = &slot
	}
	m, err := f.Bracket.CreateMatch(context.Background(), spec)
	require.NoError(t, err)
	return m.ID
}

func (f *fixture) loadMatch(t *testing.T, id string) models.Match {
	t.Helper()
	var m models.Match
	require.NoError(t, f.DB.First(&m, "id = ?", id).Error)
	return m
}

func ptr[T any](v T) *T { return &v }

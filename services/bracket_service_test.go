package services

import (
	"context"
	"sync"
	"testing"

	"eventflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fourBracket builds A and B feeding final F at slots 1 and 2.
type fourBracket struct {
	TournamentID       string
	A, B, F            string
	Ann, Ben, Cat, Dan string
}

func newFourBracket(t *testing.T, f *fixture) fourBracket {
	t.Helper()
	tour := f.tournament(t, models.ModeElimination)
	b := fourBracket{
		TournamentID: tour.ID,
		Ann:          f.participant(t, "Ann"),
		Ben:          f.participant(t, "Ben"),
		Cat:          f.participant(t, "Cat"),
		Dan:          f.participant(t, "Dan"),
	}
	b.F = f.match(t, tour.ID, nil, nil, nil, 0)
	b.A = f.match(t, tour.ID, &b.Ann, &b.Ben, &b.F, 1)
	b.B = f.match(t, tour.ID, &b.Cat, &b.Dan, &b.F, 2)
	return b
}

func TestRecordResult_PropagatesBothSlots(t *testing.T) {
	f := newFixture(t)
	b := newFourBracket(t, f)
	ctx := context.Background()

	_, err := f.Bracket.RecordResult(ctx, b.A, b.Ann, ptr(3), ptr(1))
	require.NoError(t, err)
	view, err := f.Bracket.RecordResult(ctx, b.B, b.Dan, ptr(0), ptr(2))
	require.NoError(t, err)

	final := f.loadMatch(t, b.F)
	require.NotNil(t, final.Participant1ID)
	require.NotNil(t, final.Participant2ID)
	assert.Equal(t, b.Ann, *final.Participant1ID)
	assert.Equal(t, b.Dan, *final.Participant2ID)
	assert.Nil(t, final.WinnerID)

	require.Len(t, view.Rounds, 2)
	assert.Nil(t, view.Champion)
	fm := view.Rounds[1].Matches[0]
	assert.Equal(t, "Ann", *fm.Player1)
	assert.Equal(t, "Dan", *fm.Player2)

	a := f.loadMatch(t, b.A)
	assert.Equal(t, b.Ann, *a.WinnerID)
	assert.Equal(t, 3, *a.Score1)
	assert.Equal(t, 1, *a.Score2)

	view, err = f.Bracket.RecordResult(ctx, b.F, b.Dan, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, view.Champion)
	assert.Equal(t, "Dan", *view.Champion)
}

func TestRecordResult_OutOfOrderSlots(t *testing.T) {
	f := newFixture(t)
	b := newFourBracket(t, f)
	ctx := context.Background()

	_, err := f.Bracket.RecordResult(ctx, b.B, b.Cat, nil, nil)
	require.NoError(t, err)
	final := f.loadMatch(t, b.F)
	assert.Nil(t, final.Participant1ID)
	assert.Equal(t, b.Cat, *final.Participant2ID)
}

func TestRecordResult_ReRecordOverwrites(t *testing.T) {
	f := newFixture(t)
	b := newFourBracket(t, f)
	ctx := context.Background()

	_, err := f.Bracket.RecordResult(ctx, b.A, b.Ann, nil, nil)
	require.NoError(t, err)
	_, err = f.Bracket.RecordResult(ctx, b.A, b.Ben, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, b.Ben, *f.loadMatch(t, b.A).WinnerID)
	assert.Equal(t, b.Ben, *f.loadMatch(t, b.F).Participant1ID)
}

func TestRecordResult_SingleHop(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, models.ModeElimination)
	ann, ben, cat := f.participant(t, "Ann"), f.participant(t, "Ben"), f.participant(t, "Cat")
	final := f.match(t, tour.ID, nil, nil, nil, 0)
	semi := f.match(t, tour.ID, nil, &cat, &final, 1)
	quarter := f.match(t, tour.ID, &ann, &ben, &semi, 1)

	_, err := f.Bracket.RecordResult(context.Background(), quarter, ann, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, ann, *f.loadMatch(t, semi).Participant1ID)
	fm := f.loadMatch(t, final)
	assert.Nil(t, fm.Participant1ID)
	assert.Nil(t, fm.Participant2ID)
}

func TestRecordResult_WalkoverAllowed(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, models.ModeElimination)
	ann := f.participant(t, "Ann")
	final := f.match(t, tour.ID, nil, nil, nil, 0)
	semi := f.match(t, tour.ID, &ann, nil, &final, 2)

	_, err := f.Bracket.RecordResult(context.Background(), semi, ann, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ann, *f.loadMatch(t, final).Participant2ID)
}

func TestRecordResult_RejectsOutsider(t *testing.T) {
	f := newFixture(t)
	b := newFourBracket(t, f)
	before := len(f.Hub.all())

	_, err := f.Bracket.RecordResult(context.Background(), b.A, b.Cat, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidWinner)
	assert.Nil(t, f.loadMatch(t, b.A).WinnerID)
	assert.Nil(t, f.loadMatch(t, b.F).Participant1ID)
	assert.Len(t, f.Hub.all(), before, "nothing is broadcast on failure")
}

func TestRecordResult_UnknownMatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.Bracket.RecordResult(context.Background(), "nope", "x", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordResult_DanglingEdgeRollsBack(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, models.ModeElimination)
	ann, ben := f.participant(t, "Ann"), f.participant(t, "Ben")

	// Written straight to the store; the service refuses to create it.
	broken := models.Match{
		ID:             "broken",
		TournamentID:   tour.ID,
		Participant1ID: &ann,
		Participant2ID: &ben,
		NextMatchID:    ptr("missing"),
		NextMatchSlot:  ptr(1),
	}
	require.NoError(t, f.DB.Create(&broken).Error)
	before := len(f.Hub.all())

	_, err := f.Bracket.RecordResult(context.Background(), "broken", ann, ptr(1), ptr(0))
	assert.ErrorIs(t, err, ErrInvalidGraph)

	m := f.loadMatch(t, "broken")
	assert.Nil(t, m.WinnerID, "winner write rolled back")
	assert.Nil(t, m.Score1)
	assert.Len(t, f.Hub.all(), before)
}

func TestRecordResult_DuplicateIntoOtherSlotRollsBack(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, models.ModeElimination)
	ann, ben := f.participant(t, "Ann"), f.participant(t, "Ben")
	final := f.match(t, tour.ID, nil, &ann, nil, 0)
	semi := f.match(t, tour.ID, &ann, &ben, &final, 1)

	_, err := f.Bracket.RecordResult(context.Background(), semi, ann, nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateSlot)
	assert.Nil(t, f.loadMatch(t, semi).WinnerID)
	assert.Nil(t, f.loadMatch(t, final).Participant1ID)
}

func TestRecordResult_ConcurrentSiblings(t *testing.T) {
	f := newFixture(t)
	b := newFourBracket(t, f)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.Bracket.RecordResult(ctx, b.A, b.Ben, nil, nil)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.Bracket.RecordResult(ctx, b.B, b.Cat, nil, nil)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	final := f.loadMatch(t, b.F)
	assert.Equal(t, b.Ben, *final.Participant1ID)
	assert.Equal(t, b.Cat, *final.Participant2ID)
}

func TestRecordResult_Broadcasts(t *testing.T) {
	f := newFixture(t)
	b := newFourBracket(t, f)

	view, err := f.Bracket.RecordResult(context.Background(), b.A, b.Ann, nil, nil)
	require.NoError(t, err)

	last := f.Hub.last()
	assert.Equal(t, b.TournamentID, last.Topic)
	assert.Equal(t, EventBracket, last.Event)
	state, ok := last.Payload.(*EliminationState)
	require.True(t, ok)
	assert.Equal(t, view, state.Bracket)
}

func TestRecordResult_WrongMode(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, models.ModeSequential)
	ann := f.participant(t, "Ann")
	require.NoError(t, f.DB.Create(&models.Match{ID: "m", TournamentID: tour.ID, Participant1ID: &ann}).Error)

	_, err := f.Bracket.RecordResult(context.Background(), "m", ann, nil, nil)
	assert.ErrorIs(t, err, ErrWrongMode)
}

func TestAssignParticipant(t *testing.T) {
	f := newFixture(t)
	b := newFourBracket(t, f)
	ctx := context.Background()

	_, err := f.Bracket.AssignParticipant(ctx, b.F, 2, &b.Cat)
	require.NoError(t, err)
	assert.Equal(t, b.Cat, *f.loadMatch(t, b.F).Participant2ID)

	_, err = f.Bracket.AssignParticipant(ctx, b.F, 1, &b.Cat)
	assert.ErrorIs(t, err, ErrDuplicateSlot)

	_, err = f.Bracket.AssignParticipant(ctx, b.F, 3, &b.Ann)
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = f.Bracket.AssignParticipant(ctx, b.F, 1, ptr("ghost"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.Bracket.AssignParticipant(ctx, b.F, 2, nil)
	require.NoError(t, err)
	assert.Nil(t, f.loadMatch(t, b.F).Participant2ID)
}

func TestCreateMatch_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := f.tournament(t, models.ModeElimination)
	other := f.tournament(t, models.ModeElimination)
	ann := f.participant(t, "Ann")
	foreign := f.match(t, other.ID, nil, nil, nil, 0)

	_, err := f.Bracket.CreateMatch(ctx, MatchSpec{TournamentID: tour.ID, Participant1ID: &ann, Participant2ID: &ann})
	assert.ErrorIs(t, err, ErrDuplicateSlot)

	_, err = f.Bracket.CreateMatch(ctx, MatchSpec{TournamentID: tour.ID, NextMatchID: &foreign, NextMatchSlot: ptr(1)})
	assert.ErrorIs(t, err, ErrInvalidGraph)

	_, err = f.Bracket.CreateMatch(ctx, MatchSpec{TournamentID: tour.ID, NextMatchID: &foreign})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.Bracket.CreateMatch(ctx, MatchSpec{TournamentID: other.ID, NextMatchID: &foreign, NextMatchSlot: ptr(0)})
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = f.Bracket.CreateMatch(ctx, MatchSpec{TournamentID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearMatches(t *testing.T) {
	f := newFixture(t)
	b := newFourBracket(t, f)
	ctx := context.Background()

	require.NoError(t, f.Bracket.ClearMatches(ctx, b.TournamentID))

	_, err := f.Bracket.View(ctx, b.TournamentID)
	assert.ErrorIs(t, err, ErrNoBracket)

	state, err := f.Bracket.State(ctx, b.TournamentID)
	require.NoError(t, err)
	assert.True(t, state.Empty)
	assert.Nil(t, state.Bracket)

	last := f.Hub.last()
	assert.Equal(t, EventBracket, last.Event)
	assert.True(t, last.Payload.(*EliminationState).Empty)
}

func TestView_UnknownTournamentIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.Bracket.View(ctx, "no-such-tournament")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNoBracket)

	seq := f.tournament(t, models.ModeSequential)
	_, err = f.Bracket.View(ctx, seq.ID)
	assert.ErrorIs(t, err, ErrWrongMode)
}

func TestListMatches_CarriesNames(t *testing.T) {
	f := newFixture(t)
	b := newFourBracket(t, f)

	rows, err := f.Bracket.ListMatches(context.Background(), b.TournamentID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	names := map[string]string{}
	for _, r := range rows {
		if r.P1Name != nil {
			names[r.ID] = *r.P1Name
		}
	}
	assert.Equal(t, "Ann", names[b.A])
	assert.Equal(t, "Cat", names[b.B])
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		entrants    int
		matches     int
		rounds      int
		bracketSize int
	}{
		{2, 1, 1, 1},
		{3, 3, 2, 2},
		{4, 3, 2, 2},
		{5, 7, 3, 4},
		{8, 7, 3, 4},
	}
	names := []string{"Ann", "Ben", "Cat", "Dan", "Eve", "Fay", "Gus", "Hal"}

	for _, tt := range tests {
		f := newFixture(t)
		tour := f.tournament(t, models.ModeElimination)

		view, err := f.Bracket.Generate(context.Background(), tour.ID, names[:tt.entrants])
		require.NoError(t, err, "entrants=%d", tt.entrants)
		require.Len(t, view.Rounds, tt.rounds, "entrants=%d", tt.entrants)
		assert.Equal(t, tt.bracketSize, view.BracketSize, "entrants=%d", tt.entrants)

		var total, seated int
		for _, r := range view.Rounds {
			total += len(r.Matches)
		}
		for _, m := range view.Rounds[0].Matches {
			require.NotNil(t, m.Player1, "no leaf is empty")
			seated++
			if m.Player2 != nil {
				seated++
			}
		}
		assert.Equal(t, tt.matches, total, "entrants=%d", tt.entrants)
		assert.Equal(t, tt.entrants, seated, "entrants=%d", tt.entrants)
	}
}

func TestGenerate_KeepsEntrantOrder(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, models.ModeElimination)

	view, err := f.Bracket.Generate(context.Background(), tour.ID, []string{"Ann", "Ben", "Cat", "Dan"})
	require.NoError(t, err)

	leaves := view.Rounds[0].Matches
	assert.Equal(t, "Ann", *leaves[0].Player1)
	assert.Equal(t, "Ben", *leaves[0].Player2)
	assert.Equal(t, "Cat", *leaves[1].Player1)
	assert.Equal(t, "Dan", *leaves[1].Player2)
}

func TestGenerate_ReplacesExistingBracket(t *testing.T) {
	f := newFixture(t)
	b := newFourBracket(t, f)

	_, err := f.Bracket.Generate(context.Background(), b.TournamentID, []string{"Eve", "Fay"})
	require.NoError(t, err)

	var n int64
	require.NoError(t, f.DB.Model(&models.Match{}).Where("tournament_id = ?", b.TournamentID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestGenerate_NeedsTwoEntrants(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, models.ModeElimination)
	_, err := f.Bracket.Generate(context.Background(), tour.ID, []string{"Ann", "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteParticipant_UnlinksMatches(t *testing.T) {
	f := newFixture(t)
	b := newFourBracket(t, f)
	ctx := context.Background()

	_, err := f.Bracket.RecordResult(ctx, b.A, b.Ann, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.Bracket.DeleteParticipant(ctx, b.Ann))

	a := f.loadMatch(t, b.A)
	assert.Nil(t, a.Participant1ID)
	assert.Nil(t, a.WinnerID)
	assert.Equal(t, b.Ben, *a.Participant2ID)
	assert.Nil(t, f.loadMatch(t, b.F).Participant1ID)

	assert.ErrorIs(t, f.Bracket.DeleteParticipant(ctx, b.Ann), ErrNotFound)
}

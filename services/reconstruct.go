package services

import (
	"fmt"
	"sort"

	"eventflow/models"
)

// Side names the slot a winner flows into, as the display renders it.
type Side string

const (
	SideTop    Side = "top"    // slot 1
	SideBottom Side = "bottom" // slot 2
)

// MatchLink locates the match a winner advances to.
type MatchLink struct {
	Round int  `json:"round"`
	Index int  `json:"index"`
	Side  Side `json:"side"`
}

// BracketMatch is one positioned match of a reconstructed bracket.
type BracketMatch struct {
	ID        string     `json:"id"`
	Player1ID *string    `json:"player1_id,omitempty"`
	Player1   *string    `json:"player1"`
	Player2ID *string    `json:"player2_id,omitempty"`
	Player2   *string    `json:"player2"`
	WinnerID  *string    `json:"winner_id,omitempty"`
	Winner    *string    `json:"winner"`
	Score1    *int       `json:"score1"`
	Score2    *int       `json:"score2"`
	Next      *MatchLink `json:"next,omitempty"`
}

type BracketRound struct {
	Index   int            `json:"index"`
	Matches []BracketMatch `json:"matches"`
}

// BracketView is the displayable form of a tournament's match graph. Rounds
// run from the leaves (index 0) to the final (index len(Rounds)-1).
type BracketView struct {
	TournamentID string         `json:"tournament_id"`
	Rounds       []BracketRound `json:"rounds"`
	Champion     *string        `json:"champion"`
	BracketSize  int            `json:"bracket_size"`
}

// Reconstruct turns the flat match rows of one tournament into ordered,
// positionally linked rounds. The result depends only on the graph, never on
// the order of rows.
//
// A match's round is R minus its distance from the final, where R is the
// longest child chain below the final. Within a round, matches are ordered by
// the position of the match they feed in the next round, then by slot, so the
// slot 1 feeder always sits before the slot 2 feeder of the same parent.
//
// On a balanced graph every leaf match lands in round 0. On an uneven graph a
// shallow leaf lands in a later round instead, so that a match in round r
// always feeds a match in round r+1.
func Reconstruct(tournamentID string, rows []models.MatchRow) (*BracketView, error) {
	if len(rows) == 0 {
		return nil, ErrNoBracket
	}

	byID := make(map[string]*models.MatchRow, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	var roots []string
	children := make(map[string][]string)
	for _, r := range byID {
		if r.NextMatchID == nil {
			roots = append(roots, r.ID)
			continue
		}
		if _, ok := byID[*r.NextMatchID]; !ok {
			return nil, fmt.Errorf("%w: match %s points at unknown match %s", ErrInvalidGraph, r.ID, *r.NextMatchID)
		}
		children[*r.NextMatchID] = append(children[*r.NextMatchID], r.ID)
	}
	switch len(roots) {
	case 0:
		// Every match feeds another: there is no final to hang a bracket on.
		return nil, fmt.Errorf("%w: %w: no final match", ErrNoBracket, ErrInvalidGraph)
	case 1:
	default:
		sort.Strings(roots)
		return nil, fmt.Errorf("%w: %d final matches %v", ErrInvalidGraph, len(roots), roots)
	}
	root := roots[0]

	// Breadth-first distance from the final.
	dist := map[string]int{root: 0}
	queue := []string{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if _, seen := dist[child]; seen {
				return nil, fmt.Errorf("%w: match %s reached twice", ErrInvalidGraph, child)
			}
			dist[child] = dist[id] + 1
			queue = append(queue, child)
		}
	}
	if len(dist) != len(byID) {
		return nil, fmt.Errorf("%w: %d matches are not connected to the final", ErrInvalidGraph, len(byID)-len(dist))
	}

	depth := make(map[string]int, len(byID))
	var longest func(id string) int
	longest = func(id string) int {
		if d, ok := depth[id]; ok {
			return d
		}
		d := 0
		for _, child := range children[id] {
			if cd := longest(child) + 1; cd > d {
				d = cd
			}
		}
		depth[id] = d
		return d
	}
	total := longest(root)

	members := make([][]string, total+1)
	for id, d := range dist {
		r := total - d
		members[r] = append(members[r], id)
	}

	position := make(map[string]int, len(byID))
	position[root] = 0
	for r := total - 1; r >= 0; r-- {
		ids := members[r]
		sort.Slice(ids, func(i, j int) bool {
			a, b := byID[ids[i]], byID[ids[j]]
			pa, pb := position[*a.NextMatchID], position[*b.NextMatchID]
			if pa != pb {
				return pa < pb
			}
			sa, sb := slotOf(a), slotOf(b)
			if sa != sb {
				return sa < sb
			}
			return a.ID < b.ID
		})
		for i, id := range ids {
			position[id] = i
		}
	}

	view := &BracketView{
		TournamentID: tournamentID,
		Rounds:       make([]BracketRound, total+1),
		Champion:     byID[root].WinnerName,
		BracketSize:  nextPowerOfTwo(len(members[0])),
	}
	for r, ids := range members {
		round := BracketRound{Index: r, Matches: make([]BracketMatch, 0, len(ids))}
		for _, id := range ids {
			row := byID[id]
			m := BracketMatch{
				ID:        row.ID,
				Player1ID: row.Participant1ID,
				Player1:   row.P1Name,
				Player2ID: row.Participant2ID,
				Player2:   row.P2Name,
				WinnerID:  row.WinnerID,
				Winner:    row.WinnerName,
				Score1:    row.Score1,
				Score2:    row.Score2,
			}
			if row.NextMatchID != nil {
				side := SideTop
				if slotOf(row) != 1 {
					side = SideBottom
				}
				m.Next = &MatchLink{Round: r + 1, Index: position[*row.NextMatchID], Side: side}
			}
			round.Matches = append(round.Matches, m)
		}
		view.Rounds[r] = round
	}
	return view, nil
}

// slotOf treats a missing or out-of-range slot as slot 2. The advancer rejects
// such edges; here they only sort and render as the bottom side.
func slotOf(r *models.MatchRow) int {
	if r.NextMatchSlot != nil && *r.NextMatchSlot == 1 {
		return 1
	}
	return 2
}

func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// Package cpu plays a seat nobody took: it picks chess moves and battle
// choices from the same information a human in that seat would have.
package cpu

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/chessrules"
	"github.com/qnkhuat/chessmon/pkg/piece"
	"github.com/qnkhuat/chessmon/pkg/rng"
)

var (
	ErrClosed     = errors.New("cpu player closed")
	ErrNoMoves    = errors.New("no legal moves")
	ErrEmptyDraft = errors.New("draft pool is empty")
)

var values = map[chess.PieceType]int{
	chess.Pawn:   1,
	chess.Knight: 3,
	chess.Bishop: 3,
	chess.Rook:   5,
	chess.Queen:  9,
	chess.King:   100,
}

// Player is one CPU seat. It is created with its match and closed with it.
type Player struct {
	mu     sync.Mutex
	src    *rng.Source
	closed bool
}

// New returns a player drawing from src.
func New(src *rng.Source) *Player {
	return &Player{src: src}
}

// Close releases the player. Later calls fail with ErrClosed.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// ChooseDraft picks an index into the available draft entries.
func (p *Player) ChooseDraft(available []battle.Combatant) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	if len(available) == 0 {
		return 0, ErrEmptyDraft
	}
	return p.src.Intn(len(available)), nil
}

// ChooseMove picks a move for the side to move. Captures that trade up, or
// whose attacker outclasses the defender, come first; otherwise a random
// legal move is played.
func (p *Player) ChooseMove(rules *chessrules.Game, pieces *piece.Manager) (chessrules.Move, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return chessrules.Move{}, ErrClosed
	}
	moves := rules.LegalMoves(true)
	if len(moves) == 0 {
		return chessrules.Move{}, ErrNoMoves
	}

	type scored struct {
		m     chessrules.Move
		score int
	}
	var captures []scored
	for _, m := range moves {
		if !m.IsCapture() {
			continue
		}
		target, ok := pieces.PieceAt(m.Captured)
		if !ok {
			continue
		}
		score := values[target.Kind] - values[m.Piece]
		if atk, ok := pieces.PieceAt(m.From); ok {
			score += 2 * (int(piece.TierFor(atk.Kind)) - int(piece.TierFor(target.Kind)))
		}
		if score >= 0 {
			captures = append(captures, scored{m, score})
		}
	}
	if len(captures) > 0 {
		sort.SliceStable(captures, func(i, j int) bool { return captures[i].score > captures[j].score })
		best := captures[0].score
		n := 1
		for n < len(captures) && captures[n].score == best {
			n++
		}
		return captures[p.src.Intn(n)].m, nil
	}
	return moves[p.src.Intn(len(moves))], nil
}

// ChooseBattle answers a choice request for one side.
func (p *Player) ChooseBattle(req battle.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrClosed
	}
	switch {
	case req.TeamPreview:
		return "team 1", nil
	case len(req.ForceSwitch) > 0:
		return "default", nil
	}
	enabled := req.EnabledMoves()
	if len(enabled) == 0 {
		return "default", nil
	}
	return fmt.Sprintf("move %d", enabled[p.src.Intn(len(enabled))]), nil
}

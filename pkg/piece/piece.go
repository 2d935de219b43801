// Package piece binds chess pieces to battle combatants and tracks where
// every bound piece stands.
package piece

import (
	"errors"
	"fmt"

	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/battle"
)

var ErrNoPiece = errors.New("no piece on square")

// Piece is a chess piece with its combatant. Square is chess.NoSquare once
// the piece has been taken; taken pieces are kept for TakenPieces.
type Piece struct {
	ID      int              `json:"id"`
	Kind    chess.PieceType  `json:"kind"`
	Square  chess.Square     `json:"square"`
	Color   chess.Color      `json:"color"`
	Pokemon battle.Combatant `json:"pokemon"`
}

// OnBoard reports whether the piece is still in play.
func (p Piece) OnBoard() bool { return p.Square != chess.NoSquare }

func (p Piece) String() string {
	where := "taken"
	if p.OnBoard() {
		where = p.Square.String()
	}
	return fmt.Sprintf("%s %s %s (%s)", p.Color.Name(), p.Kind, where, p.Pokemon.DisplayName())
}

// Tier is a combatant strength band used to pair strong chess pieces with
// strong combatants.
type Tier int

const (
	TierLow Tier = iota
	TierMid
	TierHigh
	TierTop
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMid:
		return "mid"
	case TierHigh:
		return "high"
	default:
		return "top"
	}
}

// TierFor returns the strength band a chess piece kind draws from.
func TierFor(kind chess.PieceType) Tier {
	switch kind {
	case chess.Pawn:
		return TierLow
	case chess.Knight, chess.Bishop:
		return TierMid
	case chess.Rook:
		return TierHigh
	default:
		return TierTop
	}
}

// Generator builds combatants. Tier classifies a species; the filter passed
// to BuildRandomPokemon is a predicate over species names.
type Generator interface {
	BuildRandomPokemon(filter func(species string) bool) (battle.Combatant, error)
	Tier(species string) Tier
}

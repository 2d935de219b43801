package piece

import (
	"fmt"
	"sort"

	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/battle"
)

// DefaultDraftSize is the number of combatants offered in a draft.
const DefaultDraftSize = 38

// DraftPool holds the combatants not yet placed. Each entry leaves
// Available exactly once, either to a square or to Banned.
type DraftPool struct {
	Available []battle.Combatant `json:"available"`
	Banned    []battle.Combatant `json:"banned"`
}

// Manager owns piece placement and the draft pool. It is not safe for
// concurrent use.
type Manager struct {
	pieces []*Piece
	draft  DraftPool
}

// NewManager returns an empty board.
func NewManager() *Manager {
	return &Manager{}
}

// PieceAt returns the live piece on sq.
func (m *Manager) PieceAt(sq chess.Square) (Piece, bool) {
	if p := m.at(sq); p != nil {
		return *p, true
	}
	return Piece{}, false
}

func (m *Manager) at(sq chess.Square) *Piece {
	if sq == chess.NoSquare {
		return nil
	}
	for _, p := range m.pieces {
		if p.Square == sq {
			return p
		}
	}
	return nil
}

// Place binds c to a new piece on sq. Whatever stood on sq is taken.
func (m *Manager) Place(sq chess.Square, kind chess.PieceType, color chess.Color, c battle.Combatant) Piece {
	if old := m.at(sq); old != nil {
		old.Square = chess.NoSquare
	}
	p := &Piece{ID: len(m.pieces) + 1, Kind: kind, Square: sq, Color: color, Pokemon: c}
	m.pieces = append(m.pieces, p)
	return *p
}

// MovePiece moves the piece on from to to. A piece already on to is taken;
// promotion, when not chess.NoPieceType, changes the moved piece's kind.
func (m *Manager) MovePiece(from, to chess.Square, promotion chess.PieceType) (Piece, error) {
	p := m.at(from)
	if p == nil {
		return Piece{}, fmt.Errorf("move %s%s: %w", from, to, ErrNoPiece)
	}
	if from == to {
		return *p, nil
	}
	if occupant := m.at(to); occupant != nil {
		occupant.Square = chess.NoSquare
	}
	p.Square = to
	if promotion != chess.NoPieceType {
		p.Kind = promotion
	}
	return *p, nil
}

// RemovePiece takes the piece on sq off the board.
func (m *Manager) RemovePiece(sq chess.Square) (Piece, bool) {
	p := m.at(sq)
	if p == nil {
		return Piece{}, false
	}
	p.Square = chess.NoSquare
	return *p, true
}

// Pieces returns every piece ever placed, in placement order.
func (m *Manager) Pieces() []Piece {
	out := make([]Piece, len(m.pieces))
	for i, p := range m.pieces {
		out[i] = *p
	}
	return out
}

// Live returns the pieces on the board ordered by square.
func (m *Manager) Live() []Piece {
	var out []Piece
	for _, p := range m.pieces {
		if p.OnBoard() {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Square < out[j].Square })
	return out
}

// TakenPieces returns the pieces no longer on the board, optionally only
// those of the given colors.
func (m *Manager) TakenPieces(colors ...chess.Color) []Piece {
	var out []Piece
	for _, p := range m.pieces {
		if p.OnBoard() {
			continue
		}
		if len(colors) > 0 && !hasColor(colors, p.Color) {
			continue
		}
		out = append(out, *p)
	}
	return out
}

func hasColor(colors []chess.Color, c chess.Color) bool {
	for _, x := range colors {
		if x == c {
			return true
		}
	}
	return false
}

// Draft returns a copy of the draft pool.
func (m *Manager) Draft() DraftPool {
	return DraftPool{
		Available: append([]battle.Combatant(nil), m.draft.Available...),
		Banned:    append([]battle.Combatant(nil), m.draft.Banned...),
	}
}

// AssignDraftPieceToSquare places draft entry idx on sq. An index outside
// the pool is a no-op and reports false: concurrent picks may race for the
// same slot.
func (m *Manager) AssignDraftPieceToSquare(idx int, sq chess.Square, kind chess.PieceType, color chess.Color) (Piece, bool) {
	c, ok := m.takeDraft(idx)
	if !ok {
		return Piece{}, false
	}
	return m.Place(sq, kind, color, c), true
}

// BanDraftPiece moves draft entry idx to the banned list. An index outside
// the pool is a no-op and reports false.
func (m *Manager) BanDraftPiece(idx int) bool {
	c, ok := m.takeDraft(idx)
	if !ok {
		return false
	}
	m.draft.Banned = append(m.draft.Banned, c)
	return true
}

func (m *Manager) takeDraft(idx int) (battle.Combatant, bool) {
	if idx < 0 || idx >= len(m.draft.Available) {
		return battle.Combatant{}, false
	}
	c := m.draft.Available[idx]
	m.draft.Available = append(m.draft.Available[:idx:idx], m.draft.Available[idx+1:]...)
	return c, true
}

// PopulateRandomTeams fills the 32 starting squares, each with a combatant
// from the strength tier of its piece kind.
func (m *Manager) PopulateRandomTeams(gen Generator) error {
	squares := chess.StartingPosition().Board().SquareMap()
	order := make([]chess.Square, 0, len(squares))
	for sq := range squares {
		order = append(order, sq)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	for _, sq := range order {
		pc := squares[sq]
		tier := TierFor(pc.Type())
		c, err := gen.BuildRandomPokemon(func(species string) bool {
			return gen.Tier(species) == tier
		})
		if err != nil {
			return fmt.Errorf("populate %s: %w", sq, err)
		}
		m.Place(sq, pc.Type(), pc.Color(), c)
	}
	return nil
}

// PopulateDraftPool adds n unfiltered combatants to the draft pool.
func (m *Manager) PopulateDraftPool(gen Generator, n int) error {
	for i := 0; i < n; i++ {
		c, err := gen.BuildRandomPokemon(nil)
		if err != nil {
			return fmt.Errorf("populate draft pool: %w", err)
		}
		m.draft.Available = append(m.draft.Available, c)
	}
	return nil
}

package chessrules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrNoPiece     = errors.New("no piece on origin square")
)

// fiftyMoveLimit is the half-move clock value at which the game is drawn.
const fiftyMoveLimit = 100

// Status summarizes the position for the side to move.
type Status struct {
	Turn       chess.Color
	MoveNumber int
	InCheck    bool
	Checkmate  bool
	Draw       bool
	Method     chess.Method
}

// Game is the chess rules engine. It holds the current position only; the
// fusion layer owns the history.
type Game struct {
	pos *chess.Position
}

// NewGame returns a game at the standard starting position.
func NewGame() *Game {
	return &Game{pos: chess.StartingPosition()}
}

// FromFEN returns a game at the position described by fen.
func FromFEN(fen string) (*Game, error) {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return nil, err
	}
	return &Game{pos: pos}, nil
}

func positionFromFEN(fen string) (*chess.Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return chess.NewGame(opt).Position(), nil
}

// FEN returns the current position in Forsyth-Edwards notation.
func (g *Game) FEN() string { return g.pos.String() }

// Board returns the current board.
func (g *Game) Board() *chess.Board { return g.pos.Board() }

// Turn returns the color to move.
func (g *Game) Turn() chess.Color { return g.pos.Turn() }

// MoveNumber returns the full-move number from the position.
func (g *Game) MoveNumber() int {
	n, _ := strconv.Atoi(fenField(g.pos, 5))
	return n
}

// LegalMoves lists the moves available to the side to move.
//
// With continueOnCheck the list also carries pseudo-legal captures of the
// enemy king, and when the side to move is mated it carries every
// pseudo-legal move: kings are only lost through battles.
func (g *Game) LegalMoves(continueOnCheck bool) []Move {
	valid := g.pos.ValidMoves()
	out := make([]Move, 0, len(valid))
	seen := make(map[string]bool, len(valid))
	for _, raw := range valid {
		m := newMove(g.pos, raw)
		seen[m.UCI] = true
		out = append(out, m)
	}
	if !continueOnCheck {
		return out
	}

	board := g.pos.Board()
	turn := g.pos.Turn()
	enemyKing := kingSquare(board, turn.Other())
	mated := len(valid) == 0 && g.inCheck()
	for _, uci := range pseudoLegal(board, turn) {
		if seen[uci] {
			continue
		}
		takesKing := enemyKing != chess.NoSquare && uci[2:4] == enemyKing.String()
		if !takesKing && !mated {
			continue
		}
		raw, err := chess.UCINotation{}.Decode(g.pos, uci)
		if err != nil {
			continue
		}
		seen[uci] = true
		out = append(out, newMove(g.pos, raw))
	}
	return out
}

// Find resolves notation (SAN or UCI) against the legal moves.
func (g *Game) Find(notation string, continueOnCheck bool) (Move, bool) {
	for _, m := range g.LegalMoves(continueOnCheck) {
		if m.Matches(notation) {
			return m, true
		}
	}
	return Move{}, false
}

// Apply commits m. The move must come from LegalMoves on the current position.
func (g *Game) Apply(m Move) error {
	if m.raw == nil {
		return fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI)
	}
	if g.pos.Board().Piece(m.From) == chess.NoPiece {
		return fmt.Errorf("%w: %s", ErrNoPiece, m.From)
	}
	g.pos = g.pos.Update(m.raw)
	return nil
}

// Discard settles a failed capture: the piece that attempted m is removed
// from its origin square and the turn passes.
func (g *Game) Discard(m Move) error {
	board := g.pos.Board()
	removed := board.Piece(m.From)
	if removed == chess.NoPiece {
		return fmt.Errorf("%w: %s", ErrNoPiece, m.From)
	}
	squares := board.SquareMap()
	delete(squares, m.From)

	turn := g.pos.Turn()
	next := "b"
	fullMove := g.MoveNumber()
	if turn == chess.Black {
		next = "w"
		fullMove++
	}
	fen := strings.Join([]string{
		chess.NewBoard(squares).String(),
		next,
		stripCastling(fenField(g.pos, 2), removed, m.From),
		"-",
		"0",
		strconv.Itoa(fullMove),
	}, " ")
	pos, err := positionFromFEN(fen)
	if err != nil {
		return err
	}
	g.pos = pos
	return nil
}

// Status reports check, mate and draw state for the side to move.
func (g *Game) Status() Status {
	st := Status{
		Turn:       g.pos.Turn(),
		MoveNumber: g.MoveNumber(),
		InCheck:    g.inCheck(),
		Method:     g.pos.Status(),
	}
	switch {
	case st.Method == chess.Checkmate:
		st.Checkmate = true
	case st.Method == chess.Stalemate:
		st.Draw = true
	case insufficientMaterial(g.pos.Board()):
		st.Draw, st.Method = true, chess.InsufficientMaterial
	case halfMoveClock(g.pos) >= fiftyMoveLimit:
		st.Draw, st.Method = true, chess.FiftyMoveRule
	}
	return st
}

func (g *Game) inCheck() bool {
	board := g.pos.Board()
	turn := g.pos.Turn()
	king := kingSquare(board, turn)
	if king == chess.NoSquare {
		return false
	}
	return attacked(board, king, turn.Other())
}

func fenField(pos *chess.Position, i int) string {
	fields := strings.Fields(pos.String())
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}

func halfMoveClock(pos *chess.Position) int {
	n, _ := strconv.Atoi(fenField(pos, 4))
	return n
}

// stripCastling drops the castling rights a removed king or corner rook held.
func stripCastling(rights string, removed chess.Piece, from chess.Square) string {
	if rights == "-" {
		return rights
	}
	drop := ""
	white := removed.Color() == chess.White
	switch removed.Type() {
	case chess.King:
		drop = "kq"
		if white {
			drop = "KQ"
		}
	case chess.Rook:
		switch from {
		case chess.H1:
			drop = "K"
		case chess.A1:
			drop = "Q"
		case chess.H8:
			drop = "k"
		case chess.A8:
			drop = "q"
		}
	}
	out := strings.Map(func(r rune) rune {
		if strings.ContainsRune(drop, r) {
			return -1
		}
		return r
	}, rights)
	if out == "" {
		return "-"
	}
	return out
}

func insufficientMaterial(board *chess.Board) bool {
	minors := 0
	for _, p := range board.SquareMap() {
		switch p.Type() {
		case chess.King:
		case chess.Bishop, chess.Knight:
			minors++
		default:
			return false
		}
	}
	return minors <= 1
}

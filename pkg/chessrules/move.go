// Package chessrules adapts github.com/notnil/chess to the rules the hybrid
// game needs: legal move listing that keeps going while in check, capture
// and en-passant detection, committing a move, and discarding a failed
// capture.
package chessrules

import (
	"strings"

	"github.com/notnil/chess"
)

// Move is a resolved chess move together with everything the piece manager
// needs to mirror it.
type Move struct {
	SAN       string
	UCI       string
	Color     chess.Color
	Piece     chess.PieceType
	From      chess.Square
	To        chess.Square
	Promotion chess.PieceType
	Capture   bool
	EnPassant bool
	// Captured is the square of the piece the move takes. It differs from To
	// only for en passant.
	Captured chess.Square
	// RookFrom and RookTo are set for castling moves.
	RookFrom chess.Square
	RookTo   chess.Square

	raw *chess.Move
}

// IsCapture reports whether the move has to be settled by a battle.
func (m Move) IsCapture() bool { return m.Capture || m.EnPassant }

// IsCastle reports whether the move also relocates a rook.
func (m Move) IsCastle() bool { return m.RookFrom != chess.NoSquare }

// Matches reports whether text names this move in SAN or UCI. Check and
// mate suffixes are ignored.
func (m Move) Matches(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if strings.EqualFold(text, m.UCI) {
		return true
	}
	return trimSuffixes(text) == trimSuffixes(m.SAN)
}

func trimSuffixes(san string) string {
	return strings.TrimRight(san, "+#!?")
}

func newMove(pos *chess.Position, raw *chess.Move) Move {
	board := pos.Board()
	moving := board.Piece(raw.S1())
	m := Move{
		SAN:       chess.AlgebraicNotation{}.Encode(pos, raw),
		UCI:       chess.UCINotation{}.Encode(pos, raw),
		Color:     moving.Color(),
		Piece:     moving.Type(),
		From:      raw.S1(),
		To:        raw.S2(),
		Promotion: raw.Promo(),
		Capture:   raw.HasTag(chess.Capture) || board.Piece(raw.S2()) != chess.NoPiece,
		EnPassant: raw.HasTag(chess.EnPassant) || isEnPassant(board, moving, raw),
		Captured:  chess.NoSquare,
		RookFrom:  chess.NoSquare,
		RookTo:    chess.NoSquare,
		raw:       raw,
	}
	switch {
	case m.EnPassant:
		m.Capture = true
		// The taken pawn sits on the mover's rank, on the destination file.
		m.Captured = square(int(raw.S2().File()), int(raw.S1().Rank()))
	case m.Capture:
		m.Captured = raw.S2()
	}
	rank := int(raw.S1().Rank())
	switch {
	case raw.HasTag(chess.KingSideCastle):
		m.RookFrom, m.RookTo = square(7, rank), square(5, rank)
	case raw.HasTag(chess.QueenSideCastle):
		m.RookFrom, m.RookTo = square(0, rank), square(3, rank)
	}
	return m
}

// isEnPassant catches pawn captures onto an empty square, which decoded
// pseudo-legal moves may carry untagged.
func isEnPassant(board *chess.Board, moving chess.Piece, raw *chess.Move) bool {
	return moving.Type() == chess.Pawn &&
		raw.S1().File() != raw.S2().File() &&
		board.Piece(raw.S2()) == chess.NoPiece
}

func square(file, rank int) chess.Square {
	return chess.Square(rank*8 + file)
}

func onBoard(file, rank int) bool {
	return file >= 0 && file < 8 && rank >= 0 && rank < 8
}

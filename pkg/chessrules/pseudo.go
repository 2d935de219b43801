package chessrules

import (
	"github.com/notnil/chess"
)

var (
	knightSteps   = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps     = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	bishopRays    = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	rookRays      = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	promotionUCIs = []string{"q", "r", "b", "n"}
)

// pseudoLegal lists the moves color could make on board if its own king's
// safety were ignored, as UCI strings. Castling and en passant are left to
// the library's legal generator.
func pseudoLegal(board *chess.Board, color chess.Color) []string {
	var out []string
	for sq, p := range board.SquareMap() {
		if p.Color() != color {
			continue
		}
		f, r := int(sq.File()), int(sq.Rank())
		from := sq.String()
		add := func(tf, tr int) {
			out = append(out, from+square(tf, tr).String())
		}
		switch p.Type() {
		case chess.Pawn:
			dir, start, last := 1, 1, 7
			if color == chess.Black {
				dir, start, last = -1, 6, 0
			}
			addPawn := func(tf, tr int) {
				if tr == last {
					for _, promo := range promotionUCIs {
						out = append(out, from+square(tf, tr).String()+promo)
					}
					return
				}
				add(tf, tr)
			}
			if onBoard(f, r+dir) && board.Piece(square(f, r+dir)) == chess.NoPiece {
				addPawn(f, r+dir)
				if r == start && board.Piece(square(f, r+2*dir)) == chess.NoPiece {
					add(f, r+2*dir)
				}
			}
			for _, df := range []int{-1, 1} {
				tf, tr := f+df, r+dir
				if !onBoard(tf, tr) {
					continue
				}
				if target := board.Piece(square(tf, tr)); target != chess.NoPiece && target.Color() != color {
					addPawn(tf, tr)
				}
			}
		case chess.Knight:
			out = append(out, steps(board, color, f, r, knightSteps)...)
		case chess.King:
			out = append(out, steps(board, color, f, r, kingSteps)...)
		case chess.Bishop:
			out = append(out, rays(board, color, f, r, bishopRays)...)
		case chess.Rook:
			out = append(out, rays(board, color, f, r, rookRays)...)
		case chess.Queen:
			out = append(out, rays(board, color, f, r, bishopRays)...)
			out = append(out, rays(board, color, f, r, rookRays)...)
		}
	}
	return out
}

func steps(board *chess.Board, color chess.Color, f, r int, deltas [][2]int) []string {
	var out []string
	from := square(f, r).String()
	for _, d := range deltas {
		tf, tr := f+d[0], r+d[1]
		if !onBoard(tf, tr) {
			continue
		}
		if target := board.Piece(square(tf, tr)); target != chess.NoPiece && target.Color() == color {
			continue
		}
		out = append(out, from+square(tf, tr).String())
	}
	return out
}

func rays(board *chess.Board, color chess.Color, f, r int, dirs [][2]int) []string {
	var out []string
	from := square(f, r).String()
	for _, d := range dirs {
		for tf, tr := f+d[0], r+d[1]; onBoard(tf, tr); tf, tr = tf+d[0], tr+d[1] {
			target := board.Piece(square(tf, tr))
			if target != chess.NoPiece && target.Color() == color {
				break
			}
			out = append(out, from+square(tf, tr).String())
			if target != chess.NoPiece {
				break
			}
		}
	}
	return out
}

// attacked reports whether any piece of color by can move onto sq, which is
// expected to hold an enemy piece.
func attacked(board *chess.Board, sq chess.Square, by chess.Color) bool {
	target := sq.String()
	for _, uci := range pseudoLegal(board, by) {
		if uci[2:4] == target {
			// A pawn push onto an occupied square is never generated, so
			// every hit is a capture.
			return true
		}
	}
	return false
}

func kingSquare(board *chess.Board, color chess.Color) chess.Square {
	for sq, p := range board.SquareMap() {
		if p.Type() == chess.King && p.Color() == color {
			return sq
		}
	}
	return chess.NoSquare
}

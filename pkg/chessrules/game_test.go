package chessrules

import (
	"errors"
	"testing"

	"github.com/notnil/chess"
)

func mustFEN(t *testing.T, fen string) *Game {
	t.Helper()
	g, err := FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN(%q) error = %v", fen, err)
	}
	return g
}

func TestGame_StartingMoves(t *testing.T) {
	g := NewGame()
	if got := len(g.LegalMoves(false)); got != 20 {
		t.Fatalf("legal moves = %d, want 20", got)
	}
	for _, text := range []string{"e4", "e2e4", "Nf3", "g1f3"} {
		if _, ok := g.Find(text, true); !ok {
			t.Errorf("Find(%q) not found", text)
		}
	}
	if _, ok := g.Find("e5", true); ok {
		t.Error("Find(e5) found for white on move one")
	}
	if g.Turn() != chess.White || g.MoveNumber() != 1 {
		t.Fatalf("turn/move = %v/%d, want White/1", g.Turn(), g.MoveNumber())
	}
}

func TestGame_CaptureDetection(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		notation  string
		enPassant bool
		captured  chess.Square
	}{
		{
			name:     "pawn takes pawn",
			fen:      "rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2",
			notation: "exd5",
			captured: chess.D5,
		},
		{
			name:      "en passant",
			fen:       "rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3",
			notation:  "exd6",
			enPassant: true,
			captured:  chess.D5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustFEN(t, tt.fen)
			m, ok := g.Find(tt.notation, true)
			if !ok {
				t.Fatalf("Find(%q) not found", tt.notation)
			}
			if !m.IsCapture() {
				t.Fatal("IsCapture() = false, want true")
			}
			if m.EnPassant != tt.enPassant {
				t.Fatalf("EnPassant = %v, want %v", m.EnPassant, tt.enPassant)
			}
			if m.Captured != tt.captured {
				t.Fatalf("Captured = %v, want %v", m.Captured, tt.captured)
			}
		})
	}
}

func TestGame_Castling(t *testing.T) {
	g := mustFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	m, ok := g.Find("O-O", true)
	if !ok {
		t.Fatal("Find(O-O) not found")
	}
	if !m.IsCastle() || m.RookFrom != chess.H1 || m.RookTo != chess.F1 {
		t.Fatalf("rook = %v->%v, want h1->f1", m.RookFrom, m.RookTo)
	}
	if err := g.Apply(m); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if p := g.Board().Piece(chess.F1); p != chess.WhiteRook {
		t.Fatalf("f1 = %v, want white rook", p)
	}
}

func TestGame_Discard(t *testing.T) {
	g := mustFEN(t, "rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2")
	m, _ := g.Find("exd5", true)
	if err := g.Discard(m); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	board := g.Board()
	if board.Piece(chess.E4) != chess.NoPiece {
		t.Fatalf("e4 = %v, want empty", board.Piece(chess.E4))
	}
	if board.Piece(chess.D5) != chess.BlackPawn {
		t.Fatalf("d5 = %v, want black pawn", board.Piece(chess.D5))
	}
	if g.Turn() != chess.Black {
		t.Fatalf("turn = %v, want Black", g.Turn())
	}
	if err := g.Discard(m); !errors.Is(err, ErrNoPiece) {
		t.Fatalf("second Discard() error = %v, want ErrNoPiece", err)
	}
}

func TestGame_DiscardRookDropsCastling(t *testing.T) {
	g := mustFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	m, ok := g.Find("Rxh8", true)
	if !ok {
		t.Fatal("Find(Rxh8) not found")
	}
	if err := g.Discard(m); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if got := fenField(g.pos, 2); got != "Qkq" {
		t.Fatalf("castling = %q, want Qkq", got)
	}
}

func TestGame_KingCaptureListed(t *testing.T) {
	g := mustFEN(t, "4k3/8/8/8/8/8/4R3/4K3 w - - 0 1")
	m, ok := g.Find("e2e8", true)
	if !ok {
		t.Fatal("king capture not listed with continueOnCheck")
	}
	if !m.IsCapture() || m.Captured != chess.E8 {
		t.Fatalf("capture = %v on %v, want capture on e8", m.IsCapture(), m.Captured)
	}
}

func TestGame_MatedSideKeepsMoving(t *testing.T) {
	g := mustFEN(t, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	st := g.Status()
	if !st.InCheck || !st.Checkmate {
		t.Fatalf("status = %+v, want check and mate", st)
	}
	if got := len(g.LegalMoves(false)); got != 0 {
		t.Fatalf("strict legal moves = %d, want 0", got)
	}
	if got := len(g.LegalMoves(true)); got == 0 {
		t.Fatal("continueOnCheck moves = 0, want some")
	}
}

func TestGame_InsufficientMaterial(t *testing.T) {
	g := mustFEN(t, "8/8/8/4k3/8/8/8/4KN2 w - - 0 1")
	st := g.Status()
	if !st.Draw || st.Method != chess.InsufficientMaterial {
		t.Fatalf("status = %+v, want insufficient material draw", st)
	}
}

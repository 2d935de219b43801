package piece

import (
	"errors"
	"fmt"
	"testing"

	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/battle"
)

// fakeGen hands out numbered species; the trailing digit of a species name
// is its tier.
type fakeGen struct {
	n       int
	filters int
}

func (g *fakeGen) BuildRandomPokemon(filter func(string) bool) (battle.Combatant, error) {
	if filter != nil {
		g.filters++
	}
	for tier := TierLow; tier <= TierTop; tier++ {
		species := fmt.Sprintf("mon%d-%d", g.n, tier)
		if filter == nil || filter(species) {
			g.n++
			return battle.Combatant{Species: species, Level: 50}, nil
		}
	}
	return battle.Combatant{}, errors.New("no species")
}

func (g *fakeGen) Tier(species string) Tier {
	return Tier(species[len(species)-1] - '0')
}

func TestMovePiece(t *testing.T) {
	m := NewManager()
	pawn := m.Place(chess.E4, chess.Pawn, chess.White, battle.Combatant{Species: "Pichu"})
	knight := m.Place(chess.D5, chess.Knight, chess.Black, battle.Combatant{Species: "Ponyta"})

	moved, err := m.MovePiece(chess.E4, chess.D5, chess.NoPieceType)
	if err != nil {
		t.Fatal(err)
	}
	if moved.ID != pawn.ID || moved.Square != chess.D5 {
		t.Fatalf("moved = %v", moved)
	}
	if p, _ := m.PieceAt(chess.D5); p.ID != pawn.ID {
		t.Fatalf("d5 holds %v", p)
	}
	taken := m.TakenPieces()
	if len(taken) != 1 || taken[0].ID != knight.ID {
		t.Fatalf("TakenPieces() = %v", taken)
	}
	if got := m.TakenPieces(chess.White); len(got) != 0 {
		t.Fatalf("TakenPieces(White) = %v", got)
	}

	// Moving onto an empty square removes nothing.
	if _, err := m.MovePiece(chess.D5, chess.D6, chess.NoPieceType); err != nil {
		t.Fatal(err)
	}
	if len(m.TakenPieces()) != 1 {
		t.Fatal("empty destination took a piece")
	}

	if _, err := m.MovePiece(chess.A1, chess.A2, chess.NoPieceType); !errors.Is(err, ErrNoPiece) {
		t.Fatalf("err = %v, want ErrNoPiece", err)
	}
}

func TestMovePiecePromotion(t *testing.T) {
	m := NewManager()
	p := m.Place(chess.B7, chess.Pawn, chess.White, battle.Combatant{Species: "Magikarp"})
	got, err := m.MovePiece(chess.B7, chess.B8, chess.Queen)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != chess.Queen || got.Pokemon.Species != p.Pokemon.Species {
		t.Fatalf("promoted = %v", got)
	}
}

func TestRemovePiece(t *testing.T) {
	m := NewManager()
	m.Place(chess.H1, chess.Rook, chess.White, battle.Combatant{Species: "Onix"})
	if _, ok := m.RemovePiece(chess.H1); !ok {
		t.Fatal("RemovePiece reported nothing removed")
	}
	if _, ok := m.PieceAt(chess.H1); ok {
		t.Fatal("piece still on h1")
	}
	if _, ok := m.RemovePiece(chess.H1); ok {
		t.Fatal("second removal reported a piece")
	}
	if len(m.Pieces()) != 1 {
		t.Fatal("taken piece was deleted")
	}
}

func TestDraftOutOfRangeIsNoop(t *testing.T) {
	m := NewManager()
	if err := m.PopulateDraftPool(&fakeGen{}, 3); err != nil {
		t.Fatal(err)
	}
	before := m.Draft()
	for _, idx := range []int{-1, 3, 100} {
		if _, ok := m.AssignDraftPieceToSquare(idx, chess.A1, chess.Rook, chess.White); ok {
			t.Fatalf("assign %d succeeded", idx)
		}
		if m.BanDraftPiece(idx) {
			t.Fatalf("ban %d succeeded", idx)
		}
	}
	after := m.Draft()
	if len(after.Available) != len(before.Available) || len(after.Banned) != 0 {
		t.Fatalf("pool mutated: %+v", after)
	}
	if len(m.Pieces()) != 0 {
		t.Fatal("piece created from an absent entry")
	}
}

func TestDraftAssignAndBan(t *testing.T) {
	m := NewManager()
	if err := m.PopulateDraftPool(&fakeGen{}, DefaultDraftSize); err != nil {
		t.Fatal(err)
	}
	pool := m.Draft()
	if len(pool.Available) != DefaultDraftSize {
		t.Fatalf("pool size = %d", len(pool.Available))
	}
	second := pool.Available[1]

	p, ok := m.AssignDraftPieceToSquare(1, chess.E1, chess.King, chess.White)
	if !ok || p.Pokemon.Species != second.Species || p.Square != chess.E1 {
		t.Fatalf("assigned %v, %v", p, ok)
	}
	if !m.BanDraftPiece(0) {
		t.Fatal("ban failed")
	}
	pool = m.Draft()
	if len(pool.Available) != DefaultDraftSize-2 || len(pool.Banned) != 1 {
		t.Fatalf("pool = %d available, %d banned", len(pool.Available), len(pool.Banned))
	}
	for _, c := range pool.Available {
		if c.Species == second.Species || c.Species == pool.Banned[0].Species {
			t.Fatalf("%s still available", c.Species)
		}
	}
}

func TestPopulateRandomTeams(t *testing.T) {
	m := NewManager()
	gen := &fakeGen{}
	if err := m.PopulateRandomTeams(gen); err != nil {
		t.Fatal(err)
	}
	live := m.Live()
	if len(live) != 32 {
		t.Fatalf("%d pieces placed", len(live))
	}
	if gen.filters != 32 {
		t.Fatalf("%d filtered requests", gen.filters)
	}
	for _, p := range live {
		if got, want := gen.Tier(p.Pokemon.Species), TierFor(p.Kind); got != want {
			t.Errorf("%v drew tier %v, want %v", p, got, want)
		}
	}
	if k, _ := m.PieceAt(chess.E8); k.Kind != chess.King || k.Color != chess.Black {
		t.Fatalf("e8 = %v", k)
	}
}

package cpu

import (
	"errors"
	"testing"

	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/chessrules"
	"github.com/qnkhuat/chessmon/pkg/piece"
	"github.com/qnkhuat/chessmon/pkg/rng"
)

func bind(t *testing.T, fen string) (*chessrules.Game, *piece.Manager) {
	t.Helper()
	rules, err := chessrules.FromFEN(fen)
	if err != nil {
		t.Fatal(err)
	}
	m := piece.NewManager()
	for sq, pc := range rules.Board().SquareMap() {
		m.Place(sq, pc.Type(), pc.Color(), battle.Combatant{Species: "Mew"})
	}
	return rules, m
}

func TestChooseMovePrefersValuableCapture(t *testing.T) {
	// The pawn can take a queen on d5 or a knight on f5.
	rules, pieces := bind(t, "4k3/8/8/3q1n2/4P3/8/8/4K3 w - - 0 1")
	p := New(rng.New(1))
	for i := 0; i < 10; i++ {
		m, err := p.ChooseMove(rules, pieces)
		if err != nil {
			t.Fatal(err)
		}
		if m.To != chess.D5 {
			t.Fatalf("chose %s, want exd5", m.SAN)
		}
	}
}

func TestChooseMoveTakesKing(t *testing.T) {
	rules, pieces := bind(t, "r3k3/8/8/8/8/8/4Q3/4K3 w - - 0 1")
	m, err := New(rng.New(2)).ChooseMove(rules, pieces)
	if err != nil {
		t.Fatal(err)
	}
	if m.UCI != "e2e8" {
		t.Fatalf("chose %s, want e2e8", m.UCI)
	}
}

func TestChooseMoveRandomIsLegal(t *testing.T) {
	rules, pieces := bind(t, chess.StartingPosition().String())
	m, err := New(rng.New(3)).ChooseMove(rules, pieces)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rules.Find(m.UCI, true); !ok {
		t.Fatalf("%s is not legal", m.UCI)
	}
}

func TestChooseBattle(t *testing.T) {
	p := New(rng.New(4))
	tests := []struct {
		name string
		req  string
		want map[string]bool
	}{
		{"team preview", `{"teamPreview":true}`, map[string]bool{"team 1": true}},
		{"force switch", `{"forceSwitch":[true]}`, map[string]bool{"default": true}},
		{"enabled moves", `{"active":[{"moves":[{"move":"A","disabled":true},{"move":"B"},{"move":"C"}]}]}`, map[string]bool{"move 2": true, "move 3": true}},
		{"nothing enabled", `{"active":[{"moves":[{"move":"A","disabled":true}]}]}`, map[string]bool{"default": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := battle.ParseRequest(tt.req)
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 10; i++ {
				got, err := p.ChooseBattle(req)
				if err != nil {
					t.Fatal(err)
				}
				if !tt.want[got] {
					t.Fatalf("ChooseBattle() = %q", got)
				}
			}
		})
	}
}

func TestClosed(t *testing.T) {
	p := New(rng.New(5))
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ChooseBattle(battle.Request{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
	rules, pieces := bind(t, chess.StartingPosition().String())
	if _, err := p.ChooseMove(rules, pieces); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestChooseDraft(t *testing.T) {
	p := New(rng.New(3))
	pool := []battle.Combatant{{Species: "Mew"}, {Species: "Eevee"}, {Species: "Onix"}}
	for i := 0; i < 20; i++ {
		idx, err := p.ChooseDraft(pool)
		if err != nil {
			t.Fatal(err)
		}
		if idx < 0 || idx >= len(pool) {
			t.Fatalf("ChooseDraft() = %d, want an index below %d", idx, len(pool))
		}
	}
	if _, err := p.ChooseDraft(nil); !errors.Is(err, ErrEmptyDraft) {
		t.Fatalf("empty pool err = %v, want ErrEmptyDraft", err)
	}
	p.Close()
	if _, err := p.ChooseDraft(pool); !errors.Is(err, ErrClosed) {
		t.Fatalf("closed err = %v, want ErrClosed", err)
	}
}

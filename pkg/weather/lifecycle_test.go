package weather

import (
	"testing"

	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/rng"
)

func TestTopUpNeverExceedsDeficit(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		s := NewStore(WithDurations(200, 200))
		l := NewLifecycle(s, rng.New(seed), rng.New(seed+1000), LifecycleConfig{TargetLow: 12, TargetHigh: 13, ResampleEvery: 1000})
		s.Generate(rng.New(seed), 3)
		if l.Target() != 12 {
			t.Fatalf("Target() = %d, want 12", l.Target())
		}
		for i := 0; i < 200; i++ {
			before := s.Count()
			l.TopUp()
			if s.Count() > 12 && s.Count() > before {
				t.Fatalf("seed %d: top-up grew %d -> %d past target", seed, before, s.Count())
			}
		}
		if s.Count() < 9 {
			t.Fatalf("seed %d: count stuck at %d", seed, s.Count())
		}
	}
}

func TestAdvanceTicksOnWhitesTurn(t *testing.T) {
	s := NewStore()
	l := NewLifecycle(s, rng.New(1), rng.New(2), LifecycleConfig{ResampleEvery: 100})
	s.Put(chess.E4, Modifier{Kind: Snow, Duration: 2})

	l.Advance(chess.Black)
	if m, _ := s.At(chess.E4); m.Modifiers()[0].Duration != 2 {
		t.Fatal("ticked after White's move")
	}
	l.Advance(chess.White)
	if m, _ := s.At(chess.E4); m.Modifiers()[0].Duration != 1 {
		t.Fatal("did not tick after the full move")
	}
	if l.Moves() != 2 {
		t.Fatalf("Moves() = %d", l.Moves())
	}
}

func TestResampleWithinBand(t *testing.T) {
	l := NewLifecycle(NewStore(), rng.New(1), rng.New(9), LifecycleConfig{TargetLow: 4, TargetHigh: 8, ResampleEvery: 1})
	for i := 0; i < 100; i++ {
		l.Advance(chess.Black)
		if l.Target() < 4 || l.Target() >= 8 {
			t.Fatalf("Target() = %d outside [4, 8)", l.Target())
		}
	}
}

func TestSetupIsDeterministic(t *testing.T) {
	a := NewLifecycle(NewStore(), rng.New(5), rng.New(6), DefaultLifecycleConfig)
	b := NewLifecycle(NewStore(), rng.New(5), rng.New(6), DefaultLifecycleConfig)
	da, db := a.Setup(), b.Setup()
	if len(da) != len(db) {
		t.Fatalf("setup lengths differ: %d vs %d", len(da), len(db))
	}
	for i := range da {
		if da[i] != db[i] {
			t.Fatalf("delta %d differs: %v vs %v", i, da[i], db[i])
		}
	}
}

package teamgen

import (
	"errors"
	"testing"

	"github.com/qnkhuat/chessmon/pkg/piece"
	"github.com/qnkhuat/chessmon/pkg/rng"
)

func TestRosterCoversEveryTier(t *testing.T) {
	g, err := New(rng.New(1))
	if err != nil {
		t.Fatal(err)
	}
	for tier := piece.TierLow; tier <= piece.TierTop; tier++ {
		tier := tier
		c, err := g.BuildRandomPokemon(func(s string) bool { return g.Tier(s) == tier })
		if err != nil {
			t.Fatalf("tier %v: %v", tier, err)
		}
		if g.Tier(c.Species) != tier {
			t.Fatalf("tier %v drew %s", tier, c.Species)
		}
	}
}

func TestBuildRandomPokemon(t *testing.T) {
	g, err := New(rng.New(2))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 200; i++ {
		c, err := g.BuildRandomPokemon(nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(c.Moves) == 0 || len(c.Moves) > 4 {
			t.Fatalf("%s has %d moves", c.Species, len(c.Moves))
		}
		seen := map[string]bool{}
		for _, m := range c.Moves {
			if seen[m] {
				t.Fatalf("%s repeats %s", c.Species, m)
			}
			seen[m] = true
		}
		if c.Level <= 0 || c.Ability == "" || c.TeraType == "" {
			t.Fatalf("incomplete set %+v", c)
		}
	}
}

func TestDeterministic(t *testing.T) {
	a, _ := New(rng.New(3))
	b, _ := New(rng.New(3))
	for i := 0; i < 20; i++ {
		ca, _ := a.BuildRandomPokemon(nil)
		cb, _ := b.BuildRandomPokemon(nil)
		if ca.Pack() != cb.Pack() {
			t.Fatalf("draw %d differs: %s vs %s", i, ca.Pack(), cb.Pack())
		}
	}
}

func TestNoCandidate(t *testing.T) {
	g, _ := New(rng.New(4))
	_, err := g.BuildRandomPokemon(func(string) bool { return false })
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("err = %v, want ErrNoCandidate", err)
	}
}

func TestPopulatesBoard(t *testing.T) {
	g, _ := New(rng.New(5))
	m := piece.NewManager()
	if err := m.PopulateRandomTeams(g); err != nil {
		t.Fatal(err)
	}
	if err := m.PopulateDraftPool(g, piece.DefaultDraftSize); err != nil {
		t.Fatal(err)
	}
	if len(m.Live()) != 32 || len(m.Draft().Available) != piece.DefaultDraftSize {
		t.Fatalf("live = %d, draft = %d", len(m.Live()), len(m.Draft().Available))
	}
}

func TestBadRoster(t *testing.T) {
	for _, tc := range []struct {
		name  string
		entry Entry
	}{
		{"unknown tier", Entry{Species: "Mew", Tier: "legendary", Types: []string{"Psychic"}, Moves: []string{"Psychic"}, Abilities: []string{"Synchronize"}}},
		{"no moves", Entry{Species: "Mew", Tier: "top", Types: []string{"Psychic"}, Abilities: []string{"Synchronize"}}},
		{"no abilities", Entry{Species: "Mew", Tier: "top", Types: []string{"Psychic"}, Moves: []string{"Psychic"}}},
		{"no types", Entry{Species: "Mew", Tier: "top", Moves: []string{"Psychic"}, Abilities: []string{"Synchronize"}}},
	} {
		if _, err := NewWithRoster(rng.New(1), []Entry{tc.entry}); err == nil {
			t.Errorf("%s: roster accepted", tc.name)
		}
	}
}

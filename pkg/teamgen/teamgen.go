// Package teamgen builds random single-combatant sets from an embedded
// roster, in the spirit of the simulator's random battle generator.
package teamgen

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/piece"
	"github.com/qnkhuat/chessmon/pkg/rng"
)

//go:embed roster.json
var rosterJSON []byte

var ErrNoCandidate = errors.New("no species passes the filter")

const movesPerSet = 4

var natures = []string{
	"Adamant", "Bold", "Brave", "Calm", "Careful", "Hasty", "Impish", "Jolly",
	"Lax", "Lonely", "Mild", "Modest", "Naive", "Naughty", "Quiet", "Rash",
	"Relaxed", "Sassy", "Timid",
}

var tierNames = map[string]piece.Tier{
	"low":  piece.TierLow,
	"mid":  piece.TierMid,
	"high": piece.TierHigh,
	"top":  piece.TierTop,
}

// Entry is one roster species with the pools a set is drawn from.
type Entry struct {
	Species   string   `json:"species"`
	Tier      string   `json:"tier"`
	Level     int      `json:"level"`
	Types     []string `json:"types"`
	Abilities []string `json:"abilities"`
	Moves     []string `json:"moves"`
	Items     []string `json:"items"`
}

// Generator draws sets from the roster. It is not safe for concurrent use.
type Generator struct {
	src    *rng.Source
	roster []Entry
	tiers  map[string]piece.Tier
}

// New returns a generator over the embedded roster.
func New(src *rng.Source) (*Generator, error) {
	var roster []Entry
	if err := json.Unmarshal(rosterJSON, &roster); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return NewWithRoster(src, roster)
}

// NewWithRoster returns a generator over roster.
func NewWithRoster(src *rng.Source, roster []Entry) (*Generator, error) {
	g := &Generator{src: src, roster: roster, tiers: map[string]piece.Tier{}}
	for _, e := range roster {
		t, ok := tierNames[e.Tier]
		if !ok {
			return nil, fmt.Errorf("roster %s: unknown tier %q", e.Species, e.Tier)
		}
		if len(e.Moves) == 0 || len(e.Abilities) == 0 || len(e.Types) == 0 {
			return nil, fmt.Errorf("roster %s: empty move, ability or type pool", e.Species)
		}
		g.tiers[e.Species] = t
	}
	return g, nil
}

// Roster returns the species entries.
func (g *Generator) Roster() []Entry { return g.roster }

// Tier implements piece.Generator. Unknown species rank lowest.
func (g *Generator) Tier(species string) piece.Tier {
	return g.tiers[species]
}

// BuildRandomPokemon implements piece.Generator.
func (g *Generator) BuildRandomPokemon(filter func(species string) bool) (battle.Combatant, error) {
	var candidates []Entry
	for _, e := range g.roster {
		if filter == nil || filter(e.Species) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return battle.Combatant{}, ErrNoCandidate
	}
	e := candidates[g.src.Intn(len(candidates))]
	c := battle.Combatant{
		Species:  e.Species,
		Level:    e.Level,
		Ability:  e.Abilities[g.src.Intn(len(e.Abilities))],
		Moves:    g.pickMoves(e.Moves),
		Nature:   natures[g.src.Intn(len(natures))],
		EVs:      battle.Stats{HP: 84, Atk: 84, Def: 84, SpA: 84, SpD: 84, Spe: 84},
		IVs:      battle.MaxIVs,
		Shiny:    g.src.Intn(1024) == 0,
		TeraType: e.Types[g.src.Intn(len(e.Types))],
	}
	if len(e.Items) > 0 {
		c.Item = e.Items[g.src.Intn(len(e.Items))]
	}
	return c, nil
}

// pickMoves draws up to four distinct moves, keeping roster order.
func (g *Generator) pickMoves(pool []string) []string {
	if len(pool) <= movesPerSet {
		return append([]string(nil), pool...)
	}
	keep := make([]bool, len(pool))
	for n := 0; n < movesPerSet; {
		i := g.src.Intn(len(pool))
		if !keep[i] {
			keep[i] = true
			n++
		}
	}
	out := make([]string, 0, movesPerSet)
	for i, m := range pool {
		if keep[i] {
			out = append(out, m)
		}
	}
	return out
}

package weather

import (
	"sort"

	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/rng"
)

const (
	DefaultMinDuration       = 5
	DefaultMaxDuration       = 15
	DefaultWriteBackDuration = 5

	boardSquares = 64
)

// Distance bands from the board center and their weights. Closer bands are
// heavily favored.
var (
	bands       = []float64{0.5, 1.5, 2.5, 3.5}
	bandWeights = []float64{0.4, 0.3, 0.2, 0.1}
)

// center is the middle of the board in 1-based file/rank coordinates.
const center = 4.5

// DeltaOp is the direction of a modifier change.
type DeltaOp string

const (
	OpAdd    DeltaOp = "add"
	OpRemove DeltaOp = "remove"
)

// Delta records one modifier added to or removed from a square.
type Delta struct {
	Square   chess.Square `json:"square"`
	Op       DeltaOp      `json:"op"`
	Modifier Modifier     `json:"modifier"`
}

// Store holds every square that carries at least one modifier. It is not
// safe for concurrent use; the orchestrator is its only writer.
type Store struct {
	squares     map[chess.Square]*SquareModifier
	minDuration int
	maxDuration int
}

// Option configures a Store.
type Option func(*Store)

// WithDurations sets the inclusive duration band for generated modifiers.
func WithDurations(lo, hi int) Option {
	return func(s *Store) {
		if lo > 0 && hi >= lo {
			s.minDuration, s.maxDuration = lo, hi
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		squares:     map[chess.Square]*SquareModifier{},
		minDuration: DefaultMinDuration,
		maxDuration: DefaultMaxDuration,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// At returns the modifiers on sq.
func (s *Store) At(sq chess.Square) (SquareModifier, bool) {
	m, ok := s.squares[sq]
	if !ok {
		return SquareModifier{Square: sq}, false
	}
	return *m, true
}

// Count is the number of squares carrying a modifier.
func (s *Store) Count() int { return len(s.squares) }

// Squares returns a snapshot ordered by square.
func (s *Store) Squares() []SquareModifier {
	out := make([]SquareModifier, 0, len(s.squares))
	for _, m := range s.squares {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Square < out[j].Square })
	return out
}

// Preload returns the simulator IDs of the weather and terrain on sq, for
// loading into a battle fought there.
func (s *Store) Preload(sq chess.Square) (weather, terrain string) {
	m, ok := s.squares[sq]
	if !ok {
		return "", ""
	}
	if w, ok := m.Weather(); ok {
		weather = string(w.Kind)
	}
	if t, ok := m.Terrain(); ok {
		terrain = string(t.Kind)
	}
	return weather, terrain
}

// Put sets m on sq, replacing the modifier of the same category.
func (s *Store) Put(sq chess.Square, m Modifier) []Delta {
	sm := s.squares[sq]
	if sm == nil {
		sm = &SquareModifier{Square: sq}
		s.squares[sq] = sm
	}
	var deltas []Delta
	if old, ok := sm.Get(m.Kind.Category()); ok {
		deltas = append(deltas, Delta{Square: sq, Op: OpRemove, Modifier: old})
	}
	sm.set(m)
	return append(deltas, Delta{Square: sq, Op: OpAdd, Modifier: m})
}

// Clear empties category c on sq.
func (s *Store) Clear(sq chess.Square, c Category) []Delta {
	sm := s.squares[sq]
	if sm == nil {
		return nil
	}
	old, ok := sm.Get(c)
	if !ok {
		return nil
	}
	sm.clear(c)
	if sm.Empty() {
		delete(s.squares, sq)
	}
	return []Delta{{Square: sq, Op: OpRemove, Modifier: old}}
}

// Generate places count modifiers on squares drawn around the board center.
// A draw landing on a square with one modifier adds the other category; a
// draw landing on a full square is redrawn. Generation stops early once
// every square is full.
func (s *Store) Generate(src *rng.Source, count int) []Delta {
	var deltas []Delta
	for placed := 0; placed < count && !s.saturated(); {
		sq := drawSquare(src)
		sm, ok := s.squares[sq]
		switch {
		case ok && sm.Full():
			continue
		case ok:
			have := sm.Modifiers()[0].Kind.Category()
			deltas = append(deltas, s.Put(sq, s.randomModifier(src, Kinds(have.Other())))...)
		default:
			deltas = append(deltas, s.Put(sq, s.randomModifier(src, allKinds))...)
		}
		placed++
	}
	return deltas
}

func (s *Store) saturated() bool {
	if len(s.squares) < boardSquares {
		return false
	}
	for _, sm := range s.squares {
		if !sm.Full() {
			return false
		}
	}
	return true
}

func (s *Store) randomModifier(src *rng.Source, kinds []Kind) Modifier {
	return Modifier{
		Kind:     kinds[src.Intn(len(kinds))],
		Duration: src.Between(s.minDuration, s.maxDuration),
	}
}

// drawSquare picks a square with file and rank offsets drawn from the
// center-weighted bands.
func drawSquare(src *rng.Source) chess.Square {
	file := axis(src)
	rank := axis(src)
	return chess.Square(rank*8 + file)
}

func axis(src *rng.Source) int {
	off := bands[src.Weighted(bandWeights)]
	if src.Coin() {
		off = -off
	}
	// center±band lands on 1..8 exactly.
	return int(center+off) - 1
}

// Tick decays every modifier by one turn and prunes what ran out.
func (s *Store) Tick() []Delta {
	var deltas []Delta
	for _, sq := range s.sortedSquares() {
		sm := s.squares[sq]
		for c := Category(0); c < numCategories; c++ {
			m, ok := sm.Get(c)
			if !ok {
				continue
			}
			m.Duration--
			if m.Duration <= 0 {
				sm.clear(c)
				deltas = append(deltas, Delta{Square: sq, Op: OpRemove, Modifier: m})
				continue
			}
			sm.set(m)
		}
		if sm.Empty() {
			delete(s.squares, sq)
		}
	}
	return deltas
}

func (s *Store) sortedSquares() []chess.Square {
	out := make([]chess.Square, 0, len(s.squares))
	for sq := range s.squares {
		out = append(out, sq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// WriteBack persists the field a battle left behind onto sq. Only the
// categories the battle changed are touched: a cleared category is
// removed, a new kind is set for duration turns, and a kind already on the
// square keeps its remaining duration.
func (s *Store) WriteBack(sq chess.Square, change battle.FieldChange, duration int) []Delta {
	if duration <= 0 {
		duration = DefaultWriteBackDuration
	}
	var deltas []Delta
	apply := func(c Category, set bool, id string) {
		if !set {
			return
		}
		k, ok := ParseKind(id)
		if !ok || k.Category() != c {
			deltas = append(deltas, s.Clear(sq, c)...)
			return
		}
		if cur, ok := s.At(sq); ok {
			if m, ok := cur.Get(c); ok && m.Kind == k {
				return
			}
		}
		deltas = append(deltas, s.Put(sq, Modifier{Kind: k, Duration: duration})...)
	}
	apply(CategoryWeather, change.WeatherSet, change.Weather)
	apply(CategoryTerrain, change.TerrainSet, change.Terrain)
	return deltas
}

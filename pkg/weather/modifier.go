package weather

import (
	"fmt"

	"github.com/notnil/chess"
)

// Modifier is one active effect with its remaining duration in full turns.
type Modifier struct {
	Kind     Kind `json:"kind"`
	Duration int  `json:"duration"`
}

func (m Modifier) String() string {
	return fmt.Sprintf("%s(%d)", m.Kind.Name(), m.Duration)
}

// SquareModifier is the set of effects on one square, one slot per
// category.
type SquareModifier struct {
	Square chess.Square
	slots  [numCategories]Modifier
}

// Get returns the modifier in category c.
func (s SquareModifier) Get(c Category) (Modifier, bool) {
	m := s.slots[c]
	return m, m.Kind != ""
}

// Weather returns the weather slot.
func (s SquareModifier) Weather() (Modifier, bool) { return s.Get(CategoryWeather) }

// Terrain returns the terrain slot.
func (s SquareModifier) Terrain() (Modifier, bool) { return s.Get(CategoryTerrain) }

// Modifiers lists the occupied slots, weather first.
func (s SquareModifier) Modifiers() []Modifier {
	var out []Modifier
	for _, m := range s.slots {
		if m.Kind != "" {
			out = append(out, m)
		}
	}
	return out
}

// Len is the number of occupied slots.
func (s SquareModifier) Len() int { return len(s.Modifiers()) }

// Full reports whether both categories are taken.
func (s SquareModifier) Full() bool { return s.Len() == int(numCategories) }

// Empty reports whether no slot is taken.
func (s SquareModifier) Empty() bool { return s.Len() == 0 }

func (s *SquareModifier) set(m Modifier) { s.slots[m.Kind.Category()] = m }

func (s *SquareModifier) clear(c Category) { s.slots[c] = Modifier{} }

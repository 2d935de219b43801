package battle

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// ToID normalizes a species, move, ability or condition name to the
// lowercase alphanumeric form the simulator uses for lookups.
func ToID(name string) string {
	folded := folder.String(name)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Stats is a six-stat spread.
type Stats struct {
	HP  int `json:"hp"`
	Atk int `json:"atk"`
	Def int `json:"def"`
	SpA int `json:"spa"`
	SpD int `json:"spd"`
	Spe int `json:"spe"`
}

func (s Stats) values() [6]int {
	return [6]int{s.HP, s.Atk, s.Def, s.SpA, s.SpD, s.Spe}
}

// MaxIVs is the default IV spread.
var MaxIVs = Stats{31, 31, 31, 31, 31, 31}

// Combatant fully specifies one battler. Once bound to a piece it is treated
// as immutable.
type Combatant struct {
	Name     string   `json:"name,omitempty"`
	Species  string   `json:"species"`
	Level    int      `json:"level"`
	Gender   string   `json:"gender,omitempty"`
	Shiny    bool     `json:"shiny,omitempty"`
	Item     string   `json:"item,omitempty"`
	Ability  string   `json:"ability"`
	Moves    []string `json:"moves"`
	Nature   string   `json:"nature,omitempty"`
	EVs      Stats    `json:"evs"`
	IVs      Stats    `json:"ivs"`
	TeraType string   `json:"teraType,omitempty"`
}

// DisplayName is the nickname, or the species when there is none.
func (c Combatant) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Species
}

func (c Combatant) String() string {
	return fmt.Sprintf("%s L%d @ %s [%s]", c.DisplayName(), c.Level, c.Item, strings.Join(c.Moves, "/"))
}

// Pack encodes the combatant as a one-member team in the simulator's packed
// team format.
func (c Combatant) Pack() string {
	species := c.Species
	if c.Name == "" || c.Name == c.Species {
		species = ""
	}
	moves := make([]string, len(c.Moves))
	for i, m := range c.Moves {
		moves[i] = ToID(m)
	}
	level := ""
	if c.Level > 0 && c.Level != 100 {
		level = strconv.Itoa(c.Level)
	}
	shiny := ""
	if c.Shiny {
		shiny = "S"
	}
	fields := []string{
		c.DisplayName(),
		species,
		ToID(c.Item),
		ToID(c.Ability),
		strings.Join(moves, ","),
		c.Nature,
		packStats(c.EVs, 0),
		c.Gender,
		packStats(c.IVs, 31),
		shiny,
		level,
	}
	packed := strings.Join(fields, "|")
	if c.TeraType != "" {
		packed += "|,,,,," + c.TeraType
	}
	return packed
}

// packStats writes a stat spread, leaving values equal to def blank and the
// whole field blank when every value is def.
func packStats(s Stats, def int) string {
	vals := s.values()
	parts := make([]string, len(vals))
	blank := true
	for i, v := range vals {
		if v != def {
			parts[i] = strconv.Itoa(v)
			blank = false
		}
	}
	if blank {
		return ""
	}
	return strings.Join(parts, ",")
}

// Package weather keeps the per-square weather and terrain effects of the
// board: stochastic generation, decay, battle write-back, and the target
// counter that drives periodic top-ups.
package weather

// Category is the slot a kind occupies on a square. A square holds at most
// one kind per category.
type Category int

const (
	CategoryWeather Category = iota
	CategoryTerrain
	numCategories
)

func (c Category) String() string {
	if c == CategoryTerrain {
		return "terrain"
	}
	return "weather"
}

// Other returns the opposite category.
func (c Category) Other() Category {
	if c == CategoryWeather {
		return CategoryTerrain
	}
	return CategoryWeather
}

// Kind is a board-relevant weather or terrain, named by its simulator ID.
type Kind string

const (
	SunnyDay  Kind = "sunnyday"
	RainDance Kind = "raindance"
	Sandstorm Kind = "sandstorm"
	Snow      Kind = "snow"

	ElectricTerrain Kind = "electricterrain"
	GrassyTerrain   Kind = "grassyterrain"
	MistyTerrain    Kind = "mistyterrain"
	PsychicTerrain  Kind = "psychicterrain"
)

var (
	weathers = []Kind{SunnyDay, RainDance, Sandstorm, Snow}
	terrains = []Kind{ElectricTerrain, GrassyTerrain, MistyTerrain, PsychicTerrain}
	allKinds = append(append([]Kind(nil), weathers...), terrains...)

	names = map[Kind]string{
		SunnyDay:        "Sun",
		RainDance:       "Rain",
		Sandstorm:       "Sandstorm",
		Snow:            "Snow",
		ElectricTerrain: "Electric Terrain",
		GrassyTerrain:   "Grassy Terrain",
		MistyTerrain:    "Misty Terrain",
		PsychicTerrain:  "Psychic Terrain",
	}
)

// Kinds returns the kinds of category c.
func Kinds(c Category) []Kind {
	if c == CategoryTerrain {
		return terrains
	}
	return weathers
}

// All returns every defined kind, weathers first.
func All() []Kind { return allKinds }

// Category returns the slot k occupies.
func (k Kind) Category() Category {
	for _, t := range terrains {
		if k == t {
			return CategoryTerrain
		}
	}
	return CategoryWeather
}

// Name is a short display name.
func (k Kind) Name() string {
	if n, ok := names[k]; ok {
		return n
	}
	return string(k)
}

// ParseKind looks up a simulator ID.
func ParseKind(id string) (Kind, bool) {
	for _, k := range allKinds {
		if string(k) == id {
			return k, true
		}
	}
	return "", false
}

// IsWeather reports whether id is a board-relevant weather.
func IsWeather(id string) bool {
	k, ok := ParseKind(id)
	return ok && k.Category() == CategoryWeather
}

// IsTerrain reports whether id is a board-relevant terrain.
func IsTerrain(id string) bool {
	k, ok := ParseKind(id)
	return ok && k.Category() == CategoryTerrain
}

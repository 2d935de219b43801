package battle

import "strings"

// FieldChange is the weather and terrain a battle left behind. A category
// is only reported when an ability or a move changed it; an empty value
// means the category was cleared.
type FieldChange struct {
	WeatherSet bool   `json:"weatherSet"`
	Weather    string `json:"weather,omitempty"`
	TerrainSet bool   `json:"terrainSet"`
	Terrain    string `json:"terrain,omitempty"`
}

// Changed reports whether either category was touched.
func (c FieldChange) Changed() bool { return c.WeatherSet || c.TerrainSet }

// FieldTracker watches the omniscient stream for board-relevant weather and
// terrain changes. Only the condition IDs accepted by the two predicates are
// tracked; other pseudo-weathers are ignored.
type FieldTracker struct {
	isWeather func(id string) bool
	isTerrain func(id string) bool
	inMove    bool
	change    FieldChange
}

// NewFieldTracker returns a tracker filtering on the given predicates.
func NewFieldTracker(isWeather, isTerrain func(id string) bool) *FieldTracker {
	return &FieldTracker{isWeather: isWeather, isTerrain: isTerrain}
}

// Observe folds one event into the tracked change.
func (t *FieldTracker) Observe(ev Event) {
	switch e := ev.(type) {
	case Move:
		t.inMove = true
	case Spacer, Turn, Upkeep, Switch:
		t.inMove = false
	case Weather:
		if e.Upkeep || !t.caused(e.From) {
			return
		}
		id := ConditionID(e.Condition)
		if id == "none" {
			id = ""
		}
		if id != "" && !t.isWeather(id) {
			return
		}
		t.change.WeatherSet, t.change.Weather = true, id
	case FieldStart:
		id := ConditionID(e.Condition)
		if !t.isTerrain(id) || !t.caused(e.From) {
			return
		}
		t.change.TerrainSet, t.change.Terrain = true, id
	case FieldEnd:
		id := ConditionID(e.Condition)
		if !t.isTerrain(id) || !t.caused(e.From) {
			return
		}
		t.change.TerrainSet, t.change.Terrain = true, ""
	}
}

// Change returns what has been tracked so far.
func (t *FieldTracker) Change() FieldChange { return t.change }

// caused reports whether a change came from an ability or a move. Untagged
// changes count only while a move is resolving.
func (t *FieldTracker) caused(from string) bool {
	switch {
	case strings.HasPrefix(from, "ability:"), strings.HasPrefix(from, "move:"):
		return true
	case from == "":
		return t.inMove
	default:
		return false
	}
}

// ConditionID strips an effect prefix such as "move: " and normalizes the rest.
func ConditionID(condition string) string {
	if i := strings.Index(condition, ": "); i >= 0 {
		condition = condition[i+2:]
	}
	return ToID(condition)
}

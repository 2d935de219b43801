package weather

import (
	"testing"

	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/rng"
)

func checkCap(t *testing.T, s *Store) {
	t.Helper()
	for _, sm := range s.Squares() {
		mods := sm.Modifiers()
		if len(mods) == 0 || len(mods) > 2 {
			t.Fatalf("%s has %d modifiers", sm.Square, len(mods))
		}
		if len(mods) == 2 && mods[0].Kind.Category() == mods[1].Kind.Category() {
			t.Fatalf("%s has two %s modifiers", sm.Square, mods[0].Kind.Category())
		}
		for _, m := range mods {
			if m.Duration <= 0 {
				t.Fatalf("%s keeps expired %s", sm.Square, m)
			}
		}
	}
}

func TestGenerateRespectsCap(t *testing.T) {
	s := NewStore()
	src := rng.New(1)
	for i := 0; i < 20; i++ {
		s.Generate(src, 10)
		checkCap(t, s)
	}
}

func TestGenerateStopsWhenSaturated(t *testing.T) {
	s := NewStore()
	deltas := s.Generate(rng.New(2), 1000)
	if got := s.Count(); got != 64 {
		t.Fatalf("Count() = %d, want 64", got)
	}
	for _, sm := range s.Squares() {
		if !sm.Full() {
			t.Fatalf("%s not full", sm.Square)
		}
	}
	if len(deltas) != 128 {
		t.Fatalf("got %d deltas, want 128", len(deltas))
	}
}

func TestGenerateDurations(t *testing.T) {
	s := NewStore()
	for _, d := range s.Generate(rng.New(3), 30) {
		if d.Modifier.Duration < DefaultMinDuration || d.Modifier.Duration > DefaultMaxDuration {
			t.Fatalf("duration %d out of band", d.Modifier.Duration)
		}
	}
}

func TestGenerateFavorsCenter(t *testing.T) {
	central := 0
	src := rng.New(4)
	const draws = 4000
	for i := 0; i < draws; i++ {
		sq := drawSquare(src)
		f, r := int(sq.File()), int(sq.Rank())
		if f >= 2 && f <= 5 && r >= 2 && r <= 5 {
			central++
		}
	}
	// Both axes land in the inner two bands with probability 0.7*0.7.
	if central < draws*4/10 || central > draws*6/10 {
		t.Fatalf("central draws = %d of %d", central, draws)
	}
}

func TestTickDecaysAndPrunes(t *testing.T) {
	s := NewStore()
	s.Put(chess.D4, Modifier{Kind: RainDance, Duration: 1})
	s.Put(chess.D4, Modifier{Kind: GrassyTerrain, Duration: 3})
	s.Put(chess.E5, Modifier{Kind: Snow, Duration: 1})

	before := map[chess.Square][]Modifier{}
	for _, sm := range s.Squares() {
		before[sm.Square] = sm.Modifiers()
	}
	deltas := s.Tick()

	if len(deltas) != 2 {
		t.Fatalf("Tick() deltas = %v, want two removals", deltas)
	}
	if _, ok := s.At(chess.E5); ok {
		t.Fatal("empty square not pruned")
	}
	d4, ok := s.At(chess.D4)
	if !ok {
		t.Fatal("d4 pruned")
	}
	if _, ok := d4.Weather(); ok {
		t.Fatal("expired weather kept")
	}
	terrain, _ := d4.Terrain()
	if terrain.Duration != 2 {
		t.Fatalf("terrain duration = %d, want 2", terrain.Duration)
	}
	for sq, mods := range before {
		after, _ := s.At(sq)
		for _, m := range mods {
			got, ok := after.Get(m.Kind.Category())
			if m.Duration-1 <= 0 {
				if ok {
					t.Fatalf("%s: %s survived", sq, m)
				}
				continue
			}
			if got.Duration != m.Duration-1 {
				t.Fatalf("%s: %s decayed to %d", sq, m, got.Duration)
			}
		}
	}
}

func TestWriteBack(t *testing.T) {
	tests := []struct {
		name   string
		start  []Modifier
		change battle.FieldChange
		want   []Modifier
	}{
		{
			name:   "untouched categories keep their modifiers",
			start:  []Modifier{{Kind: Sandstorm, Duration: 9}},
			change: battle.FieldChange{},
			want:   []Modifier{{Kind: Sandstorm, Duration: 9}},
		},
		{
			name:   "summoned weather replaces",
			start:  []Modifier{{Kind: Sandstorm, Duration: 9}},
			change: battle.FieldChange{WeatherSet: true, Weather: "raindance"},
			want:   []Modifier{{Kind: RainDance, Duration: 5}},
		},
		{
			name:   "same weather keeps duration",
			start:  []Modifier{{Kind: RainDance, Duration: 9}},
			change: battle.FieldChange{WeatherSet: true, Weather: "raindance"},
			want:   []Modifier{{Kind: RainDance, Duration: 9}},
		},
		{
			name:   "cleared terrain removed",
			start:  []Modifier{{Kind: Snow, Duration: 4}, {Kind: MistyTerrain, Duration: 6}},
			change: battle.FieldChange{TerrainSet: true},
			want:   []Modifier{{Kind: Snow, Duration: 4}},
		},
		{
			name:   "new square",
			change: battle.FieldChange{WeatherSet: true, Weather: "sunnyday", TerrainSet: true, Terrain: "electricterrain"},
			want:   []Modifier{{Kind: SunnyDay, Duration: 5}, {Kind: ElectricTerrain, Duration: 5}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			for _, m := range tt.start {
				s.Put(chess.C3, m)
			}
			s.WriteBack(chess.C3, tt.change, 5)
			sm, _ := s.At(chess.C3)
			got := sm.Modifiers()
			if len(got) != len(tt.want) {
				t.Fatalf("modifiers = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("modifiers = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestPreload(t *testing.T) {
	s := NewStore()
	s.Put(chess.F6, Modifier{Kind: PsychicTerrain, Duration: 3})
	w, tr := s.Preload(chess.F6)
	if w != "" || tr != "psychicterrain" {
		t.Fatalf("Preload() = %q, %q", w, tr)
	}
}

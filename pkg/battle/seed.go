package battle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qnkhuat/chessmon/pkg/rng"
)

// Seed is the simulator PRNG seed. A battle is fully determined by its seed,
// its start options and its input history.
type Seed [4]uint16

// DrawSeed takes a fresh battle seed from src.
func DrawSeed(src *rng.Source) Seed {
	var s Seed
	for i := range s {
		s[i] = src.Uint16()
	}
	return s
}

func (s Seed) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", s[0], s[1], s[2], s[3])
}

// ParseSeed reverses Seed.String.
func ParseSeed(text string) (Seed, error) {
	var s Seed
	parts := strings.Split(text, ",")
	if len(parts) != len(s) {
		return s, fmt.Errorf("seed %q: want %d words", text, len(s))
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return s, fmt.Errorf("seed %q: %w", text, err)
		}
		s[i] = uint16(v)
	}
	return s, nil
}

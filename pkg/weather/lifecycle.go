package weather

import (
	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/rng"
)

// LifecycleConfig tunes generation and the moving target.
type LifecycleConfig struct {
	// Initial is the number of modifiers placed at game start.
	Initial int
	// TargetLow and TargetHigh bound the resampled target, [low, high).
	TargetLow  int
	TargetHigh int
	// ResampleEvery is the number of chess moves between target resamples.
	ResampleEvery int
}

// DefaultLifecycleConfig mirrors the board the game ships with.
var DefaultLifecycleConfig = LifecycleConfig{
	Initial:       8,
	TargetLow:     6,
	TargetHigh:    14,
	ResampleEvery: 10,
}

// Lifecycle advances a Store across chess moves. Initial placement uses the
// public stream; the target and every top-up decision and placement use the
// secret stream, which neither player can observe.
type Lifecycle struct {
	store  *Store
	public *rng.Source
	secret *rng.Source
	cfg    LifecycleConfig
	target int
	moves  int
}

// NewLifecycle returns a lifecycle over store.
func NewLifecycle(store *Store, public, secret *rng.Source, cfg LifecycleConfig) *Lifecycle {
	if cfg.ResampleEvery <= 0 {
		cfg.ResampleEvery = DefaultLifecycleConfig.ResampleEvery
	}
	l := &Lifecycle{store: store, public: public, secret: secret, cfg: cfg}
	l.resample()
	return l
}

// Store returns the underlying store.
func (l *Lifecycle) Store() *Store { return l.store }

// Target is the current number of squares the board drifts toward.
func (l *Lifecycle) Target() int { return l.target }

// Moves is the number of chess moves advanced so far.
func (l *Lifecycle) Moves() int { return l.moves }

// Setup places the initial modifiers.
func (l *Lifecycle) Setup() []Delta {
	return l.store.Generate(l.public, l.cfg.Initial)
}

func (l *Lifecycle) resample() {
	lo, hi := l.cfg.TargetLow, l.cfg.TargetHigh
	if hi <= lo {
		l.target = lo
		return
	}
	l.target = lo + l.secret.Intn(hi-lo)
}

// Advance is called after every completed chess move with the color now to
// move. Modifiers decay once per full move, on White's turn, and a top-up
// toward the target may follow.
func (l *Lifecycle) Advance(turn chess.Color) []Delta {
	l.moves++
	if l.moves%l.cfg.ResampleEvery == 0 {
		l.resample()
	}
	if turn != chess.White {
		return nil
	}
	deltas := l.store.Tick()
	return append(deltas, l.TopUp()...)
}

// TopUp runs one Bernoulli trial with success probability 1/deficit and on
// success generates between one and deficit new modifiers.
func (l *Lifecycle) TopUp() []Delta {
	deficit := l.target - l.store.Count()
	if deficit <= 0 {
		return nil
	}
	if l.secret.Float64() >= 1/float64(deficit) {
		return nil
	}
	return l.store.Generate(l.secret, l.secret.Between(1, deficit))
}

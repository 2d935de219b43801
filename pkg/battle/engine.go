// Package battle is the boundary to the battle simulator: combatant specs,
// the decoded protocol event set, the engine contract, a subprocess engine
// for the Showdown simulator, and extraction of board-relevant field changes.
package battle

import (
	"context"
	"errors"
	"fmt"
)

var ErrEngineClosed = errors.New("battle engine closed")

// DefaultFormat is a one-on-one custom game with no team preview clauses.
const DefaultFormat = "gen9customgame"

// Side identifies a player slot in the simulator. The capturing piece is
// always p1.
type Side string

const (
	SideAttacker Side = "p1"
	SideDefender Side = "p2"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideAttacker {
		return SideDefender
	}
	return SideAttacker
}

// Perspective selects one of the three output streams of a battle.
type Perspective int

const (
	PerspectiveAttacker Perspective = iota
	PerspectiveDefender
	PerspectiveOmniscient
)

func (p Perspective) String() string {
	switch p {
	case PerspectiveAttacker:
		return "attacker"
	case PerspectiveDefender:
		return "defender"
	case PerspectiveOmniscient:
		return "omniscient"
	default:
		return "unknown"
	}
}

// PerspectiveOf returns the stream scoped to side.
func PerspectiveOf(side Side) Perspective {
	if side == SideDefender {
		return PerspectiveDefender
	}
	return PerspectiveAttacker
}

// StartOptions fully determine a battle together with its input history.
type StartOptions struct {
	Format   string    `json:"format"`
	Seed     Seed      `json:"seed"`
	Attacker Combatant `json:"attacker"`
	Defender Combatant `json:"defender"`
	// Advantage receives the one-time stat boost on its first switch-in.
	Advantage Side `json:"advantage"`
	// Weather and Terrain are pre-loaded from the contested square and
	// applied once, on the first switch-in.
	Weather string `json:"weather,omitempty"`
	Terrain string `json:"terrain,omitempty"`
}

// InputKind distinguishes player choices from control inputs.
type InputKind string

const (
	InputChoice   InputKind = "choose"
	InputForfeit  InputKind = "forfeit"
	InputSentinel InputKind = "sentinel"
)

// Input is one entry of a battle's move history.
type Input struct {
	Kind   InputKind `json:"kind"`
	Side   Side      `json:"side,omitempty"`
	Choice string    `json:"choice,omitempty"`
}

// Choose builds a choice input such as "move 1" or "team 1".
func Choose(side Side, choice string) Input {
	return Input{Kind: InputChoice, Side: side, Choice: choice}
}

// ForfeitBy builds the pseudo-move that makes side lose immediately.
func ForfeitBy(side Side) Input {
	return Input{Kind: InputForfeit, Side: side}
}

// Sentinel builds the replay marker input.
func Sentinel() Input {
	return Input{Kind: InputSentinel}
}

func (in Input) String() string {
	switch in.Kind {
	case InputChoice:
		return fmt.Sprintf(">%s %s", in.Side, in.Choice)
	case InputForfeit:
		return fmt.Sprintf(">forfeit %s", in.Side)
	default:
		return ">" + string(in.Kind)
	}
}

// Streams are the three perspective channels of one running battle. All
// three are fed by the same engine, so every one of them has to be read
// concurrently until it is closed.
type Streams struct {
	Attacker   <-chan string
	Defender   <-chan string
	Omniscient <-chan string
}

// Of returns the channel for p.
func (s Streams) Of(p Perspective) <-chan string {
	switch p {
	case PerspectiveAttacker:
		return s.Attacker
	case PerspectiveDefender:
		return s.Defender
	default:
		return s.Omniscient
	}
}

// Battle is one running simulation.
type Battle interface {
	Streams() Streams
	// Write feeds one input. Inputs are processed in order.
	Write(ctx context.Context, in Input) error
	// CloseInput signals that no more inputs follow; the engine then
	// finishes and closes its streams.
	CloseInput() error
	// Wait releases the battle after its streams are drained.
	Wait() error
}

// Engine starts battles.
type Engine interface {
	Start(ctx context.Context, opts StartOptions) (Battle, error)
}

// Package battletest provides a scripted, deterministic battle engine for
// tests.
package battletest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/qnkhuat/chessmon/pkg/battle"
)

// Engine plays out a fixed script: both sides pick moves, and after Turns
// full turns Winner wins. Extra lines keyed by turn number are emitted to
// every stream after that turn's moves; key 0 is emitted right after the
// opening switch-ins.
type Engine struct {
	Winner battle.Side
	Turns  int
	Extra  map[int][]string
	// StartErr, when set, is returned from Start.
	StartErr error

	mu     sync.Mutex
	starts []battle.StartOptions
	inputs [][]battle.Input
}

// Starts returns the options of every battle started so far.
func (e *Engine) Starts() []battle.StartOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]battle.StartOptions(nil), e.starts...)
}

// Inputs returns the inputs written to the i-th started battle.
func (e *Engine) Inputs(i int) []battle.Input {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.inputs) {
		return nil
	}
	return append([]battle.Input(nil), e.inputs[i]...)
}

// Start implements battle.Engine.
func (e *Engine) Start(ctx context.Context, opts battle.StartOptions) (battle.Battle, error) {
	if e.StartErr != nil {
		return nil, e.StartErr
	}
	e.mu.Lock()
	idx := len(e.starts)
	e.starts = append(e.starts, opts)
	e.inputs = append(e.inputs, nil)
	e.mu.Unlock()

	winner := e.Winner
	if winner == "" {
		winner = battle.SideAttacker
	}
	b := &fakeBattle{
		engine:     e,
		idx:        idx,
		opts:       opts,
		winner:     winner,
		attacker:   make(chan string),
		defender:   make(chan string),
		omniscient: make(chan string),
		choices:    map[battle.Side]string{},
		done:       make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)

	opening := []string{
		"|",
		fmt.Sprintf("|switch|p1a: %s|%s, L%d|100/100", opts.Attacker.DisplayName(), opts.Attacker.Species, opts.Attacker.Level),
		fmt.Sprintf("|switch|p2a: %s|%s, L%d|100/100", opts.Defender.DisplayName(), opts.Defender.Species, opts.Defender.Level),
	}
	opening = append(opening, e.Extra[0]...)
	opening = append(opening, "|turn|1")
	b.queueAll(strings.Join(opening, "\n"))
	b.queueRequests()

	go b.pump(ctx)
	return b, nil
}

type chunk struct {
	attacker, defender, omniscient string
}

type fakeBattle struct {
	engine *Engine
	idx    int
	opts   battle.StartOptions
	winner battle.Side

	attacker   chan string
	defender   chan string
	omniscient chan string

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []chunk
	closed  bool
	over    bool
	turn    int
	rqid    int
	choices map[battle.Side]string
	done    chan struct{}
}

func (b *fakeBattle) Streams() battle.Streams {
	return battle.Streams{Attacker: b.attacker, Defender: b.defender, Omniscient: b.omniscient}
}

func (b *fakeBattle) Write(ctx context.Context, in battle.Input) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return battle.ErrEngineClosed
	}
	b.engine.mu.Lock()
	b.engine.inputs[b.idx] = append(b.engine.inputs[b.idx], in)
	b.engine.mu.Unlock()

	switch in.Kind {
	case battle.InputSentinel:
		b.queueAll(battle.ReplayedLine)
	case battle.InputForfeit:
		if b.over {
			return nil
		}
		b.over = true
		b.queueAll(battle.ForfeitLine(in.Side) + "\n|win|" + string(in.Side.Opponent()))
	case battle.InputChoice:
		if b.over {
			return nil
		}
		b.choices[in.Side] = in.Choice
		if len(b.choices) == 2 {
			b.resolveTurn()
		}
	default:
		return fmt.Errorf("unknown input kind %q", in.Kind)
	}
	b.cond.Broadcast()
	return nil
}

func (b *fakeBattle) resolveTurn() {
	b.turn++
	lines := []string{
		"|",
		fmt.Sprintf("|move|p1a: %s|%s|p2a: %s", b.opts.Attacker.DisplayName(), moveName(b.opts.Attacker, b.choices[battle.SideAttacker]), b.opts.Defender.DisplayName()),
		fmt.Sprintf("|move|p2a: %s|%s|p1a: %s", b.opts.Defender.DisplayName(), moveName(b.opts.Defender, b.choices[battle.SideDefender]), b.opts.Attacker.DisplayName()),
	}
	lines = append(lines, b.engine.Extra[b.turn]...)
	b.choices = map[battle.Side]string{}
	if b.engine.Turns > 0 && b.turn >= b.engine.Turns {
		loser := b.winner.Opponent()
		name := b.opts.Defender.DisplayName()
		if loser == battle.SideAttacker {
			name = b.opts.Attacker.DisplayName()
		}
		lines = append(lines, fmt.Sprintf("|faint|%sa: %s", loser, name), "|win|"+string(b.winner))
		b.over = true
		b.queueAll(strings.Join(lines, "\n"))
		return
	}
	lines = append(lines, "|upkeep", fmt.Sprintf("|turn|%d", b.turn+1))
	b.queueAll(strings.Join(lines, "\n"))
	b.queueRequests()
}

func moveName(c battle.Combatant, choice string) string {
	var slot int
	if _, err := fmt.Sscanf(choice, "move %d", &slot); err == nil && slot >= 1 && slot <= len(c.Moves) {
		return c.Moves[slot-1]
	}
	return choice
}

type requestMove struct {
	Move  string `json:"move"`
	ID    string `json:"id"`
	PP    int    `json:"pp"`
	MaxPP int    `json:"maxpp"`
}

func (b *fakeBattle) request(side battle.Side, c battle.Combatant) string {
	moves := make([]requestMove, len(c.Moves))
	for i, m := range c.Moves {
		moves[i] = requestMove{Move: m, ID: battle.ToID(m), PP: 10, MaxPP: 10}
	}
	b.rqid++
	payload, _ := json.Marshal(map[string]any{
		"rqid":   b.rqid,
		"active": []map[string]any{{"moves": moves}},
		"side":   map[string]any{"name": string(side), "id": string(side)},
	})
	return "|request|" + string(payload)
}

func (b *fakeBattle) queueRequests() {
	b.queue = append(b.queue,
		chunk{attacker: b.request(battle.SideAttacker, b.opts.Attacker)},
		chunk{defender: b.request(battle.SideDefender, b.opts.Defender)},
	)
}

func (b *fakeBattle) queueAll(text string) {
	b.queue = append(b.queue, chunk{attacker: text, defender: text, omniscient: text})
}

func (b *fakeBattle) CloseInput() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
	return nil
}

func (b *fakeBattle) Wait() error {
	<-b.done
	return nil
}

// pump delivers queued chunks in order and closes the streams once input is
// closed and the queue is empty.
func (b *fakeBattle) pump(ctx context.Context) {
	defer close(b.done)
	defer close(b.attacker)
	defer close(b.defender)
	defer close(b.omniscient)
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		c := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		for _, out := range []struct {
			ch   chan string
			text string
		}{{b.attacker, c.attacker}, {b.defender, c.defender}, {b.omniscient, c.omniscient}} {
			if out.text == "" {
				continue
			}
			select {
			case out.ch <- out.text:
			case <-ctx.Done():
				return
			}
		}
	}
}

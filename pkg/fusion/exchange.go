package fusion

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/weather"
)

// perspectives in drain order.
var perspectives = [...]battle.Perspective{
	battle.PerspectiveAttacker,
	battle.PerspectiveDefender,
	battle.PerspectiveOmniscient,
}

// view is what one perspective stream yielded during an exchange, with
// replayed history already dropped.
type view struct {
	chunks  []string
	request *battle.Request
	win     *battle.Win
	tie     bool
	errs    []string
}

// exchange is the outcome of one run of a battle.
type exchange struct {
	views [len(perspectives)]view
	field battle.FieldChange
}

func (x *exchange) omniscient() view { return x.views[battle.PerspectiveOmniscient] }

// finished reports whether the battle reached a terminal event.
func (x *exchange) finished() bool {
	o := x.omniscient()
	return o.win != nil || o.tie
}

// winner is the winning side, empty for a tie or an unfinished battle.
func (x *exchange) winner() battle.Side {
	if w := x.omniscient().win; w != nil {
		return w.Side
	}
	return ""
}

// rejected returns the first error the simulator reported for a new input.
func (x *exchange) rejected() string {
	for _, v := range x.views {
		if len(v.errs) > 0 {
			return v.errs[0]
		}
	}
	return ""
}

// runExchange starts the battle from scratch, replays history, feeds the
// fresh inputs, and drains all three streams concurrently until the engine
// closes them. With replay set a marker is written between history and the
// fresh inputs and everything before it is dropped from the views; the field
// tracker always sees the whole battle.
func runExchange(ctx context.Context, engine battle.Engine, opts battle.StartOptions, history, fresh []battle.Input, replay bool) (*exchange, error) {
	g, gctx := errgroup.WithContext(ctx)
	b, err := engine.Start(gctx, opts)
	if err != nil {
		return nil, fmt.Errorf("start battle: %w", err)
	}

	x := &exchange{}
	tracker := battle.NewFieldTracker(weather.IsWeather, weather.IsTerrain)
	streams := b.Streams()
	for _, p := range perspectives {
		p := p
		var t *battle.FieldTracker
		if p == battle.PerspectiveOmniscient {
			t = tracker
		}
		g.Go(func() error {
			v, err := drain(gctx, streams.Of(p), replay, t)
			x.views[p] = v
			return err
		})
	}
	g.Go(func() error {
		err := feed(gctx, b, history, fresh, replay)
		if cerr := b.CloseInput(); err == nil {
			err = cerr
		}
		if werr := b.Wait(); err == nil {
			err = werr
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	x.field = tracker.Change()
	return x, nil
}

func feed(ctx context.Context, b battle.Battle, history, fresh []battle.Input, replay bool) error {
	for _, in := range history {
		if err := b.Write(ctx, in); err != nil {
			return fmt.Errorf("replay %s: %w", in, err)
		}
	}
	if replay {
		if err := b.Write(ctx, battle.Sentinel()); err != nil {
			return fmt.Errorf("write sentinel: %w", err)
		}
	}
	for _, in := range fresh {
		if err := b.Write(ctx, in); err != nil {
			return fmt.Errorf("write %s: %w", in, err)
		}
	}
	return nil
}

// drain reads ch until it closes. While replaying, everything up to and
// including the replay marker is skipped.
func drain(ctx context.Context, ch <-chan string, replaying bool, tracker *battle.FieldTracker) (view, error) {
	var v view
	for {
		var chunk string
		var ok bool
		select {
		case chunk, ok = <-ch:
		case <-ctx.Done():
			return v, ctx.Err()
		}
		if !ok {
			return v, nil
		}
		var lines []string
		for _, ev := range battle.ParseChunk(chunk) {
			if tracker != nil {
				tracker.Observe(ev)
			}
			if replaying {
				if ev.Kind() == battle.KindReplayed {
					replaying = false
				}
				continue
			}
			switch e := ev.(type) {
			case battle.Replayed:
				continue
			case battle.Win:
				v.win = &e
			case battle.Tie:
				v.tie = true
			case battle.Error:
				v.errs = append(v.errs, e.Message)
			case battle.RequestEvent:
				if req, err := e.Decode(); err == nil {
					v.request = &req
				}
			}
			lines = append(lines, ev.Line())
		}
		if len(lines) > 0 {
			v.chunks = append(v.chunks, strings.Join(lines, "\n"))
		}
	}
}

// Outcome is the result of re-running a recorded battle.
type Outcome struct {
	Winner battle.Side
	Field  battle.FieldChange
}

// Reconstruct re-runs a recorded battle from its start options and input
// history. Identical records always produce identical outcomes.
func Reconstruct(ctx context.Context, engine battle.Engine, opts battle.StartOptions, history []battle.Input) (Outcome, error) {
	x, err := runExchange(ctx, engine, opts, nil, history, false)
	if err != nil {
		return Outcome{}, err
	}
	if !x.finished() {
		return Outcome{}, ErrNoVerdict
	}
	return Outcome{Winner: x.winner(), Field: x.field}, nil
}

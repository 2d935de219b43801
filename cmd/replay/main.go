// Command replay prints recorded games and checks that every recorded
// battle replays to the same result.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/config"
	"github.com/qnkhuat/chessmon/pkg/fusion"
	"github.com/qnkhuat/chessmon/pkg/store"
	"github.com/qnkhuat/chessmon/pkg/weather"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

func main() {
	var cfg config.Server
	if err := config.ParseEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	db := flag.String("db", cfg.Storage.Path, "SQLite database")
	game := flag.String("game", "", "game to print, empty to list games")
	chunks := flag.Bool("chunks", false, "print battle protocol chunks")
	verify := flag.Bool("verify", false, "re-run every battle of the game through the simulator")
	limit := flag.Int("limit", 20, "games to list")
	timeout := flag.Duration("timeout", cfg.BattleTimeout, "per battle replay timeout")
	flag.Parse()

	st, err := store.Open(*db)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	out := color.Output
	switch {
	case *game == "":
		err = listGames(ctx, out, st, *limit)
	case *verify:
		engine := battle.NewShowdown(cfg.Simulator.Command, cfg.Simulator.Dir, nil)
		var bad int
		bad, err = verifyBattles(ctx, out, st, engine, *game, *timeout)
		if err == nil && bad > 0 {
			err = fmt.Errorf("%d battles did not replay", bad)
		}
	default:
		err = printJournal(ctx, out, st, *game, *chunks)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err))
		os.Exit(1)
	}
}

func listGames(ctx context.Context, w io.Writer, st *store.Store, limit int) error {
	games, err := st.ListGames(ctx, limit)
	if err != nil {
		return err
	}
	for _, g := range games {
		status := yellow("in progress")
		if g.Over() {
			status = fmt.Sprintf("%s, %s wins", g.Reason, g.Winner.Name())
		}
		fmt.Fprintf(w, "%s  %s  %s  %s vs %s  %s\n", bold(g.ID), cyan(g.Match), g.StartedAt.Format(time.DateTime), g.White, g.Black, status)
	}
	return nil
}

func printJournal(ctx context.Context, w io.Writer, st *store.Store, id string, chunks bool) error {
	g, err := st.GetGame(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%s) seed %d\n", bold(g.ID), g.Match, g.Seed)
	entries, err := st.Entries(ctx, id)
	if err != nil {
		return err
	}
	for _, e := range entries {
		line := describe(e, chunks)
		if line == "" {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", faint(fmt.Sprintf("%4d", e.Seq)), line)
	}
	return nil
}

func describe(e fusion.Entry, chunks bool) string {
	switch e.Kind {
	case fusion.EntryChess:
		c := e.Chess
		if c.Failed {
			return fmt.Sprintf("%s %s %s", c.Color.Name(), c.Notation, red("failed"))
		}
		return fmt.Sprintf("%s %s", c.Color.Name(), bold(c.Notation))
	case fusion.EntryPokemon:
		p := e.Pokemon
		switch p.Event {
		case fusion.PokemonStart:
			return cyan(fmt.Sprintf("battle on %s: %s vs %s (seed %s)",
				p.Square, p.Start.Attacker.DisplayName(), p.Start.Defender.DisplayName(), p.Start.Seed))
		case fusion.PokemonVictory:
			return cyan(fmt.Sprintf("battle on %s won by %s", p.Square, p.Winner))
		default:
			if !chunks || p.Perspective != battle.PerspectiveOmniscient.String() {
				return ""
			}
			return faint(p.Chunk)
		}
	case fusion.EntryWeather:
		var s string
		for i, d := range e.Weather.Deltas {
			if i > 0 {
				s += ", "
			}
			op := green("+")
			if d.Op != weather.OpAdd {
				op = red("-")
			}
			s += fmt.Sprintf("%s%s@%s", op, d.Modifier.Kind.Name(), d.Square)
		}
		return yellow(s)
	case fusion.EntryGeneric:
		return bold(fmt.Sprintf("game over: %s, winner %s", e.Generic.Reason, e.Generic.Winner.Name()))
	}
	return ""
}

// verifyBattles replays every recorded battle and compares the outcome.
func verifyBattles(ctx context.Context, w io.Writer, st *store.Store, engine battle.Engine, id string, timeout time.Duration) (int, error) {
	records, err := st.Battles(ctx, id)
	if err != nil {
		return 0, err
	}
	bad := 0
	for _, rec := range records {
		rctx, cancel := context.WithTimeout(ctx, timeout)
		out, err := fusion.Reconstruct(rctx, engine, rec.Start, rec.History)
		cancel()
		switch {
		case err != nil:
			bad++
			fmt.Fprintf(w, "%s %s %s: %v\n", red("FAIL"), rec.ID, rec.Notation, err)
		case out.Winner != rec.Winner || out.Field != rec.Field:
			bad++
			fmt.Fprintf(w, "%s %s %s: got %s %+v, recorded %s %+v\n", red("DIFF"), rec.ID, rec.Notation, out.Winner, out.Field, rec.Winner, rec.Field)
		default:
			fmt.Fprintf(w, "%s %s %s\n", green("ok"), rec.ID, rec.Notation)
		}
	}
	return bad, nil
}

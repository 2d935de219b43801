package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/fusion"
	"github.com/qnkhuat/chessmon/pkg/weather"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chessmon.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenTwiceKeepsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chessmon.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CreateGame(context.Background(), Game{ID: "brave-otter", Seed: 7}); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.GetGame(context.Background(), "brave-otter"); err != nil {
		t.Fatalf("get game after reopen: %v", err)
	}
}

func TestGameLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t)
	start := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	if err := s.CreateGame(ctx, Game{ID: "calm-lynx", White: "ash", Black: "cpu", Seed: 99, StartedAt: start}); err != nil {
		t.Fatal(err)
	}
	g, err := s.GetGame(ctx, "calm-lynx")
	if err != nil {
		t.Fatal(err)
	}
	if g.Over() || g.Seed != 99 || !g.StartedAt.Equal(start) {
		t.Fatalf("game = %+v", g)
	}
	end := fusion.Ending{Reason: fusion.ReasonKingCaptured, Winner: chess.Black}
	if err := s.EndGame(ctx, "calm-lynx", end, start.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	g, _ = s.GetGame(ctx, "calm-lynx")
	if !g.Over() || g.Reason != fusion.ReasonKingCaptured || g.Winner != chess.Black {
		t.Fatalf("game = %+v", g)
	}
	if err := s.EndGame(ctx, "missing", end, start); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetGame(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	games, err := s.ListGames(ctx, 10)
	if err != nil || len(games) != 1 {
		t.Fatalf("ListGames() = %v, %v", games, err)
	}
}

func TestMatchNameReused(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t)
	first := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"g-1", "g-2"} {
		g := Game{ID: id, Match: "lunch", Seed: int64(i), StartedAt: first.Add(time.Duration(i) * time.Hour)}
		if err := s.CreateGame(ctx, g); err != nil {
			t.Fatalf("CreateGame(%s) error = %v", id, err)
		}
	}
	if err := s.CreateGame(ctx, Game{ID: "g-3", Match: "dinner", StartedAt: first}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateGame(ctx, Game{ID: "g-1", Match: "lunch"}); err == nil {
		t.Fatal("duplicate game id was accepted")
	}

	games, err := s.MatchGames(ctx, "lunch")
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 2 || games[0].ID != "g-2" || games[1].ID != "g-1" {
		t.Fatalf("MatchGames(lunch) = %+v, want g-2 then g-1", games)
	}
	if games[0].Match != "lunch" {
		t.Fatalf("match = %q, want lunch", games[0].Match)
	}
}

func TestEntriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t)
	if err := s.CreateGame(ctx, Game{ID: "g"}); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	entries := []fusion.Entry{
		{Seq: 1, Kind: fusion.EntryWeather, At: at, Weather: &fusion.WeatherEntry{Deltas: []weather.Delta{
			{Square: chess.D4, Op: weather.OpAdd, Modifier: weather.Modifier{Kind: weather.Snow, Duration: 7}},
		}}},
		{Seq: 2, Kind: fusion.EntryChess, At: at, Chess: &fusion.ChessEntry{Color: chess.White, Notation: "exd5", Failed: true}},
	}
	for _, e := range entries {
		if err := s.AppendEntry(ctx, "g", e); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Entries(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries", len(got))
	}
	if got[0].Weather == nil || got[0].Weather.Deltas[0].Modifier.Kind != weather.Snow {
		t.Fatalf("weather entry = %+v", got[0])
	}
	if got[1].Chess == nil || !got[1].Chess.Failed || got[1].Chess.Notation != "exd5" {
		t.Fatalf("chess entry = %+v", got[1])
	}
	if err := s.AppendEntry(ctx, "g", entries[0]); err == nil {
		t.Fatal("duplicate seq accepted")
	}
}

func TestBattleRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.CreateGame(ctx, Game{ID: "g"}); err != nil {
		t.Fatal(err)
	}
	rec := fusion.BattleRecord{
		ID:       uuid.New(),
		Notation: "Nxe5",
		Color:    chess.Black,
		Square:   chess.E5,
		Start: battle.StartOptions{
			Format:    battle.DefaultFormat,
			Seed:      battle.Seed{1, 2, 3, 4},
			Attacker:  battle.Combatant{Species: "Ponyta", Level: 90, Moves: []string{"Flare Blitz"}},
			Defender:  battle.Combatant{Species: "Pichu", Level: 95, Moves: []string{"Volt Tackle"}},
			Advantage: battle.SideAttacker,
			Weather:   "sunnyday",
		},
		History: []battle.Input{battle.Choose(battle.SideAttacker, "move 1"), battle.ForfeitBy(battle.SideDefender)},
		Winner:  battle.SideAttacker,
		Field:   battle.FieldChange{TerrainSet: true, Terrain: "grassyterrain"},
	}
	if err := s.SaveBattle(ctx, "g", rec); err != nil {
		t.Fatal(err)
	}
	got, err := s.Battle(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Square != chess.E5 || got.Color != chess.Black || got.Winner != battle.SideAttacker {
		t.Fatalf("battle = %+v", got)
	}
	if got.Start.Seed != rec.Start.Seed || got.Start.Attacker.Species != "Ponyta" || got.Field != rec.Field {
		t.Fatalf("battle = %+v", got)
	}
	if len(got.History) != 2 || got.History[1].Kind != battle.InputForfeit {
		t.Fatalf("history = %v", got.History)
	}
	all, err := s.Battles(ctx, "g")
	if err != nil || len(all) != 1 {
		t.Fatalf("Battles() = %v, %v", all, err)
	}
	if _, err := s.Battle(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestParseSquare(t *testing.T) {
	for _, sq := range []chess.Square{chess.A1, chess.H8, chess.E4, chess.B7} {
		if got := parseSquare(sq.String()); got != sq {
			t.Fatalf("parseSquare(%q) = %v", sq.String(), got)
		}
	}
	if parseSquare("z9") != chess.NoSquare {
		t.Fatal("bad square parsed")
	}
}

// Package store persists games, their journals and settled battles in
// SQLite so that finished games can be replayed and verified.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/notnil/chess"
	_ "modernc.org/sqlite"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/fusion"
	"github.com/qnkhuat/chessmon/pkg/store/migrations"
)

var ErrNotFound = errors.New("not found")

// Game is a stored game header. ID is unique per game; Match is the name
// players join by and is reused when a match id is played again.
type Game struct {
	ID        string
	Match     string
	White     string
	Black     string
	Seed      int64
	StartedAt time.Time
	EndedAt   time.Time
	Reason    fusion.EndReason
	Winner    chess.Color
}

// Over reports whether the game has ended.
func (g Game) Over() bool { return !g.EndedAt.IsZero() }

// Store is a SQLite-backed record of games.
type Store struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Open opens the database at path and applies migrations. ":memory:" opens
// a private in-memory database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a different database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateGame inserts a game header.
func (s *Store) CreateGame(ctx context.Context, g Game) error {
	if g.ID == "" {
		return fmt.Errorf("game id is required")
	}
	if g.StartedAt.IsZero() {
		g.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, match_name, white, black, seed, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Match, g.White, g.Black, g.Seed, toMillis(g.StartedAt))
	if err != nil {
		return fmt.Errorf("insert game %s: %w", g.ID, err)
	}
	return nil
}

// EndGame records how a game ended.
func (s *Store) EndGame(ctx context.Context, id string, end fusion.Ending, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET ended_at = ?, reason = ?, winner = ? WHERE id = ?`,
		toMillis(at), string(end.Reason), colorText(end.Winner), id)
	if err != nil {
		return fmt.Errorf("end game %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end game %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetGame loads a game header.
func (s *Store) GetGame(ctx context.Context, id string) (Game, error) {
	row := s.db.QueryRowContext(ctx,
		gameSelect+` WHERE id = ?`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Game{}, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return g, err
}

// ListGames returns the most recent games first.
func (s *Store) ListGames(ctx context.Context, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		gameSelect+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return collectGames(rows)
}

// MatchGames returns the games played under a match name, most recent first.
func (s *Store) MatchGames(ctx context.Context, match string) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx,
		gameSelect+` WHERE match_name = ? ORDER BY started_at DESC, rowid DESC`, match)
	if err != nil {
		return nil, fmt.Errorf("list games of match %s: %w", match, err)
	}
	return collectGames(rows)
}

const gameSelect = `SELECT id, match_name, white, black, seed, started_at, ended_at, reason, winner FROM games`

func collectGames(rows *sql.Rows) ([]Game, error) {
	defer rows.Close()
	var out []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (Game, error) {
	var (
		g      Game
		start  int64
		ended  sql.NullInt64
		reason string
		winner string
	)
	if err := row.Scan(&g.ID, &g.Match, &g.White, &g.Black, &g.Seed, &start, &ended, &reason, &winner); err != nil {
		return Game{}, err
	}
	g.StartedAt = fromMillis(start)
	if ended.Valid {
		g.EndedAt = fromMillis(ended.Int64)
	}
	g.Reason = fusion.EndReason(reason)
	g.Winner = parseColor(winner)
	return g, nil
}

// AppendEntry stores one journal entry.
func (s *Store) AppendEntry(ctx context.Context, gameID string, e fusion.Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries (game_id, seq, kind, at, payload) VALUES (?, ?, ?, ?, ?)`,
		gameID, e.Seq, string(e.Kind), toMillis(e.At), string(payload))
	if err != nil {
		return fmt.Errorf("insert entry %s/%d: %w", gameID, e.Seq, err)
	}
	return nil
}

// Entries returns the journal of a game in order.
func (s *Store) Entries(ctx context.Context, gameID string) ([]fusion.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM entries WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	var out []fusion.Entry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e fusion.Entry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveBattle stores a settled battle.
func (s *Store) SaveBattle(ctx context.Context, gameID string, rec fusion.BattleRecord) error {
	start, err := json.Marshal(rec.Start)
	if err != nil {
		return fmt.Errorf("encode start options: %w", err)
	}
	history, err := json.Marshal(rec.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	field, err := json.Marshal(rec.Field)
	if err != nil {
		return fmt.Errorf("encode field: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO battles (id, game_id, notation, color, square, start_options, history, winner, field, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), gameID, rec.Notation, colorText(rec.Color), rec.Square.String(),
		string(start), string(history), string(rec.Winner), string(field), toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("insert battle %s: %w", rec.ID, err)
	}
	return nil
}

// Battle loads one battle.
func (s *Store) Battle(ctx context.Context, id uuid.UUID) (fusion.BattleRecord, error) {
	row := s.db.QueryRowContext(ctx, battleSelect+` WHERE id = ?`, id.String())
	rec, err := scanBattle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fusion.BattleRecord{}, fmt.Errorf("battle %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// Battles returns the battles of a game in the order they settled.
func (s *Store) Battles(ctx context.Context, gameID string) ([]fusion.BattleRecord, error) {
	rows, err := s.db.QueryContext(ctx, battleSelect+` WHERE game_id = ? ORDER BY created_at, rowid`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query battles: %w", err)
	}
	defer rows.Close()
	var out []fusion.BattleRecord
	for rows.Next() {
		rec, err := scanBattle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const battleSelect = `SELECT id, notation, color, square, start_options, history, winner, field FROM battles`

func scanBattle(row scanner) (fusion.BattleRecord, error) {
	var (
		rec                       fusion.BattleRecord
		id, color, square, winner string
		start, history, field     string
	)
	if err := row.Scan(&id, &rec.Notation, &color, &square, &start, &history, &winner, &field); err != nil {
		return fusion.BattleRecord{}, err
	}
	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return fusion.BattleRecord{}, fmt.Errorf("battle id %q: %w", id, err)
	}
	rec.Color = parseColor(color)
	rec.Square = parseSquare(square)
	rec.Winner = battle.Side(winner)
	if err := json.Unmarshal([]byte(start), &rec.Start); err != nil {
		return fusion.BattleRecord{}, fmt.Errorf("decode start options: %w", err)
	}
	if err := json.Unmarshal([]byte(history), &rec.History); err != nil {
		return fusion.BattleRecord{}, fmt.Errorf("decode history: %w", err)
	}
	if err := json.Unmarshal([]byte(field), &rec.Field); err != nil {
		return fusion.BattleRecord{}, fmt.Errorf("decode field: %w", err)
	}
	return rec, nil
}

func colorText(c chess.Color) string {
	switch c {
	case chess.White:
		return "white"
	case chess.Black:
		return "black"
	}
	return ""
}

func parseColor(s string) chess.Color {
	switch s {
	case "white":
		return chess.White
	case "black":
		return chess.Black
	}
	return chess.NoColor
}

func parseSquare(s string) chess.Square {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return chess.NoSquare
	}
	return chess.Square(int(s[1]-'1')*8 + int(s[0]-'a'))
}

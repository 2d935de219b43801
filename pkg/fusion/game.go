// Package fusion turns chess captures into battles. A Game owns the chess
// position, the piece bindings and the square modifiers; a capture starts a
// battle between the two bound combatants and the board changes only once
// the battle has a winner.
package fusion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/notnil/chess"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/chessrules"
	"github.com/qnkhuat/chessmon/pkg/piece"
	"github.com/qnkhuat/chessmon/pkg/rng"
	"github.com/qnkhuat/chessmon/pkg/weather"
)

const tracerName = "github.com/qnkhuat/chessmon/pkg/fusion"

// State is the orchestrator state.
type State int

const (
	StateIdle State = iota
	StateAwaitingBattle
	StateOver
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingBattle:
		return "awaiting-battle"
	default:
		return "over"
	}
}

// Stakes links the running battle to the move it gates.
type Stakes struct {
	BattleID uuid.UUID
	Move     chessrules.Move
	Notation string
	Color    chess.Color
	// Square is where the battle is fought: the destination of the move.
	Square   chess.Square
	Attacker piece.Piece
	Defender piece.Piece
	Start    battle.StartOptions
	History  []battle.Input
	// Exchanges counts completed runs; every run after the first replays
	// behind the marker.
	Exchanges int
}

// BattleRecord is everything needed to replay a settled battle.
type BattleRecord struct {
	ID       uuid.UUID           `json:"id"`
	Notation string              `json:"notation"`
	Color    chess.Color         `json:"color"`
	Square   chess.Square        `json:"square"`
	Start    battle.StartOptions `json:"start"`
	History  []battle.Input      `json:"history"`
	Winner   battle.Side         `json:"winner"`
	Field    battle.FieldChange  `json:"field"`
}

// Verdict is how a battle settled its capture.
type Verdict struct {
	Winner      battle.Side
	AttackerWon bool
	Field       battle.FieldChange
	Deltas      []weather.Delta
}

// Result reports what a submission did.
type Result struct {
	Move chessrules.Move
	// Pending is set while the capture's battle still needs choices.
	Pending  bool
	BattleID uuid.UUID
	// Chunks are the new protocol chunks per perspective.
	Chunks map[battle.Perspective][]string
	// Requests are the latest choice requests per side.
	Requests map[battle.Side]battle.Request
	Verdict  *Verdict
	Ending   *Ending
}

// Hooks are awaited in order before a submission returns.
type Hooks struct {
	OnEntry          func(ctx context.Context, e Entry)
	OnMoveCommitted  func(ctx context.Context, e ChessEntry)
	OnBattleResolved func(ctx context.Context, rec BattleRecord)
	OnGameEnded      func(ctx context.Context, end Ending)
}

// Config assembles a Game. Engine, Pieces and Public are required.
type Config struct {
	Engine battle.Engine
	Rules  *chessrules.Game
	Pieces *piece.Manager
	// Lifecycle is optional; without it the board carries no modifiers.
	Lifecycle *weather.Lifecycle
	// Public draws battle seeds.
	Public            *rng.Source
	Format            string
	WriteBackDuration int
	Hooks             Hooks
	Logger            *zap.Logger
	Tracer            trace.Tracer
	Now               func() time.Time
}

// Game is one hybrid game. It is not safe for concurrent use: callers
// serialize submissions.
type Game struct {
	engine    battle.Engine
	rules     *chessrules.Game
	pieces    *piece.Manager
	lifecycle *weather.Lifecycle
	modifiers *weather.Store
	public    *rng.Source
	format    string
	writeBack int
	hooks     Hooks
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time

	state   State
	stakes  *Stakes
	ending  *Ending
	journal []Entry
	battles []BattleRecord
}

// New returns a game in StateIdle.
func New(cfg Config) *Game {
	g := &Game{
		engine:    cfg.Engine,
		rules:     cfg.Rules,
		pieces:    cfg.Pieces,
		lifecycle: cfg.Lifecycle,
		public:    cfg.Public,
		format:    cfg.Format,
		writeBack: cfg.WriteBackDuration,
		hooks:     cfg.Hooks,
		logger:    cfg.Logger,
		tracer:    cfg.Tracer,
		now:       cfg.Now,
	}
	if g.rules == nil {
		g.rules = chessrules.NewGame()
	}
	if g.lifecycle != nil {
		g.modifiers = g.lifecycle.Store()
	} else {
		g.modifiers = weather.NewStore()
	}
	if g.format == "" {
		g.format = battle.DefaultFormat
	}
	if g.writeBack <= 0 {
		g.writeBack = weather.DefaultWriteBackDuration
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.tracer == nil {
		g.tracer = otel.Tracer(tracerName)
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

func (g *Game) State() State { return g.state }

func (g *Game) Rules() *chessrules.Game { return g.rules }

func (g *Game) Pieces() *piece.Manager { return g.pieces }

func (g *Game) Modifiers() *weather.Store { return g.modifiers }

// Stakes returns the running battle, if any.
func (g *Game) Stakes() (Stakes, bool) {
	if g.stakes == nil {
		return Stakes{}, false
	}
	s := *g.stakes
	s.History = append([]battle.Input(nil), s.History...)
	return s, true
}

// Ending returns how the game ended, if it has.
func (g *Game) Ending() (Ending, bool) {
	if g.ending == nil {
		return Ending{}, false
	}
	return *g.ending, true
}

// Journal returns every entry so far.
func (g *Game) Journal() []Entry { return append([]Entry(nil), g.journal...) }

// Battles returns the records of settled battles.
func (g *Game) Battles() []BattleRecord { return append([]BattleRecord(nil), g.battles...) }

// Setup places the initial square modifiers.
func (g *Game) Setup(ctx context.Context) {
	if g.lifecycle == nil {
		return
	}
	g.emitDeltas(ctx, g.lifecycle.Setup())
}

// SubmitMove plays notation for the side to move. A quiet move is applied
// at once; a capture starts a battle and returns with Pending set and the
// opening chunks and requests.
func (g *Game) SubmitMove(ctx context.Context, notation string) (Result, error) {
	switch g.state {
	case StateOver:
		return Result{}, ErrGameOver
	case StateAwaitingBattle:
		return Result{}, ErrBattlePending
	}
	m, ok := g.rules.Find(notation, true)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidMove, notation)
	}
	if !m.IsCapture() {
		return g.playQuiet(ctx, m)
	}

	attacker, ok := g.pieces.PieceAt(m.From)
	if !ok {
		g.logger.Error("capturing square has no pokemon", zap.String("square", m.From.String()), zap.String("move", m.SAN))
		return Result{}, fmt.Errorf("%w: %s", ErrMissingPokemon, m.From)
	}
	defender, ok := g.pieces.PieceAt(m.Captured)
	if !ok {
		g.logger.Error("captured square has no pokemon", zap.String("square", m.Captured.String()), zap.String("move", m.SAN))
		return Result{}, fmt.Errorf("%w: %s", ErrMissingPokemon, m.Captured)
	}

	weatherID, terrainID := g.modifiers.Preload(m.To)
	g.stakes = &Stakes{
		BattleID: uuid.New(),
		Move:     m,
		Notation: m.SAN,
		Color:    m.Color,
		Square:   m.To,
		Attacker: attacker,
		Defender: defender,
		Start: battle.StartOptions{
			Format:    g.format,
			Seed:      battle.DrawSeed(g.public),
			Attacker:  attacker.Pokemon,
			Defender:  defender.Pokemon,
			Advantage: battle.SideAttacker,
			Weather:   weatherID,
			Terrain:   terrainID,
		},
	}
	g.state = StateAwaitingBattle
	g.logger.Info("battle started",
		zap.String("battle", g.stakes.BattleID.String()),
		zap.String("move", m.SAN),
		zap.String("attacker", attacker.Pokemon.DisplayName()),
		zap.String("defender", defender.Pokemon.DisplayName()),
		zap.String("seed", g.stakes.Start.Seed.String()))

	res, err := g.exchange(ctx, nil)
	if err != nil {
		// Nothing was journaled; the move is not attempted.
		g.stakes = nil
		g.state = StateIdle
		return Result{}, err
	}
	return res, nil
}

// SubmitBattleChoices feeds choices such as "move 1" into the running
// battle. Choices the simulator rejects are not kept and are reported as
// ErrInvalidChoice.
func (g *Game) SubmitBattleChoices(ctx context.Context, choices ...battle.Input) (Result, error) {
	if g.state == StateOver {
		return Result{}, ErrGameOver
	}
	if g.stakes == nil {
		return Result{}, ErrNoBattle
	}
	return g.exchange(ctx, choices)
}

// Forfeit makes side lose the running battle at once.
func (g *Game) Forfeit(ctx context.Context, side battle.Side) (Result, error) {
	return g.SubmitBattleChoices(ctx, battle.ForfeitBy(side))
}

// Resign ends the game in favor of color's opponent. A running battle is
// abandoned and its move is not played.
func (g *Game) Resign(ctx context.Context, color chess.Color) (Ending, error) {
	if g.state == StateOver {
		return Ending{}, ErrGameOver
	}
	g.stakes = nil
	return g.end(ctx, ReasonResigned, color.Other()), nil
}

func (g *Game) playQuiet(ctx context.Context, m chessrules.Move) (Result, error) {
	if err := g.rules.Apply(m); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	g.mirror(m)
	entry := ChessEntry{Color: m.Color, Notation: m.SAN}
	g.emit(ctx, Entry{Kind: EntryChess, Chess: &entry})
	if g.hooks.OnMoveCommitted != nil {
		g.hooks.OnMoveCommitted(ctx, entry)
	}
	res := Result{Move: m}
	res.Ending = g.afterMove(ctx)
	return res, nil
}

// mirror moves the bound pieces the way m moves the chess pieces.
func (g *Game) mirror(m chessrules.Move) {
	if m.EnPassant {
		g.pieces.RemovePiece(m.Captured)
	}
	if _, ok := g.pieces.PieceAt(m.From); ok {
		_, _ = g.pieces.MovePiece(m.From, m.To, m.Promotion)
	}
	if m.IsCastle() {
		if _, ok := g.pieces.PieceAt(m.RookFrom); ok {
			_, _ = g.pieces.MovePiece(m.RookFrom, m.RookTo, chess.NoPieceType)
		}
	}
}

// exchange runs the battle with the stored history plus fresh inputs.
func (g *Game) exchange(ctx context.Context, fresh []battle.Input) (Result, error) {
	st := g.stakes
	ctx, span := g.tracer.Start(ctx, "fusion.battle", trace.WithAttributes(
		attribute.String("battle.id", st.BattleID.String()),
		attribute.String("battle.seed", st.Start.Seed.String()),
		attribute.String("chess.move", st.Notation),
		attribute.String("chess.color", st.Color.Name()),
		attribute.Int("battle.history", len(st.History)),
		attribute.Int("battle.inputs", len(fresh)),
	))
	defer span.End()

	x, err := runExchange(ctx, g.engine, st.Start, st.History, fresh, st.Exchanges > 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error("battle exchange failed", zap.String("battle", st.BattleID.String()), zap.Error(err))
		return Result{}, err
	}
	if msg := x.rejected(); msg != "" && len(fresh) > 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidChoice, msg)
	}
	if st.Exchanges == 0 {
		start := st.Start
		g.emit(ctx, Entry{Kind: EntryPokemon, Pokemon: &PokemonEntry{
			Event:    PokemonStart,
			BattleID: st.BattleID,
			Start:    &start,
			Square:   st.Square,
		}})
	}
	st.History = append(st.History, fresh...)
	st.Exchanges++

	res := Result{
		Move:     st.Move,
		Pending:  true,
		BattleID: st.BattleID,
		Chunks:   map[battle.Perspective][]string{},
		Requests: map[battle.Side]battle.Request{},
	}
	for _, p := range perspectives {
		v := x.views[p]
		res.Chunks[p] = v.chunks
		for _, c := range v.chunks {
			g.emit(ctx, Entry{Kind: EntryPokemon, Pokemon: &PokemonEntry{
				Event:       PokemonChunk,
				BattleID:    st.BattleID,
				Perspective: p.String(),
				Chunk:       c,
				Square:      st.Square,
			}})
		}
		if v.request != nil && p != battle.PerspectiveOmniscient {
			res.Requests[v.request.Side.ID] = *v.request
		}
	}
	if !x.finished() {
		return res, nil
	}
	span.SetAttributes(attribute.String("battle.winner", string(x.winner())))
	res.Pending = false
	res.Requests = nil
	verdict, ending := g.settle(ctx, x)
	res.Verdict = &verdict
	res.Ending = ending
	return res, nil
}

// settle applies a finished battle: write-back first, then the capture or
// its failure, then the per-move bookkeeping.
func (g *Game) settle(ctx context.Context, x *exchange) (Verdict, *Ending) {
	st := g.stakes
	winner := x.winner()
	v := Verdict{
		Winner:      winner,
		AttackerWon: winner == battle.SideAttacker,
		Field:       x.field,
	}
	g.emit(ctx, Entry{Kind: EntryPokemon, Pokemon: &PokemonEntry{
		Event:    PokemonVictory,
		BattleID: st.BattleID,
		Square:   st.Square,
		Winner:   winner,
	}})
	v.Deltas = g.modifiers.WriteBack(st.Square, x.field, g.writeBack)
	g.emitDeltas(ctx, v.Deltas)

	entry := ChessEntry{Color: st.Color, Notation: st.Notation, Failed: !v.AttackerWon}
	var fallen piece.Piece
	if v.AttackerWon {
		if err := g.rules.Apply(st.Move); err != nil {
			g.logger.Error("commit capture", zap.String("move", st.Notation), zap.Error(err))
		}
		g.mirror(st.Move)
		fallen = st.Defender
	} else {
		if err := g.rules.Discard(st.Move); err != nil {
			g.logger.Error("discard capture", zap.String("move", st.Notation), zap.Error(err))
		}
		g.pieces.RemovePiece(st.Move.From)
		fallen = st.Attacker
	}
	g.logger.Info("battle settled",
		zap.String("battle", st.BattleID.String()),
		zap.String("move", st.Notation),
		zap.String("winner", string(winner)),
		zap.Bool("captured", v.AttackerWon))

	rec := BattleRecord{
		ID:       st.BattleID,
		Notation: st.Notation,
		Color:    st.Color,
		Square:   st.Square,
		Start:    st.Start,
		History:  append([]battle.Input(nil), st.History...),
		Winner:   winner,
		Field:    x.field,
	}
	g.battles = append(g.battles, rec)
	g.stakes = nil
	g.state = StateIdle

	g.emit(ctx, Entry{Kind: EntryChess, Chess: &entry})
	if g.hooks.OnMoveCommitted != nil {
		g.hooks.OnMoveCommitted(ctx, entry)
	}
	if g.hooks.OnBattleResolved != nil {
		g.hooks.OnBattleResolved(ctx, rec)
	}

	if fallen.Kind == chess.King {
		end := g.end(ctx, ReasonKingCaptured, fallen.Color.Other())
		return v, &end
	}
	return v, g.afterMove(ctx)
}

// afterMove advances the square lifecycle and ends drawn games. Checkmate
// does not end the game: the mated side keeps playing until its king falls.
func (g *Game) afterMove(ctx context.Context) *Ending {
	if g.lifecycle != nil {
		g.emitDeltas(ctx, g.lifecycle.Advance(g.rules.Turn()))
	}
	if st := g.rules.Status(); st.Draw {
		end := g.end(ctx, ReasonDraw, chess.NoColor)
		return &end
	}
	return nil
}

func (g *Game) end(ctx context.Context, reason EndReason, winner chess.Color) Ending {
	end := Ending{Reason: reason, Winner: winner}
	g.ending = &end
	g.state = StateOver
	g.logger.Info("game over", zap.String("reason", string(reason)), zap.String("winner", winner.Name()))
	g.emit(ctx, Entry{Kind: EntryGeneric, Generic: &GenericEntry{Reason: reason, Winner: winner}})
	if g.hooks.OnGameEnded != nil {
		g.hooks.OnGameEnded(ctx, end)
	}
	return end
}

func (g *Game) emitDeltas(ctx context.Context, deltas []weather.Delta) {
	if len(deltas) == 0 {
		return
	}
	g.emit(ctx, Entry{Kind: EntryWeather, Weather: &WeatherEntry{Deltas: deltas}})
}

func (g *Game) emit(ctx context.Context, e Entry) {
	e.Seq = len(g.journal) + 1
	e.At = g.now()
	g.journal = append(g.journal, e)
	if g.hooks.OnEntry != nil {
		g.hooks.OnEntry(ctx, e)
	}
}

package pkg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/notnil/chess"
	"go.uber.org/zap"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/config"
	"github.com/qnkhuat/chessmon/pkg/cpu"
	"github.com/qnkhuat/chessmon/pkg/fusion"
	"github.com/qnkhuat/chessmon/pkg/piece"
	"github.com/qnkhuat/chessmon/pkg/rng"
	"github.com/qnkhuat/chessmon/pkg/store"
	"github.com/qnkhuat/chessmon/pkg/teamgen"
	"github.com/qnkhuat/chessmon/pkg/weather"
)

const (
	MessageQueueSize = 20
	watcherQueueSize = 256
	// maxCPUSteps bounds how many CPU actions one incoming message can
	// trigger.
	maxCPUSteps = 64
	cpuName     = "cpu"
)

var (
	errNotSeated   = errors.New("only seated players can do that")
	errDrafting    = errors.New("the draft is not finished")
	errNotDrafting = errors.New("there is no draft running")
)

// startingSquares are the squares a draft fills.
var startingSquares = chess.StartingPosition().Board().SquareMap()

// MatchOptions are the collaborators and knobs of a match.
type MatchOptions struct {
	Engine battle.Engine
	// Store is optional.
	Store     *store.Store
	Logger    *zap.Logger
	Format    string
	Modifiers config.Modifiers
	// Clock is each color's thinking time. Zero disables clocks.
	Clock time.Duration
	// BattleTimeout bounds every battle exchange. Zero means no bound.
	BattleTimeout time.Duration
	// Seed and SecretSeed fix the public and secret random streams. Zero
	// draws a fresh seed.
	Seed       int64
	SecretSeed int64
	// Draft has the players pick their combatants from a shared pool
	// before the first move.
	Draft bool
}

// Match is one game and the players attached to it. Messages from players
// arrive on In and are handled one at a time.
type Match struct {
	Id     string
	// GameId names the stored record of this game. A match id can be
	// played again; every game under it gets a fresh GameId.
	GameId string
	In     chan MessageTransport

	mu         sync.Mutex
	game       *fusion.Game
	players    map[int]*Player
	seats      [2]*Player
	nextId     int
	cpu        *cpu.Player
	gen        *teamgen.Generator
	drafting   bool
	clocks     [2]*Clock
	choices    map[battle.Side]string
	requests   map[battle.Side]battle.Request
	battle     MessageBattle
	mover      chess.Color
	watchers   map[int]chan fusion.Entry
	nextWatch  int
	lastMove   string
	lastActive time.Time

	opts   MatchOptions
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func drawSeed(seed int64) (int64, error) {
	if seed != 0 {
		return seed, nil
	}
	return rng.NewSeed()
}

// NewMatch deals random teams onto a fresh board, or fills a draft pool
// when opts.Draft is set, and places the opening square modifiers.
func NewMatch(ctx context.Context, id string, opts MatchOptions) (*Match, error) {
	seed, err := drawSeed(opts.Seed)
	if err != nil {
		return nil, err
	}
	secretSeed, err := drawSeed(opts.SecretSeed)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("match", id))

	public := rng.New(seed)
	secret := rng.New(secretSeed)
	gen, err := teamgen.New(public)
	if err != nil {
		return nil, err
	}
	pieces := piece.NewManager()
	if opts.Draft {
		err = pieces.PopulateDraftPool(gen, piece.DefaultDraftSize)
	} else {
		err = pieces.PopulateRandomTeams(gen)
	}
	if err != nil {
		return nil, fmt.Errorf("deal teams: %w", err)
	}

	mods := opts.Modifiers
	cfg := weather.DefaultLifecycleConfig
	var storeOpts []weather.Option
	if mods != (config.Modifiers{}) {
		cfg = mods.Lifecycle()
		storeOpts = append(storeOpts, weather.WithDurations(mods.MinDuration, mods.MaxDuration))
	}
	lifecycle := weather.NewLifecycle(weather.NewStore(storeOpts...), public, secret, cfg)

	m := &Match{
		Id:         id,
		GameId:     uuid.NewString(),
		In:         make(chan MessageTransport, MessageQueueSize),
		players:    map[int]*Player{},
		cpu:        cpu.New(rng.New(secretSeed ^ seed)),
		gen:        gen,
		drafting:   opts.Draft,
		clocks:     [2]*Clock{NewClock(opts.Clock, 0), NewClock(opts.Clock, 0)},
		choices:    map[battle.Side]string{},
		watchers:   map[int]chan fusion.Entry{},
		lastActive: time.Now(),
		opts:       opts,
		logger:     logger,
		done:       make(chan struct{}),
	}
	m.game = fusion.New(fusion.Config{
		Engine:            opts.Engine,
		Pieces:            pieces,
		Lifecycle:         lifecycle,
		Public:            public,
		Format:            opts.Format,
		WriteBackDuration: mods.WriteBackDuration,
		Hooks:             m.hooks(),
		Logger:            logger,
	})

	if opts.Store != nil {
		err := opts.Store.CreateGame(ctx, store.Game{ID: m.GameId, Match: id, White: cpuName, Black: cpuName, Seed: seed, StartedAt: time.Now()})
		if err != nil {
			m.cpu.Close()
			return nil, err
		}
	}
	m.game.Setup(ctx)
	logger.Info("match created", zap.String("game", m.GameId), zap.Int64("seed", seed), zap.Int("modifiers", lifecycle.Store().Count()))
	return m, nil
}

// hooks persist and fan out what the game records. They run while the
// match lock is held.
func (m *Match) hooks() fusion.Hooks {
	return fusion.Hooks{
		OnEntry: func(ctx context.Context, e fusion.Entry) {
			if st := m.opts.Store; st != nil {
				if err := st.AppendEntry(ctx, m.GameId, e); err != nil {
					m.logger.Error("persist entry", zap.Int("seq", e.Seq), zap.Error(err))
				}
			}
			for id, ch := range m.watchers {
				select {
				case ch <- e:
				default:
					m.logger.Warn("dropping slow watcher", zap.Int("watcher", id))
					close(ch)
					delete(m.watchers, id)
				}
			}
		},
		OnBattleResolved: func(ctx context.Context, rec fusion.BattleRecord) {
			if st := m.opts.Store; st != nil {
				if err := st.SaveBattle(ctx, m.GameId, rec); err != nil {
					m.logger.Error("persist battle", zap.String("battle", rec.ID.String()), zap.Error(err))
				}
			}
		},
		OnGameEnded: func(ctx context.Context, end fusion.Ending) {
			if st := m.opts.Store; st != nil {
				if err := st.EndGame(ctx, m.GameId, end, time.Now()); err != nil {
					m.logger.Error("persist ending", zap.Error(err))
				}
			}
			m.broadcast(MessageGameOver{Reason: end.Reason, Winner: end.Winner.Name()})
		},
	}
}

// Start handles messages until ctx ends or Close is called.
func (m *Match) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	go m.Run(ctx)
}

func (m *Match) Run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-m.In:
			m.handle(ctx, t)
		case now := <-ticker.C:
			m.checkClocks(ctx, now)
		}
	}
}

// Done is closed once the match stops handling messages.
func (m *Match) Done() <-chan struct{} { return m.done }

// Close stops the match and drops everyone attached to it.
func (m *Match) Close() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.players {
		p.Disconnect()
		delete(m.players, id)
	}
	m.seats = [2]*Player{}
	for id, ch := range m.watchers {
		close(ch)
		delete(m.watchers, id)
	}
	if err := m.cpu.Close(); err != nil && !errors.Is(err, cpu.ErrClosed) {
		m.logger.Warn("close cpu", zap.Error(err))
	}
}

// Idle reports whether nobody is attached and nothing happened since cutoff.
func (m *Match) Idle(cutoff time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players) == 0 && len(m.watchers) == 0 && m.lastActive.Before(cutoff)
}

// HasFreeSeat reports whether a joining player would get a color.
func (m *Match) HasFreeSeat() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.game.State() != fusion.StateOver && (m.seats[0] == nil || m.seats[1] == nil)
}

// Watch returns the journal so far and a channel of the entries after it.
func (m *Match) Watch() ([]fusion.Entry, <-chan fusion.Entry, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextWatch++
	id := m.nextWatch
	ch := make(chan fusion.Entry, watcherQueueSize)
	m.watchers[id] = ch
	stop := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.watchers[id]; ok {
			close(c)
			delete(m.watchers, id)
		}
	}
	return m.game.Journal(), ch, stop
}

// AddPlayer seats p at the first free color, or as a viewer.
func (m *Match) AddPlayer(ctx context.Context, p *Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextId++
	p.Id = m.nextId
	switch {
	case m.seats[0] == nil:
		p.Color = White
		m.seats[0] = p
	case m.seats[1] == nil:
		p.Color = Black
		m.seats[1] = p
	default:
		p.Color = Viewer
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("%s-%d", p.Color, p.Id)
	}
	m.players[p.Id] = p
	m.lastActive = time.Now()

	p.Send(MessageConnect{MatchId: m.Id, Color: p.Color, Game: m.snapshot(p)})
	if m.game.State() == fusion.StateAwaitingBattle {
		p.Send(m.battleFor(p, nil))
	}
	m.broadcast(MessageChat{Name: "Server", Message: fmt.Sprintf("%s joined as %s", p.Name, p.Color)})
	m.logger.Info("player joined", zap.Int("player", p.Id), zap.String("name", p.Name), zap.Stringer("color", p.Color))
	m.syncClocks(time.Now())
	m.driveCPU(ctx)
}

func (m *Match) removePlayer(p *Player) {
	delete(m.players, p.Id)
	for i, s := range m.seats {
		if s == p {
			m.seats[i] = nil
		}
	}
	p.Disconnect()
	m.broadcast(MessageChat{Name: "Server", Message: fmt.Sprintf("%s left", p.Name)})
	m.logger.Info("player left", zap.Int("player", p.Id), zap.Stringer("color", p.Color))
}

func (m *Match) handle(ctx context.Context, t MessageTransport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActive = time.Now()
	p, ok := m.players[t.PlayerId]
	if !ok {
		return
	}
	var err error
	switch t.MsgType {
	case TypeMessageMove:
		var msg MessageMove
		if err = Decode(t, &msg); err == nil {
			err = m.move(ctx, p, msg.Move)
		}
	case TypeMessageBattleChoice:
		var msg MessageBattleChoice
		if err = Decode(t, &msg); err == nil {
			err = m.choose(ctx, p, msg.Choice)
		}
	case TypeMessageAction:
		var msg MessageAction
		if err = Decode(t, &msg); err == nil {
			err = m.action(ctx, p, msg.Action)
		}
	case TypeMessageChat:
		var msg MessageChat
		if err = Decode(t, &msg); err == nil {
			msg.Name = p.Name
			m.broadcast(msg)
		}
	case TypeMessageDraftPick:
		var msg MessageDraftPick
		if err = Decode(t, &msg); err == nil {
			err = m.draftPick(p, msg.Index, msg.Square)
		}
		if err == nil {
			m.broadcastGame()
		}
	case TypeMessageDraftBan:
		var msg MessageDraftBan
		if err = Decode(t, &msg); err == nil {
			err = m.draftBan(p, msg.Index)
		}
		if err == nil {
			m.broadcastGame()
		}
	case TypeMessageLeave:
		m.removePlayer(p)
	default:
		m.logger.Warn("unexpected message", zap.Stringer("type", t.MsgType), zap.Int("player", p.Id))
	}
	if err != nil {
		p.Send(MessageError{Error: err.Error()})
		return
	}
	m.driveCPU(ctx)
}

func (m *Match) seatOf(c chess.Color) *Player {
	switch c {
	case chess.White:
		return m.seats[0]
	case chess.Black:
		return m.seats[1]
	}
	return nil
}

func (m *Match) clockOf(c chess.Color) *Clock {
	if c == chess.Black {
		return m.clocks[1]
	}
	return m.clocks[0]
}

func (m *Match) hasHumans() bool { return m.seats[0] != nil || m.seats[1] != nil }

func (m *Match) move(ctx context.Context, p *Player, notation string) error {
	c := p.Color.Chess()
	if c == chess.NoColor {
		return errNotSeated
	}
	if m.drafting {
		return errDrafting
	}
	if c != m.game.Rules().Turn() {
		return fmt.Errorf("it is %s's turn", m.game.Rules().Turn().Name())
	}
	return m.submitMove(ctx, notation)
}

func (m *Match) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opts.BattleTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.opts.BattleTimeout)
}

func (m *Match) submitMove(ctx context.Context, notation string) error {
	color := m.game.Rules().Turn()
	bctx, cancel := m.bounded(ctx)
	defer cancel()
	res, err := m.game.SubmitMove(bctx, notation)
	if err != nil {
		return err
	}
	m.lastMove = res.Move.SAN
	if res.Pending {
		stakes, _ := m.game.Stakes()
		m.mover = color
		m.battle = MessageBattle{
			BattleId: stakes.BattleID.String(),
			Square:   stakes.Square.String(),
			Attacker: stakes.Attacker.Pokemon.DisplayName(),
			Defender: stakes.Defender.Pokemon.DisplayName(),
		}
	}
	m.publish(res, color)
	return nil
}

// publish sends a submission's outcome to everyone.
func (m *Match) publish(res fusion.Result, mover chess.Color) {
	now := time.Now()
	if !res.Pending {
		m.clockOf(mover).Tick(now)
	}
	if res.Chunks != nil {
		m.requests = res.Requests
		m.choices = map[battle.Side]string{}
		m.battle.Pending = res.Pending
		if res.Verdict != nil {
			m.battle.Winner = res.Verdict.Winner
		}
		for _, p := range m.players {
			p.Send(m.battleFor(p, res.Chunks))
		}
	}
	m.syncClocks(now)
	m.broadcastGame()
}

// sideOf is the battle side a seat plays in the current battle.
func (m *Match) sideOf(pc PlayerColor) (battle.Side, bool) {
	c := pc.Chess()
	if m.battle.BattleId == "" || c == chess.NoColor {
		return "", false
	}
	if c == m.mover {
		return battle.SideAttacker, true
	}
	return battle.SideDefender, true
}

func (m *Match) sideColor(side battle.Side) chess.Color {
	if side == battle.SideAttacker {
		return m.mover
	}
	return m.mover.Other()
}

// battleFor picks p's perspective of the battle. Viewers see everything.
func (m *Match) battleFor(p *Player, chunks map[battle.Perspective][]string) MessageBattle {
	msg := m.battle
	perspective := battle.PerspectiveOmniscient
	if side, ok := m.sideOf(p.Color); ok {
		msg.Side = side
		perspective = battle.PerspectiveOf(side)
		if req, ok := m.requests[side]; ok && req.NeedsChoice() {
			if _, chosen := m.choices[side]; !chosen {
				msg.Request = &req
			}
		}
	}
	msg.Chunks = chunks[perspective]
	return msg
}

func (m *Match) choose(ctx context.Context, p *Player, choice string) error {
	if m.game.State() != fusion.StateAwaitingBattle {
		return fusion.ErrNoBattle
	}
	side, ok := m.sideOf(p.Color)
	if !ok {
		return errNotSeated
	}
	req, ok := m.requests[side]
	if !ok || !req.NeedsChoice() {
		return fmt.Errorf("no choice requested from %s", side)
	}
	m.choices[side] = choice
	_, err := m.tryExchange(ctx)
	return err
}

// tryExchange runs the battle once every side that owes a choice has one.
// CPU sides choose here.
func (m *Match) tryExchange(ctx context.Context) (bool, error) {
	var inputs []battle.Input
	human := false
	for _, side := range []battle.Side{battle.SideAttacker, battle.SideDefender} {
		req, ok := m.requests[side]
		if !ok || !req.NeedsChoice() {
			continue
		}
		choice, chosen := m.choices[side]
		cpuSide := m.seatOf(m.sideColor(side)) == nil
		if !chosen {
			if !cpuSide {
				return false, nil
			}
			c, err := m.cpu.ChooseBattle(req)
			if err != nil {
				return false, err
			}
			choice = c
		}
		if !cpuSide {
			human = true
		}
		inputs = append(inputs, battle.Choose(side, choice))
	}
	if len(inputs) == 0 {
		return false, nil
	}
	bctx, cancel := m.bounded(ctx)
	defer cancel()
	res, err := m.game.SubmitBattleChoices(bctx, inputs...)
	if err != nil {
		m.choices = map[battle.Side]string{}
		if errors.Is(err, fusion.ErrInvalidChoice) && !human {
			// The CPU cannot get out of this one; it gives the battle up.
			side := inputs[0].Side
			m.logger.Warn("cpu choice rejected, forfeiting", zap.String("side", string(side)), zap.Error(err))
			return m.forfeit(ctx, side)
		}
		for _, p := range m.players {
			if _, ok := m.sideOf(p.Color); ok {
				p.Send(m.battleFor(p, nil))
			}
		}
		return false, err
	}
	m.publish(res, m.mover)
	return true, nil
}

func (m *Match) forfeit(ctx context.Context, side battle.Side) (bool, error) {
	bctx, cancel := m.bounded(ctx)
	defer cancel()
	res, err := m.game.Forfeit(bctx, side)
	if err != nil {
		return false, err
	}
	m.publish(res, m.mover)
	return true, nil
}

func (m *Match) action(ctx context.Context, p *Player, a Action) error {
	c := p.Color.Chess()
	if c == chess.NoColor {
		return errNotSeated
	}
	switch a {
	case ActionResignYes:
		if _, err := m.game.Resign(ctx, c); err != nil {
			return err
		}
		m.syncClocks(time.Now())
		m.broadcastGame()
	case ActionForfeit:
		side, ok := m.sideOf(p.Color)
		if !ok {
			return fusion.ErrNoBattle
		}
		_, err := m.forfeit(ctx, side)
		return err
	default:
		return fmt.Errorf("unsupported action %q", a)
	}
	return nil
}

// cpuOwes reports whether the running battle only waits on CPU sides.
func (m *Match) cpuOwes() bool {
	owed := false
	for side, req := range m.requests {
		if !req.NeedsChoice() {
			continue
		}
		if m.seatOf(m.sideColor(side)) != nil {
			if _, chosen := m.choices[side]; !chosen {
				return false
			}
			continue
		}
		owed = true
	}
	return owed
}

// driveCPU lets the CPU play empty seats while someone is seated.
func (m *Match) driveCPU(ctx context.Context) {
	if !m.hasHumans() {
		return
	}
	drafted := false
	defer func() {
		if drafted {
			m.broadcastGame()
		}
	}()
	for i := 0; i < maxCPUSteps; i++ {
		if m.drafting {
			if !m.cpuDraft() {
				return
			}
			drafted = true
			continue
		}
		switch m.game.State() {
		case fusion.StateIdle:
			if m.seatOf(m.game.Rules().Turn()) != nil {
				return
			}
			mv, err := m.cpu.ChooseMove(m.game.Rules(), m.game.Pieces())
			if err != nil {
				m.logger.Warn("cpu has no move", zap.Error(err))
				return
			}
			if err := m.submitMove(ctx, mv.UCI); err != nil {
				m.logger.Error("cpu move failed", zap.String("move", mv.UCI), zap.Error(err))
				return
			}
		case fusion.StateAwaitingBattle:
			if !m.cpuOwes() {
				return
			}
			if ok, err := m.tryExchange(ctx); !ok {
				if err != nil {
					m.logger.Error("cpu battle choice failed", zap.Error(err))
				}
				return
			}
		default:
			return
		}
	}
}

// syncClocks runs the clock of the side to move while no battle is running.
func (m *Match) syncClocks(now time.Time) {
	turn := m.game.Rules().Turn()
	for _, c := range []chess.Color{chess.White, chess.Black} {
		if m.game.State() == fusion.StateIdle && !m.drafting && c == turn && m.hasHumans() {
			m.clockOf(c).Start(now)
		} else {
			m.clockOf(c).Pause(now)
		}
	}
}

// checkClocks ends the game when the side to move runs out of time.
func (m *Match) checkClocks(ctx context.Context, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.game.State() != fusion.StateIdle || m.drafting {
		return
	}
	turn := m.game.Rules().Turn()
	if !m.clockOf(turn).Expired(now) {
		return
	}
	m.logger.Info("flag fell", zap.String("color", turn.Name()))
	if _, err := m.game.Resign(ctx, turn); err != nil {
		m.logger.Error("end on time", zap.Error(err))
		return
	}
	m.syncClocks(now)
	m.broadcastGame()
}

func (m *Match) broadcast(msg MessageInterface) {
	for _, p := range m.players {
		p.Send(msg)
	}
}

func (m *Match) broadcastGame() {
	for _, p := range m.players {
		p.Send(m.snapshot(p))
	}
}

func (m *Match) snapshot(p *Player) MessageGame {
	rules := m.game.Rules()
	now := time.Now()
	msg := MessageGame{
		Fen:      rules.FEN(),
		IsTurn:   m.game.State() == fusion.StateIdle && !m.drafting && p.Color.Chess() == rules.Turn(),
		State:    m.game.State().String(),
		LastMove: m.lastMove,
		White:    cpuName,
		Black:    cpuName,
		Clocks:   [2]int{int(m.clocks[0].Remaining(now).Seconds()), int(m.clocks[1].Remaining(now).Seconds())},
	}
	if s := m.seats[0]; s != nil {
		msg.White = s.Name
	}
	if s := m.seats[1]; s != nil {
		msg.Black = s.Name
	}
	for _, pc := range m.game.Pieces().Live() {
		msg.Pieces = append(msg.Pieces, pieceInfo(pc))
	}
	for _, pc := range m.game.Pieces().TakenPieces() {
		msg.Taken = append(msg.Taken, pieceInfo(pc))
	}
	if m.drafting {
		msg.State, msg.Drafting = "drafting", true
		msg.Draft, msg.Banned = m.draftInfo()
	}
	for _, sm := range m.game.Modifiers().Squares() {
		info := ModifierInfo{Square: sm.Square.String()}
		if w, ok := sm.Weather(); ok {
			info.Weather, info.WeatherTurns = string(w.Kind), w.Duration
		}
		if t, ok := sm.Terrain(); ok {
			info.Terrain, info.TerrainTurns = string(t.Kind), t.Duration
		}
		msg.Modifiers = append(msg.Modifiers, info)
	}
	return msg
}

func pieceInfo(pc piece.Piece) PieceInfo {
	info := PieceInfo{
		Color:   pc.Color.Name(),
		Species: pc.Pokemon.Species,
		Name:    pc.Pokemon.DisplayName(),
		Level:   pc.Pokemon.Level,
		Tier:    piece.TierFor(pc.Kind).String(),
	}
	if pc.OnBoard() {
		info.Square = pc.Square.String()
	}
	return info
}

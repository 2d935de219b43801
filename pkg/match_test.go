package pkg

import (
	"context"
	"testing"

	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/battle/battletest"
	"github.com/qnkhuat/chessmon/pkg/fusion"
)

func newTestMatch(t *testing.T, eng battle.Engine) *Match {
	t.Helper()
	m, err := NewMatch(context.Background(), "test-match", MatchOptions{Engine: eng, Seed: 7, SecretSeed: 11})
	if err != nil {
		t.Fatalf("NewMatch() error = %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func join(t *testing.T, m *Match, name string) *Player {
	t.Helper()
	p := NewPlayer(nil, nil)
	p.Name = name
	m.AddPlayer(context.Background(), p)
	return p
}

// received drains everything queued for p.
func received(p *Player) []MessageTransport {
	var out []MessageTransport
	for {
		select {
		case t := <-p.Out:
			out = append(out, t)
		default:
			return out
		}
	}
}

func ofType(msgs []MessageTransport, typ MessageType) []MessageTransport {
	var out []MessageTransport
	for _, m := range msgs {
		if m.MsgType == typ {
			out = append(out, m)
		}
	}
	return out
}

func send(t *testing.T, m *Match, p *Player, msg MessageInterface) {
	t.Helper()
	tr, err := Wrap(msg)
	if err != nil {
		t.Fatal(err)
	}
	tr.PlayerId = p.Id
	m.handle(context.Background(), tr)
}

func TestMatch_Seats(t *testing.T) {
	m := newTestMatch(t, &battletest.Engine{})
	white := join(t, m, "alice")
	black := join(t, m, "bob")
	viewer := join(t, m, "carol")

	for _, tc := range []struct {
		p    *Player
		want PlayerColor
	}{{white, White}, {black, Black}, {viewer, Viewer}} {
		if tc.p.Color != tc.want {
			t.Errorf("%s color = %v, want %v", tc.p.Name, tc.p.Color, tc.want)
		}
		msgs := received(tc.p)
		if len(msgs) == 0 || msgs[0].MsgType != TypeMessageConnect {
			t.Fatalf("%s first message = %v, want connect", tc.p.Name, msgs)
		}
		var c MessageConnect
		if err := Decode(msgs[0], &c); err != nil {
			t.Fatal(err)
		}
		if c.MatchId != "test-match" || c.Color != tc.want || len(c.Game.Pieces) != 32 {
			t.Fatalf("%s connect = %+v", tc.p.Name, c)
		}
	}
	if m.HasFreeSeat() {
		t.Fatal("HasFreeSeat() = true with both colors taken")
	}
}

func TestMatch_CPUAnswersQuietMove(t *testing.T) {
	m := newTestMatch(t, &battletest.Engine{})
	white := join(t, m, "alice")
	received(white)

	send(t, m, white, MessageMove{Move: "e2e4"})

	if got := m.game.Rules().Turn(); got != chess.White {
		t.Fatalf("turn = %v, want White after the cpu reply", got)
	}
	var moves int
	for _, e := range m.game.Journal() {
		if e.Kind == fusion.EntryChess {
			moves++
		}
	}
	if moves != 2 {
		t.Fatalf("chess entries = %d, want 2", moves)
	}
	games := ofType(received(white), TypeMessageGame)
	if len(games) < 2 {
		t.Fatalf("game snapshots = %d, want at least 2", len(games))
	}
	var last MessageGame
	if err := Decode(games[len(games)-1], &last); err != nil {
		t.Fatal(err)
	}
	if !last.IsTurn || last.Black != cpuName {
		t.Fatalf("last snapshot = %+v, want white to move against the cpu", last)
	}
}

func TestMatch_RejectsOutOfTurnAndViewers(t *testing.T) {
	m := newTestMatch(t, &battletest.Engine{})
	white := join(t, m, "alice")
	black := join(t, m, "bob")
	viewer := join(t, m, "carol")
	received(white)
	received(black)
	received(viewer)

	send(t, m, black, MessageMove{Move: "e7e5"})
	send(t, m, viewer, MessageMove{Move: "e2e4"})
	send(t, m, white, MessageMove{Move: "e2e5"})

	for _, p := range []*Player{black, viewer, white} {
		if errs := ofType(received(p), TypeMessageError); len(errs) != 1 {
			t.Errorf("%s errors = %d, want 1", p.Name, len(errs))
		}
	}
	if got := m.game.Rules().FEN(); got != chess.StartingPosition().String() {
		t.Fatalf("position changed to %s", got)
	}
}

func TestMatch_BattleBetweenHumans(t *testing.T) {
	eng := &battletest.Engine{Winner: battle.SideAttacker, Turns: 1}
	m := newTestMatch(t, eng)
	white := join(t, m, "alice")
	black := join(t, m, "bob")

	send(t, m, white, MessageMove{Move: "e2e4"})
	send(t, m, black, MessageMove{Move: "d7d5"})
	received(white)
	received(black)

	send(t, m, white, MessageMove{Move: "e4d5"})
	if m.game.State() != fusion.StateAwaitingBattle {
		t.Fatalf("state = %v, want awaiting battle", m.game.State())
	}
	for _, tc := range []struct {
		p    *Player
		side battle.Side
	}{{white, battle.SideAttacker}, {black, battle.SideDefender}} {
		battles := ofType(received(tc.p), TypeMessageBattle)
		if len(battles) != 1 {
			t.Fatalf("%s battle messages = %d, want 1", tc.p.Name, len(battles))
		}
		var b MessageBattle
		if err := Decode(battles[0], &b); err != nil {
			t.Fatal(err)
		}
		if b.Side != tc.side || b.Request == nil || !b.Pending || b.Square != "d5" || len(b.Chunks) == 0 {
			t.Fatalf("%s battle = %+v", tc.p.Name, b)
		}
	}

	send(t, m, white, MessageBattleChoice{Choice: "move 1"})
	if m.game.State() != fusion.StateAwaitingBattle {
		t.Fatal("battle ran before the defender chose")
	}
	send(t, m, black, MessageBattleChoice{Choice: "move 1"})

	if m.game.State() != fusion.StateIdle {
		t.Fatalf("state = %v, want idle after the battle", m.game.State())
	}
	if p := m.game.Rules().Board().Piece(chess.D5); p != chess.WhitePawn {
		t.Fatalf("d5 = %v, want the capturing white pawn", p)
	}
	battles := ofType(received(black), TypeMessageBattle)
	if len(battles) != 1 {
		t.Fatalf("defender battle messages = %d, want 1", len(battles))
	}
	var b MessageBattle
	if err := Decode(battles[0], &b); err != nil {
		t.Fatal(err)
	}
	if b.Pending || b.Winner != battle.SideAttacker || b.Request != nil {
		t.Fatalf("settled battle = %+v", b)
	}
	if recs := m.game.Battles(); len(recs) != 1 {
		t.Fatalf("battle records = %d, want 1", len(recs))
	}
}

func TestMatch_ChoiceWithoutBattle(t *testing.T) {
	m := newTestMatch(t, &battletest.Engine{})
	white := join(t, m, "alice")
	received(white)

	send(t, m, white, MessageBattleChoice{Choice: "move 1"})
	if errs := ofType(received(white), TypeMessageError); len(errs) != 1 {
		t.Fatalf("errors = %d, want 1", len(errs))
	}
}

func TestMatch_Resign(t *testing.T) {
	m := newTestMatch(t, &battletest.Engine{})
	white := join(t, m, "alice")
	black := join(t, m, "bob")
	received(white)

	send(t, m, black, MessageAction{Action: ActionResignYes})

	end, ok := m.game.Ending()
	if !ok || end.Reason != fusion.ReasonResigned || end.Winner != chess.White {
		t.Fatalf("ending = %+v, %v", end, ok)
	}
	overs := ofType(received(white), TypeMessageGameOver)
	if len(overs) != 1 {
		t.Fatalf("game over messages = %d, want 1", len(overs))
	}
	if m.HasFreeSeat() {
		t.Fatal("a finished match offers a seat")
	}
}

func TestMatch_Watch(t *testing.T) {
	m := newTestMatch(t, &battletest.Engine{})
	backlog, entries, stop := m.Watch()
	defer stop()
	if len(backlog) == 0 || backlog[0].Kind != fusion.EntryWeather {
		t.Fatalf("backlog = %+v, want the opening modifiers", backlog)
	}

	white := join(t, m, "alice")
	send(t, m, white, MessageMove{Move: "e2e4"})

	var chessSeen bool
	for len(entries) > 0 {
		e := <-entries
		if e.Seq <= len(backlog) {
			t.Fatalf("entry %d repeats the backlog", e.Seq)
		}
		if e.Kind == fusion.EntryChess && e.Chess.Notation == "e4" {
			chessSeen = true
		}
	}
	if !chessSeen {
		t.Fatal("watcher never saw e4")
	}
}

func TestMatch_LeaveFreesSeat(t *testing.T) {
	m := newTestMatch(t, &battletest.Engine{})
	join(t, m, "alice")
	black := join(t, m, "bob")
	if m.HasFreeSeat() {
		t.Fatal("seats should be full")
	}
	m.handle(context.Background(), MessageTransport{MsgType: TypeMessageLeave, PlayerId: black.Id})
	if !m.HasFreeSeat() {
		t.Fatal("leaving did not free the seat")
	}
	for range black.Out {
	}
	if _, open := <-black.Out; open {
		t.Fatal("leaving player's queue is still open")
	}
}

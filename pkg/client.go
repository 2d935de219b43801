package pkg

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/notnil/chess"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/chessrules"
	"github.com/qnkhuat/chessmon/pkg/gui"
)

type Client struct {
	App    *tview.Application
	Board  *tview.Table
	Info   *tview.TextView
	Log    *tview.TextView
	Input  *tview.InputField
	Layout *tview.Grid
	Conn   net.Conn
	Out    chan MessageTransport
	Color  PlayerColor

	matchId       string
	rules         *chessrules.Game
	squares       map[chess.Square]gui.SquareView
	highlights    map[chess.Square]bool
	selecting     bool
	lastSelection chess.Square
	lastMove      chessrules.Move
	fight         chess.Square
	request       *battle.Request
	theme         gui.Theme
	logger        *zap.Logger
}

func NewClient(theme gui.Theme, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := tview.NewApplication()
	cl := &Client{
		App:        app,
		Board:      tview.NewTable(),
		Info:       tview.NewTextView().SetDynamicColors(true),
		Log:        tview.NewTextView().SetDynamicColors(true).SetScrollable(true),
		Input:      tview.NewInputField().SetLabel("> "),
		Out:        make(chan MessageTransport, ConnQueueSize),
		Color:      Unknown,
		rules:      chessrules.NewGame(),
		squares:    map[chess.Square]gui.SquareView{},
		highlights: map[chess.Square]bool{},
		fight:      chess.NoSquare,
		theme:      theme,
		logger:     logger,
	}
	cl.lastMove.From, cl.lastMove.To = chess.NoSquare, chess.NoSquare

	resignBtn := tview.NewButton("Resign").SetSelectedFunc(func() {
		cl.send(MessageAction{Action: ActionResignYes})
	})
	forfeitBtn := tview.NewButton("Forfeit").SetSelectedFunc(func() {
		cl.send(MessageAction{Action: ActionForfeit})
	})
	gameOptions := tview.NewGrid().
		SetColumns(10, 10).
		SetRows(3, -1).
		AddItem(resignBtn, 0, 0, 1, 1, 0, 0, false).
		AddItem(forfeitBtn, 0, 1, 1, 1, 0, 0, false).
		AddItem(cl.Info, 1, 0, 1, 2, 0, 0, false)

	cl.Layout = tview.NewGrid().
		SetRows(11, -1, 1).
		SetColumns(30, -1).
		AddItem(cl.Board, 0, 0, 1, 1, 0, 0, true).
		AddItem(gameOptions, 0, 1, 1, 1, 0, 0, false).
		AddItem(cl.Log, 1, 0, 1, 2, 0, 0, false).
		AddItem(cl.Input, 2, 0, 1, 2, 0, 0, false)

	cl.initTable()
	cl.initInput()
	return cl
}

func (cl *Client) initTable() {
	cl.render()
	cl.Board.SetSelectable(true, true)
	cl.Board.Select(0, 1).SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEscape:
			cl.App.Stop()
		case tcell.KeyTab:
			cl.App.SetFocus(cl.Input)
		}
	}).SetSelectionChangedFunc(func(row, col int) {
		if sq, ok := gui.CellSquare(row, col, cl.Color == Black); ok {
			cl.Info.SetText(gui.DescribeSquare(sq, cl.squares[sq]))
		}
	}).SetSelectedFunc(func(row, col int) {
		sq, ok := gui.CellSquare(row, col, cl.Color == Black)
		if !ok {
			return
		}
		cl.selectSquare(sq)
		cl.render()
	})
}

func (cl *Client) initInput() {
	cl.Input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyTab, tcell.KeyEscape:
			cl.App.SetFocus(cl.Board)
			return
		case tcell.KeyEnter:
		default:
			return
		}
		text := strings.TrimSpace(cl.Input.GetText())
		cl.Input.SetText("")
		if text == "" {
			return
		}
		switch {
		case text == "/resign":
			cl.send(MessageAction{Action: ActionResignYes})
		case text == "/forfeit":
			cl.send(MessageAction{Action: ActionForfeit})
		case strings.HasPrefix(text, "/pick "):
			var idx int
			var square string
			if _, err := fmt.Sscanf(text, "/pick %d %s", &idx, &square); err != nil {
				cl.logf("[red]usage: /pick <index> <square>[white]")
				return
			}
			cl.send(MessageDraftPick{Index: idx, Square: square})
		case strings.HasPrefix(text, "/ban "):
			var idx int
			if _, err := fmt.Sscanf(text, "/ban %d", &idx); err != nil {
				cl.logf("[red]usage: /ban <index>[white]")
				return
			}
			cl.send(MessageDraftBan{Index: idx})
		case strings.HasPrefix(text, "/say "):
			cl.send(MessageChat{Message: strings.TrimPrefix(text, "/say ")})
		case cl.request != nil:
			cl.send(MessageBattleChoice{Choice: text})
			cl.request = nil
		default:
			cl.send(MessageChat{Message: text})
		}
	})
}

// selectSquare picks a piece on the first press and a destination on the
// second.
func (cl *Client) selectSquare(sq chess.Square) {
	if !cl.selecting {
		cl.highlights[sq] = true
		cl.selecting = true
		cl.lastSelection = sq
		return
	}
	from := cl.lastSelection
	delete(cl.highlights, from)
	cl.selecting = false
	cl.lastSelection = chess.NoSquare
	if sq == from {
		return
	}
	uci := from.String() + sq.String()
	m, ok := cl.rules.Find(uci, true)
	if !ok {
		// Promotions default to a queen.
		m, ok = cl.rules.Find(uci+"q", true)
	}
	if !ok {
		cl.logf("[red]illegal move %s[white]", uci)
		return
	}
	cl.logger.Info("move", zap.String("uci", m.UCI))
	cl.send(MessageMove{Move: m.UCI})
}

func (cl *Client) render() {
	gui.DrawBoard(cl.Board, gui.BoardView{
		Squares:  cl.squares,
		Selected: cl.highlights,
		Fight:    cl.fight,
		LastFrom: cl.lastMove.From,
		LastTo:   cl.lastMove.To,
		Flip:     cl.Color == Black,
	}, cl.theme)
}

func (cl *Client) logf(format string, args ...any) {
	fmt.Fprintf(cl.Log, format+"\n", args...)
	cl.Log.ScrollToEnd()
}

func (cl *Client) send(m MessageInterface) {
	t, err := Wrap(m)
	if err != nil {
		cl.logger.Error("wrap", zap.Error(err))
		return
	}
	cl.Out <- t
}

// Connect dials the server and sends the join line.
func (cl *Client) Connect(addr string, join MessageJoin) error {
	cl.logger.Info("connecting", zap.String("addr", addr), zap.String("match", join.MatchId))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	t, err := Wrap(join)
	if err != nil {
		conn.Close()
		return err
	}
	b, err := Encode(t)
	if err != nil {
		conn.Close()
		return err
	}
	if _, err := conn.Write(b); err != nil {
		conn.Close()
		return err
	}
	cl.Conn = conn
	return nil
}

func (cl *Client) HandleWrite() {
	for t := range cl.Out {
		b, err := Encode(t)
		if err != nil {
			cl.logger.Error("encode", zap.Error(err))
			continue
		}
		if _, err := cl.Conn.Write(b); err != nil {
			cl.logger.Error("write", zap.Error(err))
			return
		}
	}
}

func (cl *Client) HandleRead() {
	scanner := bufio.NewScanner(cl.Conn)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		var t MessageTransport
		if err := json.Unmarshal(scanner.Bytes(), &t); err != nil {
			cl.logger.Warn("malformed line", zap.Error(err))
			continue
		}
		cl.App.QueueUpdateDraw(func() { cl.dispatch(t) })
	}
	cl.App.QueueUpdateDraw(func() { cl.logf("[red]disconnected[white]") })
}

func (cl *Client) dispatch(t MessageTransport) {
	var err error
	switch t.MsgType {
	case TypeMessageConnect:
		var msg MessageConnect
		if err = Decode(t, &msg); err == nil {
			cl.Color = msg.Color
			cl.matchId = msg.MatchId
			cl.logf("joined [yellow]%s[white] as %s", msg.MatchId, msg.Color)
			cl.applyGame(msg.Game)
		}
	case TypeMessageGame:
		var msg MessageGame
		if err = Decode(t, &msg); err == nil {
			cl.applyGame(msg)
		}
	case TypeMessageBattle:
		var msg MessageBattle
		if err = Decode(t, &msg); err == nil {
			cl.applyBattle(msg)
		}
	case TypeMessageChat:
		var msg MessageChat
		if err = Decode(t, &msg); err == nil {
			cl.logf("[::b]%s[::-]: %s", msg.Name, tview.Escape(msg.Message))
		}
	case TypeMessageGameOver:
		var msg MessageGameOver
		if err = Decode(t, &msg); err == nil {
			cl.logf("[yellow]game over: %s, %s wins[white]", gui.Headline(string(msg.Reason)), msg.Winner)
		}
	case TypeMessageError:
		var msg MessageError
		if err = Decode(t, &msg); err == nil {
			cl.logf("[red]%s[white]", tview.Escape(msg.Error))
		}
	default:
		cl.logger.Warn("unknown message", zap.Stringer("type", t.MsgType))
	}
	if err != nil {
		cl.logger.Warn("decode", zap.Error(err))
	}
}

func (cl *Client) applyGame(msg MessageGame) {
	rules, err := chessrules.FromFEN(msg.Fen)
	if err != nil {
		cl.logger.Error("bad fen", zap.String("fen", msg.Fen), zap.Error(err))
		return
	}
	fresh := false
	if msg.LastMove != "" {
		// A move the old position knows is one we have not seen yet.
		if m, ok := cl.rules.Find(msg.LastMove, true); ok {
			cl.lastMove, fresh = m, true
		}
	}
	cl.rules = rules
	board := rules.Board()
	squares := map[chess.Square]gui.SquareView{}
	for _, p := range msg.Pieces {
		sq := parseSquare(p.Square)
		squares[sq] = gui.SquareView{Piece: board.Piece(sq), Species: p.Species, Level: p.Level, Tier: p.Tier}
	}
	for _, m := range msg.Modifiers {
		sq := parseSquare(m.Square)
		sv := squares[sq]
		sv.Weather, sv.WeatherTurns = m.Weather, m.WeatherTurns
		sv.Terrain, sv.TerrainTurns = m.Terrain, m.TerrainTurns
		squares[sq] = sv
	}
	for sq, p := range board.SquareMap() {
		sv := squares[sq]
		sv.Piece = p
		squares[sq] = sv
	}
	cl.squares = squares
	if msg.State != "awaiting-battle" {
		cl.fight = chess.NoSquare
	}
	if fresh {
		cl.logf("%s  [grey](%s %s, %s %s)[white]", msg.LastMove, msg.White, clockText(msg.Clocks[0]), msg.Black, clockText(msg.Clocks[1]))
	}
	if msg.IsTurn {
		cl.Info.SetText("your move")
	}
	if msg.Drafting {
		cl.Info.SetText(draftText(msg.Draft))
	}
	cl.render()
}

// draftText lists the pool for /pick and /ban.
func draftText(pool []DraftInfo) string {
	var b strings.Builder
	b.WriteString("draft: /pick <index> <square>, /ban <index>\n")
	for _, d := range pool {
		fmt.Fprintf(&b, "%2d %s L%d (%s)\n", d.Index, d.Name, d.Level, gui.Headline(d.Tier))
	}
	return b.String()
}

func clockText(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func (cl *Client) applyBattle(msg MessageBattle) {
	cl.fight = parseSquare(msg.Square)
	for _, chunk := range msg.Chunks {
		for _, ev := range battle.ParseChunk(chunk) {
			switch ev.Kind() {
			case battle.KindRequest, battle.KindSpacer:
				continue
			}
			cl.logf("[grey]%s[white]", tview.Escape(ev.Line()))
		}
	}
	cl.request = msg.Request
	if msg.Request != nil {
		cl.logf("[yellow]%s vs %s: choose (%s)[white]", msg.Attacker, msg.Defender, requestHint(*msg.Request))
		cl.App.SetFocus(cl.Input)
	}
	if msg.Winner != "" {
		verdict := "lost"
		if msg.Winner == msg.Side {
			verdict = "won"
		}
		if msg.Side == "" {
			verdict = "ended, " + string(msg.Winner) + " won"
		}
		cl.logf("[yellow]battle on %s %s[white]", msg.Square, verdict)
		cl.fight = chess.NoSquare
	}
	cl.render()
}

// requestHint lists the answers a request accepts.
func requestHint(req battle.Request) string {
	switch {
	case req.TeamPreview:
		return "team 1"
	case len(req.ForceSwitch) > 0:
		return "default"
	}
	var opts []string
	for _, slot := range req.EnabledMoves() {
		name := req.Active[0].Moves[slot-1].Move
		opts = append(opts, fmt.Sprintf("move %d: %s", slot, name))
	}
	return strings.Join(opts, ", ")
}

func (cl *Client) Disconnect() {
	if cl.Conn != nil {
		cl.Conn.Close()
	}
}

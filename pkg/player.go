package pkg

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"

	"github.com/notnil/chess"
	"go.uber.org/zap"
)

const ConnQueueSize = 64

type PlayerColor int

const (
	White PlayerColor = iota
	Black
	Viewer
	Unknown
)

func (pc PlayerColor) String() string {
	switch pc {
	case White:
		return "White"
	case Black:
		return "Black"
	case Viewer:
		return "Viewer"
	default:
		return "Unknown"
	}
}

// Chess maps a seat to its chess color. Viewers have none.
func (pc PlayerColor) Chess() chess.Color {
	switch pc {
	case White:
		return chess.White
	case Black:
		return chess.Black
	default:
		return chess.NoColor
	}
}

type Player struct {
	Conn  net.Conn
	Color PlayerColor
	Out   chan MessageTransport
	Id    int
	Name  string

	scanner *bufio.Scanner
	logger  *zap.Logger
	once    sync.Once
}

func NewPlayer(conn net.Conn, logger *zap.Logger) *Player {
	p := &Player{
		Conn:   conn,
		Color:  Unknown,
		Out:    make(chan MessageTransport, ConnQueueSize),
		logger: logger,
	}
	if conn != nil {
		p.scanner = bufio.NewScanner(conn)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// ReadJoin reads the join line a client opens with.
func (p *Player) ReadJoin() (MessageJoin, error) {
	var join MessageJoin
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return join, err
		}
		return join, net.ErrClosed
	}
	var t MessageTransport
	if err := json.Unmarshal(p.scanner.Bytes(), &t); err != nil {
		return join, err
	}
	err := Decode(t, &join)
	return join, err
}

// HandleRead forwards every line to in, tagged with the player id, until
// the connection ends or done is closed. A MessageLeave follows the last
// line.
func (p *Player) HandleRead(in chan<- MessageTransport, done <-chan struct{}) {
	forward := func(t MessageTransport) bool {
		t.PlayerId = p.Id
		select {
		case in <- t:
			return true
		case <-done:
			return false
		}
	}
	for p.scanner.Scan() {
		var t MessageTransport
		if err := json.Unmarshal(p.scanner.Bytes(), &t); err != nil {
			p.logger.Warn("drop malformed line", zap.Int("player", p.Id), zap.Error(err))
			continue
		}
		if !forward(t) {
			return
		}
	}
	forward(MessageTransport{MsgType: TypeMessageLeave})
}

func (p *Player) HandleWrite() {
	for t := range p.Out {
		b, err := Encode(t)
		if err != nil {
			p.logger.Error("encode message", zap.Stringer("type", t.MsgType), zap.Error(err))
			continue
		}
		if _, err := p.Conn.Write(b); err != nil {
			p.logger.Warn("write failed", zap.Int("player", p.Id), zap.Stringer("type", t.MsgType), zap.Error(err))
		}
	}
}

// Send queues m. A full queue drops the message rather than stall the match.
func (p *Player) Send(m MessageInterface) {
	t, err := Wrap(m)
	if err != nil {
		p.logger.Error("wrap message", zap.Error(err))
		return
	}
	select {
	case p.Out <- t:
	default:
		p.logger.Warn("player queue full", zap.Int("player", p.Id), zap.Stringer("type", t.MsgType))
	}
}

func (p *Player) Disconnect() {
	p.once.Do(func() {
		close(p.Out)
		if p.Conn != nil {
			p.Conn.Close()
		}
	})
}

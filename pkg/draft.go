package pkg

import (
	"fmt"
	"sort"
	"time"

	"github.com/notnil/chess"
	"go.uber.org/zap"
)

// draftPick binds pool entry idx to sq for p's color. Both players draft at
// the same time, so an index that is no longer in the pool is ignored.
func (m *Match) draftPick(p *Player, idx int, square string) error {
	c := p.Color.Chess()
	if c == chess.NoColor {
		return errNotSeated
	}
	if !m.drafting {
		return errNotDrafting
	}
	sq := parseSquare(square)
	start, ok := startingSquares[sq]
	if !ok || start.Color() != c {
		return fmt.Errorf("%s is not a %s starting square", square, c.Name())
	}
	if _, taken := m.game.Pieces().PieceAt(sq); taken {
		return fmt.Errorf("%s is already drafted", square)
	}
	pc, ok := m.game.Pieces().AssignDraftPieceToSquare(idx, sq, start.Type(), c)
	if !ok {
		m.logger.Debug("stale draft pick", zap.Int("player", p.Id), zap.Int("index", idx))
		return nil
	}
	m.logger.Info("drafted", zap.String("square", square), zap.String("pokemon", pc.Pokemon.DisplayName()))
	m.finishDraft()
	return nil
}

// draftBan removes pool entry idx. A stale index is ignored; a ban that
// would leave too few entries to fill the board is refused.
func (m *Match) draftBan(p *Player, idx int) error {
	if p.Color.Chess() == chess.NoColor {
		return errNotSeated
	}
	if !m.drafting {
		return errNotDrafting
	}
	pieces := m.game.Pieces()
	available := len(pieces.Draft().Available)
	if idx < 0 || idx >= available {
		m.logger.Debug("stale draft ban", zap.Int("player", p.Id), zap.Int("index", idx))
		return nil
	}
	open := len(m.openSquares(chess.White)) + len(m.openSquares(chess.Black))
	if available <= open {
		return fmt.Errorf("only %d entries left for %d squares", available, open)
	}
	pieces.BanDraftPiece(idx)
	return nil
}

// openSquares are c's starting squares nobody has drafted for yet.
func (m *Match) openSquares(c chess.Color) []chess.Square {
	var out []chess.Square
	for sq, pc := range startingSquares {
		if pc.Color() != c {
			continue
		}
		if _, ok := m.game.Pieces().PieceAt(sq); !ok {
			out = append(out, sq)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// cpuDraft makes one pick for a color nobody sits at. It reports false when
// the CPU has nothing to pick.
func (m *Match) cpuDraft() bool {
	for _, c := range []chess.Color{chess.White, chess.Black} {
		if m.seatOf(c) != nil {
			continue
		}
		open := m.openSquares(c)
		if len(open) == 0 {
			continue
		}
		idx, err := m.cpu.ChooseDraft(m.game.Pieces().Draft().Available)
		if err != nil {
			m.logger.Warn("cpu cannot draft", zap.Error(err))
			return false
		}
		sq := open[0]
		if _, ok := m.game.Pieces().AssignDraftPieceToSquare(idx, sq, startingSquares[sq].Type(), c); !ok {
			return false
		}
		m.finishDraft()
		return true
	}
	return false
}

// finishDraft starts play once every starting square has a combatant.
func (m *Match) finishDraft() {
	if !m.drafting || len(m.openSquares(chess.White))+len(m.openSquares(chess.Black)) > 0 {
		return
	}
	m.drafting = false
	m.logger.Info("draft complete", zap.Int("left", len(m.game.Pieces().Draft().Available)))
	m.broadcast(MessageChat{Name: "Server", Message: "draft complete, white to move"})
	m.syncClocks(time.Now())
}

// draftInfo lists the pool and the banned species.
func (m *Match) draftInfo() ([]DraftInfo, []string) {
	pool := m.game.Pieces().Draft()
	var draft []DraftInfo
	for i, c := range pool.Available {
		draft = append(draft, DraftInfo{
			Index:   i,
			Species: c.Species,
			Name:    c.DisplayName(),
			Level:   c.Level,
			Tier:    m.gen.Tier(c.Species).String(),
		})
	}
	var banned []string
	for _, c := range pool.Banned {
		banned = append(banned, c.DisplayName())
	}
	return draft, banned
}

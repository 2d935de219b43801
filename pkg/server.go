package pkg

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/gliderlabs/ssh"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/config"
	"github.com/qnkhuat/chessmon/pkg/store"
)

const (
	ServerIdleTimeout = 5 * time.Minute
	cleanInterval     = time.Minute
	shutdownTimeout   = 5 * time.Second
)

type Server struct {
	Matches map[string]*Match

	cfg      config.Server
	engine   battle.Engine
	store    *store.Store
	logger   *zap.Logger
	mu       sync.Mutex
	ssh      *ssh.Server
	http     *http.Server
	upgrader websocket.Upgrader
}

// NewServer wires the match server. st may be nil.
func NewServer(cfg config.Server, engine battle.Engine, st *store.Store, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		Matches: make(map[string]*Match),
		cfg:     cfg,
		engine:  engine,
		store:   st,
		logger:  logger,
	}
	if cfg.SSHAddr != "" {
		srv, err := s.newSSHServer()
		if err != nil {
			return nil, err
		}
		s.ssh = srv
	}
	if cfg.WSAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/spectate", s.handleSpectate)
		s.http = &http.Server{Addr: cfg.WSAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	}
	return s, nil
}

// ListenAndServe runs the TCP, ssh and websocket listeners until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("listening", zap.String("addr", s.cfg.Addr), zap.String("ssh", s.cfg.SSHAddr), zap.String("ws", s.cfg.WSAddr))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.serveTCP(gctx, ln) })
	if s.ssh != nil {
		g.Go(func() error {
			if err := s.ssh.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	if s.http != nil {
		g.Go(func() error {
			if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		s.CleanIdleMatches(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ln.Close()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if s.ssh != nil {
			s.ssh.Shutdown(sctx)
		}
		if s.http != nil {
			s.http.Shutdown(sctx)
		}
		s.closeMatches()
		return nil
	})
	return g.Wait()
}

func (s *Server) serveTCP(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		go s.HandleConn(ctx, conn)
	}
}

// HandleConn reads the join line, seats the player and serves it until the
// connection ends.
func (s *Server) HandleConn(ctx context.Context, conn net.Conn) {
	p := NewPlayer(conn, s.logger)
	join, err := p.ReadJoin()
	if err != nil {
		s.logger.Warn("bad join", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
		conn.Close()
		return
	}
	p.Name = join.Name
	m, err := s.AddConn(ctx, p, join.MatchId)
	if err != nil {
		s.logger.Error("join failed", zap.String("match", join.MatchId), zap.Error(err))
		if t, werr := Wrap(MessageError{Error: err.Error()}); werr == nil {
			if b, eerr := Encode(t); eerr == nil {
				conn.Write(b)
			}
		}
		conn.Close()
		return
	}
	go p.HandleWrite()
	p.HandleRead(m.In, m.Done())
}

// AddConn seats p in match id. An unknown id opens a match under that id;
// an empty id joins the first match with a free seat, or opens a new one.
func (s *Server) AddConn(ctx context.Context, p *Player, id string) (*Match, error) {
	m, ok := s.match(id)
	if !ok && id == "" {
		m, ok = s.freeMatch()
	}
	if !ok {
		var err error
		if m, err = s.openMatch(ctx, id); err != nil {
			return nil, err
		}
	}
	m.AddPlayer(ctx, p)
	return m, nil
}

// freeMatch finds a match with an open color. Seats are checked without
// the server lock: a match keeps its own lock for a whole battle exchange.
func (s *Server) freeMatch() (*Match, bool) {
	s.mu.Lock()
	candidates := make([]*Match, 0, len(s.Matches))
	for _, m := range s.Matches {
		candidates = append(candidates, m)
	}
	s.mu.Unlock()
	for _, m := range candidates {
		if m.HasFreeSeat() {
			return m, true
		}
	}
	return nil, false
}

// openMatch starts a match under id, or under a fresh name when id is empty.
func (s *Server) openMatch(ctx context.Context, id string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.Matches[id]; ok && id != "" {
		return m, nil
	}
	if id == "" {
		id = s.newMatchId()
	}
	m, err := NewMatch(ctx, id, MatchOptions{
		Engine:        s.engine,
		Store:         s.store,
		Logger:        s.logger,
		Format:        s.cfg.Simulator.Format,
		Modifiers:     s.cfg.Modifiers,
		Clock:         s.cfg.MatchClock,
		BattleTimeout: s.cfg.BattleTimeout,
		Draft:         s.cfg.Draft,
	})
	if err != nil {
		return nil, err
	}
	m.Start(context.WithoutCancel(ctx))
	s.Matches[id] = m
	return m, nil
}

func (s *Server) newMatchId() string {
	for {
		id := petname.Generate(2, "-")
		if _, taken := s.Matches[id]; !taken {
			return id
		}
	}
}

func (s *Server) match(id string) (*Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Matches[id]
	return m, ok
}

// CleanIdleMatches drops matches nobody has touched for the idle timeout.
func (s *Server) CleanIdleMatches(ctx context.Context) {
	ticker := time.NewTicker(cleanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.cleanIdle(now)
		}
	}
}

func (s *Server) cleanIdle(now time.Time) {
	idle := s.cfg.IdleTimeout
	if idle <= 0 {
		idle = ServerIdleTimeout
	}
	s.mu.Lock()
	var stale []*Match
	for id, m := range s.Matches {
		if m.Idle(now.Add(-idle)) {
			stale = append(stale, m)
			delete(s.Matches, id)
		}
	}
	s.mu.Unlock()
	for _, m := range stale {
		s.logger.Info("closing idle match", zap.String("match", m.Id))
		m.Close()
	}
}

func (s *Server) closeMatches() {
	s.mu.Lock()
	matches := s.Matches
	s.Matches = make(map[string]*Match)
	s.mu.Unlock()
	for _, m := range matches {
		m.Close()
	}
}

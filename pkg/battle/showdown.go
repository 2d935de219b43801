package battle

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Markers smuggled through the simulator's chat passthrough so the custom
// events come out in stream order.
const (
	chatSentinel     = "chessmon:replayed"
	chatForfeitMark  = "chessmon:forfeit:"
	defaultSimulator = "pokemon-showdown"
)

// Showdown runs battles in a `pokemon-showdown simulate-battle` subprocess.
// The simulator build is expected to carry the chess mod that reads the
// "chessmon" start option (advantage side, pre-loaded weather and terrain).
type Showdown struct {
	Command []string
	Dir     string
	Logger  *zap.Logger
}

// NewShowdown returns an engine running command, or the default simulator
// binary when command is empty.
func NewShowdown(command []string, dir string, logger *zap.Logger) *Showdown {
	if len(command) == 0 {
		command = []string{defaultSimulator, "simulate-battle"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Showdown{Command: command, Dir: dir, Logger: logger}
}

type startMessage struct {
	FormatID string      `json:"formatid"`
	Seed     Seed        `json:"seed"`
	Chess    chessOption `json:"chessmon"`
}

type chessOption struct {
	Advantage Side   `json:"advantage"`
	Weather   string `json:"weather,omitempty"`
	Terrain   string `json:"terrain,omitempty"`
}

type playerMessage struct {
	Name string `json:"name"`
	Team string `json:"team"`
}

// Start implements Engine.
func (s *Showdown) Start(ctx context.Context, opts StartOptions) (Battle, error) {
	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	cmd.Dir = s.Dir
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("simulator stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("simulator stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("simulator stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start simulator: %w", err)
	}

	p := &process{
		cmd:        cmd,
		stdin:      stdin,
		logger:     s.Logger.With(zap.String("seed", opts.Seed.String())),
		attacker:   make(chan string),
		defender:   make(chan string),
		omniscient: make(chan string),
		done:       make(chan struct{}),
	}
	p.wg.Add(2)
	go p.demux(ctx, stdout)
	go p.logStderr(stderr)

	format := opts.Format
	if format == "" {
		format = DefaultFormat
	}
	start := startMessage{
		FormatID: format,
		Seed:     opts.Seed,
		Chess:    chessOption{Advantage: opts.Advantage, Weather: opts.Weather, Terrain: opts.Terrain},
	}
	lines := []string{encodeCommand("start", start)}
	for _, pl := range []struct {
		side Side
		c    Combatant
	}{{SideAttacker, opts.Attacker}, {SideDefender, opts.Defender}} {
		lines = append(lines, encodeCommand("player "+string(pl.side), playerMessage{Name: string(pl.side), Team: pl.c.Pack()}))
	}
	for _, l := range lines {
		if err := p.writeLine(l); err != nil {
			_ = p.CloseInput()
			_ = p.Wait()
			return nil, err
		}
	}
	return p, nil
}

func encodeCommand(name string, payload any) string {
	b, _ := json.Marshal(payload)
	return ">" + name + " " + string(b)
}

type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *zap.Logger

	attacker   chan string
	defender   chan string
	omniscient chan string

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func (p *process) Streams() Streams {
	return Streams{Attacker: p.attacker, Defender: p.defender, Omniscient: p.omniscient}
}

func (p *process) Write(ctx context.Context, in Input) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch in.Kind {
	case InputChoice:
		return p.writeLine(fmt.Sprintf(">%s %s", in.Side, in.Choice))
	case InputForfeit:
		if err := p.writeLine(">chat " + chatForfeitMark + string(in.Side)); err != nil {
			return err
		}
		return p.writeLine(">forcelose " + string(in.Side))
	case InputSentinel:
		return p.writeLine(">chat " + chatSentinel)
	default:
		return fmt.Errorf("unknown input kind %q", in.Kind)
	}
}

func (p *process) writeLine(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrEngineClosed
	}
	if _, err := io.WriteString(p.stdin, line+"\n"); err != nil {
		return fmt.Errorf("write simulator input: %w", err)
	}
	return nil
}

func (p *process) CloseInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.stdin.Close()
}

func (p *process) Wait() error {
	p.wg.Wait()
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("simulator exited: %w", err)
	}
	return err
}

func (p *process) logStderr(r io.Reader) {
	defer p.wg.Done()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.logger.Warn("simulator stderr", zap.String("line", sc.Text()))
	}
}

// demux splits the simulator output into the three perspective streams.
// Output is a sequence of blocks, each introduced by an "update",
// "sideupdate" or "end" header line.
func (p *process) demux(ctx context.Context, stdout io.Reader) {
	defer p.wg.Done()
	defer close(p.attacker)
	defer close(p.defender)
	defer close(p.omniscient)

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		header string
		body   []string
	)
	flush := func() bool {
		defer func() { header, body = "", nil }()
		switch {
		case header == "update":
			views := splitUpdate(body)
			return p.send(ctx, views[0], views[1], views[2])
		case strings.HasPrefix(header, "sideupdate"):
			if len(body) == 0 {
				return true
			}
			text := strings.Join(body[1:], "\n")
			if Side(body[0]) == SideDefender {
				return p.send(ctx, "", text, "")
			}
			return p.send(ctx, text, "", "")
		}
		return true
	}

	for sc.Scan() {
		line := sc.Text()
		switch line {
		case "update", "sideupdate", "end":
			if !flush() {
				return
			}
			header = line
			continue
		}
		if header == "end" || header == "" {
			continue
		}
		body = append(body, rewriteChat(line))
	}
	flush()
	if err := sc.Err(); err != nil {
		p.logger.Error("read simulator output", zap.Error(err))
	}
}

// send delivers one chunk per non-empty view, in a fixed order.
func (p *process) send(ctx context.Context, attacker, defender, omniscient string) bool {
	for _, out := range []struct {
		ch   chan string
		text string
	}{{p.attacker, attacker}, {p.defender, defender}, {p.omniscient, omniscient}} {
		if out.text == "" {
			continue
		}
		select {
		case out.ch <- out.text:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// splitUpdate resolves "|split|pN" secret/public pairs into the attacker,
// defender and omniscient views of one update block.
func splitUpdate(lines []string) [3]string {
	var views [3][]string
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "|split|") && i+2 < len(lines) {
			owner := Side(strings.TrimPrefix(line, "|split|"))
			secret, public := lines[i+1], lines[i+2]
			i += 2
			for _, v := range []struct {
				idx  int
				side Side
			}{{0, SideAttacker}, {1, SideDefender}} {
				if owner == v.side {
					views[v.idx] = append(views[v.idx], secret)
				} else {
					views[v.idx] = append(views[v.idx], public)
				}
			}
			views[2] = append(views[2], secret)
			continue
		}
		for v := range views {
			views[v] = append(views[v], line)
		}
	}
	return [3]string{
		strings.Join(views[0], "\n"),
		strings.Join(views[1], "\n"),
		strings.Join(views[2], "\n"),
	}
}

// rewriteChat turns the chat-smuggled markers back into custom events.
func rewriteChat(line string) string {
	if !strings.HasPrefix(line, "|chat|") {
		return line
	}
	switch {
	case strings.Contains(line, chatSentinel):
		return ReplayedLine
	case strings.Contains(line, chatForfeitMark):
		side := line[strings.Index(line, chatForfeitMark)+len(chatForfeitMark):]
		return ForfeitLine(Side(strings.TrimSpace(side)))
	}
	return line
}

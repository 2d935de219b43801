package pkg

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"github.com/gliderlabs/ssh"
	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"
)

func (s *Server) newSSHServer() (*ssh.Server, error) {
	srv := &ssh.Server{
		Addr:        s.cfg.SSHAddr,
		IdleTimeout: ServerIdleTimeout,
		Handler:     s.sshHandle,
	}
	if err := ensureHostKey(s.cfg.SSH.HostKey); err != nil {
		return nil, err
	}
	if err := srv.SetOption(ssh.HostKeyFile(s.cfg.SSH.HostKey)); err != nil {
		return nil, fmt.Errorf("load host key: %w", err)
	}
	return srv, nil
}

// ensureHostKey writes a fresh ed25519 key to path unless one is there.
func ensureHostKey(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat host key: %w", err)
	}
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate host key: %w", err)
	}
	block, err := gossh.MarshalPrivateKey(key, "chessmon host key")
	if err != nil {
		return fmt.Errorf("marshal host key: %w", err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return fmt.Errorf("write host key: %w", err)
	}
	return nil
}

// dialAddr is the address a local client uses to reach the TCP listener.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

// sshHandle runs the terminal client under a pty for the session. The ssh
// user name becomes the player name; a command picks the match.
func (s *Server) sshHandle(sess ssh.Session) {
	ptyReq, winCh, isPty := sess.Pty()
	if !isPty {
		io.WriteString(sess, "non-interactive terminals are not supported\n")
		sess.Exit(1)
		return
	}

	cmdCtx, cancelCmd := context.WithCancel(sess.Context())
	defer cancelCmd()

	args := []string{"-server", dialAddr(s.cfg.Addr), "-name", sess.User()}
	if c := sess.Command(); len(c) > 0 {
		args = append(args, "-match", c[0])
	}
	cmd := exec.CommandContext(cmdCtx, s.cfg.SSH.Client, args...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("TERM=%s", ptyReq.Term))

	f, err := pty.Start(cmd)
	if err != nil {
		s.logger.Error("start client", zap.String("user", sess.User()), zap.Error(err))
		io.WriteString(sess, fmt.Sprintf("failed to initialize pseudo-terminal: %s\n", err))
		sess.Exit(1)
		return
	}
	defer f.Close()
	s.logger.Info("ssh session", zap.String("user", sess.User()), zap.String("remote", sess.RemoteAddr().String()))

	setSize(f, ptyReq.Window)
	go func() {
		for win := range winCh {
			setSize(f, win)
		}
	}()
	go func() {
		io.Copy(f, sess)
	}()
	io.Copy(sess, f)

	cmd.Wait()
}

func setSize(f *os.File, win ssh.Window) {
	pty.Setsize(f, &pty.Winsize{Rows: uint16(win.Height), Cols: uint16(win.Width)})
}

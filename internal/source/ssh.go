package source

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/giannimassi/tilery/pkg/model"
)

const defaultSSHTimeout = 30 * time.Second

// SSHSource fetches files from a remote host by running cat over SSH.
type SSHSource struct {
	Addr   string // host:port
	Config *ssh.ClientConfig
}

// NewSSHSource builds an SSHSource for host using key-based authentication
// and the known_hosts file from cfg.
func NewSSHSource(host string, cfg model.SSHConfig) (*SSHSource, error) {
	if host == "" {
		return nil, fmt.Errorf("ssh host required")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("ssh user required for %s", host)
	}

	key, err := os.ReadFile(cfg.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse identity file %s: %w", cfg.IdentityFile, err)
	}

	hostKeys, err := knownhosts.New(cfg.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("load known hosts: %w", err)
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}

	return &SSHSource{
		Addr: net.JoinHostPort(host, strconv.Itoa(port)),
		Config: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeys,
			Timeout:         parseTimeout(cfg.Timeout),
		},
	}, nil
}

// parseTimeout returns the configured dial timeout, falling back to the default.
func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultSSHTimeout
	}
	return d
}

// Fetch reads the remote file at p into memory.
func (s *SSHSource) Fetch(ctx context.Context, p string) ([]byte, error) {
	client, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	// Closing the client aborts a transfer still in flight.
	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open session on %s: %w", s.Addr, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Run("cat -- " + shellQuote(p)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}

	return decode(p, stdout.Bytes())
}

func (s *SSHSource) dial(ctx context.Context) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: s.Config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.Addr, err)
	}

	if s.Config.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.Config.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, s.Addr, s.Config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", s.Addr, err)
	}
	// The handshake deadline must not cut off a large transfer.
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

func (s *SSHSource) String() string {
	return "ssh://" + s.Addr
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

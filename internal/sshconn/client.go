// Package sshconn owns the SSH connection behind one terminal bridge
// session.
//
// It wraps golang.org/x/crypto/ssh to open a PTY-backed shell channel and
// exposes it through a small polling interface: Read never blocks longer
// than a short bounded wait, Write and Resize are best-effort, and IsActive
// is the authoritative liveness signal. Each Client belongs to exactly one
// bridge session and is never shared.
package sshconn

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/glukw/sshterm/internal/logutil"
)

const (
	// connectTimeout bounds the TCP dial and SSH handshake.
	connectTimeout = 10 * time.Second

	// keepaliveInterval is how often we probe an idle connection.
	keepaliveInterval = 30 * time.Second

	// readPollTimeout is the longest Read will wait for shell output
	// before returning empty.
	readPollTimeout = 100 * time.Millisecond

	readBufferSize = 4096
)

// Default terminal dimensions, used when a connect or resize request leaves
// them out or supplies non-positive values.
const (
	DefaultCols = 120
	DefaultRows = 30
)

// MaxCols and MaxRows bound resize requests. Larger values are clamped, not
// rejected, since resize is best-effort anyway.
const (
	MaxCols = 500
	MaxRows = 500
)

// Params describes one connection to a remote host. Credential must be set;
// zero Port means 22 and non-positive dimensions fall back to the defaults.
type Params struct {
	Host       string
	Port       int
	Username   string
	Credential Credential
	Cols       int
	Rows       int
}

// Client holds the SSH connection and PTY shell channel for one session.
// Read and Write are safe to interleave from one goroutine each; Connect
// runs before the pumps start and Disconnect after they stop.
type Client struct {
	mu      sync.Mutex
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser

	out  chan []byte
	done chan struct{}

	connected atomic.Bool
	dead      atomic.Bool
}

// New returns a disconnected Client.
func New() *Client {
	return &Client{}
}

// Connect dials the remote host, authenticates and starts an interactive
// shell on a PTY sized to the requested dimensions. On failure it returns a
// *ConnectError whose message is safe to show to the user; whatever was
// already opened is closed again before returning.
func (c *Client) Connect(ctx context.Context, p Params) error {
	methods, err := p.Credential.authMethods()
	if err != nil {
		return classifyConnectErr(err)
	}

	port := p.Port
	if port <= 0 {
		port = 22
	}
	addr := net.JoinHostPort(p.Host, strconv.Itoa(port))

	cfg := &ssh.ClientConfig{
		User:            p.Username,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         connectTimeout,
	}

	dialer := net.Dialer{Timeout: connectTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return classifyConnectErr(err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		netConn.Close()
		return classifyConnectErr(err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return classifyConnectErr(err)
	}

	cols, rows := p.Cols, p.Rows
	if cols <= 0 {
		cols = DefaultCols
	}
	if rows <= 0 {
		rows = DefaultRows
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm-256color", rows, cols, modes); err != nil {
		session.Close()
		client.Close()
		return classifyConnectErr(fmt.Errorf("request pty: %w", err))
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return classifyConnectErr(fmt.Errorf("stdin pipe: %w", err))
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return classifyConnectErr(fmt.Errorf("stdout pipe: %w", err))
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return classifyConnectErr(fmt.Errorf("start shell: %w", err))
	}

	out := make(chan []byte, 16)
	done := make(chan struct{})

	c.mu.Lock()
	c.client = client
	c.session = session
	c.stdin = stdin
	c.out = out
	c.done = done
	c.mu.Unlock()
	c.connected.Store(true)

	go c.readLoop(stdout, out, done)
	go c.keepalive(client, done)

	log.Printf("SSH connected to %s as %s", logutil.SanitizeForLog(addr), logutil.SanitizeForLog(p.Username))
	return nil
}

// readLoop drains shell output into the out channel until the channel dies.
// It is the only sender on out and the only closer of it.
func (c *Client) readLoop(stdout io.Reader, out chan<- []byte, done <-chan struct{}) {
	defer close(out)
	buf := make([]byte, readBufferSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case out <- data:
			case <-done:
				return
			}
		}
		if err != nil {
			c.dead.Store(true)
			return
		}
	}
}

// keepalive probes the connection on an interval so a silently dropped peer
// flips IsActive even with no terminal traffic in flight.
func (c *Client) keepalive(client *ssh.Client, done <-chan struct{}) {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				log.Printf("SSH keepalive failed: %v", err)
				c.dead.Store(true)
				return
			}
		}
	}
}

// Read returns whatever shell output is ready, waiting at most
// readPollTimeout for some to arrive. It returns nil on timeout and nil
// once the channel has closed; it never blocks indefinitely and never
// fails.
func (c *Client) Read() []byte {
	select {
	case data, ok := <-c.out:
		if !ok {
			return nil
		}
		return data
	case <-time.After(readPollTimeout):
		return nil
	}
}

// Write sends keystrokes to the shell. Failures are logged and swallowed;
// callers watch IsActive to learn the channel has died.
func (c *Client) Write(p []byte) {
	c.mu.Lock()
	stdin := c.stdin
	c.mu.Unlock()
	if stdin == nil {
		return
	}
	if _, err := stdin.Write(p); err != nil {
		log.Printf("terminal write failed: %v", err)
	}
}

// Resize adjusts the remote PTY. Out-of-range dimensions are clamped and
// failures swallowed; the worst case is stale terminal dimensions.
func (c *Client) Resize(cols, rows int) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return
	}
	cols = clampDim(cols, DefaultCols, MaxCols)
	rows = clampDim(rows, DefaultRows, MaxRows)
	if err := session.WindowChange(rows, cols); err != nil {
		log.Printf("terminal resize failed: %v", err)
	}
}

func clampDim(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// IsActive reports whether the shell channel is usable: connected, not
// marked dead by the reader or keepalive, and not yet disconnected.
func (c *Client) IsActive() bool {
	return c.connected.Load() && !c.dead.Load()
}

// Disconnect closes the shell channel and the transport, each guarded on
// its own so one failing does not keep the other open. It is safe to call
// repeatedly and after a failed connect; afterwards the Client is inert.
func (c *Client) Disconnect() {
	c.mu.Lock()
	session := c.session
	client := c.client
	done := c.done
	c.session = nil
	c.client = nil
	c.stdin = nil
	c.done = nil
	c.mu.Unlock()

	c.dead.Store(true)
	if done != nil {
		close(done)
	}
	if session != nil {
		if err := session.Close(); err != nil && err != io.EOF {
			log.Printf("close shell session: %v", err)
		}
	}
	if client != nil {
		if err := client.Close(); err != nil {
			log.Printf("close ssh connection: %v", err)
		}
	}
}

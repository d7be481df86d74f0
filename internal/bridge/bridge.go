// Package bridge pumps bytes between one client WebSocket and one remote
// shell channel, decoding the session control protocol along the way and
// enforcing the idle timeout when authentication is configured. Client
// input is rate limited per session; frames over the budget are dropped.
//
// A Session runs three concurrent parts: the output pump (shell to client),
// the input pump (client to shell) and the optional idle watchdog. They
// share one cancellable context; whichever finishes first cancels the rest,
// and Run returns only after all of them have stopped. Closing the shell
// channel itself stays with the caller so teardown happens exactly once.
package bridge

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/glukw/sshterm/internal/sshconn"
)

const (
	// outputPollDelay is the pause between empty reads on the shell side.
	outputPollDelay = 20 * time.Millisecond

	// watchdogInterval is how often the idle watchdog checks the clock.
	watchdogInterval = 30 * time.Second

	// inputRateLimit is how many client frames per second the input pump
	// accepts once the burst allowance is spent.
	inputRateLimit = 200

	// inputRateBurst is the initial allowance before the steady rate
	// applies.
	inputRateBurst = 200

	// maxInputFrame bounds a single keystroke payload forwarded to the
	// shell.
	maxInputFrame = 64 * 1024

	idleTimeoutMessage = "Session timed out due to inactivity"
)

// Shell is the slice of the channel adapter the bridge drives. Read returns
// empty when nothing arrived within its bounded wait, Write and Resize are
// best-effort, and IsActive flips false once the channel is gone.
type Shell interface {
	Read() []byte
	Write(p []byte)
	Resize(cols, rows int)
	IsActive() bool
}

// controlMsg is one decoded control frame from the client. Text frames that
// fail to decode, or decode to an unknown type, are not protocol errors;
// they are forwarded to the shell as literal keystrokes.
type controlMsg struct {
	Type string `json:"type"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
	Data string `json:"data"`
}

type serverMsg struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// WriteControl sends one control notification ("connected", "error") to the
// client as a JSON text frame.
func WriteControl(ctx context.Context, conn *websocket.Conn, typ, data string) error {
	payload, err := json.Marshal(serverMsg{Type: typ, Data: data})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}

// inputLimiter is a token bucket over inbound client frames. Only the input
// pump touches it, so it needs no locking.
type inputLimiter struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens added per second
	lastRefill time.Time
}

func newInputLimiter(maxTokens, refillRate int) *inputLimiter {
	return &inputLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (l *inputLimiter) allow() bool {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill)
	l.lastRefill = now

	l.tokens += int(elapsed.Seconds() * float64(l.refillRate))
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	if l.tokens <= 0 {
		return false
	}
	l.tokens--
	return true
}

// Session ties one client WebSocket to one shell channel for its lifetime.
type Session struct {
	conn  *websocket.Conn
	shell Shell

	// idleTimeout > 0 arms the watchdog; zero disables it.
	idleTimeout time.Duration

	lastActivity atomic.Int64 // unix nanos of the last inbound client frame
}

// New builds a session over an established shell channel. idleTimeout of
// zero disables the idle watchdog, which is the open-access behavior.
func New(conn *websocket.Conn, shell Shell, idleTimeout time.Duration) *Session {
	s := &Session{conn: conn, shell: shell, idleTimeout: idleTimeout}
	s.touch()
	return s
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func (s *Session) idleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastActivity.Load()))
}

// Run pumps both directions until the client disconnects, the shell dies, a
// disconnect frame arrives, the idle deadline passes or ctx is cancelled.
// Every termination path cancels the sibling pumps, and Run returns only
// once all of them have stopped. The shell stays open; the caller closes it.
func (s *Session) Run(ctx context.Context) {
	relayCtx, relayCancel := context.WithCancel(ctx)
	defer relayCancel()

	var wg sync.WaitGroup

	// Shell output -> client
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer relayCancel()
		s.pumpOutput(relayCtx)
	}()

	if s.idleTimeout > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer relayCancel()
			s.watchIdle(relayCtx)
		}()
	}

	// Client frames -> shell
	func() {
		defer relayCancel()
		s.pumpInput(relayCtx)
	}()

	wg.Wait()
}

// pumpOutput forwards shell output to the client as text frames in the
// order read. Raw bytes pass through a permissive UTF-8 decode: invalid
// sequences become replacement characters, never a dropped frame.
func (s *Session) pumpOutput(ctx context.Context) {
	for s.shell.IsActive() {
		if ctx.Err() != nil {
			return
		}
		data := s.shell.Read()
		if len(data) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(outputPollDelay):
			}
			continue
		}
		text := strings.ToValidUTF8(string(data), "�")
		if err := s.conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
			return
		}
	}
}

// pumpInput dispatches client frames in arrival order. Binary frames and
// unrecognizable text are literal keystrokes; recognized control frames are
// resize, disconnect and input. Every frame counts as activity, but frames
// beyond the rate limit are dropped before dispatch.
func (s *Session) pumpInput(ctx context.Context) {
	limiter := newInputLimiter(inputRateBurst, inputRateLimit)
	for {
		msgType, data, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		s.touch()

		if !limiter.allow() {
			continue
		}

		if msgType == websocket.MessageBinary {
			s.writeInput(data)
			continue
		}

		var msg controlMsg
		if err := json.Unmarshal(data, &msg); err == nil {
			switch msg.Type {
			case "resize":
				cols, rows := msg.Cols, msg.Rows
				if cols <= 0 {
					cols = sshconn.DefaultCols
				}
				if rows <= 0 {
					rows = sshconn.DefaultRows
				}
				s.shell.Resize(cols, rows)
				continue
			case "disconnect":
				return
			case "input":
				s.writeInput([]byte(msg.Data))
				continue
			}
		}
		// JSON-shaped or not, anything unrecognized is keystrokes.
		s.writeInput(data)
	}
}

// writeInput forwards keystrokes to the shell, dropping any single frame
// over maxInputFrame.
func (s *Session) writeInput(data []byte) {
	if len(data) > maxInputFrame {
		log.Printf("terminal input frame too large: size=%d limit=%d", len(data), maxInputFrame)
		return
	}
	s.shell.Write(data)
}

// watchIdle ends the session once no client frame has arrived for the
// configured timeout. The client is notified best-effort; a failure to
// deliver the notice is ignored.
func (s *Session) watchIdle(ctx context.Context) {
	interval := watchdogInterval
	if s.idleTimeout < interval {
		interval = s.idleTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.idleFor() > s.idleTimeout {
				log.Printf("terminal session idle for over %v, closing", s.idleTimeout)
				_ = WriteControl(ctx, s.conn, "error", idleTimeoutMessage)
				return
			}
		}
	}
}

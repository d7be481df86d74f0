package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/semaphore"

	"github.com/glukw/sshterm/internal/access"
	"github.com/glukw/sshterm/internal/bridge"
	"github.com/glukw/sshterm/internal/config"
	"github.com/glukw/sshterm/internal/logutil"
	"github.com/glukw/sshterm/internal/middleware"
	"github.com/glukw/sshterm/internal/sshconn"
)

// Application close codes for the terminal endpoint, in the 4xxx range
// reserved for private use.
const (
	closeBadHandshake    websocket.StatusCode = 4400
	closeUnauthorized    websocket.StatusCode = 4401
	closeForbidden       websocket.StatusCode = 4403
	closeTooManySessions websocket.StatusCode = 4429
)

// Guard is set from main.go during init.
var Guard *access.Guard

// SessionSem caps concurrent terminal sessions when non-nil.
var SessionSem *semaphore.Weighted

type connectMsg struct {
	Type     string `json:"type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	KeyPath  string `json:"key_path"`
	KeyData  string `json:"key_data"`
	Cols     int    `json:"cols"`
	Rows     int    `json:"rows"`
}

// SSHTerminalWS owns one terminal connection end to end: guard checks,
// the connect handshake, the SSH session, the bridge, and teardown.
//
// The first client frame must be a connect message naming host and
// username. After the shell is up, the bridge relays bytes both ways until
// the client disconnects, the shell dies, or the idle watchdog fires.
func SSHTerminalWS(w http.ResponseWriter, r *http.Request) {
	clientIP := middleware.ClientIP(r)

	clientConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("Failed to accept terminal websocket: %v", err)
		return
	}
	defer clientConn.CloseNow()

	ctx := r.Context()

	if Guard == nil {
		clientConn.Close(4500, "Access guard not initialized")
		return
	}

	// Route middleware does not reliably cover long-lived upgraded
	// connections, so the guard runs here no matter how the route is
	// mounted.
	switch Guard.Authorize(clientIP, middleware.SessionToken(r)) {
	case access.DenyUnauthorized:
		clientConn.Close(closeUnauthorized, "Authentication required")
		return
	case access.DenyForbidden:
		log.Printf("Rejected terminal connection from %s: not in allowlist", clientIP)
		clientConn.Close(closeForbidden, "Access denied")
		return
	}

	if SessionSem != nil {
		if !SessionSem.TryAcquire(1) {
			clientConn.Close(closeTooManySessions, "Too many active sessions")
			return
		}
		defer SessionSem.Release(1)
	}

	clientConn.SetReadLimit(1024 * 1024)

	params, ok := awaitConnect(ctx, clientConn)
	if !ok {
		return
	}

	shell := sshconn.New()
	if err := shell.Connect(ctx, params); err != nil {
		bridge.WriteControl(ctx, clientConn, "error", err.Error())
		clientConn.Close(websocket.StatusNormalClosure, "")
		return
	}
	defer shell.Disconnect()

	if err := bridge.WriteControl(ctx, clientConn, "connected", ""); err != nil {
		return
	}

	sessionCtx, sessionCancel := context.WithCancel(ctx)
	defer sessionCancel()

	var sessionID string
	if Registry != nil {
		sessionID = Registry.Add(bridge.Info{
			Host:     params.Host,
			Username: params.Username,
			ClientIP: clientIP,
		}, sessionCancel)
		defer Registry.Remove(sessionID)
	}

	// The session timeout doubles as the idle limit, but only when auth
	// is configured; open-access deployments keep sessions alive as long
	// as the shell does.
	var idleTimeout time.Duration
	if config.AuthEnabled() {
		idleTimeout = config.SessionMaxAge()
	}

	log.Printf("Terminal session started: id=%s host=%s user=%s client=%s",
		sessionID, logutil.SanitizeForLog(params.Host), logutil.SanitizeForLog(params.Username), clientIP)

	bridge.New(clientConn, shell, idleTimeout).Run(sessionCtx)

	log.Printf("Terminal session ended: id=%s", sessionID)
	clientConn.Close(websocket.StatusNormalClosure, "")
}

// awaitConnect reads the first frame, which must be a connect control
// message naming at least host and username. Anything else is a protocol
// error that aborts the handshake.
func awaitConnect(ctx context.Context, clientConn *websocket.Conn) (sshconn.Params, bool) {
	_, data, err := clientConn.Read(ctx)
	if err != nil {
		return sshconn.Params{}, false
	}

	var msg connectMsg
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "connect" {
		bridge.WriteControl(ctx, clientConn, "error", "Expected connect message")
		clientConn.Close(closeBadHandshake, "Expected connect message")
		return sshconn.Params{}, false
	}
	if msg.Host == "" || msg.Username == "" {
		bridge.WriteControl(ctx, clientConn, "error", "Host and username are required")
		clientConn.Close(closeBadHandshake, "Host and username are required")
		return sshconn.Params{}, false
	}

	params := sshconn.Params{
		Host:     msg.Host,
		Port:     msg.Port,
		Username: msg.Username,
		Cols:     msg.Cols,
		Rows:     msg.Rows,
	}

	// One credential form per connection: pasted key material wins over a
	// key path, which wins over a password. With a key present, the
	// password field carries the passphrase, used only if the key is
	// actually encrypted.
	switch {
	case msg.KeyData != "":
		params.Credential = sshconn.PrivateKey{PEM: []byte(msg.KeyData), Passphrase: msg.Password}
	case msg.KeyPath != "":
		params.Credential = sshconn.PrivateKeyFile{Path: msg.KeyPath, Passphrase: msg.Password}
	default:
		params.Credential = sshconn.Password{Secret: msg.Password}
	}
	return params, true
}

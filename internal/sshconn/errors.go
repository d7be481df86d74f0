package sshconn

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"strings"
)

// ErrorKind buckets connect failures into the categories a client can act
// on. The user-facing message for each kind is fixed; the underlying error
// stays available through Unwrap for logs.
type ErrorKind int

const (
	KindAuthFailed ErrorKind = iota
	KindTimeout
	KindProtocol
	KindConnectionFailed
	KindUnexpected
)

// ConnectError is the classified result of a failed Connect. Its Error
// string is the message shown to the terminal user, never the raw internals.
type ConnectError struct {
	Kind ErrorKind
	Err  error
}

func (e *ConnectError) Error() string {
	switch e.Kind {
	case KindAuthFailed:
		return "Authentication failed — check username/password"
	case KindTimeout:
		return "Connection timed out — check host IP and that SSH is enabled"
	case KindProtocol:
		return "SSH error: " + e.detail()
	case KindConnectionFailed:
		return "Connection failed: " + e.detail()
	}
	return "Unexpected error: " + e.detail()
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) detail() string {
	if e.Err == nil {
		return "unknown"
	}
	return e.Err.Error()
}

// classifyConnectErr wraps err in a ConnectError with the matching kind.
// Order matters: handshake timeouts and auth failures both carry the ssh
// prefix, so the more specific checks run first.
func classifyConnectErr(err error) *ConnectError {
	if err == nil {
		return nil
	}
	var connErr *ConnectError
	if errors.As(err, &connErr) {
		return connErr
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ConnectError{Kind: KindTimeout, Err: err}
	}
	if strings.Contains(err.Error(), "unable to authenticate") {
		return &ConnectError{Kind: KindAuthFailed, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &ConnectError{Kind: KindConnectionFailed, Err: err}
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &ConnectError{Kind: KindConnectionFailed, Err: err}
	}
	if strings.Contains(err.Error(), "ssh:") {
		return &ConnectError{Kind: KindProtocol, Err: err}
	}
	return &ConnectError{Kind: KindUnexpected, Err: err}
}

// Package session issues and verifies the signed tokens that represent an
// authenticated browser session, and checks the admin password that gates
// their issuance.
package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/hkdf"
)

// CookieName is the browser cookie that carries the session token.
const CookieName = "ssh_terminal_session"

// tokenContext separates session-token signing from any other use of the
// same secret. Tokens minted under a different context string never verify
// here, even with an identical secret.
const tokenContext = "ssh-terminal-session"

type tokenPayload struct {
	Created int64 `json:"created"`
}

func deriveKey(secret string) (*fernet.Key, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(tokenContext))
	var key fernet.Key
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return &key, nil
}

// Issue returns a fresh signed token for the given secret. The issue time is
// embedded by the token format itself; age is enforced by Verify.
func Issue(secret string) (string, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(tokenPayload{Created: time.Now().Unix()})
	if err != nil {
		return "", fmt.Errorf("encode session payload: %w", err)
	}
	tok, err := fernet.EncryptAndSign(payload, key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return string(tok), nil
}

// Verify reports whether token is a genuine session token no older than
// maxAge. The result is a uniform boolean: a forged signature, an expired
// timestamp and a structurally malformed token are indistinguishable to the
// caller, and none of them is reported as an error.
func Verify(token, secret string, maxAge time.Duration) bool {
	if token == "" {
		return false
	}
	key, err := deriveKey(secret)
	if err != nil {
		return false
	}
	return fernet.VerifyAndDecrypt([]byte(token), maxAge, []*fernet.Key{key}) != nil
}

// CheckAdminPassword reports whether provided matches the configured admin
// password. Always false when no password is configured, so an unset admin
// password can never be "matched" by an empty login. The comparison runs over
// fixed-size digests to stay constant-time regardless of input lengths.
func CheckAdminPassword(configured, provided string) bool {
	if configured == "" {
		return false
	}
	want := sha256.Sum256([]byte(configured))
	got := sha256.Sum256([]byte(provided))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}

package sshconn

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// Credential is the disambiguated client credential for one connection
// attempt. The boundary that parses a connect request picks exactly one
// variant, in priority order: in-memory key material, then a key file path,
// then a password. The unexported method keeps the variant set closed.
type Credential interface {
	authMethods() ([]ssh.AuthMethod, error)
}

// Password authenticates with a plain password.
type Password struct {
	Secret string
}

func (c Password) authMethods() ([]ssh.AuthMethod, error) {
	return []ssh.AuthMethod{ssh.Password(c.Secret)}, nil
}

// PrivateKey authenticates with in-memory PEM key material.
type PrivateKey struct {
	PEM        []byte
	Passphrase string
}

func (c PrivateKey) authMethods() ([]ssh.AuthMethod, error) {
	signer, err := parseSigner(c.PEM, c.Passphrase)
	if err != nil {
		return nil, err
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

// PrivateKeyFile authenticates with a PEM key loaded from disk.
type PrivateKeyFile struct {
	Path       string
	Passphrase string
}

func (c PrivateKeyFile) authMethods() ([]ssh.AuthMethod, error) {
	pem, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	signer, err := parseSigner(pem, c.Passphrase)
	if err != nil {
		return nil, err
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

// parseSigner parses PEM key material. The passphrase is used only when the
// key itself is encrypted; a passphrase supplied alongside an unencrypted key
// is ignored.
func parseSigner(pem []byte, passphrase string) (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey(pem)
	if err == nil {
		return signer, nil
	}
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) && passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	}
	return nil, err
}

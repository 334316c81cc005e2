package sshd

import (
	"crypto/ed25519"
	"crypto/rand"

	"golang.org/x/crypto/ssh"
)

// GenerateHostKey creates an ephemeral ed25519 host key. The key changes on
// every boot; clients connecting through the overlay network do not pin host
// keys, and nothing secret outlives the process.
func GenerateHostKey() (ssh.Signer, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return ssh.NewSignerFromKey(private)
}

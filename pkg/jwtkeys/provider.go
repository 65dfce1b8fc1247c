package jwtkeys

import (
	"errors"
)

var (
	// ErrKeyNotFound is returned when a kid cannot be resolved to a signing key.
	ErrKeyNotFound = errors.New("jwtkeys: signing key not found")
)

// KeyProvider resolves signing keys for JWT verification. Tokens are issued
// by the external auth service; this process only verifies them.
type KeyProvider interface {
	ResolveKey(kid string) ([]byte, error)
	LegacyKey() []byte
}

// StaticProvider verifies tokens against one shared secret plus optional
// kid-addressed secrets published by the issuer during rotation.
type StaticProvider struct {
	secret []byte
	keys   map[string][]byte
}

// NewStaticProvider creates a KeyProvider backed by a single secret.
func NewStaticProvider(secret string) *StaticProvider {
	return &StaticProvider{secret: []byte(secret), keys: make(map[string][]byte)}
}

// WithKey registers a secret for tokens carrying the given kid header.
func (p *StaticProvider) WithKey(kid, secret string) *StaticProvider {
	p.keys[kid] = []byte(secret)
	return p
}

// ResolveKey returns the secret for kid, falling back to the shared secret.
func (p *StaticProvider) ResolveKey(kid string) ([]byte, error) {
	if key, ok := p.keys[kid]; ok {
		return key, nil
	}
	if len(p.secret) == 0 {
		return nil, ErrKeyNotFound
	}
	return p.secret, nil
}

// LegacyKey returns the shared secret.
func (p *StaticProvider) LegacyKey() []byte {
	return p.secret
}

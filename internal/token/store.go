// Package token issues and redeems the single-use k1 challenge values
// that bind an LNURL offer to its later callback.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// k1 values are 32 random bytes rendered as lowercase hex.
const k1Bytes = 32

var (
	// ErrNotFound is returned when a redeemed value was never issued.
	ErrNotFound = errors.New("token not found")
	// ErrAlreadyUsed is returned when a value has already been redeemed.
	ErrAlreadyUsed = errors.New("token already used")
)

// Redeemer is the store capability the flows depend on. Satisfied by
// *Store; an alternative backend only needs to keep Redeem atomic.
type Redeemer interface {
	Issue() (string, error)
	Redeem(k1 string) error
}

// Store tracks issued challenge values for the lifetime of the process.
// Values never expire and are never removed; once marked used they stay
// used. All access goes through a single mutex so that the
// lookup-and-mark in Redeem is atomic.
type Store struct {
	mu     sync.Mutex
	tokens map[string]bool // value -> used
}

func NewStore() *Store {
	return &Store{tokens: make(map[string]bool)}
}

// Issue generates a fresh challenge value and records it as unused.
// An issued value is never handed out twice: on the (practically
// impossible) collision with a live entry the value is regenerated
// instead of overwriting it.
func (s *Store) Issue() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		buf := make([]byte, k1Bytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate k1: %w", err)
		}
		k1 := hex.EncodeToString(buf)
		if _, exists := s.tokens[k1]; exists {
			continue
		}
		s.tokens[k1] = false
		return k1, nil
	}
}

// Redeem marks k1 as used. It returns ErrNotFound for values that were
// never issued and ErrAlreadyUsed for values redeemed before. For two
// concurrent calls on the same value exactly one succeeds.
func (s *Store) Redeem(k1 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used, ok := s.tokens[k1]
	if !ok {
		return ErrNotFound
	}
	if used {
		return ErrAlreadyUsed
	}
	s.tokens[k1] = true
	return nil
}

// Len reports how many values have been issued so far.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

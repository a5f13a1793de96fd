package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// tokenEntropyBytes is the random component of every generated token.
const tokenEntropyBytes = 64

// Store holds bearer tokens granting read access to cached feeds, keyed by
// owner name. The whole mapping lives in one JSON file and is rewritten on
// every mutation; the scale is a handful of owners, not thousands.
//
// Known limitation: tokens never expire and validation is not rate limited.
type Store struct {
	path string

	mu     sync.RWMutex
	tokens map[string]string // owner -> token
}

// NewStore loads the owner/token mapping from path, treating a missing file
// as an empty store.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, tokens: map[string]string{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read token store %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.tokens); err != nil {
		return nil, fmt.Errorf("failed to parse token store %s: %w", path, err)
	}
	log.Infof("Loaded %d token(s) from %s", len(s.tokens), path)
	return s, nil
}

// Generate creates a new token for owner, replacing any previous one, and
// persists the store before returning. The owner name is kept as a readable
// prefix so tokens found in access logs can be traced back to their owner.
func (s *Store) Generate(owner string) (string, error) {
	raw := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := owner + "." + base64.RawURLEncoding.EncodeToString(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	previous, existed := s.tokens[owner]
	s.tokens[owner] = token
	if err := s.persistLocked(); err != nil {
		// Roll back so memory and disk stay consistent.
		if existed {
			s.tokens[owner] = previous
		} else {
			delete(s.tokens, owner)
		}
		return "", err
	}
	return token, nil
}

// Validate reports whether presented exactly matches a stored token.
func (s *Store) Validate(presented string) bool {
	if presented == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, token := range s.tokens {
		if token == presented {
			return true
		}
	}
	return false
}

// Revoke removes owner's token. It returns false when the owner had none.
func (s *Store) Revoke(owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, existed := s.tokens[owner]
	if !existed {
		return false, nil
	}
	delete(s.tokens, owner)
	if err := s.persistLocked(); err != nil {
		s.tokens[owner] = previous
		return false, err
	}
	return true, nil
}

// Owners returns the owner names with an active token, sorted. Token values
// are never listed.
func (s *Store) Owners() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners := make([]string, 0, len(s.tokens))
	for owner := range s.tokens {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

// persistLocked rewrites the backing file. Write-then-rename keeps the file
// whole for concurrent readers, and the sync makes the mapping durable before
// a generated token is handed out.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token store directory: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write token store: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write token store: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync token store: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close token store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace token store: %w", err)
	}
	return nil
}

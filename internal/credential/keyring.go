package credential

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"

	"github.com/nhle/taskmaster/internal/model"
)

const serviceName = "taskmaster"

// Fixed keys of the persisted token pair.
const (
	AccessTokenKey  = "access-token"
	RefreshTokenKey = "refresh-token"
)

// openKeyring returns a configured keyring instance. fileDir is used by the
// encrypted-file fallback backend.
func openKeyring(fileDir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("taskmaster-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Store persists the access/refresh token pair. Tokens are read from the
// keyring once and cached; writes go through to the keyring.
type Store struct {
	mu     sync.Mutex
	ring   keyring.Keyring
	loaded bool
	tokens model.Tokens
}

// Open opens the OS keyring, falling back to encrypted files under fileDir.
func Open(fileDir string) (*Store, error) {
	ring, err := openKeyring(fileDir)
	if err != nil {
		return nil, err
	}
	return NewStore(ring), nil
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Tokens returns the persisted pair. Absent keys yield empty strings.
func (s *Store) Tokens() (model.Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.tokens, nil
	}

	access, err := s.get(AccessTokenKey)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, err := s.get(RefreshTokenKey)
	if err != nil {
		return model.Tokens{}, err
	}

	s.tokens = model.Tokens{AccessToken: access, RefreshToken: refresh}
	s.loaded = true
	return s.tokens, nil
}

// Save persists both tokens. If either write fails both keys are removed,
// so a half-written pair never outlives the failed save.
func (s *Store) Save(t model.Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.set(AccessTokenKey, t.AccessToken)
	if err == nil {
		err = s.set(RefreshTokenKey, t.RefreshToken)
	}
	if err != nil {
		s.tokens = model.Tokens{}
		s.loaded = true
		return errors.Join(err, s.remove(AccessTokenKey), s.remove(RefreshTokenKey))
	}

	s.tokens = t
	s.loaded = true
	return nil
}

// Clear removes both tokens. The in-memory copy is dropped even when the
// keyring fails, so the process never keeps using a cleared session.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = model.Tokens{}
	s.loaded = true

	return errors.Join(s.remove(AccessTokenKey), s.remove(RefreshTokenKey))
}

func (s *Store) get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (s *Store) set(key, value string) error {
	if value == "" {
		return s.remove(key)
	}
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

func (s *Store) remove(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

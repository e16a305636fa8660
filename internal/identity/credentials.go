package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Credentials is what the CLI sends on behalf of a user.
type Credentials struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Token     string `json:"token,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// CredentialStore keeps CLI credentials in a file under the config dir.
type CredentialStore struct {
	dir   string
	mu    sync.RWMutex
	creds *Credentials
}

// NewCredentialStore opens the store in dir, creating it if needed.
// Existing credentials are loaded when present.
func NewCredentialStore(dir string) (*CredentialStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	s := &CredentialStore{dir: dir}
	_ = s.load()
	return s, nil
}

// Get returns the stored credentials, or nil.
func (s *CredentialStore) Get() *Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return nil
	}
	c := *s.creds
	return &c
}

// Save replaces the stored credentials.
func (s *CredentialStore) Save(c Credentials) error {
	if c.UserID == "" && c.Token == "" {
		return fmt.Errorf("credentials need a user id or a token")
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	s.mu.Lock()
	s.creds = &c
	s.mu.Unlock()
	return nil
}

// Clear removes the stored credentials.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	s.creds = nil
	s.mu.Unlock()

	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) path() string {
	return filepath.Join(s.dir, "credentials.json")
}

func (s *CredentialStore) load() error {
	data, err := os.ReadFile(s.path())
	if err != nil {
		return err
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	s.mu.Lock()
	s.creds = &c
	s.mu.Unlock()
	return nil
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenStorage keeps the credentials of the signed-in user.
type TokenStorage interface {
	SaveAccessToken(token string) error
	AccessToken() (string, bool)
	SaveRefreshToken(token string) error
	RefreshToken() (string, bool)
	Clear() error
}

type MemoryTokenStorage struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

func NewMemoryTokenStorage() *MemoryTokenStorage {
	return &MemoryTokenStorage{}
}

func (s *MemoryTokenStorage) SaveAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
	return nil
}

func (s *MemoryTokenStorage) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.accessToken != ""
}

func (s *MemoryTokenStorage) SaveRefreshToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshToken = token
	return nil
}

func (s *MemoryTokenStorage) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken, s.refreshToken != ""
}

func (s *MemoryTokenStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	return nil
}

// FileTokenStorage persists tokens as JSON so separate CLI runs share a login.
type FileTokenStorage struct {
	mu     sync.Mutex
	path   string
	tokens fileTokens
}

type fileTokens struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func NewFileTokenStorage(path string) (*FileTokenStorage, error) {
	s := &FileTokenStorage{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.tokens); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	return s, nil
}

func (s *FileTokenStorage) SaveAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens.AccessToken = token
	return s.flush()
}

func (s *FileTokenStorage) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.AccessToken, s.tokens.AccessToken != ""
}

func (s *FileTokenStorage) SaveRefreshToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens.RefreshToken = token
	return s.flush()
}

func (s *FileTokenStorage) RefreshToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.RefreshToken, s.tokens.RefreshToken != ""
}

func (s *FileTokenStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = fileTokens{}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// flush writes through a temp file so a crash never leaves half a token.
func (s *FileTokenStorage) flush() error {
	raw, err := json.Marshal(s.tokens)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

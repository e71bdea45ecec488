package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/oauth2"
)

// TokenFile is the stored token filename.
const TokenFile = "token.json"

const lockRetryDelay = 20 * time.Millisecond

// FileStore keeps the pair in a JSON file using the oauth2.Token layout, so
// the two keys are "access_token" and "refresh_token". Writes are atomic
// (temp file + rename) with mode 0600 and guarded by a lock file shared with
// other processes.
type FileStore struct {
	// mu serializes goroutines of this process; the flock excludes other processes.
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the token file path.
func (s *FileStore) Path() string { return s.path }

// Get implements Store.
func (s *FileStore) Get(ctx context.Context) (Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return Pair{}, err
	}
	if _, err := s.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return Pair{}, fmt.Errorf("failed to lock %s: %w", s.path, err)
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Pair{}, ErrNotFound
	}
	if err != nil {
		return Pair{}, fmt.Errorf("failed to read %s: %w", TokenFile, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return Pair{}, fmt.Errorf("invalid %s: %w", TokenFile, err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return Pair{}, ErrNotFound
	}
	return Pair{Access: token.AccessToken, Refresh: token.RefreshToken}, nil
}

// Set implements Store.
func (s *FileStore) Set(ctx context.Context, pair Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return err
	}
	if _, err := s.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.path, err)
	}
	defer s.lock.Unlock()

	token := &oauth2.Token{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		TokenType:    "Bearer",
		Expiry:       AccessExpiry(pair.Access),
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".token-*.json")
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save token: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return err
	}
	if _, err := s.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.path, err)
	}
	defer s.lock.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return s.lock.Close()
}

// ensureDir creates the parent directory with mode 0700.
func (s *FileStore) ensureDir() error {
	return os.MkdirAll(filepath.Dir(s.path), 0700)
}

package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"
)

const (
	// ageHeader is the prefix of Age-encrypted files
	ageHeader = "age-encryption.org"

	// markerFile indicates the dataset directory is encrypted at rest
	markerFile = ".encrypted"

	// verifyFile is used to validate the passphrase
	verifyFile = ".encryption-verify"

	// verifyMagic is the expected content in the verify file
	verifyMagic = `{"magic":"shopdash-encryption-verify","version":1}`
)

// Storage provides transparent read access to a dataset directory whose CSV
// sources may be Age-encrypted at rest. The dashboard never writes to the
// directory; datasets are static for the lifetime of a session.
type Storage struct {
	baseDir  string
	locked   bool
	identity *age.ScryptIdentity
	mu       sync.RWMutex
}

// New creates a Storage for the given dataset directory.
func New(baseDir string) (*Storage, error) {
	s := &Storage{baseDir: baseDir}

	// An encrypted directory starts locked
	markerPath := filepath.Join(baseDir, markerFile)
	if _, err := os.Stat(markerPath); err == nil {
		s.locked = true
	}

	return s, nil
}

// BaseDir returns the dataset directory.
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// IsEncrypted returns true if the dataset directory is encrypted at rest.
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked || s.identity != nil
}

// IsUnlocked returns true if the datasets can be read.
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.locked
}

// Unlock derives the decryption key from the passphrase and verifies it
// against the directory's verification file.
func (s *Storage) Unlock(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.locked {
		return nil
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	encrypted, err := os.ReadFile(verifyPath)
	if err != nil {
		return fmt.Errorf("failed to read verification file: %w", err)
	}

	decrypted, err := decryptData(encrypted, identity)
	if err != nil {
		return fmt.Errorf("incorrect passphrase")
	}

	if string(decrypted) != verifyMagic {
		return fmt.Errorf("incorrect passphrase (verification failed)")
	}

	s.identity = identity
	s.locked = false

	return nil
}

// Lock clears the decryption key from memory.
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != nil {
		s.identity = nil
		s.locked = true
	}
}

// ReadFile reads a file, decrypting it if it is Age-encrypted.
func (s *Storage) ReadFile(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isAgeEncrypted(data) {
		if s.identity == nil {
			return nil, fmt.Errorf("file %s is encrypted but storage is locked", filepath.Base(path))
		}
		return decryptData(data, s.identity)
	}

	return data, nil
}

// OpenFile returns a reader over the decrypted contents of a file.
func (s *Storage) OpenFile(path string) (io.ReadCloser, error) {
	data, err := s.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Stat returns file info without decrypting. The loader uses the modification
// time as its cache invalidation signal.
func (s *Storage) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// isAgeEncrypted checks if data starts with the Age encryption header
func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}

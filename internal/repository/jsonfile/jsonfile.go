// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package jsonfile persists users and OTP challenges as two independent
// JSON documents (object-of-objects keyed by username and identifier).
// Every mutation reloads the full document, applies the change and
// rewrites the whole file. A missing or unparsable document is treated as
// an empty map so a corrupt file degrades to a fresh store instead of
// taking the service down.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Railfan3/RevenueRadar/internal/repository"
)

const (
	usersFilename = "users.json"
	otpFilename   = "otp_data.json"
)

// Store holds the paths of the two documents and serializes access to
// each within this process. Cross-process writers can still race; the
// last full rewrite wins.
type Store struct {
	usersPath string
	otpPath   string
	usersMu   sync.Mutex
	otpMu     sync.Mutex
}

// Open prepares a store rooted at dataDir, creating the directory if
// needed. The documents themselves are created lazily on first write.
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{
		usersPath: filepath.Join(dataDir, usersFilename),
		otpPath:   filepath.Join(dataDir, otpFilename),
	}, nil
}

// NewRepository bundles both stores over s.
func NewRepository(s *Store) *repository.Repository {
	return &repository.Repository{
		Users:      NewUsers(s),
		Challenges: NewChallenges(s),
	}
}

// loadDocument reads a JSON object document into dst. Absent and corrupt
// files both yield an empty document.
func loadDocument(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("document unparsable, treating as empty", "path", path, "error", err)
	}
	return nil
}

// saveDocument rewrites the whole document. The write goes to a temp file
// in the same directory followed by a rename, so concurrent readers see
// either the old or the new document, never a partial one.
func saveDocument(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

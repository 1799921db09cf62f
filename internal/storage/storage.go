// Package storage keeps uploaded documents (payment proofs, signed
// contracts) on local disk, addressed by a relative reference that is
// safe to persist alongside the order.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store writes and reads documents under a single root directory.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Save stores the document under the order's directory and returns the
// reference to persist. The original filename is sanitized before use.
func (s *Store) Save(orderID uuid.UUID, filename string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102T150405"), sanitize(filename))
	ref := filepath.Join(orderID.String(), name)

	dir := filepath.Join(s.dir, orderID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating order directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	return ref, nil
}

// Open returns the stored document for a previously issued reference.
func (s *Store) Open(ref string) (*os.File, error) {
	path := filepath.Join(s.dir, filepath.Clean("/"+ref))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}

	return f, nil
}

func sanitize(filename string) string {
	base := filepath.Base(filename)

	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			return r
		}

		return '_'
	}, base)

	if safe == "" || safe == "." || safe == ".." {
		return "document"
	}

	return safe
}

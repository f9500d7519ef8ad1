// Package notes defines the document source collaborator: the
// component that enumerates notes, fetches their text, and maps a path
// to a stable identifier.
package notes

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

// Note is one document as seen by the synchronization engine.
type Note struct {
	ID         string
	Path       string
	Title      string
	Content    string
	ModifiedAt time.Time
}

// Source enumerates notes and resolves them by id or path.
type Source interface {
	// FindByID returns the note with the given id, or a NotFound error.
	FindByID(id string) (*Note, error)

	// FindByPath returns the note at the given path, or a NotFound error.
	FindByPath(path string) (*Note, error)

	// FindAllExcluding returns every note whose path is not under one
	// of the excluded folders.
	FindAllExcluding(excludedFolders []string) ([]*Note, error)

	// Exists reports whether a note with the given id exists.
	Exists(id string) (bool, error)

	// GenerateID maps a path to its stable note id. It must be a pure
	// function of the normalized path.
	GenerateID(path string) string
}

// NormalizePath converts a note path to the canonical form ids are
// derived from: forward slashes, no leading "./".
func NormalizePath(path string) string {
	normalized := filepath.ToSlash(path)
	normalized = strings.TrimPrefix(normalized, "./")
	return normalized
}

// GenerateID derives the stable note id from a path. Equal normalized
// paths always yield equal ids, independent of separator conventions.
func GenerateID(path string) string {
	sum := sha256.Sum256([]byte(NormalizePath(path)))
	return hex.EncodeToString(sum[:])[:16]
}

// PathExcluded reports whether path falls under any of the excluded
// folders: either exactly equal to a folder or prefixed by it plus a
// path separator.
func PathExcluded(path string, excludedFolders []string) bool {
	normalized := NormalizePath(path)
	for _, folder := range excludedFolders {
		folder = strings.TrimSuffix(NormalizePath(folder), "/")
		if folder == "" {
			continue
		}
		if normalized == folder || strings.HasPrefix(normalized, folder+"/") {
			return true
		}
	}
	return false
}

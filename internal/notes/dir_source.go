package notes

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/semnotes/semnotes/internal/errortypes"
)

// noteExtensions are the file types DirSource treats as notes.
var noteExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// DirSource is a Source over a directory of plain-text notes. Paths are
// reported relative to the root with forward slashes.
type DirSource struct {
	root string
}

// NewDirSource creates a note source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// GenerateID implements Source.
func (s *DirSource) GenerateID(path string) string {
	return GenerateID(path)
}

// load reads one note file by its relative path.
func (s *DirSource) load(relPath string) (*Note, error) {
	fullPath := filepath.Join(s.root, filepath.FromSlash(relPath))
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, errortypes.NotFoundError(err, "note not found").
			WithField("path", relPath)
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, errortypes.NotFoundError(err, "note not found").
			WithField("path", relPath)
	}

	content := string(data)
	return &Note{
		ID:         GenerateID(relPath),
		Path:       NormalizePath(relPath),
		Title:      titleOf(relPath, content),
		Content:    content,
		ModifiedAt: info.ModTime(),
	}, nil
}

// titleOf extracts a display title: the first markdown heading when
// present, the filename without extension otherwise.
func titleOf(relPath, content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
		if trimmed != "" {
			break
		}
	}
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FindByPath implements Source.
func (s *DirSource) FindByPath(path string) (*Note, error) {
	return s.load(NormalizePath(path))
}

// FindByID implements Source. Ids carry no path information, so this is
// a walk over the root until the matching note is found.
func (s *DirSource) FindByID(id string) (*Note, error) {
	var found *Note
	err := s.walk(func(relPath string) error {
		if GenerateID(relPath) == id {
			note, loadErr := s.load(relPath)
			if loadErr != nil {
				return loadErr
			}
			found = note
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errortypes.NotFoundError(fmt.Errorf("no note with id %q", id), "note not found")
	}
	return found, nil
}

// Exists implements Source.
func (s *DirSource) Exists(id string) (bool, error) {
	_, err := s.FindByID(id)
	if err != nil {
		if errortypes.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindAllExcluding implements Source. Notes are returned in walk order,
// which is deterministic (lexical) for a given tree.
func (s *DirSource) FindAllExcluding(excludedFolders []string) ([]*Note, error) {
	var result []*Note
	err := s.walk(func(relPath string) error {
		if PathExcluded(relPath, excludedFolders) {
			return nil
		}
		note, loadErr := s.load(relPath)
		if loadErr != nil {
			// A note deleted mid-walk is not fatal to enumeration.
			return nil
		}
		result = append(result, note)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// walk visits every note file under the root, invoking fn with the
// slash-normalized relative path.
func (s *DirSource) walk(fn func(relPath string) error) error {
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.root {
				return fs.SkipDir
			}
			return nil
		}
		if !noteExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		return fn(filepath.ToSlash(rel))
	})
	if err != nil && err != fs.SkipAll {
		return errortypes.InternalError(err, "failed to walk note directory").
			WithField("root", s.root)
	}
	return nil
}

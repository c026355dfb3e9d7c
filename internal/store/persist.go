package store

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/google/renameio/v2"
	"github.com/tidwall/pretty"

	"github.com/xtxerr/cardiowatch/internal/errors"
)

var prettyOptions = &pretty.Options{
	Width:  80,
	Indent: "    ",
}

// encode renders doc the way it is stored on disk.
func encode(doc *Document) ([]byte, error) {
	if doc.History == nil {
		doc.History = []Reading{}
	}
	if doc.Profile == nil {
		doc.Profile = Profile{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions(data, prettyOptions), nil
}

// decode parses a stored document.
func decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.MaxEntries <= 0 {
		return nil, fmt.Errorf("max_entries %d: %w", doc.MaxEntries, errors.ErrInvalidCapacity)
	}
	if doc.Profile == nil {
		doc.Profile = Profile{}
	}
	return &doc, nil
}

func (s *Store) loadLocked() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	doc, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc, nil
}

// persistLocked replaces the document on disk. The new content is written
// and synced to a temporary file in the same directory, then renamed over
// the canonical path. On any failure the temporary file is removed and the
// canonical file is left as it was.
func (s *Store) persistLocked(doc *Document) error {
	if err := s.writeAtomicLocked(doc); err != nil {
		log.Error("persist failed, change dropped", "path", s.path, "error", err)
		return errors.NewPersistFailure(s.path, err)
	}
	return nil
}

func (s *Store) writeAtomicLocked(doc *Document) error {
	data, err := encode(doc)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	pf, err := renameio.NewPendingFile(s.path,
		renameio.WithTempDir(dir),
		renameio.WithPermissions(0o644),
		renameio.WithExistingPermissions(),
	)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	if _, err := pf.Write(data); err != nil {
		return err
	}
	if s.beforeCommit != nil {
		if err := s.beforeCommit(); err != nil {
			return err
		}
	}
	return pf.CloseAtomicallyReplace()
}

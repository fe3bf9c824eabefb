package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
)

// Store holds the current corpus snapshot. Rebuild swaps in a complete new
// snapshot, so readers never observe a partially built corpus.
type Store struct {
	current atomic.Pointer[TextCorpus]
	logger  *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{logger: logger}
	s.current.Store(Empty())
	return s
}

// Current returns the latest snapshot.
func (s *Store) Current() *TextCorpus {
	return s.current.Load()
}

// Rebuild parses raw and replaces the snapshot. Malformed input replaces it
// with the empty corpus so selection falls back to the generic message.
func (s *Store) Rebuild(raw []byte) *TextCorpus {
	next, err := Parse(raw)
	if err != nil {
		s.logger.Warn("corpus_malformed",
			"error", err.Error(),
			"bytes", len(raw),
		)
		next = Empty()
	}
	s.current.Store(next)
	s.logger.Info("corpus_rebuilt",
		"categories", next.Len(),
	)
	return next
}

// ReadSource reads the corpus file. A missing file is reported as ErrMissingSource.
func ReadSource(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return nil, fmt.Errorf("failed to read corpus source: %w", err)
	}
	return raw, nil
}

// LoadSource reads the corpus file, degrading to empty bytes with a warning
// when the file is missing or unreadable.
func LoadSource(path string, logger *slog.Logger) []byte {
	raw, err := ReadSource(path)
	if err != nil {
		logger.Warn("corpus_source_unavailable",
			"path", path,
			"error", err.Error(),
		)
		return []byte{}
	}
	return raw
}

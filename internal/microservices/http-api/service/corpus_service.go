package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"

	"darwinawards/internal/corpus"
	"darwinawards/internal/microservices/http-api/models"
	"darwinawards/internal/microservices/http-api/repository"
	"darwinawards/internal/synced"
)

const DefaultRevisionLimit = 20

var ErrNotAuthoritative = errors.New("this process does not own the corpus")

// CorpusStatus describes the corpus snapshot in force.
type CorpusStatus struct {
	Version    int64    `json:"version"`
	Categories []string `json:"categories"`
	Templates  int      `json:"templates"`
}

type CorpusService interface {
	// Reload reads the corpus file and publishes it as a new version.
	Reload(ctx context.Context) (CorpusStatus, error)
	Status() CorpusStatus
	Revisions(ctx context.Context, limit int) ([]models.CorpusRevision, error)
}

type corpusService struct {
	path        string
	store       *corpus.Store
	distributor *corpus.Distributor
	revisions   repository.CorpusRevisionRepository
	logger      *slog.Logger
}

func NewCorpusService(path string, store *corpus.Store, distributor *corpus.Distributor, revisions repository.CorpusRevisionRepository, logger *slog.Logger) CorpusService {
	if logger == nil {
		logger = slog.Default()
	}
	return &corpusService{
		path:        path,
		store:       store,
		distributor: distributor,
		revisions:   revisions,
		logger:      logger,
	}
}

func (s *corpusService) Reload(ctx context.Context) (CorpusStatus, error) {
	raw := corpus.LoadSource(s.path, s.logger)
	if _, ok := s.distributor.Publish(ctx, raw); !ok {
		return CorpusStatus{}, ErrNotAuthoritative
	}
	return s.Status(), nil
}

func (s *corpusService) Status() CorpusStatus {
	c := s.store.Current()
	return CorpusStatus{
		Version:    s.distributor.Version(),
		Categories: c.Categories(),
		Templates:  countTemplates(c),
	}
}

func (s *corpusService) Revisions(ctx context.Context, limit int) ([]models.CorpusRevision, error) {
	if limit <= 0 {
		limit = DefaultRevisionLimit
	}
	return s.revisions.List(ctx, limit)
}

func countTemplates(c *corpus.TextCorpus) int {
	n := 0
	for _, category := range c.Categories() {
		n += len(c.Templates(category))
	}
	return n
}

// RevisionRecorder is a synced.Publisher that writes every published corpus
// version to the revision history.
type RevisionRecorder struct {
	repo   repository.CorpusRevisionRepository
	logger *slog.Logger
}

func NewRevisionRecorder(repo repository.CorpusRevisionRepository, logger *slog.Logger) *RevisionRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &RevisionRecorder{repo: repo, logger: logger}
}

func (r *RevisionRecorder) PublishValue(ctx context.Context, v synced.Value) error {
	if v.Name != synced.CorpusKey {
		return nil
	}

	sum := sha256.Sum256(v.Data)
	rev := &models.CorpusRevision{
		Version:   v.Version,
		Checksum:  hex.EncodeToString(sum[:]),
		SizeBytes: len(v.Data),
	}
	if c, err := corpus.Parse(v.Data); err != nil {
		rev.Malformed = true
	} else {
		rev.Categories = c.Len()
		rev.Templates = countTemplates(c)
	}

	err := r.repo.Create(ctx, rev)
	if errors.Is(err, repository.ErrDuplicateRevision) {
		r.logger.Debug("corpus_revision_exists", "version", v.Version)
		return nil
	}
	if err != nil {
		return err
	}
	r.logger.Info("corpus_revision_recorded",
		"version", rev.Version,
		"checksum", rev.Checksum,
		"malformed", rev.Malformed,
	)
	return nil
}

// SeedVersions raises source's corpus version floor to the latest recorded
// revision so a restarted session never publishes an older version.
func SeedVersions(ctx context.Context, repo repository.CorpusRevisionRepository, source *synced.Source) error {
	latest, err := repo.Latest(ctx)
	if err != nil {
		return err
	}
	if latest != nil {
		source.Seed(synced.CorpusKey, latest.Version)
	}
	return nil
}

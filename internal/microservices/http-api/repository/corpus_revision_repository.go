package repository

import (
	"context"
	"errors"

	"darwinawards/internal/microservices/http-api/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateRevision is returned when a version was already recorded.
var ErrDuplicateRevision = errors.New("corpus revision already recorded")

type CorpusRevisionRepository interface {
	Create(ctx context.Context, rev *models.CorpusRevision) error
	// Latest returns nil without error when nothing was recorded yet.
	Latest(ctx context.Context) (*models.CorpusRevision, error)
	List(ctx context.Context, limit int) ([]models.CorpusRevision, error)
}

type corpusRevisionRepository struct {
	db *gorm.DB
}

// NewCorpusRevisionRepository returns a repository backed by db. A nil db
// gives a repository that records nothing, for sessions run without a database.
func NewCorpusRevisionRepository(db *gorm.DB) CorpusRevisionRepository {
	return &corpusRevisionRepository{db: db}
}

func (r *corpusRevisionRepository) Create(ctx context.Context, rev *models.CorpusRevision) error {
	if r.db == nil {
		return nil
	}
	err := r.db.WithContext(ctx).Create(rev).Error
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateRevision
	}
	return err
}

func (r *corpusRevisionRepository) Latest(ctx context.Context) (*models.CorpusRevision, error) {
	if r.db == nil {
		return nil, nil
	}
	var rev models.CorpusRevision
	err := r.db.WithContext(ctx).Order("version DESC").First(&rev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *corpusRevisionRepository) List(ctx context.Context, limit int) ([]models.CorpusRevision, error) {
	revisions := []models.CorpusRevision{}
	if r.db == nil {
		return revisions, nil
	}
	err := r.db.WithContext(ctx).
		Order("version DESC").
		Limit(limit).
		Find(&revisions).Error
	return revisions, err
}

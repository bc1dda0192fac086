package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dusk-indust/casier/internal/artifact"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Compile-time check that ArtifactRepository satisfies artifact.Store.
var _ artifact.Store = (*ArtifactRepository)(nil)

// ArtifactRepository implements artifact.Store.
type ArtifactRepository struct {
	db *gorm.DB
}

// NewArtifactRepository returns a repository backed by db.
func NewArtifactRepository(db *gorm.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Create inserts a. It fails if an artifact with the same ID exists.
func (r *ArtifactRepository) Create(ctx context.Context, a artifact.Artifact) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model, err := artifactModel(&a)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// Get loads the artifact with id or wraps artifact.ErrNotFound.
func (r *ArtifactRepository) Get(ctx context.Context, id string) (*artifact.Artifact, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ArtifactModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", id, artifact.ErrNotFound)
		}
		return nil, err
	}
	return artifactFromModel(&model)
}

// Update locks the row for the duration of fn so concurrent updates of the
// same artifact serialise.
func (r *ArtifactRepository) Update(ctx context.Context, id string, fn func(*artifact.Artifact) error) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model ArtifactModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%s: %w", id, artifact.ErrNotFound)
			}
			return err
		}
		a, err := artifactFromModel(&model)
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		a.ID = id
		updated, err := artifactModel(a)
		if err != nil {
			return err
		}
		return tx.Save(&updated).Error
	})
}

// List returns artifacts matching f, oldest first.
func (r *ArtifactRepository) List(ctx context.Context, f artifact.Filter) ([]artifact.Artifact, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	q := r.db.WithContext(ctx).Model(&ArtifactModel{})
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.DocumentType != "" {
		q = q.Where("document_type = ?", f.DocumentType)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	var models []ArtifactModel
	if err := q.Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]artifact.Artifact, 0, len(models))
	for i := range models {
		a, err := artifactFromModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func artifactModel(a *artifact.Artifact) (ArtifactModel, error) {
	var opts []byte
	if a.Options != nil {
		var err error
		opts, err = json.Marshal(a.Options)
		if err != nil {
			return ArtifactModel{}, fmt.Errorf("encode artifact options: %w", err)
		}
	}
	return ArtifactModel{
		ID:            a.ID,
		Name:          a.Name,
		Filename:      a.Filename,
		ClientID:      a.ClientID,
		ClientName:    a.ClientName,
		EvaluationID:  a.EvaluationID,
		Category:      a.Category,
		Subcategory:   a.Subcategory,
		DocumentType:  a.DocumentType,
		Format:        a.Format,
		Path:          a.Path,
		Status:        string(a.Status),
		FailureReason: a.FailureReason,
		OptionsJSON:   opts,
		GeneratedAt:   a.GeneratedAt,
		CreatedAt:     a.CreatedAt,
	}, nil
}

func artifactFromModel(m *ArtifactModel) (*artifact.Artifact, error) {
	a := &artifact.Artifact{
		ID:            m.ID,
		Name:          m.Name,
		Filename:      m.Filename,
		ClientID:      m.ClientID,
		ClientName:    m.ClientName,
		EvaluationID:  m.EvaluationID,
		Category:      m.Category,
		Subcategory:   m.Subcategory,
		DocumentType:  m.DocumentType,
		Format:        m.Format,
		Path:          m.Path,
		Status:        artifact.Status(m.Status),
		FailureReason: m.FailureReason,
		GeneratedAt:   m.GeneratedAt,
		CreatedAt:     m.CreatedAt,
	}
	if len(m.OptionsJSON) > 0 {
		if err := json.Unmarshal(m.OptionsJSON, &a.Options); err != nil {
			return nil, fmt.Errorf("decode artifact %s options: %w", m.ID, err)
		}
	}
	return a, nil
}

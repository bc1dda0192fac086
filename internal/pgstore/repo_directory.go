package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dusk-indust/casier/internal/nomenclature"
	"github.com/dusk-indust/casier/internal/orchestrator"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Compile-time check that DirectoryRepository satisfies orchestrator.Directory.
var _ orchestrator.Directory = (*DirectoryRepository)(nil)

// DirectoryRepository answers client and evaluation lookups.
type DirectoryRepository struct {
	db *gorm.DB
}

// NewDirectoryRepository returns a directory backed by db.
func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// AddClient inserts or renames a client.
func (r *DirectoryRepository) AddClient(ctx context.Context, id int64, name string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).
		Create(&ClientModel{ID: id, Name: name, CreatedAt: time.Now().UTC()}).Error
}

// AddEvaluation records an evaluation for a client.
func (r *DirectoryRepository) AddEvaluation(ctx context.Context, clientID, evaluationID int64) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&EvaluationModel{ID: evaluationID, ClientID: clientID, CreatedAt: time.Now().UTC()}).Error
}

// Client looks up a client by id. Unknown ids wrap orchestrator.ErrUnknownClient.
func (r *DirectoryRepository) Client(ctx context.Context, id int64) (nomenclature.Client, error) {
	if r.db == nil {
		return nomenclature.Client{}, errDBUnavailable
	}
	var model ClientModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nomenclature.Client{}, fmt.Errorf("client %d: %w", id, orchestrator.ErrUnknownClient)
		}
		return nomenclature.Client{}, err
	}
	return nomenclature.Client{ID: model.ID, Name: model.Name}, nil
}

// EvaluationExists reports whether evaluationID belongs to clientID.
func (r *DirectoryRepository) EvaluationExists(ctx context.Context, clientID, evaluationID int64) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&EvaluationModel{}).
		Where("id = ? AND client_id = ?", evaluationID, clientID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

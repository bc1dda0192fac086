package pgstore

import (
	"context"
	"fmt"

	"github.com/dusk-indust/casier/internal/depgraph"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Compile-time check that GraphRepository satisfies depgraph.Store.
var _ depgraph.Store = (*GraphRepository)(nil)

// GraphRepository stores document types and their dependency edges.
type GraphRepository struct {
	db *gorm.DB
}

// NewGraphRepository returns a repository backed by db.
func NewGraphRepository(db *gorm.DB) *GraphRepository {
	return &GraphRepository{db: db}
}

// InitSchema migrates the graph tables.
func (r *GraphRepository) InitSchema(ctx context.Context) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).AutoMigrate(&DocumentTypeModel{}, &DependencyModel{})
}

// AddNode inserts node or updates the document type with the same code.
func (r *GraphRepository) AddNode(ctx context.Context, node depgraph.Node) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := DocumentTypeModel{
		Code:                  node.Code,
		Name:                  node.Name,
		RequiresEvaluation:    node.RequiresEvaluation,
		RequiresQuestionnaire: node.RequiresQuestionnaire,
		IsAvailable:           node.IsAvailable,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, UpdateAll: true}).
		Create(&model).Error
}

// AddEdge inserts or updates edge. Both endpoints must already exist.
func (r *GraphRepository) AddEdge(ctx context.Context, edge depgraph.Edge) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&DocumentTypeModel{}).
			Where("code IN ?", []string{edge.DocumentType, edge.DependsOn}).
			Count(&count).Error
		if err != nil {
			return err
		}
		want := int64(2)
		if edge.DocumentType == edge.DependsOn {
			want = 1
		}
		if count != want {
			return fmt.Errorf("pgstore: edge %s -> %s references an unknown document type", edge.DocumentType, edge.DependsOn)
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_type"}, {Name: "depends_on"}},
			DoUpdates: clause.AssignmentColumns([]string{"required"}),
		}).Create(&DependencyModel{
			DocumentType: edge.DocumentType,
			DependsOn:    edge.DependsOn,
			Required:     edge.Required,
		}).Error
	})
}

// Nodes returns every document type ordered by code.
func (r *GraphRepository) Nodes(ctx context.Context) ([]depgraph.Node, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []DocumentTypeModel
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]depgraph.Node, 0, len(models))
	for _, m := range models {
		out = append(out, depgraph.Node{
			Code:                  m.Code,
			Name:                  m.Name,
			RequiresEvaluation:    m.RequiresEvaluation,
			RequiresQuestionnaire: m.RequiresQuestionnaire,
			IsAvailable:           m.IsAvailable,
		})
	}
	return out, nil
}

// Edges returns every dependency edge ordered by (documentType, dependsOn).
func (r *GraphRepository) Edges(ctx context.Context) ([]depgraph.Edge, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []DependencyModel
	if err := r.db.WithContext(ctx).Order("document_type ASC, depends_on ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]depgraph.Edge, 0, len(models))
	for _, m := range models {
		out = append(out, depgraph.Edge{DocumentType: m.DocumentType, DependsOn: m.DependsOn, Required: m.Required})
	}
	return out, nil
}

// Close is a no-op; the connection belongs to Store.
func (r *GraphRepository) Close() error { return nil }

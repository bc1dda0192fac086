package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dusk-indust/casier/internal/registry"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Compile-time check that CasierRepository satisfies registry.Source.
var _ registry.Source = (*CasierRepository)(nil)

// CasierRepository stores casiers keyed by (category, subcategory,
// documentType).
type CasierRepository struct {
	db *gorm.DB
}

// NewCasierRepository returns a repository backed by db.
func NewCasierRepository(db *gorm.DB) *CasierRepository {
	return &CasierRepository{db: db}
}

// Upsert inserts c or replaces the casier registered under the same key.
func (r *CasierRepository) Upsert(ctx context.Context, c registry.Casier) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model, err := casierModel(c)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "category"}, {Name: "subcategory"}, {Name: "document_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"template_id", "display_name", "filename_pattern", "prompt_doc_id", "summary_doc_id",
				"format", "template_path", "structure", "description", "tags", "active", "updated_at",
			}),
		}).
		Create(&model).Error
}

// ListCasiers returns every stored casier, inactive ones included, ordered
// by key.
func (r *CasierRepository) ListCasiers(ctx context.Context) ([]registry.Casier, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []CasierModel
	err := r.db.WithContext(ctx).
		Order("category ASC, subcategory ASC, document_type ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]registry.Casier, 0, len(models))
	for i := range models {
		c, err := casierFromModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func casierModel(c registry.Casier) (CasierModel, error) {
	key := registry.NewKey(c.Category, c.Subcategory, c.DocumentType)
	model := CasierModel{
		Category:        key.Category,
		Subcategory:     key.Subcategory,
		DocumentType:    key.DocumentType,
		TemplateID:      c.TemplateID,
		DisplayName:     c.DisplayName,
		FilenamePattern: c.FilenamePattern,
		PromptDocID:     c.Content.PromptDocID,
		SummaryDocID:    c.Content.SummaryDocID,
		Format:          string(c.Format),
		TemplatePath:    c.TemplatePath,
		Description:     c.Description,
		Active:          c.IsActive(),
	}
	var err error
	if len(c.Structure) > 0 {
		if model.StructureJSON, err = json.Marshal(c.Structure); err != nil {
			return CasierModel{}, fmt.Errorf("encode casier %s structure: %w", key, err)
		}
	}
	if len(c.Tags) > 0 {
		if model.TagsJSON, err = json.Marshal(c.Tags); err != nil {
			return CasierModel{}, fmt.Errorf("encode casier %s tags: %w", key, err)
		}
	}
	return model, nil
}

func casierFromModel(m *CasierModel) (registry.Casier, error) {
	active := m.Active
	c := registry.Casier{
		Key:             registry.Key{Category: m.Category, Subcategory: m.Subcategory, DocumentType: m.DocumentType},
		TemplateID:      m.TemplateID,
		DisplayName:     m.DisplayName,
		FilenamePattern: m.FilenamePattern,
		Content:         registry.ContentRefs{PromptDocID: m.PromptDocID, SummaryDocID: m.SummaryDocID},
		Format:          registry.Format(m.Format),
		TemplatePath:    m.TemplatePath,
		Description:     m.Description,
		Active:          &active,
	}
	if len(m.StructureJSON) > 0 {
		if err := json.Unmarshal(m.StructureJSON, &c.Structure); err != nil {
			return registry.Casier{}, fmt.Errorf("decode casier %s structure: %w", c.Key, err)
		}
	}
	if len(m.TagsJSON) > 0 {
		if err := json.Unmarshal(m.TagsJSON, &c.Tags); err != nil {
			return registry.Casier{}, fmt.Errorf("decode casier %s tags: %w", c.Key, err)
		}
	}
	return c, nil
}

package pgstore

import "time"

// ClientModel is a row of clients.
type ClientModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (ClientModel) TableName() string { return "clients" }

// EvaluationModel is a row of evaluations.
type EvaluationModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"`
	ClientID  int64     `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (EvaluationModel) TableName() string { return "evaluations" }

// CasierModel is a row of casiers. Content references are nullable.
type CasierModel struct {
	ID              int64  `gorm:"primaryKey"`
	Category        string `gorm:"uniqueIndex:idx_casier_key;not null"`
	Subcategory     string `gorm:"uniqueIndex:idx_casier_key;not null"`
	DocumentType    string `gorm:"uniqueIndex:idx_casier_key;not null"`
	TemplateID      string `gorm:"not null"`
	DisplayName     string
	FilenamePattern string
	PromptDocID     *int64
	SummaryDocID    *int64
	Format          string
	TemplatePath    string
	StructureJSON   []byte `gorm:"column:structure;type:jsonb"`
	Description     string
	TagsJSON        []byte `gorm:"column:tags;type:jsonb"`
	Active          bool   `gorm:"not null;default:true"`
	UpdatedAt       time.Time
}

func (CasierModel) TableName() string { return "casiers" }

// DocumentTypeModel is a node of the dependency graph.
type DocumentTypeModel struct {
	Code                  string `gorm:"primaryKey"`
	Name                  string `gorm:"not null"`
	RequiresEvaluation    bool   `gorm:"not null"`
	RequiresQuestionnaire bool   `gorm:"not null"`
	IsAvailable           bool   `gorm:"not null"`
}

func (DocumentTypeModel) TableName() string { return "document_types" }

// DependencyModel is an edge of the dependency graph.
type DependencyModel struct {
	DocumentType string `gorm:"primaryKey"`
	DependsOn    string `gorm:"primaryKey"`
	Required     bool   `gorm:"not null"`
}

func (DependencyModel) TableName() string { return "document_dependencies" }

// ArtifactModel is a row of artifacts. Options are stored as JSON.
type ArtifactModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	Name          string `gorm:"not null"`
	Filename      string `gorm:"not null"`
	ClientID      int64  `gorm:"index;not null"`
	ClientName    string
	EvaluationID  *int64 `gorm:"index"`
	Category      string `gorm:"not null"`
	Subcategory   string `gorm:"not null"`
	DocumentType  string `gorm:"index;not null"`
	Format        string `gorm:"not null"`
	Path          string
	Status        string `gorm:"index;not null"`
	FailureReason string
	OptionsJSON   []byte `gorm:"column:options;type:jsonb"`
	GeneratedAt   *time.Time
	CreatedAt     time.Time `gorm:"index;not null"`
}

func (ArtifactModel) TableName() string { return "artifacts" }

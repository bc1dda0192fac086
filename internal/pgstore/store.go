// Package pgstore persists casiers, the document dependency graph, clients
// and artifacts in Postgres through gorm.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errDBUnavailable = errors.New("db unavailable")

// Store owns the database handle shared by the repositories.
type Store struct {
	DB *gorm.DB
}

// Open connects to the Postgres database at dsn.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("pgstore: dsn is required")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{DB: gdb}, nil
}

// Migrate creates or updates every table the repositories use.
func (s *Store) Migrate(ctx context.Context) error {
	if s.DB == nil {
		return errDBUnavailable
	}
	return migrate(s.DB.WithContext(ctx))
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Artifacts returns the artifact repository.
func (s *Store) Artifacts() *ArtifactRepository { return NewArtifactRepository(s.DB) }

// Casiers returns the casier repository.
func (s *Store) Casiers() *CasierRepository { return NewCasierRepository(s.DB) }

// Graph returns the dependency graph repository.
func (s *Store) Graph() *GraphRepository { return NewGraphRepository(s.DB) }

// Directory returns the client directory.
func (s *Store) Directory() *DirectoryRepository { return NewDirectoryRepository(s.DB) }

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ClientModel{},
		&EvaluationModel{},
		&CasierModel{},
		&DocumentTypeModel{},
		&DependencyModel{},
		&ArtifactModel{},
	)
}

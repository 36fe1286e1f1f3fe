package db

import (
	"context"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"

	"github.com/google/uuid"
)

// ReferenceCatalog is the interface for reference catalog operations
type ReferenceCatalog interface {
	Close() error
	Insert(snap *trees.Snapshot) (Entry, error)
	Get(id uuid.UUID) (*trees.Snapshot, error)
	List() ([]Entry, error)
	Find(version string, platform trees.Platform) ([]Entry, error)
	Delete(id uuid.UUID) (bool, error)
	LoadAll(ctx context.Context) ([]*trees.Snapshot, error)
	Backup(dir string) (string, error)
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/hashing"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/reference"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("reference not found in catalog")

// Entry describes a reference stored in the catalog.
type Entry struct {
	ID         uuid.UUID
	Version    string
	Platform   trees.Platform
	Info       string
	Digest     string
	ImportedAt time.Time
}

// Catalog keeps reference snapshots in a libsql database. Payloads are
// stored in the reference file format so that exports are byte-compatible.
type Catalog struct {
	db *sql.DB
}

var (
	_ ReferenceCatalog = (*Catalog)(nil)
	_ reference.Store  = (*Catalog)(nil)
)

// OpenCatalog opens or initializes the catalog database at path.
func OpenCatalog(path string) (*Catalog, error) {
	slog.Debug("Opening reference catalog", "path", path)

	db, err := ConnectToDB(path)
	if err != nil {
		return nil, err
	}
	catalog, err := NewCatalog(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return catalog, nil
}

// NewCatalog wraps an open database and creates the schema if needed.
func NewCatalog(db *sql.DB) (*Catalog, error) {
	c := &Catalog{db: db}
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) init() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS reference_snapshots (
		id TEXT PRIMARY KEY UNIQUE,
		version TEXT NOT NULL,
		platform TEXT NOT NULL,
		info TEXT,
		digest TEXT NOT NULL UNIQUE,
		imported_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create reference_snapshots table: %w", err)
	}

	_, err = c.db.Exec(`CREATE INDEX IF NOT EXISTS idx_reference_snapshots_identity
		ON reference_snapshots (version, platform)`)
	if err != nil {
		return fmt.Errorf("failed to create reference_snapshots index: %w", err)
	}
	return nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Insert stores snap. Importing identical reference content twice returns
// the existing entry.
func (c *Catalog) Insert(snap *trees.Snapshot) (Entry, error) {
	payload, err := reference.Marshal(snap)
	if err != nil {
		return Entry{}, fmt.Errorf("error marshalling reference: %w", err)
	}
	digest := hashing.DigestBytes(payload)

	if existing, err := c.byDigest(digest); err == nil {
		slog.Debug("Reference already in catalog", "id", existing.ID, "label", snap.Label())
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Entry{}, err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	entry := Entry{
		ID:         uuid.New(),
		Version:    snap.Version,
		Platform:   snap.Platform,
		Info:       snap.Info,
		Digest:     digest,
		ImportedAt: time.Now().UTC().Truncate(time.Second),
	}
	result, err := tx.Exec(
		"INSERT INTO reference_snapshots (id, version, platform, info, digest, imported_at, payload) VALUES (?, ?, ?, ?, ?, ?, ?)",
		entry.ID.String(), entry.Version, entry.Platform.String(), entry.Info, entry.Digest, entry.ImportedAt.Format(time.RFC3339), payload,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("error inserting reference into database: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows != 1 {
		return Entry{}, fmt.Errorf("expected 1 row affected, got %d", rows)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("Reference added to catalog", "id", entry.ID, "label", snap.Label())
	return entry, nil
}

const entryColumns = "id, version, platform, info, digest, imported_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry              Entry
		id, platform, when string
		info               sql.NullString
	)
	if err := row.Scan(&id, &entry.Version, &platform, &info, &entry.Digest, &when); err != nil {
		return Entry{}, err
	}

	var err error
	if entry.ID, err = uuid.Parse(id); err != nil {
		return Entry{}, fmt.Errorf("failed to parse reference id: %w", err)
	}
	if entry.Platform, err = trees.ParsePlatform(platform); err != nil {
		return Entry{}, err
	}
	if entry.ImportedAt, err = time.Parse(time.RFC3339, when); err != nil {
		return Entry{}, fmt.Errorf("error parsing time: %w", err)
	}
	entry.Info = info.String
	return entry, nil
}

func (c *Catalog) byDigest(digest string) (Entry, error) {
	row := c.db.QueryRow("SELECT "+entryColumns+" FROM reference_snapshots WHERE digest = ?", digest)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return entry, err
}

// Get returns the snapshot stored under id.
func (c *Catalog) Get(id uuid.UUID) (*trees.Snapshot, error) {
	var payload []byte
	err := c.db.QueryRow("SELECT payload FROM reference_snapshots WHERE id = ?", id.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reference: %w", err)
	}
	return decodePayload(id, payload)
}

func decodePayload(id uuid.UUID, payload []byte) (*trees.Snapshot, error) {
	snap, err := reference.Unmarshal(payload)
	if err != nil {
		var invalid *reference.InvalidReferenceError
		if errors.As(err, &invalid) {
			invalid.Source = "catalog:" + id.String()
		}
		return nil, err
	}
	return snap, nil
}

func (c *Catalog) queryEntries(query string, args ...any) ([]Entry, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// List returns all entries, oldest import first.
func (c *Catalog) List() ([]Entry, error) {
	return c.queryEntries("SELECT " + entryColumns + " FROM reference_snapshots ORDER BY imported_at ASC, rowid ASC")
}

// Find returns the entries for version (case-insensitive) and platform.
func (c *Catalog) Find(version string, platform trees.Platform) ([]Entry, error) {
	return c.queryEntries(
		"SELECT "+entryColumns+" FROM reference_snapshots WHERE lower(version) = ? AND platform = ? ORDER BY imported_at ASC, rowid ASC",
		strings.ToLower(version), platform.String(),
	)
}

// Delete removes the entry with id and reports whether it existed.
func (c *Catalog) Delete(id uuid.UUID) (bool, error) {
	result, err := c.db.Exec("DELETE FROM reference_snapshots WHERE id = ?", id.String())
	if err != nil {
		return false, fmt.Errorf("failed to delete reference: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// LoadAll returns every stored snapshot in import order. Payloads that no
// longer decode are reported in the joined error.
func (c *Catalog) LoadAll(ctx context.Context) ([]*trees.Snapshot, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT id, payload FROM reference_snapshots ORDER BY imported_at ASC, rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	defer rows.Close()

	var snaps []*trees.Snapshot
	var errs []error
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to parse reference id: %w", err))
			continue
		}
		snap, err := decodePayload(parsed, payload)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return snaps, errors.Join(errs...)
}

// Backup copies the catalog into dir with VACUUM INTO and returns the path
// of the copy.
func (c *Catalog) Backup(dir string) (string, error) {
	if c.db == nil {
		return "", fmt.Errorf("cannot backup: database connection is nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(dir, fmt.Sprintf("catalog_backup_%s.db", timestamp))
	if _, err := c.db.Exec("VACUUM INTO ?", backupPath); err != nil {
		return "", fmt.Errorf("backup failed: %w", err)
	}

	slog.Info("Catalog backup created successfully", "path", backupPath)
	return backupPath, nil
}

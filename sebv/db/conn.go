package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"
)

// ConnectToDB opens the libsql database at path, creating its directory.
// A DSN that already carries a scheme (file:, libsql:, http:) is used as is.
func ConnectToDB(path string) (*sql.DB, error) {
	dsn := path
	if !strings.Contains(path, ":") || filepath.IsAbs(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("could not create database directory: %w", err)
		}
		dsn = "file:" + path
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", dsn, err)
	}
	return db, nil
}

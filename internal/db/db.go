package db

import (
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/tollgate-data/gantryflow/internal/security"
)

// ErrNotFound is returned by Get* lookups when no row matches the key.
var ErrNotFound = errors.New("not found")

type DB struct {
	*sql.DB

	path string
}

// OpenDB opens the sqlite database and applies connection pragmas without
// touching the schema. Migrations own the schema; use NewDB for the common
// open-and-check path.
func OpenDB(path string) (*DB, error) {
	// _time_format=sqlite stores time.Time values in a form the sqlite
	// date functions (strftime, julianday) can parse.
	sqlDB, err := sql.Open("sqlite", path+"?_time_format=sqlite")
	if err != nil {
		return nil, err
	}

	if _, err := sqlDB.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &DB{DB: sqlDB, path: path}, nil
}

// NewDB opens the database and verifies the schema is at the latest
// migration version, prompting the operator if it is not.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}

	if needsAction, err := db.CheckAndPromptMigrations(migrationsFS); needsAction {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Path returns the filesystem path the database was opened with.
func (db *DB) Path() string {
	return db.path
}

// AttachAdminRoutes mounts the tsweb debugger, a tailsql live-SQL console,
// and an on-demand gzip'd backup download under /debug/.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Tollroad DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := filepath.Join(os.TempDir(), fmt.Sprintf("backup-%d.db", time.Now().Unix()))
		if err := security.ValidatePathWithinDirectory(backupPath, os.TempDir()); err != nil {
			http.Error(w, fmt.Sprintf("Invalid backup path: %v", err), http.StatusInternalServerError)
			return
		}
		if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("failed to remove backup file: %v", err)
			}
		}()

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(backupPath)))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			log.Printf("failed to write backup: %v", err)
		}
	}))
}

package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE objects (
	addr  INTEGER PRIMARY KEY,
	label TEXT NOT NULL,
	class TEXT NOT NULL,
	kind  TEXT NOT NULL,
	size  INTEGER NOT NULL
);
`

// writeSQLiteDump writes the dump as a fresh SQLite database: a meta table
// with the run parameters and an objects table with one row per visited
// object. Any existing database at the path is replaced.
func writeSQLiteDump(path string, doc *dumpFile) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace dump database: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open dump database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create dump schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin dump transaction: %w", err)
	}
	defer tx.Rollback()

	metaStmt, err := tx.Prepare(`INSERT INTO meta (key, value) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer metaStmt.Close()

	meta := [][2]string{
		{"fixture", doc.Fixture},
		{"workers", fmt.Sprint(doc.Workers)},
		{"include_weak", fmt.Sprint(doc.IncludeWeak)},
		{"chunk_stride", fmt.Sprint(doc.ChunkStride)},
	}
	for _, kv := range meta {
		if _, err := metaStmt.Exec(kv[0], kv[1]); err != nil {
			return fmt.Errorf("write dump meta: %w", err)
		}
	}

	objStmt, err := tx.Prepare(
		`INSERT INTO objects (addr, label, class, kind, size) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer objStmt.Close()

	for _, o := range doc.Objects {
		if _, err := objStmt.Exec(int64(o.Addr), o.Label, o.Class, o.Kind, int64(o.Size)); err != nil {
			return fmt.Errorf("write dump object %q: %w", o.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dump: %w", err)
	}
	return nil
}

// Package database provides the SQLite store behind the report archive.
//
// It opens the database file with WAL mode and a busy timeout, and applies
// schema migrations read from any fs.FS (the migrations package embeds the
// shipped ones).
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive only. New columns must be nullable or carry a
// default so an older binary can still read the archive.
package database

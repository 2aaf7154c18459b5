// Package migrations embeds the SQL schema of the report archive into the
// binary so the daemon can migrate without the files on disk.
package migrations

import "embed"

// FS holds every *.sql file in this directory, at the root of the filesystem.
//
//go:embed *.sql
var FS embed.FS

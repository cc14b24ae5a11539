package metadatastore

import (
	"database/sql"

	"github.com/pkg/errors"
)

// Migrate applies the docvault schema, in the manner of the teacher's
// favorite/sql/migrator: a small, idempotent set of CREATE TABLE IF NOT
// EXISTS statements run once at startup, rather than a versioned chain,
// since this schema is fixed by the spec rather than evolving release to
// release.
func Migrate(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "metadatastore: failed to apply schema statement")
		}
	}
	return nil
}

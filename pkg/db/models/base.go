package models

import (
	"github.com/google/uuid"
)

// ensureID assigns a v4 id when the row has none. Postgres also defaults ids, but
// generating them here keeps inserts portable and lets callers reference ids inside a
// transaction before it commits.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

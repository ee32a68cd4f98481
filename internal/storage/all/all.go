// Package all registers every catalog store backend. Commands import it for
// its side effects.
package all

import (
	_ "registry/internal/storage/mssql"
	_ "registry/internal/storage/postgres"
	_ "registry/internal/storage/sqlite"
)

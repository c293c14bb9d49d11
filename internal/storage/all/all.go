// Package all links every storage backend.
package all

import (
	_ "cteview/internal/storage/mssql"
	_ "cteview/internal/storage/postgres"
	_ "cteview/internal/storage/sqlite"
)

// Package all wires all built-in storage backends into the storage registry.
//
// Importing it (even as a blank import) runs the init functions of each
// backend, making these kinds available to storage.Open:
//
//   - "postgres" (footballetl/internal/storage/postgres)
//   - "sqlite"   (footballetl/internal/storage/sqlite)
//   - "mysql"    (footballetl/internal/storage/mysql)
//   - "mssql"    (footballetl/internal/storage/mssql)
//
// A binary that needs only a subset can import the backends it wants
// directly instead.
package all

import (
	_ "footballetl/internal/storage/mssql"
	_ "footballetl/internal/storage/mysql"
	_ "footballetl/internal/storage/postgres"
	_ "footballetl/internal/storage/sqlite"
)

// Package hubdb holds all the migrations for the hub API database
package hubdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection every numbered migration file registers into.
var Migrations = migrate.NewMigrations()

package hubdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/luminet/hub-api/pkg/pgutil/migrations"
	"github.com/luminet/hub-api/pkg/schema"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating models table...")
		return mghelper.CreateSchema(ctx, db, (*schema.Model)(nil))
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping models table...")
		return mghelper.DropTables(ctx, db, (*schema.Model)(nil))
	})
}

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
		log.Println("creating sessions table...")
		if err := mghelper.CreateSchema(ctx, db, (*schema.Session)(nil)); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, (*schema.Session)(nil), "user_id", "expires_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping sessions table...")
		return mghelper.DropTables(ctx, db, (*schema.Session)(nil))
	})
}

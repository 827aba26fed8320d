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
		log.Println("creating validators table...")
		if err := mghelper.CreateSchema(ctx, db, (*schema.Validator)(nil)); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, (*schema.Validator)(nil), "vali_name")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping validators table...")
		return mghelper.DropTables(ctx, db, (*schema.Validator)(nil))
	})
}

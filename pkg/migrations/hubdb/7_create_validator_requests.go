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
		log.Println("creating validator_requests table...")
		if err := mghelper.CreateSchema(ctx, db, (*schema.ValidatorRequest)(nil)); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, (*schema.ValidatorRequest)(nil),
			"timestamp", "block", "hotkey", "date")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping validator_requests table...")
		return mghelper.DropTables(ctx, db, (*schema.ValidatorRequest)(nil))
	})
}

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
		log.Println("creating organic_requests table...")
		if err := mghelper.CreateSchema(ctx, db, (*schema.OrganicRequest)(nil)); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, (*schema.OrganicRequest)(nil),
			"pub_id", "user_id", "model_id", "created_at", "scored")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping organic_requests table...")
		return mghelper.DropTables(ctx, db, (*schema.OrganicRequest)(nil))
	})
}

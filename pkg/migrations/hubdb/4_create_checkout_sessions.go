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
		log.Println("creating checkout_sessions table...")
		if err := mghelper.CreateSchema(ctx, db, (*schema.CheckoutSession)(nil)); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, (*schema.CheckoutSession)(nil), "user_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping checkout_sessions table...")
		return mghelper.DropTables(ctx, db, (*schema.CheckoutSession)(nil))
	})
}

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
		log.Println("creating miner_responses table...")
		if err := mghelper.CreateSchema(ctx, db, (*schema.MinerResponse)(nil)); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, (*schema.MinerResponse)(nil),
			"r_nanoid", "hotkey", "coldkey", "uid", "wps", "time_for_all_tokens", "verified")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping miner_responses table...")
		return mghelper.DropTables(ctx, db, (*schema.MinerResponse)(nil))
	})
}

package arenamigrations

import (
	"context"
	"fmt"

	arenaeconomy "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/economy"
	arenaroster "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/roster"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating bank account and roster tables...")

		if err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if err := arenaeconomy.CreateTables(ctx, tx); err != nil {
				return err
			}
			return arenaroster.CreateTables(ctx, tx)
		}); err != nil {
			return err
		}

		fmt.Println("Bank account and roster tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Rolling back bank account and roster tables...")

		if err := arenaroster.DropTables(ctx, db); err != nil {
			return err
		}
		if err := arenaeconomy.DropTables(ctx, db); err != nil {
			return err
		}

		fmt.Println("Bank account and roster tables dropped successfully!")
		return nil
	})
}

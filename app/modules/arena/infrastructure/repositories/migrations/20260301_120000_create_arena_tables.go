package arenamigrations

import (
	"context"
	"fmt"

	arenadb "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating arena tables...")

		if err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return arenadb.CreateTables(ctx, tx)
		}); err != nil {
			return err
		}

		fmt.Println("Arena tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Rolling back arena tables...")

		if err := arenadb.DropTables(ctx, db); err != nil {
			return err
		}

		fmt.Println("Arena tables dropped successfully!")
		return nil
	})
}

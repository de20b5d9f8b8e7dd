// Command seed resets the configured database and loads the demo dataset.
//
//	./seed --db=marketplace.db
//	DB_DRIVER=postgres DB_DSN=postgres://localhost/marketplace ./seed
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/warp/contractor-payments/config"
	"github.com/warp/contractor-payments/logger"
	"github.com/warp/contractor-payments/seed"
	"github.com/warp/contractor-payments/store/postgres"
	"github.com/warp/contractor-payments/store/sqlite"
	"github.com/warp/contractor-payments/store/sqlstore"
)

func main() {
	fs := pflag.NewFlagSet("seed", pflag.ExitOnError)
	config.Flags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var store *sqlstore.Store
	if cfg.DB.Driver == config.DriverPostgres {
		store, err = postgres.New(ctx, cfg.DB.DSN, postgres.Options{})
	} else {
		store, err = sqlite.New(cfg.DB.DSN)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer store.Close()

	d := seed.Default()
	if err := seed.Load(ctx, store, d); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().
		Int("profiles", len(d.Profiles)).
		Int("contracts", len(d.Contracts)).
		Int("jobs", len(d.Jobs)).
		Msg("seed complete")
}
